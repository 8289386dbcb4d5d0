package history

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"notionclone/client/internal/autosave"
)

const (
	docV1 = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"first"}]}]}`
	docV2 = `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"second"}]}]}`
)

func TestCommitHistoryAndGet(t *testing.T) {
	store := New(t.TempDir(), "Ada Lovelace")

	first, changed, err := store.Commit("page-1", Content{Title: "Plans", Doc: json.RawMessage(docV1)}, "initial")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if !changed || first.Hash == "" {
		t.Fatalf("expected first commit, got %+v changed=%v", first, changed)
	}

	second, changed, err := store.Commit("page-1", Content{Title: "Plans", Doc: json.RawMessage(docV2)}, "edit")
	if err != nil || !changed {
		t.Fatalf("second Commit() changed=%v err=%v", changed, err)
	}

	entries, err := store.History("page-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Hash != second.Hash || entries[1].Hash != first.Hash {
		t.Fatalf("unexpected history %+v", entries)
	}
	if entries[0].Author != "Ada Lovelace" || entries[0].Message != "edit" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}

	limited, err := store.History("page-1", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("History(limit=1) = %v, %v", limited, err)
	}

	old, err := store.Get("page-1", first.Hash)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := old.Tree().TextContent(old.Tree().Root()); got != "first" {
		t.Fatalf("expected first version text, got %q", got)
	}

	head, entry, err := store.Head("page-1")
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if entry.Hash != second.Hash || head.Title != "Plans" {
		t.Fatalf("unexpected head %+v %+v", head, entry)
	}
}

func TestCommitSkipsUnchangedContent(t *testing.T) {
	store := New(t.TempDir(), "")
	if _, _, err := store.Commit("p", Content{Title: "T", Doc: json.RawMessage(docV1)}, "one"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	reformatted := `{ "type": "doc", "content": [ {"type":"paragraph","content":[{"type":"text","text":"first"}]} ] }`
	_, changed, err := store.Commit("p", Content{Title: "T", Doc: json.RawMessage(reformatted)}, "two")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if changed {
		t.Fatal("expected whitespace-only change to be skipped")
	}
	entries, _ := store.History("p", 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestRecordImplementsJournal(t *testing.T) {
	var journal autosave.Journal = New(t.TempDir(), "")
	if err := journal.Record("page-2", autosave.Snapshot{Seq: 3, Title: "Notes", Content: []byte(docV1)}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	entries, err := journal.(*Store).History("page-2", 0)
	if err != nil || len(entries) != 1 || entries[0].Message != "autosave #3" {
		t.Fatalf("unexpected history %+v err=%v", entries, err)
	}
}

func TestMissingAndInvalidPages(t *testing.T) {
	store := New(t.TempDir(), "")
	if _, err := store.History("nope", 0); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	if _, _, err := store.Commit("../escape", Content{Title: "x"}, "m"); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
}

func TestConcurrentCommitsAreSerialized(t *testing.T) {
	store := New(t.TempDir(), "")
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := string(rune('a' + i))
			if _, _, err := store.Commit("shared", Content{Title: title, Doc: json.RawMessage(docV1)}, title); err != nil {
				t.Errorf("Commit(%s) error = %v", title, err)
			}
		}(i)
	}
	wg.Wait()
	entries, err := store.History("shared", 0)
	if err != nil || len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d err=%v", len(entries), err)
	}
}

func TestHasChanges(t *testing.T) {
	a := Content{Title: "A", Doc: json.RawMessage(docV1)}
	if HasChanges(a, a) {
		t.Fatal("identical content reported as changed")
	}
	if !HasChanges(a, Content{Title: "B", Doc: a.Doc}) {
		t.Fatal("title change not detected")
	}
	if !HasChanges(a, Content{Title: "A", Doc: json.RawMessage(docV2)}) {
		t.Fatal("doc change not detected")
	}
}
