package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionclone/client/internal/editor"
)

type counterSource struct {
	mu sync.Mutex
	n  int
}

func (s *counterSource) bump() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *counterSource) Serialize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []byte(fmt.Sprintf(`{"type":"doc","n":%d}`, s.n)), nil
}

type recordingSaver struct {
	mu      sync.Mutex
	snaps   []Snapshot
	err     error
	block   chan struct{}
	started chan struct{}
	active  int32
	maxSeen int32
}

func (r *recordingSaver) Save(ctx context.Context, pageID string, snap Snapshot) error {
	cur := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		prev := atomic.LoadInt32(&r.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&r.maxSeen, prev, cur) {
			break
		}
	}
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return r.err
}

func (r *recordingSaver) calls() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestDebounceCoalescesBursts(t *testing.T) {
	src := &counterSource{}
	saver := &recordingSaver{}
	a := New(context.Background(), "page-1", src, saver, Options{Delay: 30 * time.Millisecond, Locks: &PageLocks{}})
	defer a.Close(context.Background())

	assert.Equal(t, Saved, a.State())
	for i := 0; i < 5; i++ {
		src.bump()
		a.Touch()
		assert.Equal(t, Dirty, a.State())
	}

	waitFor(t, func() bool { return a.State() == Saved })
	calls := saver.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, uint64(5), calls[0].Seq)
	assert.JSONEq(t, `{"type":"doc","n":5}`, string(calls[0].Content))
}

func TestFailedSaveStaysDirtyWithoutRetry(t *testing.T) {
	saver := &recordingSaver{err: errors.New("boom")}
	errs := make(chan error, 4)
	a := New(context.Background(), "page-1", &counterSource{}, saver, Options{
		Delay:   10 * time.Millisecond,
		OnError: func(err error) { errs <- err },
		Locks:   &PageLocks{},
	})

	a.Touch()
	select {
	case err := <-errs:
		assert.EqualError(t, err, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("no error notification")
	}

	time.Sleep(60 * time.Millisecond)
	assert.Len(t, saver.calls(), 1, "failed saves must not be retried")
	assert.Equal(t, Dirty, a.State())
	assert.EqualError(t, a.LastError(), "boom")

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, Saved, a.State())
	require.NoError(t, a.Close(context.Background()))
}

func TestSavesNeverOverlapAndStaleCompletionKeepsDirty(t *testing.T) {
	saver := &recordingSaver{block: make(chan struct{}), started: make(chan struct{}, 4)}
	saved := make(chan Snapshot, 4)
	a := New(context.Background(), "page-1", &counterSource{}, saver, Options{
		Delay:   5 * time.Millisecond,
		OnSaved: func(s Snapshot) { saved <- s },
		Locks:   &PageLocks{},
	})

	a.Touch()
	<-saver.started
	assert.True(t, a.Saving())

	a.Touch()
	a.Touch()
	time.Sleep(30 * time.Millisecond)

	saver.block <- struct{}{}
	first := <-saved
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, Dirty, a.State(), "an older save must not mark newer edits saved")

	<-saver.started
	saver.block <- struct{}{}
	second := <-saved
	assert.Equal(t, uint64(3), second.Seq)

	waitFor(t, func() bool { return a.State() == Saved })
	assert.Equal(t, int32(1), atomic.LoadInt32(&saver.maxSeen))
	assert.Len(t, saver.calls(), 2)
	require.NoError(t, a.Close(context.Background()))
}

func TestPageLocksSerializeAcrossAutosavers(t *testing.T) {
	saver := &recordingSaver{block: make(chan struct{}), started: make(chan struct{}, 4)}
	locks := &PageLocks{}
	opts := Options{Delay: time.Hour, Locks: locks}
	a := New(context.Background(), "shared", &counterSource{}, saver, opts)
	b := New(context.Background(), "shared", &counterSource{}, saver, opts)

	a.Touch()
	b.Touch()
	errs := make(chan error, 2)
	go func() { errs <- a.Flush(context.Background()) }()
	go func() { errs <- b.Flush(context.Background()) }()

	<-saver.started
	select {
	case <-saver.started:
		t.Fatal("second save started while the first was in flight")
	case <-time.After(30 * time.Millisecond):
	}
	saver.block <- struct{}{}
	<-saver.started
	saver.block <- struct{}{}

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, int32(1), atomic.LoadInt32(&saver.maxSeen))
}

func TestFlushAndCloseSaveImmediately(t *testing.T) {
	saver := &recordingSaver{}
	a := New(context.Background(), "page-1", &counterSource{}, saver, Options{Delay: time.Hour, Locks: &PageLocks{}})

	a.SetInitialTitle("Draft")
	assert.Equal(t, Saved, a.State())
	a.SetTitle("Final")
	require.NoError(t, a.Close(context.Background()))

	calls := saver.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Final", calls[0].Title)

	a.Touch()
	assert.Equal(t, Saved, a.State(), "touches after close are ignored")
	assert.ErrorIs(t, a.Flush(context.Background()), ErrClosed)
	assert.NoError(t, a.Close(context.Background()))
}

type memJournal struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (j *memJournal) Record(pageID string, snap Snapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snaps = append(j.snaps, snap)
	return nil
}

func TestAttachFollowsEditorChanges(t *testing.T) {
	saver := &recordingSaver{}
	journal := &memJournal{}
	ed := editor.New(nil)
	a := New(context.Background(), "page-1", ed, saver, Options{Delay: time.Hour, Journal: journal, Locks: &PageLocks{}})
	a.Attach(ed)

	_, err := ed.Dispatch(context.Background(), editor.CommandInsertText, editor.TextInput{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, Dirty, a.State())

	require.NoError(t, a.Close(context.Background()))
	calls := saver.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, string(calls[0].Content), `"text":"hi"`)
	assert.Len(t, journal.snaps, 1)

	_, err = ed.Dispatch(context.Background(), editor.CommandInsertText, editor.TextInput{Text: "!"})
	require.NoError(t, err)
	assert.Equal(t, Saved, a.State(), "closed autosaver no longer listens")
}
