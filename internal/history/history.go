// Package history keeps a local journal of page snapshots, one git
// repository per page, so earlier versions can be listed and restored
// without the server.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"notionclone/client/internal/autosave"
	"notionclone/client/internal/document"
)

const (
	contentFile = "content.json"
	branch      = "main"
)

var (
	ErrNoHistory   = errors.New("history: no snapshots for page")
	ErrInvalidPage = errors.New("history: invalid page id")
)

// Content is what each commit stores.
type Content struct {
	Title string          `json:"title"`
	Doc   json.RawMessage `json:"doc,omitempty"`
}

type Entry struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}

type Store struct {
	baseDir string
	author  string

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func New(baseDir, author string) *Store {
	if author == "" {
		author = "notion"
	}
	return &Store{
		baseDir: baseDir,
		author:  author,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record stores an autosave snapshot unless it matches the latest one.
func (s *Store) Record(pageID string, snap autosave.Snapshot) error {
	content := Content{Title: snap.Title, Doc: json.RawMessage(snap.Content)}
	_, _, err := s.Commit(pageID, content, fmt.Sprintf("autosave #%d", snap.Seq))
	return err
}

// Commit writes content as a new snapshot. The second return value is false
// when nothing changed since the last snapshot; no commit is made then.
func (s *Store) Commit(pageID string, content Content, message string) (Entry, bool, error) {
	path, err := s.repoPath(pageID)
	if err != nil {
		return Entry{}, false, err
	}
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	fresh := false
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return Entry{}, false, fmt.Errorf("create repo dir: %w", err)
		}
		repo, err = git.PlainInit(path, false)
		if err != nil {
			return Entry{}, false, fmt.Errorf("init repo: %w", err)
		}
		fresh = true
	case err != nil:
		return Entry{}, false, fmt.Errorf("open repo: %w", err)
	}

	if !fresh {
		head, entry, err := headContent(repo)
		if err != nil {
			return Entry{}, false, err
		}
		if !HasChanges(head, content) {
			return entry, false, nil
		}
	}

	hash, err := s.commit(repo, content, message)
	if err != nil {
		return Entry{}, false, err
	}
	if fresh {
		if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), hash)); err != nil {
			return Entry{}, false, fmt.Errorf("set main branch ref: %w", err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))); err != nil {
			return Entry{}, false, fmt.Errorf("set HEAD to main: %w", err)
		}
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toEntry(commitObj), true, nil
}

// Head returns the latest snapshot of a page.
func (s *Store) Head(pageID string) (Content, Entry, error) {
	repo, unlock, err := s.open(pageID)
	if err != nil {
		return Content{}, Entry{}, err
	}
	defer unlock()
	return headContent(repo)
}

// History lists snapshots newest first. A limit of zero returns all.
func (s *Store) History(pageID string, limit int) ([]Entry, error) {
	repo, unlock, err := s.open(pageID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Entry, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toEntry(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Get returns the snapshot stored at hash, which may be abbreviated.
func (s *Store) Get(pageID, hash string) (Content, error) {
	repo, unlock, err := s.open(pageID)
	if err != nil {
		return Content{}, err
	}
	defer unlock()

	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return Content{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return Content{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readContent(commitObj)
}

// Tree parses the stored document. Unparseable content yields an empty
// document.
func (c Content) Tree() *document.Tree {
	return document.ParseOrEmpty(string(c.Doc))
}

// HasChanges compares title and document, ignoring JSON formatting.
func HasChanges(from, to Content) bool {
	if from.Title != to.Title {
		return true
	}
	return !bytes.Equal(normalizeDoc(from.Doc), normalizeDoc(to.Doc))
}

func (s *Store) open(pageID string) (*git.Repository, func(), error) {
	path, err := s.repoPath(pageID)
	if err != nil {
		return nil, nil, err
	}
	lock := s.pageLock(pageID)
	lock.Lock()
	repo, err := git.PlainOpen(path)
	if err != nil {
		lock.Unlock()
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil, ErrNoHistory
		}
		return nil, nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, lock.Unlock, nil
}

func (s *Store) repoPath(pageID string) (string, error) {
	if pageID == "" || pageID == "." || pageID == ".." || strings.ContainsAny(pageID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPage, pageID)
	}
	return filepath.Join(s.baseDir, pageID), nil
}

func (s *Store) pageLock(pageID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[pageID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[pageID] = lock
	}
	return lock
}

func (s *Store) commit(repo *git.Repository, content Content, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}
	payload, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal content: %w", err)
	}
	root := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(root, contentFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add content: %w", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author,
			Email: sanitizeEmail(s.author) + "@local.notion-clone",
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit content: %w", err)
	}
	return hash, nil
}

func headContent(repo *git.Repository) (Content, Entry, error) {
	ref, err := repo.Head()
	if err != nil {
		return Content{}, Entry{}, fmt.Errorf("resolve head: %w", err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Content{}, Entry{}, fmt.Errorf("load commit object: %w", err)
	}
	content, err := readContent(commitObj)
	if err != nil {
		return Content{}, Entry{}, err
	}
	return content, toEntry(commitObj), nil
}

func readContent(commitObj *object.Commit) (Content, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return Content{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	raw, err := file.Contents()
	if err != nil {
		return Content{}, fmt.Errorf("read content: %w", err)
	}
	var content Content
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return Content{}, fmt.Errorf("decode commit content: %w", err)
	}
	return content, nil
}

func toEntry(commitObj *object.Commit) Entry {
	return Entry{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func normalizeDoc(doc json.RawMessage) []byte {
	if len(doc) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return bytes.TrimSpace(doc)
	}
	normalized, err := json.Marshal(parsed)
	if err != nil {
		return nil
	}
	return normalized
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
