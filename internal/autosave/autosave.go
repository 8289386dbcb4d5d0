package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"notionclone/client/internal/editor"
)

const DefaultDelay = 5 * time.Second

type State int

const (
	Saved State = iota
	Dirty
)

func (s State) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "saved"
}

var ErrClosed = errors.New("autosave: closed")

// Snapshot is one save request. Seq grows with every change, so a larger
// Seq always carries newer content.
type Snapshot struct {
	Seq     uint64
	Title   string
	Content []byte
}

type Saver interface {
	Save(ctx context.Context, pageID string, snap Snapshot) error
}

type SaverFunc func(ctx context.Context, pageID string, snap Snapshot) error

func (f SaverFunc) Save(ctx context.Context, pageID string, snap Snapshot) error {
	return f(ctx, pageID, snap)
}

// Source produces the document to persist at save time.
type Source interface {
	Serialize() ([]byte, error)
}

// Journal receives every snapshot before it is sent.
type Journal interface {
	Record(pageID string, snap Snapshot) error
}

type Options struct {
	Delay   time.Duration
	Journal Journal
	// OnError is called once per failed save. Failed saves are not retried.
	OnError func(error)
	OnSaved func(Snapshot)
	Logger  *zap.Logger
	Locks   *PageLocks
}

// PageLocks serializes saves per page id across autosavers.
type PageLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *PageLocks) lock(pageID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[pageID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[pageID] = m
	}
	return m
}

var defaultLocks = &PageLocks{}

type attempt struct {
	n   uint64
	seq uint64
	err error
}

// Autosaver debounces change notifications for one page and saves at most
// one snapshot at a time. Changes during a save coalesce into one follow-up.
type Autosaver struct {
	ctx    context.Context
	pageID string
	source Source
	saver  Saver
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	title    string
	editSeq  uint64
	savedSeq uint64
	attempts uint64
	last     attempt
	saving   bool
	timer    *time.Timer
	round    chan struct{}
	closed   bool
	detach   []func()

	kick chan struct{}
	quit chan struct{}
	done chan struct{}
}

// New starts an autosaver for pageID. Saves run with a context detached from
// ctx's cancellation so leaving a page never aborts a save in flight.
func New(ctx context.Context, pageID string, source Source, saver Saver, opts Options) *Autosaver {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Locks == nil {
		opts.Locks = defaultLocks
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Autosaver{
		ctx:    context.WithoutCancel(ctx),
		pageID: pageID,
		source: source,
		saver:  saver,
		opts:   opts,
		logger: logger.With(zap.String("page", pageID)),
		round:  make(chan struct{}),
		kick:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

// Attach marks the page dirty on every change event of engine.
func (a *Autosaver) Attach(engine editor.Engine) {
	unsubscribe := engine.OnChange(func(editor.ChangeEvent) { a.Touch() })
	a.mu.Lock()
	a.detach = append(a.detach, unsubscribe)
	a.mu.Unlock()
}

// Touch records a change and restarts the debounce timer.
func (a *Autosaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.editSeq++
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.opts.Delay, a.trigger)
}

// SetTitle changes the title sent with the next save.
func (a *Autosaver) SetTitle(title string) {
	a.mu.Lock()
	changed := a.title != title
	a.title = title
	a.mu.Unlock()
	if changed {
		a.Touch()
	}
}

// SetInitialTitle sets the title without marking the page dirty.
func (a *Autosaver) SetInitialTitle(title string) {
	a.mu.Lock()
	a.title = title
	a.mu.Unlock()
}

func (a *Autosaver) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.editSeq > a.savedSeq {
		return Dirty
	}
	return Saved
}

func (a *Autosaver) Saving() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saving
}

// LastError returns the error of the most recent attempt, if it failed.
func (a *Autosaver) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last.err
}

func (a *Autosaver) trigger() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

func (a *Autosaver) loop() {
	defer close(a.done)
	for {
		select {
		case <-a.kick:
			a.saveOnce()
		case <-a.quit:
			return
		}
	}
}

func (a *Autosaver) saveOnce() {
	a.mu.Lock()
	seq := a.editSeq
	if seq <= a.savedSeq {
		a.endRound()
		a.mu.Unlock()
		return
	}
	a.attempts++
	n := a.attempts
	a.saving = true
	title := a.title
	a.mu.Unlock()

	snap, err := a.persist(seq, title)

	a.mu.Lock()
	a.saving = false
	a.last = attempt{n: n, seq: seq, err: err}
	if err == nil && seq > a.savedSeq {
		a.savedSeq = seq
	}
	a.endRound()
	a.mu.Unlock()

	if err != nil {
		a.logger.Error("Failed to auto-save page", zap.Uint64("seq", seq), zap.Error(err))
		if a.opts.OnError != nil {
			a.opts.OnError(err)
		}
		return
	}
	a.logger.Debug("page saved", zap.Uint64("seq", seq))
	if a.opts.OnSaved != nil {
		a.opts.OnSaved(snap)
	}
}

func (a *Autosaver) persist(seq uint64, title string) (Snapshot, error) {
	lock := a.opts.Locks.lock(a.pageID)
	lock.Lock()
	defer lock.Unlock()

	content, err := a.source.Serialize()
	if err != nil {
		return Snapshot{}, fmt.Errorf("serialize page %s: %w", a.pageID, err)
	}
	snap := Snapshot{Seq: seq, Title: title, Content: content}
	if a.opts.Journal != nil {
		if err := a.opts.Journal.Record(a.pageID, snap); err != nil {
			a.logger.Warn("record local snapshot", zap.Error(err))
		}
	}
	if err := a.saver.Save(a.ctx, a.pageID, snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// endRound wakes Flush waiters. Callers hold a.mu.
func (a *Autosaver) endRound() {
	close(a.round)
	a.round = make(chan struct{})
}

// Flush saves the latest change now and waits for the outcome.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	target := a.editSeq
	start := a.attempts
	a.mu.Unlock()

	for {
		a.mu.Lock()
		if a.savedSeq >= target {
			a.mu.Unlock()
			return nil
		}
		if a.last.n > start && a.last.seq >= target && a.last.err != nil {
			err := a.last.err
			a.mu.Unlock()
			return err
		}
		round := a.round
		a.mu.Unlock()

		a.trigger()
		select {
		case <-round:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close flushes pending changes, detaches from the editor and stops the
// worker. A save already in flight is allowed to finish.
func (a *Autosaver) Close(ctx context.Context) error {
	err := a.Flush(ctx)
	if errors.Is(err, ErrClosed) {
		return nil
	}

	a.mu.Lock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	detach := a.detach
	a.detach = nil
	close(a.quit)
	a.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
	select {
	case <-a.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
