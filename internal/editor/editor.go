package editor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"notionclone/client/internal/document"
)

// Engine is the narrow surface the rest of the client needs from an editor.
// Editor is the built-in implementation; other engines can be plugged in.
type Engine interface {
	Dispatch(ctx context.Context, cmd CommandID, payload any) (bool, error)
	Document() *document.Tree
	Serialize() ([]byte, error)
	OnChange(fn func(ChangeEvent)) (unsubscribe func())
}

// ChangeEvent is emitted after a command changed the document. Tree is a
// snapshot owned by the receiver.
type ChangeEvent struct {
	Command  CommandID
	Revision uint64
	Tree     *document.Tree
}

func (ev ChangeEvent) Serialize() ([]byte, error) {
	return document.Marshal(ev.Tree)
}

// TextTransform runs after a command for every text node it rewrote.
type TextTransform func(s *State, k document.Key) error

type Editor struct {
	mu         sync.Mutex
	state      State
	registry   *Registry
	transforms []TextTransform
	readOnly   bool
	logger     *zap.Logger

	lmu       sync.Mutex
	listeners map[uint64]func(ChangeEvent)
	nextID    uint64
}

type Option func(*Editor)

func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithReadOnly(ro bool) Option {
	return func(e *Editor) { e.readOnly = ro }
}

func WithMaxIndent(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.state.maxIndent = n
		}
	}
}

// WithRegistry installs the built-in handlers into r instead of a fresh
// registry, so callers can add their own handlers around them. Editors may
// share r; the built-ins are installed once.
func WithRegistry(r *Registry) Option {
	return func(e *Editor) {
		if r != nil {
			e.registry = r
		}
	}
}

func WithTextTransform(fn TextTransform) Option {
	return func(e *Editor) { e.transforms = append(e.transforms, fn) }
}

var _ Engine = (*Editor)(nil)

// New opens tree for editing. A nil tree starts an empty document. The caret
// starts at the end of the document.
func New(tree *document.Tree, opts ...Option) *Editor {
	if tree == nil {
		tree = document.New()
	}
	e := &Editor{
		state:      State{Tree: tree, maxIndent: DefaultMaxIndent},
		registry:   NewRegistry(),
		transforms: []TextTransform{autoLink},
		logger:     zap.NewNop(),
		listeners:  make(map[uint64]func(ChangeEvent)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry.builtins.Do(func() { registerBuiltins(e.registry) })
	e.state.Selection = endSelection(tree)
	return e
}

func registerBuiltins(r *Registry) {
	r.Register(CommandInsertTable, PriorityPlugin, insertTable)
	r.Register(CommandInsertTableDefault, PriorityPlugin, insertTableDefault)
	r.Register(CommandAddRow, PriorityDefault, addRow)
	r.Register(CommandAddColumn, PriorityDefault, addColumn)
	r.Register(CommandDeleteRow, PriorityDefault, deleteRow)
	r.Register(CommandDeleteColumn, PriorityDefault, deleteColumn)
	r.Register(CommandIndent, PriorityPlugin, limitIndent)
	r.Register(CommandIndent, PriorityDefault, indent)
	r.Register(CommandOutdent, PriorityPlugin, guardOutdent)
	r.Register(CommandOutdent, PriorityDefault, outdent)
	r.Register(CommandFormatText, PriorityDefault, formatText)
	r.Register(CommandFormatBlock, PriorityDefault, formatBlock)
	r.Register(CommandInsertText, PriorityDefault, insertText)
	r.Register(CommandInsertParagraph, PriorityDefault, insertParagraph)
	r.Register(CommandSetSelection, PriorityDefault, setSelection)
}

// Dispatch runs cmd through the registry. It reports whether a handler
// claimed the command; listeners are notified when the document changed.
func (e *Editor) Dispatch(ctx context.Context, cmd CommandID, payload any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e.mu.Lock()
	if e.readOnly && cmd.mutates() {
		e.mu.Unlock()
		return false, ErrReadOnly
	}
	s := &e.state
	before := s.Tree.Revision()
	s.touched = s.touched[:0]

	handled, err := e.registry.run(s, cmd, payload)
	if handled {
		e.runTransforms(s)
	}
	s.normalize()

	var ev *ChangeEvent
	if rev := s.Tree.Revision(); rev != before {
		ev = &ChangeEvent{Command: cmd, Revision: rev, Tree: s.Tree.Clone()}
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Debug("command failed", zap.Stringer("command", cmd), zap.Error(err))
	}
	if ev != nil {
		e.emit(*ev)
	}
	return handled, err
}

func (e *Editor) runTransforms(s *State) {
	touched := append([]document.Key(nil), s.touched...)
	for _, k := range touched {
		for _, fn := range e.transforms {
			if s.Tree.Type(k) != document.TypeText {
				break
			}
			if err := fn(s, k); err != nil {
				e.logger.Warn("text transform failed", zap.Int("key", int(k)), zap.Error(err))
			}
		}
	}
}

// OnChange registers fn for change events. Events are delivered on the
// dispatching goroutine after the editor lock is released.
func (e *Editor) OnChange(fn func(ChangeEvent)) func() {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners[id] = fn
	return func() {
		e.lmu.Lock()
		defer e.lmu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *Editor) emit(ev ChangeEvent) {
	e.lmu.Lock()
	fns := make([]func(ChangeEvent), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.lmu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Document returns a snapshot of the current tree.
func (e *Editor) Document() *document.Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Tree.Clone()
}

func (e *Editor) Serialize() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return document.Marshal(e.state.Tree)
}

func (e *Editor) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Selection
}

func (e *Editor) ReadOnly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readOnly
}

func (e *Editor) SetReadOnly(ro bool) {
	e.mu.Lock()
	e.readOnly = ro
	e.mu.Unlock()
}

// ActiveBlock names the block format under the caret, for toolbar state.
func (e *Editor) ActiveBlock() BlockFormat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return activeBlock(&e.state)
}
