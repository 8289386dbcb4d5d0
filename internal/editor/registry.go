package editor

import (
	"sort"
	"sync"
)

// Handler processes one command against the editor state.
type Handler func(s *State, payload any) (Result, error)

type registration struct {
	id       uint64
	priority int
	fn       Handler
}

// Registry maps command ids to priority-ordered handler lists.
type Registry struct {
	mu       sync.RWMutex
	handlers map[CommandID][]registration
	seq      uint64
	builtins sync.Once
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[CommandID][]registration)}
}

// Register adds fn for cmd. Higher priorities run first; equal priorities run
// in registration order. The returned func removes the handler.
func (r *Registry) Register(cmd CommandID, priority int, fn Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := r.seq
	list := append(r.handlers[cmd], registration{id: id, priority: priority, fn: fn})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].id < list[j].id
	})
	r.handlers[cmd] = list

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.handlers[cmd]
		for i, reg := range list {
			if reg.id == id {
				r.handlers[cmd] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (r *Registry) snapshot(cmd CommandID) []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]registration(nil), r.handlers[cmd]...)
}

// run dispatches payload through every handler registered for cmd. It
// reports whether any handler claimed the command.
func (r *Registry) run(s *State, cmd CommandID, payload any) (bool, error) {
	handled := false
	for _, reg := range r.snapshot(cmd) {
		res, err := reg.fn(s, payload)
		if err != nil {
			return res != Unhandled, err
		}
		switch res {
		case HandledStop:
			return true, nil
		case HandledContinue:
			handled = true
		}
	}
	return handled, nil
}
