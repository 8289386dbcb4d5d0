// Package session holds the authenticated identity of the client and the
// stores that persist it between runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNoSession = errors.New("session: no stored session")

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (u User) Name() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// State is what a TokenStore persists.
type State struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	User         User      `json:"user"`
	SavedAt      time.Time `json:"savedAt"`
}

type TokenStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	Clear(ctx context.Context) error
}

type EventKind int

const (
	Started EventKind = iota + 1
	Rotated
	Ended
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Rotated:
		return "rotated"
	case Ended:
		return "ended"
	}
	return "unknown"
}

type Event struct {
	Kind   EventKind
	Reason string
}

// Session is the process-wide authentication state. It is passed explicitly
// to the API client and commands; there is no package-level session.
type Session struct {
	mu     sync.RWMutex
	state  State
	store  TokenStore
	logger *zap.Logger
	now    func() time.Time

	lmu       sync.Mutex
	listeners map[uint64]func(Event)
	nextID    uint64
}

func New(store TokenStore, logger *zap.Logger) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		store:     store,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[uint64]func(Event)),
	}
}

// Restore loads a previously saved session. A missing session is not an
// error; the session simply stays unauthenticated.
func (s *Session) Restore(ctx context.Context) error {
	st, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("session restored", zap.String("user", st.User.Email))
	return nil
}

// Begin starts a session after login.
func (s *Session) Begin(ctx context.Context, token, refreshToken string, user User) error {
	if token == "" {
		return fmt.Errorf("begin session: %w", ErrInvalidToken)
	}
	st := State{Token: token, RefreshToken: refreshToken, User: user, SavedAt: s.now()}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.emit(Event{Kind: Started})
	if err := s.store.Save(ctx, st); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Rotate swaps in a refreshed access token. An empty refreshToken keeps the
// current one.
func (s *Session) Rotate(ctx context.Context, token, refreshToken string) error {
	if token == "" {
		return fmt.Errorf("rotate session: %w", ErrInvalidToken)
	}
	s.mu.Lock()
	s.state.Token = token
	if refreshToken != "" {
		s.state.RefreshToken = refreshToken
	}
	s.state.SavedAt = s.now()
	st := s.state
	s.mu.Unlock()

	s.emit(Event{Kind: Rotated})
	if err := s.store.Save(ctx, st); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// SetUser replaces the cached profile of the signed-in user.
func (s *Session) SetUser(ctx context.Context, user User) error {
	s.mu.Lock()
	if s.state.Token == "" {
		s.mu.Unlock()
		return nil
	}
	s.state.User = user
	st := s.state
	s.mu.Unlock()
	return s.store.Save(ctx, st)
}

// End clears the token in memory and in the store.
func (s *Session) End(ctx context.Context, reason string) error {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()

	err := s.store.Clear(ctx)
	s.emit(Event{Kind: Ended, Reason: reason})
	s.logger.Info("session ended", zap.String("reason", reason))
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Claims decodes the current access token without verifying it.
func (s *Session) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoSession
	}
	return ParseClaims(token)
}

// OnEvent subscribes fn to lifecycle events.
func (s *Session) OnEvent(fn func(Event)) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) emit(ev Event) {
	s.lmu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
