package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := New(store, nil)

	var kinds []EventKind
	s.OnEvent(func(ev Event) { kinds = append(kinds, ev.Kind) })

	require.False(t, s.Authenticated())
	require.NoError(t, s.Begin(ctx, "t1", "r1", User{ID: "1", Email: "ada@example.com", FirstName: "Ada"}))
	assert.True(t, s.Authenticated())
	assert.Equal(t, "Ada", s.User().Name())

	require.NoError(t, s.Rotate(ctx, "t2", ""))
	assert.Equal(t, "t2", s.Token())
	assert.Equal(t, "r1", s.RefreshToken())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", stored.Token)

	require.NoError(t, s.End(ctx, "logout"))
	assert.False(t, s.Authenticated())
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Equal(t, []EventKind{Started, Rotated, Ended}, kinds)
}

func TestSessionRejectsEmptyToken(t *testing.T) {
	s := New(nil, nil)
	assert.ErrorIs(t, s.Begin(context.Background(), "", "", User{}), ErrInvalidToken)
	assert.ErrorIs(t, s.Rotate(context.Background(), "", ""), ErrInvalidToken)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := New(store, nil)
	require.NoError(t, s.Restore(ctx), "missing session is not an error")
	assert.False(t, s.Authenticated())

	require.NoError(t, store.Save(ctx, State{Token: "saved", User: User{Email: "x@example.com"}}))
	s = New(store, nil)
	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, "saved", s.Token())
	assert.Equal(t, "x@example.com", s.User().Name())
}

func TestClaims(t *testing.T) {
	now := time.Now()
	token := mintToken(t, "ada@example.com", now.Add(10*time.Minute))

	c, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", c.Subject)
	assert.False(t, c.Expired(now))
	assert.True(t, c.ExpiresWithin(now, time.Hour))
	assert.False(t, c.ExpiresWithin(now, time.Minute))
	assert.True(t, c.Expired(now.Add(11*time.Minute)))

	_, err = ParseClaims("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	s := New(nil, nil)
	_, err = s.Claims()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStoreEncrypted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store := NewFileStore(path, "correct horse")

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	want := State{Token: "secret-token", RefreshToken: "r", User: User{ID: "9", Email: "ada@example.com"}}
	require.NoError(t, store.Save(ctx, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "secret-token"), "token must not be stored in clear")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.User, got.User)

	_, err = NewFileStore(path, "wrong").Load(ctx)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
	_, err = NewFileStore(path, "").Load(ctx)
	assert.ErrorIs(t, err, ErrWrongPassphrase)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is fine")
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStorePlain(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"), "")
	require.NoError(t, store.Save(ctx, State{Token: "plain"}))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "plain", got.Token)
}

func TestRefresherEndsSessionOnFailure(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	require.NoError(t, s.Begin(ctx, "t1", "", User{}))

	var calls int32
	r := &Refresher{
		Session:  s,
		Interval: 5 * time.Millisecond,
		Refresh: func(ctx context.Context) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				return s.Rotate(ctx, "t2", "")
			}
			return errors.New("refresh rejected")
		},
	}

	err := r.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh rejected")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.False(t, s.Authenticated())
}

func TestRefresherStopsWithContext(t *testing.T) {
	s := New(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := &Refresher{Session: s, Interval: time.Millisecond, Refresh: func(context.Context) error {
		t.Error("refresh must not run without a session")
		return nil
	}}
	assert.ErrorIs(t, r.Run(ctx), context.DeadlineExceeded)
}
