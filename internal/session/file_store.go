package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var ErrWrongPassphrase = errors.New("session: cannot decrypt token file")

const saltSize = 16

// envelope is the on-disk format. Without a passphrase Plain holds the
// session as is; otherwise Data is the sealed JSON of State.
type envelope struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt,omitempty"`
	Nonce   []byte `json:"nonce,omitempty"`
	Data    []byte `json:"data,omitempty"`
	Plain   *State `json:"plain,omitempty"`
}

// FileStore keeps the session in a file readable only by the current user,
// sealed with XChaCha20-Poly1305 under an argon2id key when a passphrase is
// configured.
type FileStore struct {
	path       string
	passphrase []byte
}

func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, passphrase: []byte(passphrase)}
}

func (s *FileStore) Path() string { return s.path }

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

func (s *FileStore) Save(_ context.Context, st State) error {
	env := envelope{Version: 1}
	if len(s.passphrase) == 0 {
		env.Plain = &st
	} else {
		plain, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		env.Salt = make([]byte, saltSize)
		if _, err := rand.Read(env.Salt); err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
		aead, err := chacha20poly1305.NewX(deriveKey(s.passphrase, env.Salt))
		if err != nil {
			return fmt.Errorf("init cipher: %w", err)
		}
		env.Nonce = make([]byte, aead.NonceSize())
		if _, err := rand.Read(env.Nonce); err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}
		env.Data = aead.Seal(nil, env.Nonce, plain, env.Salt)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal token file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*")
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(context.Context) (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, ErrNoSession
	}
	if err != nil {
		return State{}, fmt.Errorf("read token file: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return State{}, fmt.Errorf("decode token file: %w", err)
	}
	if env.Plain != nil {
		return *env.Plain, nil
	}
	if len(s.passphrase) == 0 {
		return State{}, fmt.Errorf("token file is encrypted and no passphrase is set: %w", ErrWrongPassphrase)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(s.passphrase, env.Salt))
	if err != nil {
		return State{}, fmt.Errorf("init cipher: %w", err)
	}
	if len(env.Nonce) != aead.NonceSize() {
		return State{}, fmt.Errorf("token file nonce: %w", ErrWrongPassphrase)
	}
	plain, err := aead.Open(nil, env.Nonce, env.Data, env.Salt)
	if err != nil {
		return State{}, ErrWrongPassphrase
	}
	var st State
	if err := json.Unmarshal(plain, &st); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return st, nil
}

func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
