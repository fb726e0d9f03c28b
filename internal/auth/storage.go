package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/akademi/egitim-portal/internal/shared"
)

// Persisted entry names. Both are written and cleared together.
const (
	EntryToken   = "token"
	EntryProfile = "user"
)

// Storage is the durable key/value area holding the two session entries.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps entries in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	// FailSet makes every Set fail, for exercising partial writes.
	FailSet error
}

// NewMemoryStorage constructs an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// FileStorage keeps each entry in its own file under Dir.
type FileStorage struct {
	Dir string
}

// NewFileStorage returns a FileStorage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Dir: dir}
}

// DefaultFileStorage uses the user's config directory.
func DefaultFileStorage() (*FileStorage, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return NewFileStorage(filepath.Join(base, "egitim-portal")), nil
}

func (f *FileStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.Dir, key), nil
}

func (f *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileStorage) Set(_ context.Context, key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, "."+key+"-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (f *FileStorage) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SessionStorage keeps entries in the Redis-backed cookie session. The token
// is sealed before it is written. Writes reach Redis when the session
// middleware commits.
type SessionStorage struct {
	sess   *shared.Session
	sealer *shared.TokenSealer
}

// NewSessionStorage wraps sess. A nil sealer stores the token as is.
func NewSessionStorage(sess *shared.Session, sealer *shared.TokenSealer) *SessionStorage {
	return &SessionStorage{sess: sess, sealer: sealer}
}

func sessionKey(key string) string {
	return "auth:" + key
}

func (s *SessionStorage) Get(_ context.Context, key string) (string, bool, error) {
	if s.sess == nil {
		return "", false, shared.ErrSessionMissing
	}
	if !s.sess.Has(sessionKey(key)) {
		return "", false, nil
	}
	value := s.sess.Get(sessionKey(key))
	if key == EntryToken && s.sealer != nil {
		plain, err := s.sealer.Open(value)
		if err != nil {
			return "", false, err
		}
		value = plain
	}
	return value, true, nil
}

func (s *SessionStorage) Set(_ context.Context, key, value string) error {
	if s.sess == nil {
		return shared.ErrSessionMissing
	}
	if key == EntryToken && s.sealer != nil {
		sealed, err := s.sealer.Seal(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	s.sess.Set(sessionKey(key), value)
	return nil
}

func (s *SessionStorage) Delete(_ context.Context, key string) error {
	if s.sess == nil {
		return shared.ErrSessionMissing
	}
	s.sess.Delete(sessionKey(key))
	return nil
}
