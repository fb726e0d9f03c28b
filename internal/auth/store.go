// Package auth owns the session store, its persistence and the login flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/akademi/egitim-portal/internal/rbac"
)

// Store holds the current principal and keeps it in step with Storage.
// Initialize, Login and Logout are the only writers.
type Store struct {
	storage  Storage
	authn    Authenticator
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time

	mu        sync.RWMutex
	principal *rbac.Principal
	ready     bool

	subMu  sync.Mutex
	subs   map[int]func(*rbac.Principal)
	nextID int
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithValidator shares a validator instance.
func WithValidator(v *validator.Validate) StoreOption {
	return func(s *Store) {
		if v != nil {
			s.validate = v
		}
	}
}

// NewStore constructs a Store. It is not Ready until Initialize runs.
func NewStore(storage Storage, authn Authenticator, opts ...StoreOption) *Store {
	s := &Store{
		storage:  storage,
		authn:    authn,
		logger:   slog.Default(),
		validate: validator.New(),
		now:      time.Now,
		subs:     make(map[int]func(*rbac.Principal)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize rehydrates the principal from storage. Partial or unreadable
// state is discarded and both entries are removed. Ready reports true
// afterwards even when an error is returned.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	prev := s.principal
	next, err := s.load(ctx)
	if next == nil {
		s.clearStorage(ctx)
	}
	s.principal = next
	s.ready = true
	s.mu.Unlock()

	if prev != nil || next != nil {
		s.notify(next)
	}
	return err
}

func (s *Store) load(ctx context.Context) (*rbac.Principal, error) {
	token, hasToken, err := s.storage.Get(ctx, EntryToken)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	raw, hasProfile, err := s.storage.Get(ctx, EntryProfile)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if !hasToken || !hasProfile || token == "" {
		return nil, nil
	}
	profile, err := decodeProfile(raw)
	if err != nil {
		s.logger.Warn("discarding stored profile", slog.Any("error", err))
		return nil, nil
	}
	if s.tokenExpired(token) {
		s.logger.Debug("stored token expired")
		return nil, nil
	}
	return profile.principal(token), nil
}

// tokenExpired reports whether token is a JWT whose exp lies in the past.
// Opaque tokens are never considered expired here; the backend decides.
func (s *Store) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// Login authenticates against the backend, persists token and profile and
// sets the principal. On failure the prior state is left untouched and the
// error is a *LoginError.
func (s *Store) Login(ctx context.Context, creds Credentials) (*rbac.Principal, error) {
	if fields := creds.FieldErrors(s.validate); len(fields) > 0 {
		return nil, &LoginError{Message: FallbackLoginMessage, Fields: fields, Err: ErrInvalidCredentials}
	}

	resp, err := s.authn.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, newLoginError(err)
	}
	if resp == nil || resp.Token == "" {
		msg := FallbackLoginMessage
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		return nil, &LoginError{Message: msg}
	}

	profile := profileFromResponse(resp)
	encoded, err := encodeProfile(profile)
	if err != nil {
		return nil, newLoginError(fmt.Errorf("encode profile: %w", err))
	}

	s.mu.Lock()
	if err := s.persist(ctx, resp.Token, encoded); err != nil {
		s.mu.Unlock()
		return nil, newLoginError(err)
	}
	s.principal = profile.principal(resp.Token)
	s.ready = true
	snapshot := s.principal.Clone()
	s.mu.Unlock()

	s.logger.Info("login succeeded", slog.Int64("user_id", snapshot.ID), slog.String("role", string(snapshot.Role)))
	s.notify(snapshot)
	return snapshot, nil
}

// persist writes both entries or restores the previous ones.
func (s *Store) persist(ctx context.Context, token, profile string) error {
	oldToken, hadToken, _ := s.storage.Get(ctx, EntryToken)
	oldProfile, hadProfile, _ := s.storage.Get(ctx, EntryProfile)

	restore := func() {
		s.restoreEntry(ctx, EntryToken, oldToken, hadToken)
		s.restoreEntry(ctx, EntryProfile, oldProfile, hadProfile)
	}

	if err := s.storage.Set(ctx, EntryToken, token); err != nil {
		restore()
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.Set(ctx, EntryProfile, profile); err != nil {
		restore()
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

func (s *Store) restoreEntry(ctx context.Context, key, value string, had bool) {
	var err error
	if had {
		err = s.storage.Set(ctx, key, value)
	} else {
		err = s.storage.Delete(ctx, key)
	}
	if err != nil {
		s.logger.Warn("restore session entry", slog.String("key", key), slog.Any("error", err))
	}
}

// Logout clears storage and the principal. It never fails and is idempotent.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	prev := s.principal
	s.principal = nil
	s.ready = true
	s.clearStorage(ctx)
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info("logout", slog.Int64("user_id", prev.ID))
		s.notify(nil)
	}
}

func (s *Store) clearStorage(ctx context.Context) {
	for _, key := range []string{EntryToken, EntryProfile} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("clear session entry", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// Current returns a snapshot of the principal, or nil.
func (s *Store) Current() *rbac.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal.Clone()
}

// Ready reports whether Initialize (or Login/Logout) has resolved the state.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Token returns the bearer token of the current principal.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return ""
	}
	return s.principal.Token
}

// IsAuthenticated reports whether a principal is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal != nil
}

// HasPermission resolves a single grant for the current principal.
func (s *Store) HasPermission(module rbac.Module, action rbac.Action) bool {
	return rbac.HasPermission(s.Current(), module, action)
}

// HasAny reports whether any grant resolves.
func (s *Store) HasAny(grants ...rbac.Grant) bool {
	return rbac.HasAny(s.Current(), grants...)
}

// HasAll reports whether every grant resolves.
func (s *Store) HasAll(grants ...rbac.Grant) bool {
	return rbac.HasAll(s.Current(), grants...)
}

// IsAdmin reports whether the principal is an administrator.
func (s *Store) IsAdmin() bool {
	return rbac.IsAdmin(s.Current())
}

// Subscribe registers fn for every principal change. fn runs synchronously
// on the writer's goroutine with a snapshot (nil after logout).
func (s *Store) Subscribe(fn func(*rbac.Principal)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(p *rbac.Principal) {
	s.subMu.Lock()
	fns := make([]func(*rbac.Principal), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(p.Clone())
	}
}

// IsLoginError unwraps err into a *LoginError.
func IsLoginError(err error) (*LoginError, bool) {
	var le *LoginError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
