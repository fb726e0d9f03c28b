package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
)

// Sessions builds one Store per request over the request's cookie session.
type Sessions struct {
	sealer   *shared.TokenSealer
	authn    Authenticator
	logger   *slog.Logger
	validate *validator.Validate
}

// NewSessions constructs the per-request store factory.
func NewSessions(sealer *shared.TokenSealer, authn Authenticator, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{sealer: sealer, authn: authn, logger: logger, validate: validator.New()}
}

// Middleware rehydrates the store and binds it to the request context. The
// cookie session id and CSRF token are rotated whenever the principal changes.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		store := NewStore(NewSessionStorage(sess, s.sealer), s.authn, WithLogger(s.logger), WithValidator(s.validate))
		if err := store.Initialize(r.Context()); err != nil {
			s.logger.Warn("initialize session store", slog.Any("error", err))
		}
		if sess != nil {
			unsubscribe := store.Subscribe(func(*rbac.Principal) {
				sess.Rotate()
				sess.Delete(shared.CSRFSessionKey)
			})
			defer unsubscribe()
		}
		ctx := ContextWithStore(r.Context(), store, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionView exposes the request's store to the route guard.
func SessionView(r *http.Request) rbac.SessionView {
	if store := StoreFromContext(r.Context()); store != nil {
		return store
	}
	return nil
}
