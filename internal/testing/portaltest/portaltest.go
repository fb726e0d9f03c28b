// Package portaltest provides a signed-in request environment for handler
// tests: a session loaded through miniredis, a principal logged in over it and
// a scripted backend behind the real client and interceptor.
package portaltest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
	_ "github.com/akademi/egitim-portal/testing"
)

// UserID and Token identify the principal every Env signs in.
const (
	UserID = 7
	Token  = "user-token"
)

// Backend is a scripted backend. Unscripted routes answer an empty array.
type Backend struct {
	mu     sync.Mutex
	hits   []string
	routes map[string]http.HandlerFunc
}

// On scripts the answer for method and path.
func (b *Backend) On(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// Calls lists "METHOD /path" for every request received so far.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.hits...)
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.hits = append(b.hits, key)
	h := b.routes[key]
	b.mu.Unlock()
	if h == nil {
		Reply(w, http.StatusOK, []any{})
		return
	}
	h(w, r)
}

// Reply writes body as JSON with status.
func Reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Status answers with an empty body.
func Status(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

// Env is one signed-in browser session.
type Env struct {
	Session     *shared.Session
	Sealer      *shared.TokenSealer
	Backend     *Backend
	Client      *backend.Client
	Interceptor *auth.Interceptor
	Templates   *view.Engine
	CSRF        *shared.CSRFManager
	Guard       rbac.Guard
}

type config struct {
	role        string
	permissions *[]string
	policy      auth.ForbiddenPolicy
}

// Option customises the signed-in principal.
type Option func(*config)

// WithRole signs in with role instead of SORUMLU.
func WithRole(role string) Option {
	return func(c *config) { c.role = role }
}

// WithPermissions gives the principal an explicit grant list.
func WithPermissions(grants ...string) Option {
	return func(c *config) { c.permissions = &grants }
}

// WithPolicy sets the interceptor's 403 policy.
func WithPolicy(p auth.ForbiddenPolicy) Option {
	return func(c *config) { c.policy = p }
}

type fixedLogin struct {
	resp *backend.LoginResponse
}

func (f fixedLogin) Login(context.Context, string, string) (*backend.LoginResponse, error) {
	return f.resp, nil
}

// New signs a principal in and starts the scripted backend.
func New(t *testing.T, opts ...Option) *Env {
	t.Helper()
	cfg := config{role: string(rbac.RoleResponsible), policy: auth.PolicyLogout}
	for _, opt := range opts {
		opt(&cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	manager := shared.NewSessionManager(rdb, "portal_session", time.Hour, false)
	sess, err := manager.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	sealer, err := shared.NewTokenSealer("portal-secret-portal-secret-1234")
	require.NoError(t, err)
	store := auth.NewStore(auth.NewSessionStorage(sess, sealer), fixedLogin{resp: &backend.LoginResponse{
		Token:       Token,
		ID:          UserID,
		Email:       "kullanici@akademi.com",
		AdSoyad:     "Deneme Kullanıcı",
		Rol:         cfg.role,
		Permissions: cfg.permissions,
	}})
	_, err = store.Login(context.Background(), auth.Credentials{Email: "kullanici@akademi.com", Password: "secret"})
	require.NoError(t, err)

	fb := &Backend{routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	interceptor := auth.NewInterceptor(cfg.policy, nil, nil)
	client := backend.NewClient(srv.URL,
		backend.WithTokenSource(auth.TokenFromContext),
		backend.WithAuthFailureHook(interceptor.Hook()),
	)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	return &Env{
		Session:     sess,
		Sealer:      sealer,
		Backend:     fb,
		Client:      client,
		Interceptor: interceptor,
		Templates:   templates,
		CSRF:        shared.NewCSRFManager("csrf-secret"),
		Guard:       rbac.Guard{Sessions: auth.SessionView},
	}
}

// Router binds the session and per-request store, then lets mount register routes.
func (e *Env) Router(mount func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), e.Session)))
		})
	})
	r.Use(auth.NewSessions(e.Sealer, nil, nil).Middleware)
	mount(r)
	return r
}

// Get serves a GET through h.
func Get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// Post serves a form POST through h.
func Post(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
