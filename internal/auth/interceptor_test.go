package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
)

type logoutCounter struct {
	statuses []int
}

func (c *logoutCounter) ObserveImplicitLogout(status int) {
	c.statuses = append(c.statuses, status)
}

func loggedInStore(t *testing.T) (*Store, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	store := NewStore(storage, &fakeAuthenticator{resp: sorumluResponse()})
	_, err := store.Login(context.Background(), validCreds)
	require.NoError(t, err)
	return store, storage
}

func TestInterceptorForbiddenLogsOutByDefault(t *testing.T) {
	store, storage := loggedInStore(t)
	counter := &logoutCounter{}
	interceptor := NewInterceptor("", nil, counter)

	ctx := ContextWithStore(context.Background(), store, "/payments")
	interceptor.Handle(ctx, &backend.APIError{Status: http.StatusForbidden, Path: "/odeme"})

	assert.Nil(t, store.Current())
	assert.Equal(t, 0, storage.Len())
	assert.Equal(t, []int{http.StatusForbidden}, counter.statuses)

	redirect := PendingRedirect(ctx)
	require.NotNil(t, redirect)
	assert.Equal(t, rbac.LoginPath, redirect.Path)
	assert.Equal(t, NoticeForbidden, redirect.Notice)

	req := httptest.NewRequest(http.MethodGet, "/payments", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	assert.True(t, interceptor.Respond(rec, req))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, rbac.LoginPath, rec.Header().Get("Location"))
}

func TestInterceptorUnauthorizedPolicyKeepsSession(t *testing.T) {
	store, _ := loggedInStore(t)
	interceptor := NewInterceptor(PolicyUnauthorized, nil, nil)

	ctx := ContextWithStore(context.Background(), store, "/payments")
	interceptor.Handle(ctx, &backend.APIError{Status: http.StatusForbidden, Path: "/odeme/1"})
	assert.NotNil(t, store.Current())
	assert.Equal(t, rbac.UnauthorizedPath, PendingRedirect(ctx).Path)

	ctx = ContextWithStore(context.Background(), store, "/payments")
	interceptor.Handle(ctx, &backend.APIError{Status: http.StatusUnauthorized, Path: "/odeme"})
	assert.Nil(t, store.Current())
	assert.Equal(t, rbac.LoginPath, PendingRedirect(ctx).Path)
}

func TestInterceptorSkipsOnLoginPage(t *testing.T) {
	store, _ := loggedInStore(t)
	interceptor := NewInterceptor(PolicyLogout, nil, nil)

	ctx := ContextWithStore(context.Background(), store, rbac.LoginPath)
	interceptor.Handle(ctx, &backend.APIError{Status: http.StatusUnauthorized, Path: "/egitim"})
	assert.NotNil(t, store.Current())
	assert.Nil(t, PendingRedirect(ctx))

	req := httptest.NewRequest(http.MethodGet, rbac.LoginPath, nil).WithContext(ctx)
	assert.False(t, interceptor.Respond(httptest.NewRecorder(), req))
}

func TestInterceptorRunsForCancelledRequests(t *testing.T) {
	store, _ := loggedInStore(t)
	interceptor := NewInterceptor(PolicyLogout, nil, nil)

	ctx, cancel := context.WithCancel(ContextWithStore(context.Background(), store, "/egitim"))
	cancel()
	interceptor.Handle(ctx, &backend.APIError{Status: http.StatusUnauthorized, Path: "/egitim"})
	assert.Nil(t, store.Current())
}

func TestInterceptorWithBackendClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer opaque-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	store, _ := loggedInStore(t)
	interceptor := NewInterceptor(PolicyLogout, nil, nil)
	client := backend.NewClient(srv.URL, backend.WithTokenSource(TokenFromContext), backend.WithAuthFailureHook(interceptor.Hook()))

	ctx := ContextWithStore(context.Background(), store, "/payments")
	_, err := client.Login(ctx, "a@b.c", "x")
	require.Error(t, err)
	assert.NotNil(t, store.Current(), "auth-flow failures never log out")

	_, err = client.Resource("/odeme").List(ctx, backend.ListParams{})
	require.Error(t, err)
	assert.Nil(t, store.Current())
	assert.Equal(t, rbac.LoginPath, PendingRedirect(ctx).Path)
}

func TestParseForbiddenPolicy(t *testing.T) {
	p, err := ParseForbiddenPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyLogout, p)
	p, err = ParseForbiddenPolicy("unauthorized")
	require.NoError(t, err)
	assert.Equal(t, PolicyUnauthorized, p)
	_, err = ParseForbiddenPolicy("ignore")
	assert.Error(t, err)
}

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "portal")
	storage := NewFileStorage(dir)

	store := NewStore(storage, &fakeAuthenticator{resp: sorumluResponse()})
	got, err := store.Login(ctx, validCreds)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, EntryToken))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := NewStore(NewFileStorage(dir), nil)
	require.NoError(t, reloaded.Initialize(ctx))
	assert.Equal(t, got, reloaded.Current())

	reloaded.Logout(ctx)
	_, err = os.Stat(filepath.Join(dir, EntryProfile))
	assert.True(t, os.IsNotExist(err))

	_, _, err = storage.Get(ctx, "../escape")
	assert.Error(t, err)
}
