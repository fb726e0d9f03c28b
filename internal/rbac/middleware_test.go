package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	ready     bool
	principal *Principal
}

func (f fakeSession) Ready() bool         { return f.ready }
func (f fakeSession) Current() *Principal { return f.principal }

type countingObserver map[string]int

func (c countingObserver) ObserveGuard(state string) { c[state]++ }

func guardFor(sess SessionView, obs DecisionObserver) Guard {
	return Guard{
		Sessions: func(*http.Request) SessionView { return sess },
		Observer: obs,
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("view"))
})

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestGuardLoadingRendersPlaceholder(t *testing.T) {
	obs := countingObserver{}
	g := guardFor(fakeSession{ready: false}, obs)

	rr := serve(g.Require(G(ModuleEducation, ActionView))(okHandler), "/egitim")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Yükleniyor")
	assert.Equal(t, 1, obs[string(StateLoading)])
}

func TestGuardUnauthenticatedRedirectsToLogin(t *testing.T) {
	g := guardFor(fakeSession{ready: true}, nil)

	rr := serve(g.Require(G(ModuleEducation, ActionView))(okHandler), "/egitim")

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))
}

func TestGuardNoSessionRedirectsToLogin(t *testing.T) {
	g := Guard{}
	rr := serve(g.Require(G(ModuleEducation, ActionView))(okHandler), "/egitim")
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))
}

func TestGuardForbiddenRedirectsToUnauthorized(t *testing.T) {
	trainer := &Principal{Role: RoleTrainer, Permissions: RoleDefaults()}
	g := guardFor(fakeSession{ready: true, principal: trainer}, nil)

	rr := serve(g.Require(G(ModuleEducation, ActionCreate))(okHandler), "/egitim/new")

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, UnauthorizedPath, rr.Header().Get("Location"))
}

func TestGuardForbiddenRendersFallback(t *testing.T) {
	trainer := &Principal{Role: RoleTrainer, Permissions: RoleDefaults()}
	g := guardFor(fakeSession{ready: true, principal: trainer}, nil)
	fallback := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("read only"))
	})

	rr := serve(g.Require(G(ModuleEducation, ActionCreate), WithFallback(fallback))(okHandler), "/egitim/new")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "read only", rr.Body.String())
}

func TestGuardAuthorizedRendersView(t *testing.T) {
	obs := countingObserver{}
	sorumlu := &Principal{Role: RoleResponsible, Permissions: RoleDefaults()}
	g := guardFor(fakeSession{ready: true, principal: sorumlu}, obs)

	rr := serve(g.RequireRoute("/payments/{id}/delete")(okHandler), "/payments/4/delete")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "view", rr.Body.String())
	assert.Equal(t, 1, obs[string(StateAuthorized)])
}

func TestGuardRequireAnyAll(t *testing.T) {
	p := &Principal{Role: RoleNone, Permissions: ExplicitGrants("logs.view")}
	g := guardFor(fakeSession{ready: true, principal: p}, nil)

	rr := serve(g.RequireAny(G(ModuleRoles, ActionView), G(ModuleLogs, ActionView))(okHandler), "/x")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(g.RequireAll(G(ModuleRoles, ActionView), G(ModuleLogs, ActionView))(okHandler), "/x")
	assert.Equal(t, UnauthorizedPath, rr.Header().Get("Location"))

	anon := guardFor(fakeSession{ready: true}, nil)
	rr = serve(anon.RequireAny(G(ModuleLogs, ActionView))(okHandler), "/x")
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))
}

func TestRequireRouteUndeclaredPanics(t *testing.T) {
	assert.Panics(t, func() {
		Guard{}.RequireRoute("/nowhere")
	})
}
