package rbac

import (
	"log/slog"
	"net/http"
)

// Paths the guard redirects to.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// GuardState is the outcome of one guard evaluation.
type GuardState string

const (
	StateLoading         GuardState = "loading"
	StateUnauthenticated GuardState = "unauthenticated"
	StateForbidden       GuardState = "forbidden"
	StateAuthorized      GuardState = "authorized"
)

// SessionView is the read side of the session store the guard consults.
type SessionView interface {
	Ready() bool
	Current() *Principal
}

// DecisionObserver receives every guard decision.
type DecisionObserver interface {
	ObserveGuard(state string)
}

// Guard wires authorization checks for HTTP handlers.
type Guard struct {
	// Sessions resolves the session for the request; nil means no session.
	Sessions func(r *http.Request) SessionView
	Logger   *slog.Logger
	Observer DecisionObserver
	// Loading renders the placeholder shown before initialization completes.
	Loading http.Handler
}

type guardOptions struct {
	fallback http.Handler
}

// GuardOption customises a single protected route.
type GuardOption func(*guardOptions)

// WithFallback renders h instead of redirecting to the unauthorized page.
func WithFallback(h http.Handler) GuardOption {
	return func(o *guardOptions) {
		o.fallback = h
	}
}

// Evaluate runs the guard state machine without side effects.
func (g Guard) Evaluate(r *http.Request, grant Grant) GuardState {
	var sess SessionView
	if g.Sessions != nil {
		sess = g.Sessions(r)
	}
	if sess == nil {
		return StateUnauthenticated
	}
	if !sess.Ready() {
		return StateLoading
	}
	principal := sess.Current()
	if principal == nil {
		return StateUnauthenticated
	}
	if !Can(principal, grant) {
		return StateForbidden
	}
	return StateAuthorized
}

// Require protects a handler with a single grant.
func (g Guard) Require(grant Grant, opts ...GuardOption) func(http.Handler) http.Handler {
	var o guardOptions
	for _, opt := range opts {
		opt(&o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := g.Evaluate(r, grant)
			g.observe(r, grant, state)
			switch state {
			case StateLoading:
				g.loading().ServeHTTP(w, r)
			case StateUnauthenticated:
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			case StateForbidden:
				if o.fallback != nil {
					o.fallback.ServeHTTP(w, r)
					return
				}
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireRoute protects a handler with the grant declared for pattern in Routes.
func (g Guard) RequireRoute(pattern string, opts ...GuardOption) func(http.Handler) http.Handler {
	return g.Require(MustLookup(pattern), opts...)
}

// RequireAny lets the request through when at least one grant is allowed.
func (g Guard) RequireAny(grants ...Grant) func(http.Handler) http.Handler {
	return g.requireSet(grants, HasAny)
}

// RequireAll lets the request through only when every grant is allowed.
func (g Guard) RequireAll(grants ...Grant) func(http.Handler) http.Handler {
	return g.requireSet(grants, HasAll)
}

func (g Guard) requireSet(grants []Grant, check func(*Principal, ...Grant) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(grants) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			var sess SessionView
			if g.Sessions != nil {
				sess = g.Sessions(r)
			}
			switch {
			case sess == nil || (sess.Ready() && sess.Current() == nil):
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			case !sess.Ready():
				g.loading().ServeHTTP(w, r)
			case check(sess.Current(), grants...):
				next.ServeHTTP(w, r)
			default:
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
			}
		})
	}
}

func (g Guard) observe(r *http.Request, grant Grant, state GuardState) {
	if g.Observer != nil {
		g.Observer.ObserveGuard(string(state))
	}
	if g.Logger != nil {
		g.Logger.Debug("rbac guard",
			slog.String("path", r.URL.Path),
			slog.String("grant", grant.String()),
			slog.String("state", string(state)))
	}
}

func (g Guard) loading() http.Handler {
	if g.Loading != nil {
		return g.Loading
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<div style="padding: 20px; text-align: center">Yükleniyor...</div>`))
	})
}
