package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
)

// ForbiddenPolicy selects what a 403 from the backend does to the session.
type ForbiddenPolicy string

const (
	// PolicyLogout clears the session on 403 like on 401.
	PolicyLogout ForbiddenPolicy = "logout"
	// PolicyUnauthorized keeps the session and shows the unauthorized page.
	PolicyUnauthorized ForbiddenPolicy = "unauthorized"
)

// ParseForbiddenPolicy validates a configured policy name.
func ParseForbiddenPolicy(raw string) (ForbiddenPolicy, error) {
	switch ForbiddenPolicy(raw) {
	case "", PolicyLogout:
		return PolicyLogout, nil
	case PolicyUnauthorized:
		return PolicyUnauthorized, nil
	}
	return "", fmt.Errorf("unknown forbidden policy %q", raw)
}

// Notices shown after an implicit logout.
const (
	NoticeForbidden = "Yetkiniz yok veya oturum süreniz dolmuş. Lütfen tekrar giriş yapın."
	NoticeExpired   = "Oturum süreniz doldu. Lütfen tekrar giriş yapın."
)

// LogoutObserver counts implicit logouts.
type LogoutObserver interface {
	ObserveImplicitLogout(status int)
}

// Interceptor reacts to 401/403 answers from backend calls.
type Interceptor struct {
	policy   ForbiddenPolicy
	logger   *slog.Logger
	observer LogoutObserver
}

// NewInterceptor constructs an Interceptor.
func NewInterceptor(policy ForbiddenPolicy, logger *slog.Logger, observer LogoutObserver) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = PolicyLogout
	}
	return &Interceptor{policy: policy, logger: logger, observer: observer}
}

// Hook returns the backend.AuthFailureHook bound to this interceptor.
func (i *Interceptor) Hook() backend.AuthFailureHook {
	return i.Handle
}

// Handle is invoked by the backend client for 401/403 answers outside the
// auth flow. Nothing happens while the login page is being served.
func (i *Interceptor) Handle(ctx context.Context, apiErr *backend.APIError) {
	st := stateFromContext(ctx)
	if st == nil || st.page == rbac.LoginPath {
		return
	}
	// A cancelled request still logs out.
	ctx = context.WithoutCancel(ctx)

	switch apiErr.Status {
	case http.StatusUnauthorized:
		i.logout(ctx, st, apiErr, Redirect{Path: rbac.LoginPath, Notice: NoticeExpired})
	case http.StatusForbidden:
		if i.policy == PolicyUnauthorized {
			i.logger.Info("backend forbade request", slog.String("path", apiErr.Path), slog.String("page", st.page))
			st.setRedirect(Redirect{Path: rbac.UnauthorizedPath})
			return
		}
		i.logout(ctx, st, apiErr, Redirect{Path: rbac.LoginPath, Notice: NoticeForbidden})
	}
}

func (i *Interceptor) logout(ctx context.Context, st *requestState, apiErr *backend.APIError, to Redirect) {
	i.logger.Info("implicit logout",
		slog.Int("status", apiErr.Status),
		slog.String("path", apiErr.Path),
		slog.String("page", st.page),
	)
	if st.store != nil {
		st.store.Logout(ctx)
	}
	if i.observer != nil {
		i.observer.ObserveImplicitLogout(apiErr.Status)
	}
	st.setRedirect(to)
}

// Respond performs the pending redirect, if any, and reports whether it did.
// Handlers call it first when a backend call failed.
func (i *Interceptor) Respond(w http.ResponseWriter, r *http.Request) bool {
	redirect := PendingRedirect(r.Context())
	if redirect == nil {
		return false
	}
	if redirect.Notice != "" {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: redirect.Notice})
		}
	}
	http.Redirect(w, r, redirect.Path, http.StatusSeeOther)
	return true
}
