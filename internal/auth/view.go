package auth

import (
	"net/http"

	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
)

// NewTemplateData fills the layout fields shared by every page: CSRF token,
// pending flash, current principal and the navigation it may see.
func NewTemplateData(r *http.Request, csrf *shared.CSRFManager, title string, data any) view.TemplateData {
	sess := shared.SessionFromContext(r.Context())
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if csrf != nil {
		td.CSRFToken, _ = csrf.EnsureToken(r.Context(), sess)
	}
	if sess != nil {
		td.Flash = sess.PopFlash()
	}
	if store := StoreFromContext(r.Context()); store != nil {
		td.User = store.Current()
		td.Nav = rbac.FilterNav(td.User, rbac.DefaultNav)
	}
	return td
}
