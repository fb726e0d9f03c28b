package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		templates:   templates,
		csrfManager: csrf,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(rbac.LoginPath, h.showLogin)
	r.Post(rbac.LoginPath, h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get(rbac.UnauthorizedPath, h.showUnauthorized)
}

type loginForm struct {
	Email string
	Next  string
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if store := StoreFromContext(r.Context()); store != nil && store.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := loginPageData{Form: loginForm{Next: safeNext(r.URL.Query().Get("next"))}}
	h.render(w, r, http.StatusOK, data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	store := StoreFromContext(r.Context())
	if store == nil {
		h.logger.Error("session store missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	creds := Credentials{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	form := loginForm{Email: creds.Email, Next: safeNext(r.PostFormValue("next"))}

	if fields := creds.FieldErrors(h.validator); len(fields) > 0 {
		h.render(w, r, http.StatusBadRequest, loginPageData{Form: form, Errors: fields})
		return
	}

	principal, err := store.Login(r.Context(), creds)
	if err != nil {
		errs := map[string]string{"general": FallbackLoginMessage}
		if le, ok := IsLoginError(err); ok {
			errs["general"] = le.Message
			for k, v := range le.Fields {
				errs[k] = v
			}
		}
		h.logger.Info("login failed", slog.String("email", creds.Email), slog.Any("error", err))
		h.render(w, r, http.StatusUnauthorized, loginPageData{Form: form, Errors: errs})
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Hoş geldiniz, " + principal.DisplayName()})
	}
	target := form.Next
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if store := StoreFromContext(r.Context()); store != nil {
		store.Logout(r.Context())
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

func (h *Handler) showUnauthorized(w http.ResponseWriter, r *http.Request) {
	data := NewTemplateData(r, h.csrfManager, "Yetkisiz Erişim", nil)
	if err := h.templates.RenderStatus(w, http.StatusForbidden, "pages/unauthorized.html", data); err != nil {
		h.logger.Error("render unauthorized", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	td := NewTemplateData(r, h.csrfManager, "Giriş", data)
	if err := h.templates.RenderStatus(w, status, "pages/login.html", td); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// safeNext accepts only local absolute paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if next == rbac.LoginPath {
		return ""
	}
	return next
}
