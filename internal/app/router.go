package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/akademi/egitim-portal/internal/admin"
	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/events"
	"github.com/akademi/egitim-portal/internal/logs"
	"github.com/akademi/egitim-portal/internal/observability"
	"github.com/akademi/egitim-portal/internal/portal"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
	"github.com/akademi/egitim-portal/jobs"
	"github.com/akademi/egitim-portal/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Sessions       *auth.Sessions
	Recorder       *events.Recorder
	Backend        *backend.Client

	AuthHandler   *auth.Handler
	PortalHandler *portal.Handler
	LogsHandler   *logs.Handler
	AdminHandler  *admin.Handler
	EventsHandler *events.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler(params.Backend))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		params.JobHandler.MountRoutes(r)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Sessions:       params.Sessions,
			Recorder:       params.Recorder,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		r.Get("/", homeHandler(params))
		params.AuthHandler.MountRoutes(r)
		if params.EventsHandler != nil {
			params.EventsHandler.MountRoutes(r)
		}
		if params.PortalHandler != nil {
			params.PortalHandler.MountRoutes(r)
		}
		if params.LogsHandler != nil {
			params.LogsHandler.MountRoutes(r)
		}
		if params.AdminHandler != nil {
			params.AdminHandler.MountRoutes(r)
		}
		r.NotFound(notFoundHandler(params))
	})

	return r
}

// HomePath is where "/" sends principals allowed to list trainings.
const HomePath = "/egitim"

func homeHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := auth.StoreFromContext(r.Context())
		if store == nil || !store.IsAuthenticated() {
			http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
			return
		}
		if store.HasPermission(rbac.ModuleEducation, rbac.ActionView) {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}
		td := auth.NewTemplateData(r, params.CSRFManager, "Ana Sayfa", nil)
		if err := params.Templates.Render(w, "pages/home.html", td); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

type notFoundPage struct {
	Message string
	Back    string
}

func notFoundHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		td := auth.NewTemplateData(r, params.CSRFManager, "Sayfa Bulunamadı", notFoundPage{Message: "Aradığınız sayfa bulunamadı.", Back: "/"})
		if err := params.Templates.RenderStatus(w, http.StatusNotFound, "pages/error.html", td); err != nil {
			params.Logger.Error("render not found", slog.Any("error", err))
			http.NotFound(w, r)
		}
	}
}

// LoadingPage renders the placeholder the route guard shows while the
// session is still being restored.
func LoadingPage(templates *view.Engine, csrf *shared.CSRFManager, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		td := auth.NewTemplateData(r, csrf, "Yükleniyor", nil)
		if err := templates.Render(w, "pages/loading.html", td); err != nil {
			logger.Error("render loading", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

func healthHandler(client *backend.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if client == nil {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","backend":"down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","backend":"up"}`))
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
