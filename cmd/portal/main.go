package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/akademi/egitim-portal/internal/admin"
	"github.com/akademi/egitim-portal/internal/app"
	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/events"
	"github.com/akademi/egitim-portal/internal/logs"
	"github.com/akademi/egitim-portal/internal/observability"
	"github.com/akademi/egitim-portal/internal/platform/cache"
	"github.com/akademi/egitim-portal/internal/portal"
	"github.com/akademi/egitim-portal/internal/rbac"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/internal/view"
	"github.com/akademi/egitim-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "portal_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	sealer, err := shared.NewTokenSealer(cfg.SessionSecret)
	if err != nil {
		logger.Error("init token sealer", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	interceptor := auth.NewInterceptor(cfg.ForbiddenPolicy(), logger, metrics)

	client := backend.NewClient(cfg.BackendURL,
		backend.WithTokenSource(auth.TokenFromContext),
		backend.WithAuthFailureHook(interceptor.Hook()),
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithLogger(logger),
	)
	sessions := auth.NewSessions(sealer, client, logger)

	guard := rbac.Guard{
		Sessions: auth.SessionView,
		Logger:   logger,
		Observer: metrics,
		Loading:  app.LoadingPage(templates, csrfManager, logger),
	}

	redisOpts := cfg.Redis().Asynq()
	var recorder *events.Recorder
	if cfg.EventsEnabled {
		jobsClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init jobs client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		recorder = events.NewRecorder(jobsClient, sealer, logger, metrics)
	} else {
		recorder = events.NewRecorder(nil, sealer, logger, metrics)
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Sessions:       sessions,
		Recorder:       recorder,
		Backend:        client,
		AuthHandler:    auth.NewHandler(logger, templates, csrfManager),
		PortalHandler:  portal.NewHandler(logger, client, templates, csrfManager, guard, interceptor, recorder),
		LogsHandler:    logs.NewHandler(logger, client, templates, csrfManager, guard, interceptor),
		AdminHandler:   admin.NewHandler(logger, admin.NewService(client), templates, csrfManager, guard, interceptor),
		EventsHandler:  events.NewHandler(recorder, logger),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
