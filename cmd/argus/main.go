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

	"github.com/argus-soc/argus/internal/app"
	"github.com/argus-soc/argus/internal/audit"
	audithttp "github.com/argus-soc/argus/internal/audit/http"
	"github.com/argus-soc/argus/internal/auth"
	"github.com/argus-soc/argus/internal/authz"
	authzhttp "github.com/argus-soc/argus/internal/authz/http"
	"github.com/argus-soc/argus/internal/observability"
	"github.com/argus-soc/argus/internal/platform/cache"
	"github.com/argus-soc/argus/internal/platform/db"
	"github.com/argus-soc/argus/internal/shared"
	"github.com/argus-soc/argus/internal/users"
	"github.com/argus-soc/argus/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "argus_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	recorder := audit.NewRecorder(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, recorder)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)

	registry := authz.DefaultRegistry()
	guard := authz.NewGuard(recorder, logger)
	impersonator := authz.NewImpersonator(recorder, logger)
	authzService := authz.NewService(registry, authz.NewPolicyRepository(dbpool), authz.NewOverrideRepository(dbpool), usersRepo, recorder, logger)

	metrics := observability.NewMetrics()

	authzMW := authz.Middleware{
		Service:  authzService,
		Guard:    guard,
		Actors:   usersService,
		Logger:   logger,
		Observer: metrics,
	}

	authzHandler := authzhttp.NewHandler(logger, authzService, impersonator, authzMW, authz.DefaultPages())
	usersHandler := users.NewHandler(logger, usersService, authzMW)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService, authzMW)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger, authzMW)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AuthzHandler:   authzHandler,
		UsersHandler:   usersHandler,
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
