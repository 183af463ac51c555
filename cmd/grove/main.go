package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groveauth/grove/internal/app"
	"github.com/groveauth/grove/internal/auth"
	"github.com/groveauth/grove/internal/authz"
	"github.com/groveauth/grove/internal/hierarchy"
	"github.com/groveauth/grove/internal/identity"
	"github.com/groveauth/grove/internal/observability"
	"github.com/groveauth/grove/internal/platform/store"
	"github.com/groveauth/grove/internal/roles"
	"github.com/groveauth/grove/internal/summary"
	"github.com/groveauth/grove/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	if err := app.Seed(ctx, st); err != nil {
		logger.Error("seed protected records", slog.Any("error", err))
		os.Exit(1)
	}

	var accounts identity.AccountStore = identity.Noop{}
	if cfg.IdentityBaseURL != "" {
		accounts = identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey)
	}

	var resolver auth.Resolver = auth.HeaderResolver{}
	if cfg.AuthMode == "token" {
		resolver = auth.NewTokenResolver(st)
	}

	engine := hierarchy.NewEngine(st)
	evaluator := authz.NewEvaluator(engine)

	rolesService := roles.NewService(st, engine, evaluator)
	usersService := users.NewService(st, evaluator, accounts, logger)
	summaryService := summary.NewService(st, evaluator)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthMiddleware: auth.Middleware(resolver, logger),
		RolesHandler:   roles.NewHandler(logger, rolesService),
		UsersHandler:   users.NewHandler(logger, usersService),
		SummaryHandler: summary.NewHandler(logger, summaryService),
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

func openStore(ctx context.Context, cfg *app.Config) (store.Client, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		rs, err := store.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	case "postgres":
		pg, err := store.DialPostgres(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
