package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eventory/api/internal/config"
	"eventory/api/internal/handler"
	"eventory/api/internal/metrics"
	"eventory/api/internal/model"
	"eventory/api/internal/repository"
	"eventory/api/internal/service"
	"eventory/api/pkg/crypto"
	jwtpkg "eventory/api/pkg/jwt"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger := opts.cfg, opts.logger

	// 1. Connect to PostgreSQL
	db, err := opts.openDB()
	if err != nil {
		return err
	}

	// 2. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		logger.Info("database migration completed")
	}

	// 3. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		stateStore = repository.NewRedisStateStore(redisClient, cfg.State.KeyPrefix)
		logger.Info("using Redis state store")
	default:
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	}

	// 4. Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 5. Initialize store and JWT manager
	store := repository.NewPGStore(db)
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.SigningKey,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)

	// 6. Initialize services
	clock := service.SystemClock()
	authService := service.NewAuthService(store, stateStore, jwtManager, crypto.NewHasher(0), logger)
	clubService := service.NewClubService(store, clock, logger, m)
	eventService := service.NewEventService(store, clock, logger, m)
	catalogService := service.NewCatalogService(store, logger)
	reviewService := service.NewReviewService(store, clock)

	// 7. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, m, reg, store, handler.Handlers{
		Auth:    handler.NewAuthHandler(authService, logger),
		Clubs:   handler.NewClubHandler(clubService, logger),
		Events:  handler.NewEventHandler(eventService, logger),
		Catalog: handler.NewCatalogHandler(catalogService, logger),
		Reviews: handler.NewReviewHandler(reviewService, logger),
	})

	// 8. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Start server with graceful shutdown
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server exited gracefully")
	return nil
}
