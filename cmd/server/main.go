package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-intake/backend/internal/repository"
	"whatsapp-intake/backend/pkg/config"
	"whatsapp-intake/backend/pkg/di"
	"whatsapp-intake/backend/pkg/health"
	"whatsapp-intake/backend/pkg/logger"
	"whatsapp-intake/backend/pkg/router"
	"whatsapp-intake/backend/pkg/secrets"
	"whatsapp-intake/backend/shared/observability"

	"golang.org/x/sync/errgroup"
)

const serviceName = "whatsapp-intake"

func main() {
	if err := run(); err != nil {
		logger.GetGlobal().LogError(err, "Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		logger.New(logger.DefaultConfig()).LogError(err, "Failed to load configuration")
		return err
	}

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", router.Version, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(serviceName, cfg.Observability.TracingEnabled, os.Stdout)
	if err != nil {
		return err
	}

	var (
		metrics        *observability.Metrics
		metricsHandler http.Handler
	)
	if cfg.Observability.MetricsEnabled {
		provider, handler, err := observability.SetupMetrics(serviceName)
		if err != nil {
			return err
		}
		defer provider.Shutdown(context.Background())

		metrics, err = observability.NewMetrics(provider)
		if err != nil {
			return err
		}
		metricsHandler = handler
	}

	db, err := config.NewDB(cfg.Database, log)
	if err != nil {
		return err
	}

	if err := repository.Migrate(db); err != nil {
		return err
	}

	secretManager, err := secrets.NewVaultManager(secrets.VaultConfig{
		Enabled:     cfg.Vault.Enabled,
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		SecretsPath: cfg.Vault.SecretsPath,
	}, log)
	if err != nil {
		return err
	}

	sender, err := di.NewSender(ctx, cfg.Twilio, secretManager, log)
	if err != nil {
		return err
	}

	store, cachePing, closeCache, err := di.NewCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	container, err := di.New(db, &di.Config{
		App:            cfg,
		Logger:         log,
		Sender:         sender,
		Cache:          store,
		CachePing:      cachePing,
		JWTSecret:      secretManager.GetSecretWithDefault(ctx, secrets.KeyAPIJWTSecret, cfg.API.JWTSecret),
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})
	if err != nil {
		return err
	}
	defer container.Close()

	r := router.New(container)
	if cfg.Observability.OpenAPISchemaPath != "" {
		r.AddOpenAPIValidation(cfg.Observability.OpenAPISchemaPath)
	}
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	var grpcHealth *health.GRPCServer
	if cfg.Observability.GRPCHealthPort != "" {
		grpcHealth = health.NewGRPCServer(container.HealthChecker, log)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcHealth != nil {
		g.Go(func() error {
			return grpcHealth.Serve(":" + cfg.Observability.GRPCHealthPort)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if grpcHealth != nil {
			grpcHealth.Stop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.LogError(err, "Server forced to shutdown")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.LogError(err, "Failed to flush traces")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Server exited gracefully", "uptime", time.Since(startedAt).Round(time.Second).String())
	return nil
}

var startedAt = time.Now()
