package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/ledgerline/pkg/api"
	"github.com/ledgerline/ledgerline/pkg/auth"
	"github.com/ledgerline/ledgerline/pkg/authz"
	"github.com/ledgerline/ledgerline/pkg/config"
	"github.com/ledgerline/ledgerline/pkg/observability"
	"github.com/ledgerline/ledgerline/pkg/principals"
	"github.com/ledgerline/ledgerline/pkg/sessions"
	"github.com/ledgerline/ledgerline/pkg/storage/postgres"
	"github.com/ledgerline/ledgerline/pkg/tenants"
)

var seedTenantID = flag.Int64("seed-tenant", 0, "Seed role permissions for the given tenant ID and exit")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting Ledgerline")

	ctx := context.Background()

	db, err := postgres.Connect(postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			logger.WithError(err).Error("Failed to run migrations")
			os.Exit(1)
		}
	}

	// The role policy is parsed at startup so a broken file fails fast
	policy := authz.DefaultPolicy()
	if cfg.Auth.PolicyFile != "" {
		policy, err = authz.LoadPolicyFile(cfg.Auth.PolicyFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load role policy")
			os.Exit(1)
		}
		logger.WithField("path", cfg.Auth.PolicyFile).Info("Loaded role policy")
	}

	// Seed-and-exit mode for provisioning a tenant's role permissions
	if *seedTenantID != 0 {
		if err := policy.SeedTenant(ctx, db, *seedTenantID); err != nil {
			logger.WithError(err).Error("Failed to seed tenant permissions")
			os.Exit(1)
		}
		logger.WithField("tenant_id", *seedTenantID).Info("Tenant permissions seeded")
		return
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Error("Failed to connect to redis")
			os.Exit(1)
		}
		logger.WithField("addr", cfg.Redis.Addr).Info("Connected to redis")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	go postgres.ReportPoolMetrics(ctx, db, metrics, 15*time.Second)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	tenantStore := tenants.NewStore(db)
	tenantCache, err := tenants.NewCache(tenantStore, redisClient, tenants.CacheConfig{
		LocalSize: cfg.Cache.LocalSize,
		TTL:       cfg.Cache.TTL,
	}, metrics)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tenant cache")
		os.Exit(1)
	}

	sessionStore := sessions.NewStore(db)
	sweeper := sessions.NewSweeper(sessionStore, logger, metrics)
	if err := sweeper.Start(cfg.Sessions.SweepSchedule); err != nil {
		logger.WithError(err).Error("Failed to start session sweeper")
		os.Exit(1)
	}

	server := api.NewServer(api.Dependencies{
		Tokens:       auth.NewTokenService([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL),
		Principals:   principals.NewStore(db),
		Sessions:     sessionStore,
		Tenants:      tenantStore,
		TenantCache:  tenantCache,
		Permissions:  authz.NewLoader(db, metrics),
		Logger:       logger,
		Metrics:      metrics,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	handler := server.Handler()
	if providers != nil {
		handler = otelhttp.NewHandler(handler, "ledgerline")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		sweeper.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
			return observability.ShutdownOTel(shutdownCtx, providers, logger)
		})
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("Server error")
		os.Exit(1)
	}
	logger.Info("Ledgerline stopped")
}
