package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/daisy-gov/daisy/internal/access"
	"github.com/daisy-gov/daisy/internal/api"
	"github.com/daisy-gov/daisy/internal/auth"
	"github.com/daisy-gov/daisy/internal/config"
	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/database"
	"github.com/daisy-gov/daisy/internal/dataset"
	"github.com/daisy-gov/daisy/internal/endpoint"
	"github.com/daisy-gov/daisy/internal/entitlement"
	"github.com/daisy-gov/daisy/internal/export"
	"github.com/daisy-gov/daisy/internal/identity"
	"github.com/daisy-gov/daisy/internal/identity/keycloak"
	"github.com/daisy-gov/daisy/internal/identity/static"
	"github.com/daisy-gov/daisy/internal/jobs"
	"github.com/daisy-gov/daisy/internal/metrics"
	"github.com/daisy-gov/daisy/internal/partner"
	"github.com/daisy-gov/daisy/internal/reconcile"
	"github.com/daisy-gov/daisy/internal/rems"
	"github.com/daisy-gov/daisy/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunMigration {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("database migrations applied")
	}

	db, err := database.New(ctx, cfg.DatabaseURL,
		database.WithMaxConns(cfg.DatabaseMaxConns),
		database.WithConnectTimeout(cfg.DatabaseConnectTimeout),
	)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pool := db.Pool()
	userRepo := user.NewRepository(pool)
	contactRepo := contact.NewRepository(pool)
	partnerRepo := partner.NewRepository(pool)
	datasetRepo := dataset.NewRepository(pool)
	accessRepo := access.NewRepository(pool)
	endpointRepo := endpoint.NewRepository(pool)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	source := initIdentitySource(ctx, cfg)

	engineOpts := []reconcile.Option{
		reconcile.WithLocker(database.NewAdvisoryLocker(pool)),
		reconcile.WithMetrics(collector),
	}
	if cfg.SyncCacheRoster {
		engineOpts = append(engineOpts, reconcile.WithRosterCache())
	}
	engine := reconcile.NewEngine(source, reconcile.Store{
		Users:    userRepo,
		Contacts: contactRepo,
		Partners: partnerRepo,
	}, engineOpts...)

	processorOpts := []entitlement.Option{
		entitlement.WithGraceDays(cfg.AccessGraceDays),
		entitlement.WithMetrics(collector),
	}
	if cfg.RemsEnabled {
		remsClient := rems.NewClient(rems.Config{
			URL:    cfg.RemsURL,
			APIKey: cfg.RemsAPIKey,
			User:   cfg.RemsUser,
			Retry: rems.RetryPolicy{
				MaxAttempts: cfg.RemsMaxAttempts,
				Delay:       cfg.RemsRetryDelay,
			},
		}, collector)
		processorOpts = append(processorOpts, entitlement.WithExternalIDs(remsClient))
	}
	processor := entitlement.NewProcessor(engine, datasetRepo, accessRepo, processorOpts...)

	validator, err := export.NewValidator(cfg.ExportSchemaBaseURL)
	if err != nil {
		slog.Error("failed to compile export schemas", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.GlobalAPIKey, userRepo, endpointRepo, cfg.BcryptCost)
	if cfg.GlobalAPIKey == "" {
		slog.Warn("GLOBAL_API_KEY is not set; only user and endpoint keys are accepted")
	}

	syncInterval := cfg.SyncInterval
	if source.Name() == identity.NoopName {
		syncInterval = 0
	}
	runner := jobs.New(engine, access.NewService(accessRepo, collector), syncInterval, cfg.ExpireInterval)
	go runner.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		Identity:  source,
		DBPinger:  db,
		Version:   cfg.Version,
		Metrics:   metrics.Handler(reg),
		Auth:      authService,
		Registrar: authService,
		Processor: processor,
		Syncer:    engine,
		Datasets:  datasetRepo,
		Contacts:  contactRepo,
		Partners:  partnerRepo,
		Validator: validator,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting DAISY server",
			"port", cfg.Port,
			"version", cfg.Version,
			"identityBackend", source.Name(),
			"remsEnabled", cfg.RemsEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// initIdentitySource registers the available backends and returns the
// configured one. A backend that fails to initialize falls back to the
// disabled source so the webhook and exports keep serving.
func initIdentitySource(ctx context.Context, cfg *config.Config) identity.Source {
	registry := identity.NewRegistry()

	if cfg.StaticRosterPath != "" {
		registry.Register(static.New(cfg.StaticRosterPath))
	}

	// Keycloak discovery does network I/O, so it only runs when selected.
	if cfg.IdentityBackend == keycloak.Name {
		kc, err := keycloak.New(ctx, keycloak.Config{
			URL:               cfg.KeycloakURL,
			Realm:             cfg.KeycloakRealm,
			ClientID:          cfg.KeycloakClientID,
			ClientSecret:      cfg.KeycloakClientSecret,
			PageSize:          cfg.KeycloakPageSize,
			RequestsPerSecond: cfg.KeycloakRequestsPerSecond,
		})
		if err != nil {
			slog.Warn("keycloak initialization failed", "error", err)
		} else {
			registry.Register(kc)
		}
	}

	backend := cfg.IdentityBackend
	if backend == "" {
		backend = identity.NoopName
	}
	if source, ok := registry.Get(backend); ok {
		return source
	}

	slog.Warn("identity backend unavailable; identity sync disabled",
		"backend", backend,
		"registered", registry.Names(),
	)
	source, _ := registry.Get(identity.NoopName)
	return source
}
