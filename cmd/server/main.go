package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appvertical "github.com/verticore/backend/internal/application/vertical"
	"github.com/verticore/backend/internal/domain/vertical"
	"github.com/verticore/backend/internal/infrastructure/cache"
	"github.com/verticore/backend/internal/infrastructure/config"
	"github.com/verticore/backend/internal/infrastructure/event"
	"github.com/verticore/backend/internal/infrastructure/logger"
	"github.com/verticore/backend/internal/infrastructure/persistence"
	"github.com/verticore/backend/internal/infrastructure/scheduler"
	"github.com/verticore/backend/internal/infrastructure/scripts"
	"github.com/verticore/backend/internal/interfaces/http/handler"
	"github.com/verticore/backend/internal/interfaces/http/middleware"
	"github.com/verticore/backend/internal/interfaces/http/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting verticore",
		zap.String("environment", cfg.App.Environment),
		zap.Int("port", cfg.HTTP.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	// Redis is optional: the config cache degrades to source reads
	// when the shared tier is unreachable
	var sharedCache vertical.SharedConfigCache
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, shared config cache disabled", zap.Error(err))
		sharedCache = cache.NoopSharedCache{}
	} else {
		defer func() {
			_ = redisClient.Close()
		}()
		sharedCache = cache.NewRedisConfigCache(redisClient,
			cache.WithLogger(log),
			cache.WithTTL(cfg.Cache.SharedTTL),
			cache.WithOpTimeout(cfg.Cache.OpTimeout),
		)
	}

	// Event bus
	bus := event.NewInMemoryEventBus(log)

	// Repositories
	tenants := persistence.NewGormTenantRepository(db.DB)
	snapshots := persistence.NewGormSnapshotRepository(db.DB)
	audits := persistence.NewGormAuditRepository(db.DB)
	overrides := persistence.NewGormOverrideRepository(db.DB)
	alerts := persistence.NewGormAlertRepository(db.DB)
	inspector := persistence.NewGormDataInspector(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)
	runner := scripts.NewGormScriptRunner(db.DB, log)
	registry := vertical.NewStaticRegistry()

	// Application services
	configs := appvertical.NewConfigService(
		tenants, overrides, registry,
		cache.NewLocalConfigCache(), sharedCache,
		bus, log,
	)
	migrations := appvertical.NewMigrationService(
		uow, tenants, snapshots, registry, runner, configs, bus, log,
	)
	compatibility := appvertical.NewCompatibilityService(tenants, inspector, log)

	// Event subscribers
	notifier := appvertical.NewAuditNotifier(alerts, log)
	bus.Subscribe(notifier)

	dispatcher := appvertical.NewWebhookDispatcher(appvertical.WebhookDispatcherConfig{
		Timeout:    cfg.Webhook.Timeout,
		MaxRetries: cfg.Webhook.MaxRetries,
		BaseDelay:  cfg.Webhook.BaseDelay,
	}, log)
	bus.Subscribe(dispatcher)

	if err := bus.Start(context.Background()); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}

	// Snapshot janitor
	janitor := scheduler.NewSnapshotJanitor(scheduler.SnapshotJanitorConfig{
		Enabled:      cfg.Janitor.Enabled,
		Hour:         cfg.Janitor.Hour,
		Minute:       cfg.Janitor.Minute,
		SweepTimeout: 5 * time.Minute,
	}, snapshots, log)
	if err := janitor.Start(context.Background()); err != nil {
		return fmt.Errorf("start snapshot janitor: %w", err)
	}

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(log))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))

	verticalHandler := handler.NewVerticalHandler(compatibility, migrations, configs, audits, alerts, dispatcher, log)
	systemHandler := handler.NewSystemHandler(
		handler.ReadinessCheck{Name: "database", Probe: db.Ping},
	)
	router.NewRouter(engine).
		Register(verticalHandler).
		Register(systemHandler).
		Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	if err := janitor.Stop(ctx); err != nil {
		log.Error("janitor shutdown failed", zap.Error(err))
	}
	if err := bus.Stop(ctx); err != nil {
		log.Error("event bus shutdown failed", zap.Error(err))
	}
	dispatcher.Wait()

	log.Info("shutdown complete")
	return nil
}
