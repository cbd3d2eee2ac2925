package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smartkitchen/smartkitchen-backend/internal/alerts"
	"github.com/smartkitchen/smartkitchen-backend/internal/cron"
	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	"github.com/smartkitchen/smartkitchen-backend/pkg/config"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/instance"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
	"github.com/smartkitchen/smartkitchen-backend/pkg/metrics"
	"github.com/smartkitchen/smartkitchen-backend/pkg/migrate"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox"
	"github.com/smartkitchen/smartkitchen-backend/pkg/redis"
)

const lockKeyFormat = "sk:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	inventoryRepo := inventory.NewRepository(gormDB)
	recipesRepo := recipes.NewRepository(gormDB)
	outboxRepo := outbox.NewRepository(gormDB)
	outboxService := outbox.NewService(outboxRepo, logg)
	inventoryMetrics := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)

	alertsService, err := alerts.NewService(inventoryRepo, recipesRepo, dbClient, outboxService, cfg.Alerting, logg, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create alerts service", err)
		os.Exit(1)
	}

	lowStockJob, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger: logg,
		Alerts: alertsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock job", err)
		os.Exit(1)
	}
	ledgerAuditJob, err := cron.NewLedgerAuditJob(cron.LedgerAuditJobParams{
		Logger:  logg,
		Auditor: inventory.NewAuditor(inventoryRepo),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger audit job", err)
		os.Exit(1)
	}
	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(lowStockJob, ledgerAuditJob, outboxRetentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
