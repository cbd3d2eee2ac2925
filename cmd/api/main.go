package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smartkitchen/smartkitchen-backend/api/routes"
	"github.com/smartkitchen/smartkitchen-backend/internal/alerts"
	"github.com/smartkitchen/smartkitchen-backend/internal/availability"
	"github.com/smartkitchen/smartkitchen-backend/internal/catalog"
	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/internal/orders"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	"github.com/smartkitchen/smartkitchen-backend/pkg/config"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
	"github.com/smartkitchen/smartkitchen-backend/pkg/metrics"
	"github.com/smartkitchen/smartkitchen-backend/pkg/migrate"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox"
	"github.com/smartkitchen/smartkitchen-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	catalogRepo := catalog.NewRepository(gormDB)
	recipesRepo := recipes.NewRepository(gormDB)
	inventoryRepo := inventory.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	inventoryMetrics := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)

	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	recipesService, err := recipes.NewService(recipesRepo, catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create recipes service", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, outboxService, logg, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	availabilityService, err := availability.NewService(recipesRepo, inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}
	alertsService, err := alerts.NewService(inventoryRepo, recipesRepo, dbClient, outboxService, cfg.Alerting, logg, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create alerts service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(ordersRepo, inventoryRepo, recipesRepo, dbClient, outboxService, logg, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogService,
			recipesService,
			inventoryService,
			availabilityService,
			alertsService,
			ordersService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
