package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartkitchen/smartkitchen-backend/api/controllers"
	"github.com/smartkitchen/smartkitchen-backend/api/middleware"
	"github.com/smartkitchen/smartkitchen-backend/internal/alerts"
	"github.com/smartkitchen/smartkitchen-backend/internal/availability"
	"github.com/smartkitchen/smartkitchen-backend/internal/catalog"
	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/internal/orders"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	"github.com/smartkitchen/smartkitchen-backend/pkg/config"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
	"github.com/smartkitchen/smartkitchen-backend/pkg/redis"
)

// NewRouter assembles the HTTP surface: health probes plus the v1 API.
// Mutating routes pass through idempotency replay and a per-actor write
// rate limit; reads stay cheap.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogService catalog.Service,
	recipesService recipes.Service,
	inventoryService inventory.Service,
	availabilityService availability.Service,
	alertsService alerts.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	writePolicy := middleware.NewWriteRateLimitPolicy(
		"write",
		cfg.RateLimit.WriteWindow,
		cfg.RateLimit.WriteLimit,
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor())
		if redisClient != nil {
			r.Use(middleware.WriteRateLimit(writePolicy, redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", controllers.ListIngredients(catalogService, logg))
			r.Post("/", controllers.CreateIngredient(catalogService, logg))
			r.Get("/{ingredientID}", controllers.GetIngredient(catalogService, logg))
			r.Patch("/{ingredientID}", controllers.UpdateIngredient(catalogService, logg))
			r.Delete("/{ingredientID}", controllers.DeactivateIngredient(catalogService, logg))
		})

		r.Route("/dishes", func(r chi.Router) {
			r.Get("/", controllers.ListDishes(recipesService, logg))
			r.Post("/", controllers.CreateDish(recipesService, logg))
			r.Get("/{dishID}", controllers.GetDish(recipesService, logg))
			r.Patch("/{dishID}", controllers.UpdateDish(recipesService, logg))
			r.Get("/{dishID}/recipe", controllers.GetRecipe(recipesService, logg))
			r.Put("/{dishID}/recipe", controllers.SetRecipe(recipesService, logg))
			r.Get("/{dishID}/cost", controllers.GetDishCost(recipesService, logg))
			r.Get("/{dishID}/availability", controllers.CheckAvailability(availabilityService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/levels", controllers.ListStockLevels(inventoryService, logg))
			r.Get("/levels/{ingredientID}", controllers.GetStockLevel(inventoryService, logg))
			r.Post("/adjustments", controllers.AdjustStock(inventoryService, logg))
			r.Get("/transactions", controllers.ListStockTransactions(inventoryService, logg))
			r.Get("/low-stock", controllers.LowStockReport(alertsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			r.Post("/{orderID}/confirm", controllers.ConfirmOrder(ordersService, logg))
			r.Post("/{orderID}/release", controllers.ReleaseOrder(ordersService, logg))
		})
	})

	return r
}
