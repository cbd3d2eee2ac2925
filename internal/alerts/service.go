package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	"github.com/smartkitchen/smartkitchen-backend/pkg/config"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
	"github.com/smartkitchen/smartkitchen-backend/pkg/metrics"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox/payloads"
)

// Severity labels for the low-stock gauge.
const (
	SeverityOutOfStock   = "out_of_stock"
	SeverityBelowMinimum = "below_minimum"
)

// DishRef names a dish affected by a low ingredient.
type DishRef struct {
	DishID uuid.UUID `json:"dish_id"`
	Name   string    `json:"name"`
}

// LowStockItem describes one ingredient at or below its threshold.
type LowStockItem struct {
	IngredientID     uuid.UUID       `json:"ingredient_id"`
	Name             string          `json:"name"`
	Unit             enums.Unit      `json:"unit"`
	Quantity         decimal.Decimal `json:"quantity"`
	MinimumStock     decimal.Decimal `json:"minimum_stock"`
	OutOfStock       bool            `json:"out_of_stock"`
	SuggestedRestock decimal.Decimal `json:"suggested_restock"`
	AffectedDishes   []DishRef       `json:"affected_dishes"`
}

// LowStockReport buckets low ingredients by severity. Out-of-stock items do
// not repeat in the below-minimum bucket.
type LowStockReport struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	OutOfStock   []LowStockItem `json:"out_of_stock"`
	BelowMinimum []LowStockItem `json:"below_minimum"`
}

// Service computes the low-stock report and pushes alert events.
type Service interface {
	Scan(ctx context.Context) (*LowStockReport, error)
	PublishAlerts(ctx context.Context) (*LowStockReport, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	stock   inventory.Repository
	recipes recipes.Repository
	client  txRunner
	events  *outbox.Service
	cfg     config.AlertingConfig
	logg    *logger.Logger
	metrics *metrics.InventoryMetrics
}

// NewService wires the alert generator with its collaborators.
func NewService(stock inventory.Repository, recipeRepo recipes.Repository, client txRunner, events *outbox.Service, cfg config.AlertingConfig, logg *logger.Logger, m *metrics.InventoryMetrics) (Service, error) {
	if stock == nil {
		return nil, errors.New("inventory repository required")
	}
	if recipeRepo == nil {
		return nil, errors.New("recipes repository required")
	}
	if client == nil {
		return nil, errors.New("db client required")
	}
	if events == nil {
		return nil, errors.New("outbox service required")
	}
	if cfg.RestockTargetFactor <= 0 {
		cfg.RestockTargetFactor = 1.0
	}
	return &service{
		stock:   stock,
		recipes: recipeRepo,
		client:  client,
		events:  events,
		cfg:     cfg,
		logg:    logg,
		metrics: m,
	}, nil
}

// Scan reads every stock level and reports active ingredients at zero or
// below their minimum-stock threshold. The read is advisory: no locks, a
// concurrent deduction may shift a level while the report is assembled.
func (s *service) Scan(ctx context.Context) (*LowStockReport, error) {
	levels, err := s.stock.ListAllLevels(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list stock levels")
	}

	report := &LowStockReport{
		GeneratedAt:  time.Now().UTC(),
		OutOfStock:   []LowStockItem{},
		BelowMinimum: []LowStockItem{},
	}
	for _, level := range levels {
		if level.Ingredient == nil || !level.Ingredient.IsActive {
			continue
		}
		outOfStock := level.Quantity.LessThanOrEqual(decimal.Zero)
		belowMinimum := level.Ingredient.MinimumStock.IsPositive() &&
			level.Quantity.LessThan(level.Ingredient.MinimumStock)
		if !outOfStock && !belowMinimum {
			continue
		}

		item := LowStockItem{
			IngredientID:     level.IngredientID,
			Name:             level.Ingredient.Name,
			Unit:             level.Ingredient.Unit,
			Quantity:         level.Quantity,
			MinimumStock:     level.Ingredient.MinimumStock,
			OutOfStock:       outOfStock,
			SuggestedRestock: s.suggestedRestock(level),
			AffectedDishes:   []DishRef{},
		}

		dishes, err := s.recipes.DishesUsing(ctx, level.IngredientID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: dishes using ingredient")
		}
		for _, dish := range dishes {
			item.AffectedDishes = append(item.AffectedDishes, DishRef{DishID: dish.ID, Name: dish.Name})
		}

		if outOfStock {
			report.OutOfStock = append(report.OutOfStock, item)
		} else {
			report.BelowMinimum = append(report.BelowMinimum, item)
		}
	}

	s.metrics.SetLowStockCount(SeverityOutOfStock, len(report.OutOfStock))
	s.metrics.SetLowStockCount(SeverityBelowMinimum, len(report.BelowMinimum))
	return report, nil
}

// PublishAlerts scans and queues one low_stock event per affected
// ingredient. Alerts repeat on every scan while the condition holds;
// downstream consumers decide whether to notify again.
func (s *service) PublishAlerts(ctx context.Context) (*LowStockReport, error) {
	report, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]LowStockItem, 0, len(report.OutOfStock)+len(report.BelowMinimum))
	items = append(items, report.OutOfStock...)
	items = append(items, report.BelowMinimum...)
	if len(items) == 0 {
		return report, nil
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, item := range items {
			event := outbox.DomainEvent{
				EventType:     enums.EventLowStock,
				AggregateType: enums.AggregateIngredient,
				AggregateID:   item.IngredientID,
				Data: payloads.LowStockEvent{
					IngredientID:     item.IngredientID,
					Name:             item.Name,
					Quantity:         item.Quantity,
					MinimumStock:     item.MinimumStock,
					OutOfStock:       item.OutOfStock,
					SuggestedRestock: item.SuggestedRestock,
				},
				OccurredAt: report.GeneratedAt,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithField(ctx, "out_of_stock", len(report.OutOfStock))
	logCtx = s.logg.WithField(logCtx, "below_minimum", len(report.BelowMinimum))
	s.logg.Info(logCtx, "low stock alerts queued")
	return report, nil
}

// suggestedRestock brings the level back up to minimum_stock scaled by the
// configured target factor. Never negative.
func (s *service) suggestedRestock(level models.StockLevel) decimal.Decimal {
	target := level.Ingredient.MinimumStock.Mul(decimal.NewFromFloat(s.cfg.RestockTargetFactor))
	suggested := target.Sub(level.Quantity)
	if suggested.IsNegative() {
		return decimal.Zero
	}
	return suggested
}
