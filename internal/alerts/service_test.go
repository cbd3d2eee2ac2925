package alerts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	"github.com/smartkitchen/smartkitchen-backend/pkg/config"
	dbpkg "github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox"
)

type fixture struct {
	db  *gorm.DB
	svc Service
}

func newFixture(t *testing.T, cfg config.AlertingConfig) *fixture {
	t.Helper()
	dsn := "file:alerts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Ingredient{},
		&models.Dish{},
		&models.RecipeItem{},
		&models.StockLevel{},
		&models.OutboxEvent{},
	))

	events := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(
		inventory.NewRepository(db),
		recipes.NewRepository(db),
		dbpkg.FromConn(db),
		events,
		cfg,
		nil,
		nil,
	)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc}
}

func (f *fixture) ingredient(t *testing.T, name, stock, minimum string, active bool) uuid.UUID {
	t.Helper()
	ing := models.Ingredient{
		Name:         name,
		Category:     enums.IngredientCategoryOther,
		Unit:         enums.UnitKilogram,
		MinimumStock: decimal.RequireFromString(minimum),
		IsActive:     active,
	}
	require.NoError(t, f.db.Create(&ing).Error)
	require.NoError(t, f.db.Create(&models.StockLevel{
		IngredientID: ing.ID,
		Quantity:     decimal.RequireFromString(stock),
	}).Error)
	return ing.ID
}

func TestScanBucketsIngredientsBySeverity(t *testing.T) {
	f := newFixture(t, config.AlertingConfig{RestockTargetFactor: 1.0})
	ctx := context.Background()

	f.ingredient(t, "Flour", "0", "5.0", true)
	low := f.ingredient(t, "Sugar", "1.0", "3.0", true)
	f.ingredient(t, "Salt", "10.0", "2.0", true)

	report, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, report.OutOfStock, 1)
	require.Len(t, report.BelowMinimum, 1)
	require.Equal(t, "Flour", report.OutOfStock[0].Name)
	require.True(t, report.OutOfStock[0].OutOfStock)

	sugar := report.BelowMinimum[0]
	require.Equal(t, low, sugar.IngredientID)
	require.False(t, sugar.OutOfStock)
	// 3.0 * 1.0 - 1.0
	require.True(t, sugar.SuggestedRestock.Equal(decimal.RequireFromString("2.0")))
}

func TestScanSkipsInactiveAndUnthresholded(t *testing.T) {
	f := newFixture(t, config.AlertingConfig{RestockTargetFactor: 1.0})
	ctx := context.Background()

	f.ingredient(t, "Retired Spice", "0", "5.0", false)
	f.ingredient(t, "Garnish", "0.5", "0", true)

	report, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	require.Empty(t, report.OutOfStock)
	require.Empty(t, report.BelowMinimum)
}

func TestScanAnnotatesAffectedDishes(t *testing.T) {
	f := newFixture(t, config.AlertingConfig{RestockTargetFactor: 1.0})
	ctx := context.Background()

	egg := f.ingredient(t, "Egg", "0", "12", true)
	dish := models.Dish{Name: "Omelette", Category: enums.DishCategoryMainCourse, IsAvailable: true}
	require.NoError(t, f.db.Create(&dish).Error)
	require.NoError(t, f.db.Create(&models.RecipeItem{
		DishID:       dish.ID,
		IngredientID: egg,
		Quantity:     decimal.RequireFromString("3"),
	}).Error)

	report, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, report.OutOfStock, 1)
	require.Len(t, report.OutOfStock[0].AffectedDishes, 1)
	require.Equal(t, "Omelette", report.OutOfStock[0].AffectedDishes[0].Name)
}

func TestScanScalesSuggestedRestock(t *testing.T) {
	f := newFixture(t, config.AlertingConfig{RestockTargetFactor: 2.0})
	ctx := context.Background()

	f.ingredient(t, "Butter", "1.0", "4.0", true)

	report, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, report.BelowMinimum, 1)
	// 4.0 * 2.0 - 1.0
	require.True(t, report.BelowMinimum[0].SuggestedRestock.Equal(decimal.RequireFromString("7.0")))
}

func TestPublishAlertsQueuesOneEventPerIngredient(t *testing.T) {
	f := newFixture(t, config.AlertingConfig{RestockTargetFactor: 1.0})
	ctx := context.Background()

	f.ingredient(t, "Flour", "0", "5.0", true)
	f.ingredient(t, "Sugar", "1.0", "3.0", true)

	report, err := f.svc.PublishAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, report.OutOfStock, 1)
	require.Len(t, report.BelowMinimum, 1)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventLowStock).Count(&events).Error)
	require.EqualValues(t, 2, events)

	// The condition persists, so the next scan queues fresh alerts.
	_, err = f.svc.PublishAlerts(ctx)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventLowStock).Count(&events).Error)
	require.EqualValues(t, 4, events)
}
