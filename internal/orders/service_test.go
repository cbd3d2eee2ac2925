package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	dbpkg "github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox"
)

type fixture struct {
	db  *gorm.DB
	svc Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Ingredient{},
		&models.Dish{},
		&models.RecipeItem{},
		&models.StockLevel{},
		&models.StockTransaction{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	))

	events := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(
		NewRepository(db),
		inventory.NewRepository(db),
		recipes.NewRepository(db),
		dbpkg.FromConn(db),
		events,
		nil,
		nil,
	)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc}
}

func (f *fixture) ingredient(t *testing.T, name, stock string) uuid.UUID {
	t.Helper()
	ing := models.Ingredient{
		Name:     name,
		Category: enums.IngredientCategoryOther,
		Unit:     enums.UnitKilogram,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&ing).Error)
	require.NoError(t, f.db.Create(&models.StockLevel{
		IngredientID: ing.ID,
		Quantity:     decimal.RequireFromString(stock),
	}).Error)
	return ing.ID
}

func (f *fixture) dish(t *testing.T, name string, recipe map[uuid.UUID]string) uuid.UUID {
	t.Helper()
	dish := models.Dish{
		Name:        name,
		Category:    enums.DishCategoryMainCourse,
		IsAvailable: true,
	}
	require.NoError(t, f.db.Create(&dish).Error)
	for ingredientID, qty := range recipe {
		require.NoError(t, f.db.Create(&models.RecipeItem{
			DishID:       dish.ID,
			IngredientID: ingredientID,
			Quantity:     decimal.RequireFromString(qty),
		}).Error)
	}
	return dish.ID
}

func (f *fixture) order(t *testing.T, items ...models.OrderItem) uuid.UUID {
	t.Helper()
	order := models.Order{Status: enums.OrderStatusPending, Items: items}
	require.NoError(t, f.db.Create(&order).Error)
	return order.ID
}

func (f *fixture) level(t *testing.T, ingredientID uuid.UUID) decimal.Decimal {
	t.Helper()
	var level models.StockLevel
	require.NoError(t, f.db.First(&level, "ingredient_id = ?", ingredientID).Error)
	return level.Quantity
}

func (f *fixture) status(t *testing.T, orderID uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", orderID).Error)
	return order.Status
}

func TestConfirmAndDeduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pasta := f.ingredient(t, "Pasta", "10.0")
	sauce := f.ingredient(t, "Tomato Sauce", "5.0")
	dishID := f.dish(t, "Spaghetti", map[uuid.UUID]string{pasta: "0.2", sauce: "0.1"})
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 3})

	receipt, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
	require.NoError(t, err)
	require.False(t, receipt.Replayed)
	require.Len(t, receipt.Lines, 2)

	require.True(t, f.level(t, pasta).Equal(decimal.RequireFromString("9.4")))
	require.True(t, f.level(t, sauce).Equal(decimal.RequireFromString("4.7")))
	require.Equal(t, enums.OrderStatusConfirmed, f.status(t, orderID))

	var entries []models.StockTransaction
	require.NoError(t, f.db.Where("order_id = ?", orderID).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.Equal(t, enums.TransactionKindUsage, entry.Kind)
		require.True(t, entry.Quantity.IsNegative())
	}

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventStockDeducted, orderID).
		Count(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestConfirmAggregatesDuplicateDishLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rice := f.ingredient(t, "Rice", "10.0")
	dishID := f.dish(t, "Fried Rice", map[uuid.UUID]string{rice: "0.5"})
	orderID := f.order(t,
		models.OrderItem{DishID: dishID, Quantity: 1},
		models.OrderItem{DishID: dishID, Quantity: 2},
	)

	receipt, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
	require.NoError(t, err)
	require.Len(t, receipt.Lines, 1)
	require.True(t, receipt.Lines[0].Quantity.Equal(decimal.RequireFromString("-1.5")))

	var entries []models.StockTransaction
	require.NoError(t, f.db.Where("order_id = ?", orderID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.True(t, f.level(t, rice).Equal(decimal.RequireFromString("8.5")))
}

func TestConfirmInsufficientStockDeductsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	beef := f.ingredient(t, "Beef", "10.0")
	truffle := f.ingredient(t, "Truffle", "0.05")
	dishID := f.dish(t, "Truffle Steak", map[uuid.UUID]string{beef: "0.3", truffle: "0.02"})
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 4})

	_, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	// Nothing moved: both levels intact, no ledger entries, still pending.
	require.True(t, f.level(t, beef).Equal(decimal.RequireFromString("10.0")))
	require.True(t, f.level(t, truffle).Equal(decimal.RequireFromString("0.05")))
	require.Equal(t, enums.OrderStatusPending, f.status(t, orderID))

	var count int64
	require.NoError(t, f.db.Model(&models.StockTransaction{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestConfirmShortfallNamesIngredientAndUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bread := f.ingredient(t, "Sourdough", "10.0")
	butter := f.ingredient(t, "Butter", "0.1")
	dishID := f.dish(t, "Garlic Bread", map[uuid.UUID]string{bread: "0.5", butter: "0.05"})
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 3})

	_, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	details, ok := coded.Details().(map[string]any)
	require.True(t, ok)
	shortfalls, ok := details["shortfalls"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	require.Equal(t, butter.String(), shortfalls[0]["ingredient_id"])
	require.Equal(t, "Butter", shortfalls[0]["name"])
	require.Equal(t, enums.UnitKilogram.String(), shortfalls[0]["unit"])
	require.Equal(t, "0.15", shortfalls[0]["required"])
	require.Equal(t, "0.1", shortfalls[0]["available"])
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	flour := f.ingredient(t, "Flour", "4.0")
	dishID := f.dish(t, "Pizza", map[uuid.UUID]string{flour: "0.25"})
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 2})
	actorID := uuid.New()

	first, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: actorID})
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: actorID})
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Len(t, second.Lines, 1)
	require.True(t, second.Lines[0].Quantity.Equal(decimal.RequireFromString("-0.5")))

	// Deducted exactly once.
	require.True(t, f.level(t, flour).Equal(decimal.RequireFromString("3.5")))

	var entries int64
	require.NoError(t, f.db.Model(&models.StockTransaction{}).
		Where("order_id = ?", orderID).Count(&entries).Error)
	require.EqualValues(t, 1, entries)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventStockDeducted).Count(&events).Error)
	require.EqualValues(t, 1, events)
}

func TestConfirmRejectsNonPendingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dishID := f.dish(t, "Soup of the Day", nil)
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 1})
	require.NoError(t, f.db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", enums.OrderStatusCancelled).Error)

	_, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestConfirmRejectsInactiveIngredient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	squid := f.ingredient(t, "Squid", "8.0")
	require.NoError(t, f.db.Model(&models.Ingredient{}).
		Where("id = ?", squid).
		Update("is_active", false).Error)
	dishID := f.dish(t, "Calamari", map[uuid.UUID]string{squid: "0.3"})
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 1})

	_, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, enums.OrderStatusPending, f.status(t, orderID))
}

func TestConfirmZeroRecipeDish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dishID := f.dish(t, "Tap Water", nil)
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 5})

	receipt, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
	require.NoError(t, err)
	require.Empty(t, receipt.Lines)
	require.Equal(t, enums.OrderStatusConfirmed, f.status(t, orderID))
}

func TestConfirmUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmAndDeduct(context.Background(), ConfirmInput{OrderID: uuid.New(), ActorID: uuid.New()})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepeatedConfirmationsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	salmon := f.ingredient(t, "Salmon", "5.0")
	dishID := f.dish(t, "Grilled Salmon", map[uuid.UUID]string{salmon: "2.0"})

	confirmed := 0
	for i := 0; i < 4; i++ {
		orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 1})
		_, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: uuid.New()})
		if err != nil {
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
			continue
		}
		confirmed++
	}

	require.Equal(t, 2, confirmed)
	remaining := f.level(t, salmon)
	require.True(t, remaining.Equal(decimal.RequireFromString("1.0")))
	require.False(t, remaining.IsNegative())
}

func TestConcurrentConfirmationsAllowOneSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// sqlite has no row locks; a single connection stands in for them so
	// rival confirmations serialize at the database the way FOR UPDATE
	// serializes them on Postgres.
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	tuna := f.ingredient(t, "Tuna", "3.0")
	dishID := f.dish(t, "Seared Tuna", map[uuid.UUID]string{tuna: "3.0"})

	const rivals = 8
	orderIDs := make([]uuid.UUID, rivals)
	for i := range orderIDs {
		orderIDs[i] = f.order(t, models.OrderItem{DishID: dishID, Quantity: 1})
	}

	var wg sync.WaitGroup
	errs := make([]error, rivals)
	for i := 0; i < rivals; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderIDs[i], ActorID: uuid.New()})
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, err := range errs {
		if err == nil {
			confirmed++
			continue
		}
		require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	}
	require.Equal(t, 1, confirmed)

	remaining := f.level(t, tuna)
	require.False(t, remaining.IsNegative())
	require.True(t, remaining.IsZero())

	var entries int64
	require.NoError(t, f.db.Model(&models.StockTransaction{}).Count(&entries).Error)
	require.EqualValues(t, 1, entries)
}

func TestReleaseConfirmedReturnsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cheese := f.ingredient(t, "Cheese", "6.0")
	dishID := f.dish(t, "Quesadilla", map[uuid.UUID]string{cheese: "0.2"})
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 5})
	actorID := uuid.New()

	_, err := f.svc.ConfirmAndDeduct(ctx, ConfirmInput{OrderID: orderID, ActorID: actorID})
	require.NoError(t, err)
	require.True(t, f.level(t, cheese).Equal(decimal.RequireFromString("5.0")))

	receipt, err := f.svc.ReleaseConfirmed(ctx, ReleaseInput{OrderID: orderID, ActorID: actorID, Reason: "customer cancelled"})
	require.NoError(t, err)
	require.False(t, receipt.Replayed)
	require.Len(t, receipt.Lines, 1)
	require.True(t, receipt.Lines[0].Quantity.Equal(decimal.RequireFromString("1.0")))

	require.True(t, f.level(t, cheese).Equal(decimal.RequireFromString("6.0")))
	require.Equal(t, enums.OrderStatusCancelled, f.status(t, orderID))

	var returns []models.StockTransaction
	require.NoError(t, f.db.
		Where("order_id = ? AND kind = ?", orderID, enums.TransactionKindReturn).
		Find(&returns).Error)
	require.Len(t, returns, 1)
	require.NotNil(t, returns[0].Note)
	require.Equal(t, "customer cancelled", *returns[0].Note)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventStockReleased).Count(&events).Error)
	require.EqualValues(t, 1, events)

	// Releasing again replays without another return.
	again, err := f.svc.ReleaseConfirmed(ctx, ReleaseInput{OrderID: orderID, ActorID: actorID})
	require.NoError(t, err)
	require.True(t, again.Replayed)
	require.True(t, f.level(t, cheese).Equal(decimal.RequireFromString("6.0")))
}

func TestReleaseRequiresConfirmedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dishID := f.dish(t, "Tea", nil)
	orderID := f.order(t, models.OrderItem{DishID: dishID, Quantity: 1})

	_, err := f.svc.ReleaseConfirmed(ctx, ReleaseInput{OrderID: orderID, ActorID: uuid.New()})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{
		Items: []OrderItemInput{{DishID: uuid.New(), Quantity: 1}},
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	dishID := f.dish(t, "Burger", nil)
	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Items: []OrderItemInput{{DishID: dishID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
}
