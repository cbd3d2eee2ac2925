package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Ingredient{}, &models.StockLevel{}))

	svc, err := NewService(NewRepository(db), dbpkg.FromConn(db))
	require.NoError(t, err)
	return svc, db
}

func TestCreateIngredientSeedsStockLevel(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	ingredient, err := svc.CreateIngredient(ctx, CreateIngredientInput{
		Name:         "Romaine Lettuce",
		Category:     enums.IngredientCategoryVegetables,
		Unit:         enums.UnitKilogram,
		CostPerUnit:  decimal.RequireFromString("2.50"),
		MinimumStock: decimal.RequireFromString("1.0"),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, ingredient.ID)
	require.True(t, ingredient.IsActive)

	var level models.StockLevel
	require.NoError(t, db.First(&level, "ingredient_id = ?", ingredient.ID).Error)
	require.True(t, level.Quantity.IsZero())
}

func TestCreateIngredientValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateIngredientInput
	}{
		{"empty name", CreateIngredientInput{Category: enums.IngredientCategoryDairy, Unit: enums.UnitLiter}},
		{"bad category", CreateIngredientInput{Name: "Milk", Category: "SODA", Unit: enums.UnitLiter}},
		{"bad unit", CreateIngredientInput{Name: "Milk", Category: enums.IngredientCategoryDairy, Unit: "BARREL"}},
		{"negative cost", CreateIngredientInput{
			Name: "Milk", Category: enums.IngredientCategoryDairy, Unit: enums.UnitLiter,
			CostPerUnit: decimal.RequireFromString("-1"),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateIngredient(ctx, tc.input)
			require.Error(t, err)
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestCreateIngredientDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := CreateIngredientInput{
		Name:     "Parmesan",
		Category: enums.IngredientCategoryDairy,
		Unit:     enums.UnitKilogram,
	}
	_, err := svc.CreateIngredient(ctx, input)
	require.NoError(t, err)

	_, err = svc.CreateIngredient(ctx, input)
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestUpdateIngredient(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ingredient, err := svc.CreateIngredient(ctx, CreateIngredientInput{
		Name:     "Chicken Breast",
		Category: enums.IngredientCategoryMeat,
		Unit:     enums.UnitKilogram,
	})
	require.NoError(t, err)

	newCost := decimal.RequireFromString("8.75")
	updated, err := svc.UpdateIngredient(ctx, ingredient.ID, UpdateIngredientInput{
		CostPerUnit: &newCost,
	})
	require.NoError(t, err)
	require.True(t, updated.CostPerUnit.Equal(newCost))

	_, err = svc.UpdateIngredient(ctx, uuid.New(), UpdateIngredientInput{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDeactivateIngredientIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ingredient, err := svc.CreateIngredient(ctx, CreateIngredientInput{
		Name:     "Saffron",
		Category: enums.IngredientCategorySpices,
		Unit:     enums.UnitGram,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateIngredient(ctx, ingredient.ID))
	require.NoError(t, svc.DeactivateIngredient(ctx, ingredient.ID))

	got, err := svc.GetIngredient(ctx, ingredient.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestListIngredientsFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, in := range []CreateIngredientInput{
		{Name: "Tomato", Category: enums.IngredientCategoryVegetables, Unit: enums.UnitKilogram},
		{Name: "Basil", Category: enums.IngredientCategoryVegetables, Unit: enums.UnitGram},
		{Name: "Mozzarella", Category: enums.IngredientCategoryDairy, Unit: enums.UnitKilogram},
	} {
		_, err := svc.CreateIngredient(ctx, in)
		require.NoError(t, err)
	}

	veg := enums.IngredientCategoryVegetables
	got, err := svc.ListIngredients(ctx, ListIngredientsFilter{Category: &veg})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = svc.ListIngredients(ctx, ListIngredientsFilter{Search: "Mozz"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Mozzarella", got[0].Name)
}
