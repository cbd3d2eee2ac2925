package recipes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/internal/catalog"
	dbpkg "github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:recipes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Ingredient{},
		&models.Dish{},
		&models.RecipeItem{},
	))

	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), dbpkg.FromConn(db))
	require.NoError(t, err)
	return svc, db
}

func seedIngredient(t *testing.T, db *gorm.DB, name, cost string) uuid.UUID {
	t.Helper()
	ing := models.Ingredient{
		Name:        name,
		Category:    enums.IngredientCategoryOther,
		Unit:        enums.UnitKilogram,
		CostPerUnit: decimal.RequireFromString(cost),
		IsActive:    true,
	}
	require.NoError(t, db.Create(&ing).Error)
	return ing.ID
}

func TestCreateDishWithRecipe(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	flour := seedIngredient(t, db, "Flour", "1.20")
	yeast := seedIngredient(t, db, "Yeast", "8.00")

	dish, err := svc.CreateDish(ctx, CreateDishInput{
		Name:     "Focaccia",
		Category: enums.DishCategorySideDish,
		Price:    decimal.RequireFromString("6.50"),
		Recipe: []RecipeItemInput{
			{IngredientID: flour, Quantity: decimal.RequireFromString("0.4")},
			{IngredientID: yeast, Quantity: decimal.RequireFromString("0.01")},
		},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, dish.ID)

	recipe, err := svc.GetRecipe(ctx, dish.ID)
	require.NoError(t, err)
	require.Len(t, recipe, 2)
}

func TestCreateDishValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	flour := seedIngredient(t, db, "Flour", "1.20")

	cases := []struct {
		name  string
		input CreateDishInput
	}{
		{"empty name", CreateDishInput{Category: enums.DishCategoryMainCourse}},
		{"bad category", CreateDishInput{Name: "Mystery", Category: enums.DishCategory("BRUNCH")}},
		{"negative price", CreateDishInput{Name: "Freebie", Category: enums.DishCategoryMainCourse, Price: decimal.RequireFromString("-1")}},
		{"zero quantity recipe line", CreateDishInput{
			Name:     "Bread",
			Category: enums.DishCategorySideDish,
			Recipe:   []RecipeItemInput{{IngredientID: flour, Quantity: decimal.Zero}},
		}},
		{"duplicate ingredient", CreateDishInput{
			Name:     "Double Bread",
			Category: enums.DishCategorySideDish,
			Recipe: []RecipeItemInput{
				{IngredientID: flour, Quantity: decimal.RequireFromString("0.2")},
				{IngredientID: flour, Quantity: decimal.RequireFromString("0.3")},
			},
		}},
		{"unknown ingredient", CreateDishInput{
			Name:     "Ghost Bread",
			Category: enums.DishCategorySideDish,
			Recipe:   []RecipeItemInput{{IngredientID: uuid.New(), Quantity: decimal.RequireFromString("0.2")}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateDish(ctx, tc.input)
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "expected validation error, got %v", err)
		})
	}
}

func TestSetRecipeReplacesExistingLines(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	tomato := seedIngredient(t, db, "Tomato", "2.00")
	basil := seedIngredient(t, db, "Basil", "12.00")

	dish, err := svc.CreateDish(ctx, CreateDishInput{
		Name:     "Bruschetta",
		Category: enums.DishCategoryAppetizer,
		Recipe:   []RecipeItemInput{{IngredientID: tomato, Quantity: decimal.RequireFromString("0.15")}},
	})
	require.NoError(t, err)

	recipe, err := svc.SetRecipe(ctx, dish.ID, []RecipeItemInput{
		{IngredientID: tomato, Quantity: decimal.RequireFromString("0.2")},
		{IngredientID: basil, Quantity: decimal.RequireFromString("0.01")},
	})
	require.NoError(t, err)
	require.Len(t, recipe, 2)

	var count int64
	require.NoError(t, db.Model(&models.RecipeItem{}).
		Where("dish_id = ?", dish.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)

	// Clearing the recipe is allowed; the dish just reports no requirements.
	recipe, err = svc.SetRecipe(ctx, dish.ID, nil)
	require.NoError(t, err)
	require.Empty(t, recipe)
}

func TestDishCost(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	beef := seedIngredient(t, db, "Beef", "15.00")
	bun := seedIngredient(t, db, "Bun", "0.50")

	dish, err := svc.CreateDish(ctx, CreateDishInput{
		Name:     "Burger",
		Category: enums.DishCategoryMainCourse,
		Recipe: []RecipeItemInput{
			{IngredientID: beef, Quantity: decimal.RequireFromString("0.2")},
			{IngredientID: bun, Quantity: decimal.RequireFromString("2")},
		},
	})
	require.NoError(t, err)

	cost, err := svc.DishCost(ctx, dish.ID)
	require.NoError(t, err)
	// 0.2 * 15.00 + 2 * 0.50
	require.True(t, cost.Equal(decimal.RequireFromString("4.00")), "got %s", cost)
}

func TestUpdateDish(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	dish, err := svc.CreateDish(ctx, CreateDishInput{
		Name:     "Lemonade",
		Category: enums.DishCategoryBeverage,
	})
	require.NoError(t, err)

	newName := "Fresh Lemonade"
	unavailable := false
	updated, err := svc.UpdateDish(ctx, dish.ID, UpdateDishInput{
		Name:        &newName,
		IsAvailable: &unavailable,
	})
	require.NoError(t, err)
	require.Equal(t, "Fresh Lemonade", updated.Name)
	require.False(t, updated.IsAvailable)

	_, err = svc.UpdateDish(ctx, uuid.New(), UpdateDishInput{Name: &newName})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDishesUsing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	egg := seedIngredient(t, db, "Egg", "0.30")
	milk := seedIngredient(t, db, "Milk", "1.10")

	_, err := svc.CreateDish(ctx, CreateDishInput{
		Name:     "Omelette",
		Category: enums.DishCategoryMainCourse,
		Recipe:   []RecipeItemInput{{IngredientID: egg, Quantity: decimal.RequireFromString("3")}},
	})
	require.NoError(t, err)
	_, err = svc.CreateDish(ctx, CreateDishInput{
		Name:     "Pancakes",
		Category: enums.DishCategoryDessert,
		Recipe: []RecipeItemInput{
			{IngredientID: egg, Quantity: decimal.RequireFromString("2")},
			{IngredientID: milk, Quantity: decimal.RequireFromString("0.3")},
		},
	})
	require.NoError(t, err)

	dishes, err := svc.DishesUsing(ctx, egg)
	require.NoError(t, err)
	require.Len(t, dishes, 2)

	dishes, err = svc.DishesUsing(ctx, milk)
	require.NoError(t, err)
	require.Len(t, dishes, 1)
	require.Equal(t, "Pancakes", dishes[0].Name)
}
