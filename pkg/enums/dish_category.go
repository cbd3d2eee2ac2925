package enums

import "fmt"

// DishCategory organizes the menu. Carried on the dish snapshot the engine reads.
type DishCategory string

const (
	DishCategoryAppetizer  DishCategory = "APPETIZER"
	DishCategorySoup       DishCategory = "SOUP"
	DishCategorySalad      DishCategory = "SALAD"
	DishCategoryMainCourse DishCategory = "MAIN_COURSE"
	DishCategorySideDish   DishCategory = "SIDE_DISH"
	DishCategoryDessert    DishCategory = "DESSERT"
	DishCategoryBeverage   DishCategory = "BEVERAGE"
	DishCategorySpecial    DishCategory = "SPECIAL"
)

var validDishCategories = []DishCategory{
	DishCategoryAppetizer,
	DishCategorySoup,
	DishCategorySalad,
	DishCategoryMainCourse,
	DishCategorySideDish,
	DishCategoryDessert,
	DishCategoryBeverage,
	DishCategorySpecial,
}

// String implements fmt.Stringer.
func (c DishCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known DishCategory.
func (c DishCategory) IsValid() bool {
	for _, candidate := range validDishCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseDishCategory converts raw input into a DishCategory.
func ParseDishCategory(value string) (DishCategory, error) {
	for _, candidate := range validDishCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dish category %q", value)
}
