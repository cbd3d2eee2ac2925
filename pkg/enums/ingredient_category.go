package enums

import "fmt"

// IngredientCategory groups catalog ingredients for filtering and reporting.
type IngredientCategory string

const (
	IngredientCategoryVegetables IngredientCategory = "VEGETABLES"
	IngredientCategoryFruits     IngredientCategory = "FRUITS"
	IngredientCategoryMeat       IngredientCategory = "MEAT"
	IngredientCategorySeafood    IngredientCategory = "SEAFOOD"
	IngredientCategoryDairy      IngredientCategory = "DAIRY"
	IngredientCategoryGrains     IngredientCategory = "GRAINS"
	IngredientCategorySpices     IngredientCategory = "SPICES"
	IngredientCategoryBeverages  IngredientCategory = "BEVERAGES"
	IngredientCategoryOther      IngredientCategory = "OTHER"
)

var validIngredientCategories = []IngredientCategory{
	IngredientCategoryVegetables,
	IngredientCategoryFruits,
	IngredientCategoryMeat,
	IngredientCategorySeafood,
	IngredientCategoryDairy,
	IngredientCategoryGrains,
	IngredientCategorySpices,
	IngredientCategoryBeverages,
	IngredientCategoryOther,
}

// String implements fmt.Stringer.
func (c IngredientCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known IngredientCategory.
func (c IngredientCategory) IsValid() bool {
	for _, candidate := range validIngredientCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseIngredientCategory converts raw input into an IngredientCategory.
func ParseIngredientCategory(value string) (IngredientCategory, error) {
	for _, candidate := range validIngredientCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ingredient category %q", value)
}
