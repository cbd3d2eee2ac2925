package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

// ListIngredientsFilter narrows ingredient listings.
type ListIngredientsFilter struct {
	Category   *enums.IngredientCategory
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

// Repository manages persistence for ingredients.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ingredient *models.Ingredient) error
	Update(ctx context.Context, ingredient *models.Ingredient) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	GetByName(ctx context.Context, name string) (*models.Ingredient, error)
	List(ctx context.Context, filter ListIngredientsFilter) ([]models.Ingredient, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an ingredient repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Create(ingredient).Error
}

func (r *repository) Update(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Save(ingredient).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (r *repository) List(ctx context.Context, filter ListIngredientsFilter) ([]models.Ingredient, error) {
	query := r.db.WithContext(ctx).Model(&models.Ingredient{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var ingredients []models.Ingredient
	if err := query.Order("name ASC").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}
