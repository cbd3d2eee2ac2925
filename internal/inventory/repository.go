package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	"github.com/smartkitchen/smartkitchen-backend/pkg/pagination"
)

// ListTransactionsFilter narrows transaction log queries.
type ListTransactionsFilter struct {
	IngredientID *uuid.UUID
	OrderID      *uuid.UUID
	Kind         *enums.TransactionKind
	Limit        int
	Offset       int
}

// Repository manages stock levels and the append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetLevel(ctx context.Context, ingredientID uuid.UUID) (*models.StockLevel, error)
	ListLevels(ctx context.Context, ingredientIDs []uuid.UUID) ([]models.StockLevel, error)
	ListAllLevels(ctx context.Context) ([]models.StockLevel, error)
	LockLevels(ctx context.Context, ingredientIDs []uuid.UUID) ([]models.StockLevel, error)
	ApplyDelta(ctx context.Context, ingredientID uuid.UUID, delta decimal.Decimal) (bool, error)
	TouchRestocked(ctx context.Context, ingredientID uuid.UUID) error
	AppendTransaction(ctx context.Context, row *models.StockTransaction) error
	ListTransactions(ctx context.Context, filter ListTransactionsFilter) ([]models.StockTransaction, error)
	ListTransactionsAfter(ctx context.Context, filter ListTransactionsFilter, cursor *pagination.Cursor, limit int) ([]models.StockTransaction, error)
	UsageEntriesForOrder(ctx context.Context, orderID uuid.UUID, kind enums.TransactionKind) ([]models.StockTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetLevel(ctx context.Context, ingredientID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		First(&level, "ingredient_id = ?", ingredientID).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *repository) ListLevels(ctx context.Context, ingredientIDs []uuid.UUID) ([]models.StockLevel, error) {
	var levels []models.StockLevel
	if err := r.db.WithContext(ctx).
		Where("ingredient_id IN ?", ingredientIDs).
		Order("ingredient_id ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *repository) ListAllLevels(ctx context.Context) ([]models.StockLevel, error) {
	var levels []models.StockLevel
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Order("ingredient_id ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// LockLevels loads the stock rows for the given ingredients under
// SELECT ... FOR UPDATE, always in ascending ingredient id order so concurrent
// confirmations acquire row locks in the same sequence and cannot deadlock.
// Ingredients come along so callers can report shortfalls by name and unit.
func (r *repository) LockLevels(ctx context.Context, ingredientIDs []uuid.UUID) ([]models.StockLevel, error) {
	ids := make([]uuid.UUID, len(ingredientIDs))
	copy(ids, ingredientIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	query := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("ingredient_id IN ?", ids).
		Order("ingredient_id ASC")
	if dbpkg.SupportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var levels []models.StockLevel
	if err := query.Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// ApplyDelta moves the stock level by delta with a guard against going
// negative. The returned bool reports whether a row was updated; false means
// the guard rejected the decrement (or the row is missing).
func (r *repository) ApplyDelta(ctx context.Context, ingredientID uuid.UUID, delta decimal.Decimal) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("ingredient_id = ?", ingredientID)
	if delta.IsNegative() {
		query = query.Where("quantity >= ?", delta.Neg())
	}
	res := query.Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TouchRestocked(ctx context.Context, ingredientID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("ingredient_id = ?", ingredientID).
		Update("last_restocked", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

func (r *repository) AppendTransaction(ctx context.Context, row *models.StockTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListTransactions(ctx context.Context, filter ListTransactionsFilter) ([]models.StockTransaction, error) {
	query := r.db.WithContext(ctx).Model(&models.StockTransaction{})
	if filter.IngredientID != nil {
		query = query.Where("ingredient_id = ?", *filter.IngredientID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.StockTransaction
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTransactionsAfter pages the transaction log forward from a cursor.
// Ordering is (created_at, id) ascending, matching the cursor encoding.
func (r *repository) ListTransactionsAfter(ctx context.Context, filter ListTransactionsFilter, cursor *pagination.Cursor, limit int) ([]models.StockTransaction, error) {
	query := r.db.WithContext(ctx).Model(&models.StockTransaction{})
	if filter.IngredientID != nil {
		query = query.Where("ingredient_id = ?", *filter.IngredientID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if cursor != nil {
		query = query.Where(
			"created_at > ? OR (created_at = ? AND id > ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.StockTransaction
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UsageEntriesForOrder(ctx context.Context, orderID uuid.UUID, kind enums.TransactionKind) ([]models.StockTransaction, error) {
	var rows []models.StockTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Order("ingredient_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
