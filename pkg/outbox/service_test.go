package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OutboxEvent{}))
	return db
}

func TestEmitStoresEnvelope(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	orderID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventStockDeducted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Version:       1,
			Data:          map[string]any{"order_id": orderID.String()},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	require.Equal(t, enums.EventStockDeducted, row.EventType)
	require.Equal(t, orderID, row.AggregateID)
	require.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.False(t, envelope.OccurredAt.IsZero())
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	event := DomainEvent{
		EventType:     enums.EventStockDeducted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Version:       1,
		Data:          map[string]any{"n": 1},
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(ctx, tx, event)
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestFetchUnpublishedAndMark(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventLowStock,
			AggregateType: enums.AggregateIngredient,
			AggregateID:   uuid.New(),
			Version:       1,
			Data:          map[string]any{},
		})
	}))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, repo.MarkPublished(rows[0].ID))
	rows, err = repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Empty(t, rows)
}
