package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()

	dsn := "file:client_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.Ingredient{}))

	return FromConn(conn)
}

func TestWithTxCommits(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Ingredient{Name: "Salt"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.Ingredient{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Ingredient{Name: "Pepper"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, client.DB().Model(&models.Ingredient{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, IsUniqueViolation(nil, ""))
	require.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "ux_x"`), ""))
	require.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "ux_x"`), "ux_x"))
	require.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
}
