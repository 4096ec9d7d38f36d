package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/dbtest"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
)

func seedProduct(t *testing.T, conn *gorm.DB, stock int) models.Product {
	t.Helper()
	product := models.Product{
		VendorID:    uuid.New(),
		Name:        "Tomatoes",
		PriceCents:  4000,
		StockQty:    stock,
		IsAvailable: true,
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

func stockOf(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", id).Error)
	return product.StockQty
}

func TestDecrementAndRestore(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	product := seedProduct(t, client.DB(), 5)
	ledger := NewLedger()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Decrement(ctx, tx, product.ID, 3)
	}))
	assert.Equal(t, 2, stockOf(t, client.DB(), product.ID))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Restore(ctx, tx, product.ID, 3)
	}))
	assert.Equal(t, 5, stockOf(t, client.DB(), product.ID))
}

func TestDecrementRefusesOversell(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	product := seedProduct(t, client.DB(), 2)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return NewLedger().Decrement(ctx, tx, product.ID, 3)
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]any{"product_id": product.ID.String()}, pkgerrors.As(err).Details())
	assert.Equal(t, 2, stockOf(t, client.DB(), product.ID))
}

func TestDecrementAllRollsBackEarlierLines(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	first := seedProduct(t, client.DB(), 10)
	second := seedProduct(t, client.DB(), 1)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return NewLedger().DecrementAll(ctx, tx, []Line{
			{ProductID: first.ID, Qty: 4},
			{ProductID: second.ID, Qty: 2},
		})
	})
	require.Error(t, err)
	assert.Equal(t, 10, stockOf(t, client.DB(), first.ID))
	assert.Equal(t, 1, stockOf(t, client.DB(), second.ID))
}

func TestInvalidLines(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	ledger := NewLedger()

	err := ledger.Decrement(ctx, client.DB(), uuid.New(), 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = ledger.Decrement(ctx, nil, uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	err = ledger.Restore(ctx, client.DB(), uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConcurrentDecrementsNeverOversell(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	product := seedProduct(t, client.DB(), 5)
	ledger := NewLedger()

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.WithTx(ctx, func(tx *gorm.DB) error {
				return ledger.Decrement(ctx, tx, product.ID, 2)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, stockOf(t, client.DB(), product.ID))
}
