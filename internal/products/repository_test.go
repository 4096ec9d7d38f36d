package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/dbtest"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
)

func TestFindByIDs(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	vendorID := uuid.New()
	apples := models.Product{VendorID: vendorID, Name: "Apples", PriceCents: 1200, StockQty: 4, IsAvailable: true}
	milk := models.Product{VendorID: vendorID, Name: "Milk", PriceCents: 600, StockQty: 10, IsAvailable: true}
	require.NoError(t, client.DB().Create(&apples).Error)
	require.NoError(t, client.DB().Create(&milk).Error)

	repo := NewRepository(client.DB())
	missing := uuid.New()
	found, err := repo.FindByIDs(ctx, []uuid.UUID{apples.ID, milk.ID, missing})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, int64(1200), found[apples.ID].PriceCents)
	_, ok := found[missing]
	assert.False(t, ok)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
