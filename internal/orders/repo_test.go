package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/dbtest"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

func TestCompareAndSetStatusOnlyMovesFromExpectedState(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	repo := NewRepository(conn)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, conn, vendorLat, vendorLng)
	order, _ := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{VendorID: vendor.ID})

	moved, err := repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusAccepted, nil)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.CompareAndSetStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	stored, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, stored.Status)
	require.NotNil(t, stored.Vendor)
	assert.Equal(t, vendor.ID, stored.Vendor.ID)
	require.NotNil(t, stored.Delivery)
}

func TestNewOrderNumberFormat(t *testing.T) {
	ts := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	number, err := newOrderNumber(ts)
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-20260310-[A-HJ-NP-Z2-9]{6}$`, number)
}
