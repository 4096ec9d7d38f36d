package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

// SeedVendor inserts an open vendor at the given coordinates.
func SeedVendor(t *testing.T, conn *gorm.DB, lat, lng float64) models.Vendor {
	t.Helper()
	vendor := models.Vendor{
		UserID:    uuid.New(),
		ShopName:  "Corner Grocer",
		Address:   "12 Market Road",
		Latitude:  &lat,
		Longitude: &lng,
		IsOpen:    true,
	}
	require.NoError(t, conn.Create(&vendor).Error)
	return vendor
}

// SeedProduct inserts an available product for vendorID.
func SeedProduct(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, priceCents int64, stock int) models.Product {
	t.Helper()
	product := models.Product{
		VendorID:    vendorID,
		Name:        fmt.Sprintf("Item %d", priceCents),
		PriceCents:  priceCents,
		StockQty:    stock,
		IsAvailable: true,
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

// SeedPartner inserts a delivery profile for a fresh partner user.
func SeedPartner(t *testing.T, conn *gorm.DB, available bool) models.DeliveryProfile {
	t.Helper()
	profile := models.DeliveryProfile{
		UserID:      uuid.New(),
		IsAvailable: available,
		Rating:      4.5,
	}
	require.NoError(t, conn.Create(&profile).Error)
	return profile
}

// OrderSeed describes an order row plus its companion delivery.
type OrderSeed struct {
	VendorID       uuid.UUID
	CustomerID     uuid.UUID
	Status         enums.OrderStatus
	DeliveryStatus enums.DeliveryStatus
	PartnerID      *uuid.UUID
	RequestedAt    time.Time
	DeliveryTime   *time.Time
	TotalCents     int64
}

// SeedOrder inserts an order and its delivery request.
func SeedOrder(t *testing.T, conn *gorm.DB, seed OrderSeed) (models.Order, models.Delivery) {
	t.Helper()
	if seed.CustomerID == uuid.Nil {
		seed.CustomerID = uuid.New()
	}
	if seed.Status == "" {
		seed.Status = enums.OrderStatusPending
	}
	if seed.DeliveryStatus == "" {
		seed.DeliveryStatus = enums.DeliveryStatusPending
	}
	if seed.RequestedAt.IsZero() {
		seed.RequestedAt = time.Now().UTC()
	}
	if seed.TotalCents == 0 {
		seed.TotalCents = 5000
	}
	order := models.Order{
		OrderNumber:       "ORD-" + uuid.NewString()[:13],
		CustomerID:        seed.CustomerID,
		VendorID:          seed.VendorID,
		DeliveryPartnerID: seed.PartnerID,
		SubtotalCents:     seed.TotalCents - 1000,
		DeliveryFeeCents:  1000,
		TotalCents:        seed.TotalCents,
		DeliveryAddress:   "4 Lake View",
		PaymentMethod:     enums.PaymentMethodCOD,
		PaymentStatus:     enums.PaymentStatusPending,
		Status:            seed.Status,
	}
	require.NoError(t, conn.Create(&order).Error)
	delivery := models.Delivery{
		OrderID:           order.ID,
		DeliveryPartnerID: seed.PartnerID,
		Status:            seed.DeliveryStatus,
		RequestedAt:       seed.RequestedAt,
		DeliveryTime:      seed.DeliveryTime,
	}
	require.NoError(t, conn.Create(&delivery).Error)
	return order, delivery
}
