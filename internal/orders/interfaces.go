package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/internal/delivery"
	"github.com/nearbuy/hyperlocal-backend/internal/inventory"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	"github.com/nearbuy/hyperlocal-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their companion rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDeliveryByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	ListOrders(ctx context.Context, scope ListScope, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	VendorProductCounts(ctx context.Context, vendorUserID uuid.UUID) (ProductCounts, error)
	VendorOrderTotals(ctx context.Context, vendorUserID uuid.UUID, since *time.Time) (OrderTotals, error)
}

// ListScope narrows order listings to what one actor may see.
type ListScope struct {
	CustomerID   *uuid.UUID
	VendorUserID *uuid.UUID
	PartnerID    *uuid.UUID
	Status       *enums.OrderStatus
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// VendorLookup resolves the shop an order is placed with.
type VendorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

// ProductLookup loads catalog rows for order validation.
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// StockLedger applies guarded stock movements on the caller's transaction.
type StockLedger interface {
	DecrementAll(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
	RestoreAll(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
}

// DeliveryWorkflow moves the partner-driven half of the order lifecycle so the
// delivery record and the order always change together.
type DeliveryWorkflow interface {
	AvailablePartnerCount(ctx context.Context) (int64, error)
	MarkPickedUp(ctx context.Context, partnerID, deliveryID uuid.UUID) (*delivery.DeliveryDTO, error)
	CompleteDelivery(ctx context.Context, partnerID, deliveryID uuid.UUID, paymentReceived bool) (*delivery.DeliveryDTO, error)
}
