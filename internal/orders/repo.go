package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	"github.com/nearbuy/hyperlocal-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(delivery).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Vendor").
		Preload("Delivery").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDeliveryByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// CompareAndSetStatus moves the order from -> to only if nobody moved it first.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListOrders pages orders newest first, keyed on (created_at, id).
func (r *repository) ListOrders(ctx context.Context, scope ListScope, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Vendor").
		Preload("Delivery")
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.VendorUserID != nil {
		query = query.Where("vendor_id IN (?)", r.vendorIDs(*scope.VendorUserID))
	}
	if scope.PartnerID != nil {
		query = query.Where("delivery_partner_id = ?", *scope.PartnerID)
	}
	if scope.Status != nil {
		query = query.Where("status = ?", *scope.Status)
	}

	var rows []models.Order
	err := query.Scopes(pagination.Keyset("created_at", cursor, limit)).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) vendorIDs(vendorUserID uuid.UUID) *gorm.DB {
	return r.db.Model(&models.Vendor{}).Select("id").Where("user_id = ?", vendorUserID)
}

// VendorProductCounts counts the catalog of every shop the vendor user owns.
func (r *repository) VendorProductCounts(ctx context.Context, vendorUserID uuid.UUID) (ProductCounts, error) {
	var counts ProductCounts
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_available THEN 1 ELSE 0 END), 0) AS available").
		Where("vendor_id IN (?)", r.vendorIDs(vendorUserID)).
		Scan(&counts).Error
	return counts, err
}

// VendorOrderTotals aggregates the vendor's orders created at or after since,
// or all of them when since is nil.
func (r *repository) VendorOrderTotals(ctx context.Context, vendorUserID uuid.UUID, since *time.Time) (OrderTotals, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("vendor_id IN (?)", r.vendorIDs(vendorUserID))
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	var totals OrderTotals
	err := query.
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS delivered,
			COALESCE(SUM(CASE WHEN status <> ? THEN total_cents ELSE 0 END), 0) AS open_value_cents,
			COALESCE(SUM(CASE WHEN status = ? THEN total_cents ELSE 0 END), 0) AS revenue_cents`,
			enums.OrderStatusPending,
			enums.OrderStatusDelivered,
			enums.OrderStatusCancelled,
			enums.OrderStatusDelivered,
		).
		Scan(&totals).Error
	return totals, err
}
