package delivery

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

// NewRepository builds a delivery repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProfile(ctx context.Context, userID uuid.UUID) (*models.DeliveryProfile, error) {
	var profile models.DeliveryProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) CreateProfile(ctx context.Context, profile *models.DeliveryProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) UpdateProfile(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryProfile{}).
		Where("user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListAvailableProfiles(ctx context.Context) ([]models.DeliveryProfile, error) {
	var profiles []models.DeliveryProfile
	err := r.db.WithContext(ctx).
		Where("is_available = ?", true).
		Order("rating DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) CountAvailableProfiles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryProfile{}).
		Where("is_available = ?", true).
		Count(&count).Error
	return count, err
}

func (r *repository) IncrementTotalDeliveries(ctx context.Context, userID uuid.UUID) (int, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryProfile{}).
		Where("user_id = ?", userID).
		Update("total_deliveries", gorm.Expr("total_deliveries + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var profile models.DeliveryProfile
	if err := r.db.WithContext(ctx).Select("total_deliveries").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return 0, err
	}
	return profile.TotalDeliveries, nil
}

func (r *repository) FindDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Preload("Order.Vendor").
		Where("id = ?", id).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ListPending returns unclaimed requests whose order has not left the vendor,
// oldest first, skipping requests the partner already declined.
func (r *repository) ListPending(ctx context.Context, partnerID uuid.UUID, limit int) ([]models.Delivery, error) {
	var rows []models.Delivery
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = deliveries.order_id").
		Where("deliveries.status = ? AND deliveries.delivery_partner_id IS NULL", enums.DeliveryStatusPending).
		Where("orders.status IN ?", enums.DispatchableOrderStatuses()).
		Where("NOT EXISTS (SELECT 1 FROM delivery_rejections dr WHERE dr.delivery_id = deliveries.id AND dr.partner_id = ?)", partnerID).
		Preload("Order.Vendor").
		Order("deliveries.requested_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ClaimPending assigns the request to partnerID only if nobody holds it yet.
func (r *repository) ClaimPending(ctx context.Context, deliveryID, partnerID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ? AND delivery_partner_id IS NULL", deliveryID, enums.DeliveryStatusPending).
		Updates(map[string]any{
			"delivery_partner_id": partnerID,
			"status":              enums.DeliveryStatusAccepted,
			"accepted_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) RecordRejection(ctx context.Context, rejection *models.DeliveryRejection) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "delivery_id"}, {Name: "partner_id"}},
			DoNothing: true,
		}).
		Create(rejection).Error
}

func (r *repository) StampRejection(ctx context.Context, deliveryID uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ?", deliveryID, enums.DeliveryStatusPending).
		Updates(map[string]any{
			"rejected_at":      at,
			"rejection_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AdvanceDelivery(ctx context.Context, deliveryID, partnerID uuid.UUID, from, to enums.DeliveryStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND delivery_partner_id = ? AND status = ?", deliveryID, partnerID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AdvanceOrder(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListActive(ctx context.Context, partnerID uuid.UUID) ([]models.Delivery, error) {
	var rows []models.Delivery
	err := r.db.WithContext(ctx).
		Preload("Order.Vendor").
		Where("delivery_partner_id = ? AND status IN ?", partnerID, []enums.DeliveryStatus{
			enums.DeliveryStatusAccepted,
			enums.DeliveryStatusPickedUp,
		}).
		Order("accepted_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListHistory pages delivered requests newest first, keyed on (delivery_time, id).
func (r *repository) ListHistory(ctx context.Context, partnerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Delivery, error) {
	query := r.db.WithContext(ctx).
		Preload("Order.Vendor").
		Where("delivery_partner_id = ? AND status = ?", partnerID, enums.DeliveryStatusDelivered)
	var rows []models.Delivery
	err := query.Scopes(pagination.Keyset("delivery_time", cursor, limit)).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeliveredFees(ctx context.Context, partnerID uuid.UUID, since *time.Time) (FeeTotals, error) {
	query := r.db.WithContext(ctx).
		Table("deliveries").
		Joins("JOIN orders ON orders.id = deliveries.order_id").
		Where("deliveries.delivery_partner_id = ? AND deliveries.status = ?", partnerID, enums.DeliveryStatusDelivered)
	if since != nil {
		query = query.Where("deliveries.delivery_time >= ?", *since)
	}
	var totals FeeTotals
	err := query.
		Select("COUNT(*) AS count, COALESCE(SUM(orders.delivery_fee_cents), 0) AS fees_cents").
		Scan(&totals).Error
	return totals, err
}
