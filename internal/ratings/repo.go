package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

// Repository reads and writes the rating slots on deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	SetSlot(ctx context.Context, deliveryID uuid.UUID, slot Slot, value int) error
	PartnerSlots(ctx context.Context, partnerID uuid.UUID) ([]SlotValues, error)
	SetPartnerRating(ctx context.Context, partnerID uuid.UUID, rating float64) error
}

// Slot names the column a rater writes.
type Slot string

const (
	SlotCustomer Slot = "customer_rating"
	SlotVendor   Slot = "vendor_rating"
)

// SlotValues is the pair of ratings stored on one delivered request.
type SlotValues struct {
	CustomerRating *int
	VendorRating   *int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ratings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Vendor").
		Where("id = ?", id).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) SetSlot(ctx context.Context, deliveryID uuid.UUID, slot Slot, value int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status = ?", deliveryID, enums.DeliveryStatusDelivered).
		Update(string(slot), value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PartnerSlots returns the rating pair of every delivered request the partner completed.
func (r *repository) PartnerSlots(ctx context.Context, partnerID uuid.UUID) ([]SlotValues, error) {
	var rows []SlotValues
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Select("customer_rating, vendor_rating").
		Where("delivery_partner_id = ? AND status = ?", partnerID, enums.DeliveryStatusDelivered).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SetPartnerRating(ctx context.Context, partnerID uuid.UUID, rating float64) error {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryProfile{}).
		Where("user_id = ?", partnerID).
		Update("rating", rating)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
