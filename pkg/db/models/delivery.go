package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

// Delivery is the assignment record for one order. DeliveryPartnerID stays nil
// while Status is pending.
type Delivery struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	DeliveryPartnerID *uuid.UUID           `gorm:"column:delivery_partner_id;type:uuid;index"`
	Status            enums.DeliveryStatus `gorm:"column:status;not null;index"`
	RequestedAt       time.Time            `gorm:"column:requested_at;not null"`
	AcceptedAt        *time.Time           `gorm:"column:accepted_at"`
	RejectedAt        *time.Time           `gorm:"column:rejected_at"`
	RejectionReason   *string              `gorm:"column:rejection_reason"`
	PickupTime        *time.Time           `gorm:"column:pickup_time"`
	DeliveryTime      *time.Time           `gorm:"column:delivery_time"`
	CustomerRating    *int                 `gorm:"column:customer_rating;check:customer_rating BETWEEN 1 AND 5"`
	VendorRating      *int                 `gorm:"column:vendor_rating;check:vendor_rating BETWEEN 1 AND 5"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Order *Order `gorm:"foreignKey:OrderID"`
}

func (d *Delivery) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	if d.RequestedAt.IsZero() {
		d.RequestedAt = time.Now().UTC()
	}
	return nil
}

// DeliveryRejection records one partner declining a delivery request.
type DeliveryRejection struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DeliveryID uuid.UUID `gorm:"column:delivery_id;type:uuid;not null;uniqueIndex:ux_delivery_rejections_partner"`
	PartnerID  uuid.UUID `gorm:"column:partner_id;type:uuid;not null;uniqueIndex:ux_delivery_rejections_partner"`
	Reason     string    `gorm:"column:reason;not null"`
	RejectedAt time.Time `gorm:"column:rejected_at;not null"`
}

func (r *DeliveryRejection) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
