package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

// Order is a customer's purchase from a single vendor. Pricing and line items are
// frozen at creation; only status, assignment and timestamps move afterwards.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID        uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID          uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	DeliveryPartnerID *uuid.UUID          `gorm:"column:delivery_partner_id;type:uuid;index"`
	SubtotalCents     int64               `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents  int64               `gorm:"column:delivery_fee_cents;not null"`
	PlatformFeeCents  int64               `gorm:"column:platform_fee_cents;not null"`
	TotalCents        int64               `gorm:"column:total_cents;not null"`
	DeliveryAddress   string              `gorm:"column:delivery_address;not null"`
	DeliveryPincode   *string             `gorm:"column:delivery_pincode"`
	DeliveryLat       *float64            `gorm:"column:delivery_lat"`
	DeliveryLng       *float64            `gorm:"column:delivery_lng"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;not null"`
	Status            enums.OrderStatus   `gorm:"column:status;not null;index"`
	DistanceKm        *float64            `gorm:"column:distance_km"`
	Notes             *string             `gorm:"column:notes"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	ConfirmedAt       *time.Time          `gorm:"column:confirmed_at"`
	PickedUpAt        *time.Time          `gorm:"column:picked_up_at"`
	DeliveredAt       *time.Time          `gorm:"column:delivered_at"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items    []OrderLineItem `gorm:"foreignKey:OrderID"`
	Vendor   *Vendor         `gorm:"foreignKey:VendorID"`
	Delivery *Delivery       `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
