package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/internal/delivery"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

// LineInput is one requested product line. UnitPriceCents, when present, is the
// price the customer saw and must still match the catalog.
type LineInput struct {
	ProductID      uuid.UUID
	Qty            int
	UnitPriceCents *int64
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	VendorID        uuid.UUID
	Items           []LineInput
	DeliveryAddress string
	DeliveryPincode *string
	DeliveryLat     *float64
	DeliveryLng     *float64
	PaymentMethod   string
	Notes           *string
}

// UpdateStatusInput drives one transition of the order state machine.
type UpdateStatusInput struct {
	OrderID         uuid.UUID
	ActorID         uuid.UUID
	ActorRole       enums.Role
	Status          string
	PaymentReceived bool
}

// LineItemDTO is the API view of an order line.
type LineItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	SubtotalCents  int64     `json:"subtotal_cents"`
}

// OrderDTO is the API view of an order with its lines, shop and delivery.
type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	OrderNumber       string                  `json:"order_number"`
	CustomerID        uuid.UUID               `json:"customer_id"`
	VendorID          uuid.UUID               `json:"vendor_id"`
	DeliveryPartnerID *uuid.UUID              `json:"delivery_partner_id,omitempty"`
	SubtotalCents     int64                   `json:"subtotal_cents"`
	DeliveryFeeCents  int64                   `json:"delivery_fee_cents"`
	PlatformFeeCents  int64                   `json:"platform_fee_cents"`
	TotalCents        int64                   `json:"total_cents"`
	DeliveryAddress   string                  `json:"delivery_address"`
	DeliveryPincode   *string                 `json:"delivery_pincode,omitempty"`
	DeliveryLat       *float64                `json:"delivery_lat,omitempty"`
	DeliveryLng       *float64                `json:"delivery_lng,omitempty"`
	PaymentMethod     enums.PaymentMethod     `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	Status            enums.OrderStatus       `json:"status"`
	DistanceKm        *float64                `json:"distance_km,omitempty"`
	Notes             *string                 `json:"notes,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	ConfirmedAt       *time.Time              `json:"confirmed_at,omitempty"`
	PickedUpAt        *time.Time              `json:"picked_up_at,omitempty"`
	DeliveredAt       *time.Time              `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time              `json:"cancelled_at,omitempty"`
	Items             []LineItemDTO           `json:"items"`
	Vendor            *delivery.VendorSummary `json:"vendor,omitempty"`
	Delivery          *delivery.DeliveryDTO   `json:"delivery,omitempty"`
}

// FromModel maps an order row and its preloaded associations into the API view.
func FromModel(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.CustomerID,
		VendorID:          o.VendorID,
		DeliveryPartnerID: o.DeliveryPartnerID,
		SubtotalCents:     o.SubtotalCents,
		DeliveryFeeCents:  o.DeliveryFeeCents,
		PlatformFeeCents:  o.PlatformFeeCents,
		TotalCents:        o.TotalCents,
		DeliveryAddress:   o.DeliveryAddress,
		DeliveryPincode:   o.DeliveryPincode,
		DeliveryLat:       o.DeliveryLat,
		DeliveryLng:       o.DeliveryLng,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     o.PaymentStatus,
		Status:            o.Status,
		DistanceKm:        o.DistanceKm,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
		ConfirmedAt:       o.ConfirmedAt,
		PickedUpAt:        o.PickedUpAt,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		Items:             make([]LineItemDTO, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  item.SubtotalCents,
		})
	}
	if o.Vendor != nil {
		dto.Vendor = &delivery.VendorSummary{
			ID:        o.Vendor.ID,
			ShopName:  o.Vendor.ShopName,
			Address:   o.Vendor.Address,
			Latitude:  o.Vendor.Latitude,
			Longitude: o.Vendor.Longitude,
		}
	}
	if o.Delivery != nil {
		d := delivery.FromModel(*o.Delivery)
		dto.Delivery = &d
	}
	return dto
}

// ProductCounts is a shop's catalog size and how much of it is on sale.
type ProductCounts struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
}

// OrderTotals aggregates a shop's orders over some window.
type OrderTotals struct {
	Total          int64 `json:"total"`
	Pending        int64 `json:"pending"`
	Delivered      int64 `json:"delivered"`
	OpenValueCents int64 `json:"-"`
	RevenueCents   int64 `json:"-"`
}

type RevenueSummary struct {
	TotalCents int64 `json:"total_cents"`
	TodayCents int64 `json:"today_cents"`
}

type TodaySummary struct {
	Orders int64 `json:"orders"`
}

// VendorStats is the shop dashboard. Total revenue counts delivered orders
// only; today's revenue counts every order placed today that was not cancelled.
type VendorStats struct {
	Products ProductCounts  `json:"products"`
	Orders   OrderTotals    `json:"orders"`
	Revenue  RevenueSummary `json:"revenue"`
	Today    TodaySummary   `json:"today"`
}
