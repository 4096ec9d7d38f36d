package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

// DeliveryDTO is the API view of a delivery request.
type DeliveryDTO struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"order_id"`
	PartnerID       *uuid.UUID           `json:"delivery_partner_id,omitempty"`
	Status          enums.DeliveryStatus `json:"status"`
	RequestedAt     time.Time            `json:"requested_at"`
	AcceptedAt      *time.Time           `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time           `json:"rejected_at,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	PickupTime      *time.Time           `json:"pickup_time,omitempty"`
	DeliveryTime    *time.Time           `json:"delivery_time,omitempty"`
	CustomerRating  *int                 `json:"customer_rating,omitempty"`
	VendorRating    *int                 `json:"vendor_rating,omitempty"`
	Order           *OrderSummary        `json:"order,omitempty"`
}

// OrderSummary is the slice of an order a partner needs to act on a request.
type OrderSummary struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	Status           enums.OrderStatus   `json:"status"`
	TotalCents       int64               `json:"total_cents"`
	DeliveryFeeCents int64               `json:"delivery_fee_cents"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	DeliveryAddress  string              `json:"delivery_address"`
	DeliveryLat      *float64            `json:"delivery_lat,omitempty"`
	DeliveryLng      *float64            `json:"delivery_lng,omitempty"`
	Vendor           *VendorSummary      `json:"vendor,omitempty"`
}

// VendorSummary locates the pickup point.
type VendorSummary struct {
	ID        uuid.UUID `json:"id"`
	ShopName  string    `json:"shop_name"`
	Address   string    `json:"address"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
}

// PendingRequest is an open request annotated with the partner's distance to the vendor.
type PendingRequest struct {
	DeliveryDTO
	DistanceToVendorKm *float64 `json:"distance_to_vendor_km,omitempty"`
}

// PendingRequests is the pool view for one partner. Message explains an empty
// list when the partner is off duty.
type PendingRequests struct {
	Requests []PendingRequest `json:"requests"`
	Count    int              `json:"count"`
	Message  string           `json:"message,omitempty"`
}

// ProfileDTO is the API view of a delivery profile.
type ProfileDTO struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	IsAvailable     bool      `json:"is_available"`
	VehicleType     *string   `json:"vehicle_type,omitempty"`
	VehicleNumber   *string   `json:"vehicle_number,omitempty"`
	AvailableFrom   *string   `json:"available_from,omitempty"`
	AvailableTo     *string   `json:"available_to,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	Rating          float64   `json:"rating"`
	TotalDeliveries int       `json:"total_deliveries"`
}

// UpdateProfileInput carries the partner-editable profile fields. Nil leaves a field unchanged.
type UpdateProfileInput struct {
	VehicleType   *string  `json:"vehicle_type" validate:"omitempty,max=50"`
	VehicleNumber *string  `json:"vehicle_number" validate:"omitempty,max=50"`
	AvailableFrom *string  `json:"available_from" validate:"omitempty,datetime=15:04"`
	AvailableTo   *string  `json:"available_to" validate:"omitempty,datetime=15:04"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// PartnerSummary is the public view of an on-duty partner.
type PartnerSummary struct {
	PartnerID       uuid.UUID `json:"partner_id"`
	VehicleType     *string   `json:"vehicle_type,omitempty"`
	Rating          float64   `json:"rating"`
	TotalDeliveries int       `json:"total_deliveries"`
}

// Availability reports whether orders can currently be placed.
type Availability struct {
	Available bool             `json:"available"`
	Count     int              `json:"count"`
	Partners  []PartnerSummary `json:"partners"`
}

// Earnings summarises a partner's delivered fees.
type Earnings struct {
	TotalEarningsCents       int64   `json:"total_earnings_cents"`
	TotalDeliveries          int64   `json:"total_deliveries"`
	TodayEarningsCents       int64   `json:"today_earnings_cents"`
	TodayDeliveries          int64   `json:"today_deliveries"`
	DeliveryFeePerOrderCents int64   `json:"delivery_fee_per_order_cents"`
	Rating                   float64 `json:"rating"`
}

// FromModel maps a delivery row and its preloaded order into the API view.
func FromModel(d models.Delivery) DeliveryDTO {
	dto := DeliveryDTO{
		ID:              d.ID,
		OrderID:         d.OrderID,
		PartnerID:       d.DeliveryPartnerID,
		Status:          d.Status,
		RequestedAt:     d.RequestedAt,
		AcceptedAt:      d.AcceptedAt,
		RejectedAt:      d.RejectedAt,
		RejectionReason: d.RejectionReason,
		PickupTime:      d.PickupTime,
		DeliveryTime:    d.DeliveryTime,
		CustomerRating:  d.CustomerRating,
		VendorRating:    d.VendorRating,
	}
	if d.Order != nil {
		dto.Order = orderSummary(*d.Order)
	}
	return dto
}

func orderSummary(o models.Order) *OrderSummary {
	summary := &OrderSummary{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.Status,
		TotalCents:       o.TotalCents,
		DeliveryFeeCents: o.DeliveryFeeCents,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		DeliveryAddress:  o.DeliveryAddress,
		DeliveryLat:      o.DeliveryLat,
		DeliveryLng:      o.DeliveryLng,
	}
	if o.Vendor != nil {
		summary.Vendor = &VendorSummary{
			ID:        o.Vendor.ID,
			ShopName:  o.Vendor.ShopName,
			Address:   o.Vendor.Address,
			Latitude:  o.Vendor.Latitude,
			Longitude: o.Vendor.Longitude,
		}
	}
	return summary
}

func profileFromModel(p models.DeliveryProfile) ProfileDTO {
	return ProfileDTO{
		ID:              p.ID,
		UserID:          p.UserID,
		IsAvailable:     p.IsAvailable,
		VehicleType:     p.VehicleType,
		VehicleNumber:   p.VehicleNumber,
		AvailableFrom:   p.AvailableFrom,
		AvailableTo:     p.AvailableTo,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Rating:          p.Rating,
		TotalDeliveries: p.TotalDeliveries,
	}
}

func mapDeliveries(rows []models.Delivery) []DeliveryDTO {
	out := make([]DeliveryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
