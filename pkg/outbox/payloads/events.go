package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

// OrderCreatedEvent announces a freshly placed order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	DeliveryID  uuid.UUID `json:"delivery_id"`
	TotalCents  int64     `json:"total_cents"`
	ItemCount   int       `json:"item_count"`
}

// OrderStatusChangedEvent is emitted on every order transition.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	VendorID  uuid.UUID         `json:"vendor_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ActorRole enums.Role        `json:"actor_role"`
}

// OrderCancelledEvent is emitted when a pending order is cancelled and its stock returned.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	VendorID    uuid.UUID  `json:"vendor_id"`
	CancelledBy enums.Role `json:"cancelled_by"`
	CancelledAt time.Time  `json:"cancelled_at"`
}

// DeliveryRequestedEvent tells partners a new request is open.
type DeliveryRequestedEvent struct {
	DeliveryID uuid.UUID `json:"delivery_id"`
	OrderID    uuid.UUID `json:"order_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
}

// DeliveryAssignmentEvent covers accept, reject and pickup decisions by a partner.
type DeliveryAssignmentEvent struct {
	DeliveryID uuid.UUID            `json:"delivery_id"`
	OrderID    uuid.UUID            `json:"order_id"`
	PartnerID  uuid.UUID            `json:"partner_id"`
	Status     enums.DeliveryStatus `json:"status"`
	Reason     string               `json:"reason,omitempty"`
}

// DeliveryCompletedEvent is emitted once the order reaches the customer.
type DeliveryCompletedEvent struct {
	DeliveryID      uuid.UUID           `json:"delivery_id"`
	OrderID         uuid.UUID           `json:"order_id"`
	PartnerID       uuid.UUID           `json:"partner_id"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	CollectedCents  int64               `json:"collected_cents"`
	DeliveredAt     time.Time           `json:"delivered_at"`
	TotalDeliveries int                 `json:"total_deliveries"`
}

// DeliveryRatedEvent carries the partner's recomputed average.
type DeliveryRatedEvent struct {
	DeliveryID    uuid.UUID  `json:"delivery_id"`
	PartnerID     uuid.UUID  `json:"partner_id"`
	RaterRole     enums.Role `json:"rater_role"`
	Rating        int        `json:"rating"`
	PartnerRating float64    `json:"partner_rating"`
}

// PartnerAvailabilityChangedEvent is emitted when a partner goes on or off duty.
type PartnerAvailabilityChangedEvent struct {
	ProfileID   uuid.UUID `json:"profile_id"`
	PartnerID   uuid.UUID `json:"partner_id"`
	IsAvailable bool      `json:"is_available"`
}

// AggregateKey returns the id the event is keyed on. It must equal the outbox
// row's aggregate_id so consumers can partition by it.
func (e OrderCreatedEvent) AggregateKey() uuid.UUID       { return e.OrderID }
func (e OrderStatusChangedEvent) AggregateKey() uuid.UUID { return e.OrderID }
func (e OrderCancelledEvent) AggregateKey() uuid.UUID     { return e.OrderID }
func (e DeliveryRequestedEvent) AggregateKey() uuid.UUID  { return e.DeliveryID }
func (e DeliveryAssignmentEvent) AggregateKey() uuid.UUID { return e.DeliveryID }
func (e DeliveryCompletedEvent) AggregateKey() uuid.UUID  { return e.DeliveryID }
func (e DeliveryRatedEvent) AggregateKey() uuid.UUID      { return e.DeliveryID }

func (e PartnerAvailabilityChangedEvent) AggregateKey() uuid.UUID { return e.ProfileID }
