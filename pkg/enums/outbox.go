package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is keyed on.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregateDelivery        OutboxAggregateType = "delivery"
	AggregateDeliveryProfile OutboxAggregateType = "delivery_profile"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDelivery,
	AggregateDeliveryProfile,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType doubles as the broker routing key.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order.created"
	EventOrderStatusChanged  OutboxEventType = "order.status_changed"
	EventOrderCancelled      OutboxEventType = "order.cancelled"
	EventDeliveryRequested   OutboxEventType = "delivery.requested"
	EventDeliveryAccepted    OutboxEventType = "delivery.accepted"
	EventDeliveryRejected    OutboxEventType = "delivery.rejected"
	EventDeliveryPickedUp    OutboxEventType = "delivery.picked_up"
	EventDeliveryCompleted   OutboxEventType = "delivery.completed"
	EventDeliveryRated       OutboxEventType = "delivery.rated"
	EventPartnerAvailability OutboxEventType = "delivery_profile.availability_changed"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventDeliveryRequested,
	EventDeliveryAccepted,
	EventDeliveryRejected,
	EventDeliveryPickedUp,
	EventDeliveryCompleted,
	EventDeliveryRated,
	EventPartnerAvailability,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQReason explains why an event was parked instead of retried.
type OutboxDLQReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQReason = "non_retryable"
)
