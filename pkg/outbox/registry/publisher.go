package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/nearbuy/hyperlocal-backend/pkg/config"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
	"github.com/nearbuy/hyperlocal-backend/pkg/outbox"
	"github.com/nearbuy/hyperlocal-backend/pkg/outbox/payloads"
)

// keyed is implemented by every marketplace event payload.
type keyed interface {
	AggregateKey() uuid.UUID
}

// EventDescriptor links an event type to its aggregate, exchange, routing key
// and payload decoder.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Exchange      string
	RoutingKey    string
	decode        func(json.RawMessage) (keyed, error)
}

// ResolvedEvent is a decoded outbox row ready for publishing.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish, however often it is
// retried. The relay parks such rows in the DLQ.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// describe builds a descriptor whose decoder yields *T.
func describe[T any, PT interface {
	*T
	keyed
}](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		decode: func(raw json.RawMessage) (keyed, error) {
			payload := PT(new(T))
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// NewEventRegistry routes every event on the configured topic exchange with
// its event type as routing key, so consumers bind on "order.#" or
// "delivery.*".
func NewEventRegistry(cfg config.BrokerConfig) (*EventRegistry, error) {
	if cfg.Exchange == "" {
		return nil, errors.New("exchange is required")
	}

	descs := []EventDescriptor{
		describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder),
		describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder),
		describe[payloads.OrderCancelledEvent](enums.EventOrderCancelled, enums.AggregateOrder),
		describe[payloads.DeliveryRequestedEvent](enums.EventDeliveryRequested, enums.AggregateDelivery),
		describe[payloads.DeliveryAssignmentEvent](enums.EventDeliveryAccepted, enums.AggregateDelivery),
		describe[payloads.DeliveryAssignmentEvent](enums.EventDeliveryRejected, enums.AggregateDelivery),
		describe[payloads.DeliveryAssignmentEvent](enums.EventDeliveryPickedUp, enums.AggregateDelivery),
		describe[payloads.DeliveryCompletedEvent](enums.EventDeliveryCompleted, enums.AggregateDelivery),
		describe[payloads.DeliveryRatedEvent](enums.EventDeliveryRated, enums.AggregateDelivery),
		describe[payloads.PartnerAvailabilityChangedEvent](enums.EventPartnerAvailability, enums.AggregateDeliveryProfile),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descs))}
	for _, desc := range descs {
		if _, dup := reg.entries[desc.EventType]; dup {
			return nil, fmt.Errorf("event type %s registered twice", desc.EventType)
		}
		desc.Exchange = cfg.Exchange
		desc.RoutingKey = string(desc.EventType)
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// EventTypes lists the registered event types in name order.
func (r *EventRegistry) EventTypes() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve validates the row and decodes its typed payload. Every failure is
// non-retryable: a row that does not decode now never will.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if !envelope.HasData() {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	if key := payload.AggregateKey(); key != event.AggregateID {
		return nil, nonRetryable("%s payload keyed on %s but row aggregate is %s", event.EventType, key, event.AggregateID)
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
