package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nearbuy/hyperlocal-backend/pkg/db/dbtest"
	"github.com/nearbuy/hyperlocal-backend/pkg/db/models"
	"github.com/nearbuy/hyperlocal-backend/pkg/enums"
)

func TestEmitStoresDecodableEnvelope(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	svc.now = func() time.Time { return fixed }

	orderID := uuid.New()
	customerID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: customerID, Role: enums.RoleCustomer},
			Data:          map[string]string{"reason": "changed my mind"},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByAggregate(nil, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.True(t, env.OccurredAt.Equal(fixed))
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	assert.Equal(t, customerID, env.Actor.UserID)
	assert.JSONEq(t, `{"reason":"changed my mind"}`, string(env.Data))
}

func TestDomainEventValidate(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name  string
		event DomainEvent
		err   string
	}{
		{"ok", DomainEvent{EventType: enums.EventPartnerAvailability, AggregateType: enums.AggregateDeliveryProfile, AggregateID: id}, ""},
		{"unknown type", DomainEvent{EventType: "order.teleported", AggregateType: enums.AggregateOrder, AggregateID: id}, "unknown outbox event type"},
		{"wrong aggregate", DomainEvent{EventType: enums.EventDeliveryAccepted, AggregateType: enums.AggregateOrder, AggregateID: id}, "cannot be keyed"},
		{"missing id", DomainEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder}, "aggregate id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

func TestDecodeEnvelopeRejectsUnusablePayloads(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":2,"eventId":"x","data":{}}`))
	assert.ErrorContains(t, err, "unsupported envelope version")

	_, err = DecodeEnvelope([]byte(`{"version":1,"data":{}}`))
	assert.ErrorContains(t, err, "missing eventId")

	_, err = DecodeEnvelope([]byte(`{"version":1,"eventId":"x","actor":{"userId":"` + uuid.NewString() + `","role":"admin"}}`))
	assert.ErrorContains(t, err, "unknown role")

	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"x","data":null}`))
	require.NoError(t, err)
	assert.False(t, env.HasData())
}

func TestDLQRepositoryBacklog(t *testing.T) {
	client := dbtest.Open(t)
	dlq := NewDLQRepository(client.DB())
	deliveryID := uuid.New()

	long := strings.Repeat("त", maxDLQErrorLen)
	entries := []models.OutboxDLQ{
		{EventType: enums.EventDeliveryAccepted, AggregateType: enums.AggregateDelivery, AggregateID: deliveryID, ErrorReason: enums.OutboxDLQReasonMaxAttempts, ErrorMessage: &long},
		{EventType: enums.EventDeliveryPickedUp, AggregateType: enums.AggregateDelivery, AggregateID: deliveryID, ErrorReason: enums.OutboxDLQReasonMaxAttempts},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), ErrorReason: enums.OutboxDLQReasonNonRetryable},
	}
	for i, entry := range entries {
		entry.EventID = uuid.New()
		entry.Payload = json.RawMessage(`{}`)
		entry.FailedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
			return dlq.InsertTx(tx, entry)
		}))
	}

	counts, err := dlq.CountByReason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[enums.OutboxDLQReasonMaxAttempts])
	assert.Equal(t, int64(1), counts[enums.OutboxDLQReasonNonRetryable])

	rows, err := dlq.ListForAggregate(context.Background(), enums.AggregateDelivery, deliveryID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.EventDeliveryAccepted, rows[0].EventType)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.LessOrEqual(t, len(*rows[0].ErrorMessage), maxDLQErrorLen)
	assert.True(t, utf8.ValidString(*rows[0].ErrorMessage))

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
