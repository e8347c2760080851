package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func orderRow(t *testing.T, eventType enums.OutboxEventType, version int, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       raw,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       env,
	}
}

func TestOrdersRequiresTopic(t *testing.T) {
	_, err := Orders("  ")
	assert.Error(t, err)
}

func TestResolveOrderCreated(t *testing.T) {
	reg, err := Orders(" storefront-order-events ")
	require.NoError(t, err)

	orderID := uuid.New()
	row := orderRow(t, enums.EventOrderCreated, outbox.CurrentVersion, payloads.OrderCreatedEvent{
		OrderID:   orderID,
		Status:    enums.OrderStatusPending,
		Total:     decimal.RequireFromString("54.98"),
		ItemCount: 2,
	})

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	assert.Equal(t, "storefront-order-events", resolved.Topic)
	assert.Equal(t, enums.AggregateOrder, resolved.Aggregate)

	created, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, created.OrderID)
	assert.True(t, created.Total.Equal(decimal.RequireFromString("54.98")))
}

func TestResolveRejectsBrokenRows(t *testing.T) {
	reg, err := Orders("orders")
	require.NoError(t, err)
	status := payloads.OrderStatusChangedEvent{OrderID: uuid.New(), FromStatus: enums.OrderStatusPending, ToStatus: enums.OrderStatusShipped}

	cases := map[string]func(row *models.OutboxEvent){
		"unknown type":      func(row *models.OutboxEvent) { row.EventType = "order_refunded" },
		"wrong aggregate":   func(row *models.OutboxEvent) { row.AggregateType = "user" },
		"no aggregate id":   func(row *models.OutboxEvent) { row.AggregateID = uuid.Nil },
		"envelope not json": func(row *models.OutboxEvent) { row.Payload = json.RawMessage(`{"version":`) },
		"bad event id":      func(row *models.OutboxEvent) { row.Payload = json.RawMessage(`{"version":1,"eventId":"x","data":{}}`) },
		"null data": func(row *models.OutboxEvent) {
			row.Payload = json.RawMessage(`{"version":1,"eventId":"` + uuid.NewString() + `","data":null}`)
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row := orderRow(t, enums.EventOrderStatusChanged, 1, status)
			mutate(&row)
			_, err := reg.Resolve(row)
			assert.ErrorIs(t, err, ErrPermanent)
		})
	}
}

func TestDecodeVersions(t *testing.T) {
	reg, err := Orders("orders")
	require.NoError(t, err)
	data := json.RawMessage(`{"order_id":"` + uuid.NewString() + `","from_status":"pending","to_status":"processing"}`)

	payload, err := reg.Decode(enums.EventOrderStatusChanged, 0, data)
	require.NoError(t, err)
	changed := payload.(*payloads.OrderStatusChangedEvent)
	assert.Equal(t, enums.OrderStatusProcessing, changed.ToStatus)

	_, err = reg.Decode(enums.EventOrderStatusChanged, 2, data)
	assert.ErrorIs(t, err, ErrPermanent)

	var empty *Registry
	_, err = empty.Decode(enums.EventOrderCreated, 1, data)
	assert.ErrorIs(t, err, ErrPermanent)
}
