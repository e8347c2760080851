// Package registry knows every event type the outbox carries: the aggregate
// it belongs to, the topic it is published on and the payload its data
// decodes into. The relay resolves rows against it before publishing and the
// analytics consumer decodes message bodies with it.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// ErrPermanent marks failures that no retry can fix.
var ErrPermanent = errors.New("permanent event failure")

func permanent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanent, fmt.Sprintf(format, args...))
}

// Kind describes one registered event type.
type Kind struct {
	Aggregate enums.OutboxAggregateType
	Topic     string
	payload   func() any
}

type Registry struct {
	kinds map[enums.OutboxEventType]Kind
}

// Orders registers the order lifecycle events, all published on topic.
func Orders(topic string) (*Registry, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("orders topic required")
	}
	return &Registry{kinds: map[enums.OutboxEventType]Kind{
		enums.EventOrderCreated: {
			Aggregate: enums.AggregateOrder,
			Topic:     topic,
			payload:   func() any { return &payloads.OrderCreatedEvent{} },
		},
		enums.EventOrderStatusChanged: {
			Aggregate: enums.AggregateOrder,
			Topic:     topic,
			payload:   func() any { return &payloads.OrderStatusChangedEvent{} },
		},
	}}, nil
}

// Resolved is an outbox row whose envelope and payload decoded cleanly.
type Resolved struct {
	Kind
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// Resolve checks row against its registered kind and decodes the stored
// envelope. Every error it returns wraps ErrPermanent.
func (r *Registry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	kind, err := r.kind(row.EventType)
	if err != nil {
		return nil, err
	}
	if row.AggregateType != kind.Aggregate {
		return nil, permanent("%s belongs to %s aggregates, row has %q", row.EventType, kind.Aggregate, row.AggregateType)
	}
	if row.AggregateID == uuid.Nil {
		return nil, permanent("%s row %s has no aggregate id", row.EventType, row.ID)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, permanent("decode envelope of row %s: %v", row.ID, err)
	}
	if _, err := env.ParseEventID(); err != nil {
		return nil, permanent("envelope event id %q: %v", env.EventID, err)
	}
	payload, err := r.Decode(row.EventType, env.Version, env.Data)
	if err != nil {
		return nil, err
	}
	return &Resolved{Kind: kind, Envelope: env, Payload: payload}, nil
}

// Decode turns envelope data into the registered payload type. Version zero
// reads as the current envelope version; any other version is rejected.
func (r *Registry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	kind, err := r.kind(eventType)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = outbox.CurrentVersion
	}
	if version != outbox.CurrentVersion {
		return nil, permanent("%s v%d is not supported", eventType, version)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("%s carries no data", eventType)
	}
	payload := kind.payload()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, permanent("decode %s data: %v", eventType, err)
	}
	return payload, nil
}

func (r *Registry) kind(eventType enums.OutboxEventType) (Kind, error) {
	if r != nil {
		if kind, ok := r.kinds[eventType]; ok {
			return kind, nil
		}
	}
	return Kind{}, permanent("event type %q is not registered", eventType)
}
