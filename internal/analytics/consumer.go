package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gpubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	consumerName = "order-analytics"
	workerLabel  = "analytics-worker"
)

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error)
}

type factWriter interface {
	Write(ctx context.Context, fact OrderFact) error
}

type consumerMetrics interface {
	IncSuccess(worker, eventType string)
	IncFailure(worker, eventType string)
}

type receiver interface {
	Receive(ctx context.Context, fn func(context.Context, *gpubsub.Message)) error
}

type ConsumerParams struct {
	Logger   *logger.Logger
	Decoder  decoder
	Facts    factWriter
	Claims   pkgredis.IdempotencyStore
	ClaimTTL time.Duration
	Metrics  consumerMetrics
}

// Consumer writes one fact per order event. Redeliveries are absorbed by a
// Redis claim on the event id that is released when recording fails.
type Consumer struct {
	logg     *logger.Logger
	decoder  decoder
	facts    factWriter
	claims   pkgredis.IdempotencyStore
	claimTTL time.Duration
	metrics  consumerMetrics
}

func NewConsumer(p ConsumerParams) (*Consumer, error) {
	if p.Logger == nil || p.Decoder == nil || p.Facts == nil || p.Claims == nil || p.Metrics == nil {
		return nil, errors.New("analytics: logger, decoder, fact writer, claim store and metrics required")
	}
	if p.ClaimTTL <= 0 {
		return nil, errors.New("analytics: claim ttl must be positive")
	}
	return &Consumer{
		logg:     p.Logger,
		decoder:  p.Decoder,
		facts:    p.Facts,
		claims:   p.Claims,
		claimTTL: p.ClaimTTL,
		metrics:  p.Metrics,
	}, nil
}

// Run receives until ctx ends.
func (c *Consumer) Run(ctx context.Context, source receiver) error {
	return source.Receive(ctx, func(ctx context.Context, msg *gpubsub.Message) {
		if c.Handle(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Handle records one delivery and reports whether it should be acked.
// Malformed and unknown events are acked so they stop redelivering.
func (c *Consumer) Handle(ctx context.Context, msg *gpubsub.Message) bool {
	ctx = c.logg.WithField(ctx, "message_id", msg.ID)
	ev, err := eventFrom(msg)
	if err != nil {
		c.metrics.IncFailure(workerLabel, msg.Attributes["event_type"])
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping malformed order event")
		return true
	}

	eventType := string(ev.Type)
	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id":   ev.ID.String(),
		"event_type": eventType,
		"order_id":   ev.AggregateID.String(),
	})

	key := c.claims.IdempotencyKey("evt:processed:"+consumerName, ev.ID.String())
	first, err := c.claims.SetNX(ctx, key, "1", c.claimTTL)
	if err != nil {
		c.logg.Error(ctx, "claim order event", err)
		return false
	}
	if !first {
		c.logg.Info(ctx, "order event already recorded")
		return true
	}

	err = c.record(ctx, ev)
	switch {
	case err == nil:
		c.metrics.IncSuccess(workerLabel, eventType)
		c.logg.Info(ctx, "order fact recorded")
		return true
	case errors.Is(err, registry.ErrPermanent):
		c.metrics.IncFailure(workerLabel, eventType)
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping undecodable order event")
		return true
	}

	c.metrics.IncFailure(workerLabel, eventType)
	c.logg.Error(ctx, "record order fact", err)
	if err := c.claims.Del(ctx, key); err != nil {
		c.logg.Error(ctx, "release order event claim", err)
	}
	return false
}

func (c *Consumer) record(ctx context.Context, ev Event) error {
	payload, err := c.decoder.Decode(ev.Type, ev.Version, ev.Data)
	if err != nil {
		return err
	}
	fact, err := factFor(ev, payload)
	if err != nil {
		return err
	}
	return c.facts.Write(ctx, fact)
}

// eventFrom merges the attributes set by the relay with the envelope in the
// message body. Where both carry a value the envelope wins.
func eventFrom(msg *gpubsub.Message) (Event, error) {
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return Event{}, err
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return Event{}, err
	}
	aggregateID, err := uuid.Parse(attr("aggregate_id"))
	if err != nil {
		return Event{}, fmt.Errorf("aggregate id: %w", err)
	}
	rawID := strings.TrimSpace(env.EventID)
	if rawID == "" {
		rawID = attr("event_id")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Event{}, fmt.Errorf("event id %q: %w", rawID, err)
	}

	occurred := env.OccurredAt
	if occurred.IsZero() {
		occurred, _ = time.Parse(time.RFC3339Nano, attr("created_at"))
	}
	return Event{
		ID:            id,
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       env.Version,
		OccurredAt:    occurred.UTC(),
		Data:          env.Data,
	}, nil
}
