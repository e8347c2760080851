// Package relay moves committed outbox rows onto Pub/Sub. Each batch is
// claimed inside one transaction with SKIP LOCKED, so several relays can run
// side by side without two of them holding the same row.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const workerLabel = "outbox-publisher"

// Sink delivers one message and returns its server assigned id.
type Sink interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRows interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(row models.OutboxEvent) (*registry.Resolved, error)
}

type relayMetrics interface {
	ObserveBatch(worker string, duration time.Duration)
	IncSuccess(worker, eventType string)
	IncFailure(worker, eventType string)
}

// Options tune batching and retries. Zero fields take the defaults.
type Options struct {
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.PollInterval {
		o.MaxBackoff = max(30*time.Second, o.PollInterval)
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 15 * time.Second
	}
	return o
}

type Params struct {
	Logger      *logger.Logger
	DB          txRunner
	Outbox      outboxRows
	DeadLetters deadLetters
	Registry    resolver
	Sink        Sink
	Metrics     relayMetrics
	Options     Options
}

type Relay struct {
	logg     *logger.Logger
	db       txRunner
	outbox   outboxRows
	dlq      deadLetters
	registry resolver
	sink     Sink
	metrics  relayMetrics
	opts     Options
	now      func() time.Time
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("relay: logger required")
	case p.DB == nil || p.Outbox == nil || p.DeadLetters == nil:
		return nil, errors.New("relay: database, outbox and dead letter repositories required")
	case p.Registry == nil || p.Sink == nil:
		return nil, errors.New("relay: registry and sink required")
	case p.Metrics == nil:
		return nil, errors.New("relay: metrics required")
	}
	return &Relay{
		logg:     p.Logger,
		db:       p.DB,
		outbox:   p.Outbox,
		dlq:      p.DeadLetters,
		registry: p.Registry,
		sink:     p.Sink,
		metrics:  p.Metrics,
		opts:     p.Options.withDefaults(),
		now:      time.Now,
	}, nil
}

// Run drains batches until ctx ends. A batch that settled rows is followed
// at once by the next; an idle relay sleeps PollInterval and a failing one
// doubles its sleep up to MaxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	wait := r.opts.PollInterval
	for {
		settled, err := r.Drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, r.opts.MaxBackoff)
		case settled > 0:
			wait = r.opts.PollInterval
			if ctx.Err() == nil {
				continue
			}
		default:
			wait = r.opts.PollInterval
		}

		timer := time.NewTimer(jitter(wait))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Drain publishes one batch and reports how many rows it settled. A row is
// settled once it is marked published, marked for retry or dead-lettered.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	started := time.Now()
	settled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := r.outbox.FetchUnpublishedForPublish(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox batch: %w", err)
		}
		for _, row := range batch {
			if err := r.settle(ctx, tx, row); err != nil {
				return err
			}
			settled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if settled > 0 {
		r.metrics.ObserveBatch(workerLabel, time.Since(started))
	}
	return settled, nil
}

// settle publishes row and writes the outcome back. Publish failures are
// recorded on the row or in the DLQ; only bookkeeping failures are returned.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	attempt := row.AttemptCount + 1
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    row.ID.String(),
		"event_type":   string(row.EventType),
		"aggregate_id": row.AggregateID.String(),
		"attempt":      attempt,
	})

	resolved, err := r.registry.Resolve(row)
	if err == nil {
		logCtx = r.logg.WithFields(logCtx, map[string]any{"event_id": resolved.Envelope.EventID, "topic": resolved.Topic})
		err = r.publish(logCtx, row, resolved)
	}

	switch {
	case err == nil:
		if err := r.outbox.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.metrics.IncSuccess(workerLabel, string(row.EventType))
		r.logg.Info(logCtx, "outbox event published")
		return nil
	case errors.Is(err, registry.ErrPermanent):
		return r.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	case attempt >= r.opts.MaxAttempts:
		return r.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", attempt, err))
	}

	r.metrics.IncFailure(workerLabel, string(row.EventType))
	r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed, will retry")
	if err := r.outbox.MarkFailedTx(tx, row.ID, err); err != nil {
		return fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.Resolved) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.PublishTimeout)
	defer cancel()

	msgID, err := r.sink.Publish(ctx, resolved.Topic, row.Payload, map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", resolved.Topic, err)
	}
	r.logg.Debug(r.logg.WithField(ctx, "message_id", msgID), "pubsub accepted message")
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount + 1,
		FailedAt:      r.now().UTC(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.outbox.MarkTerminalTx(tx, row.ID, cause, r.opts.MaxAttempts); err != nil {
		return fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	r.metrics.IncFailure(workerLabel, string(row.EventType))
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"error": msg, "dlq_reason": string(reason)}), "outbox event dead-lettered")
	return nil
}

// jitter spreads wait by up to a fifth so idle relays do not poll in lockstep.
func jitter(wait time.Duration) time.Duration {
	if spread := wait / 5; spread > 0 {
		return wait + rand.N(spread)
	}
	return wait
}
