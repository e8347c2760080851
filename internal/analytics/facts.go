// Package analytics records order events from Pub/Sub as rows of the
// BigQuery order_facts table.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// OrderFact mirrors the order_facts schema. Money columns hold cents.
type OrderFact struct {
	EventID        string            `bigquery:"event_id"`
	EventType      string            `bigquery:"event_type"`
	OccurredAt     time.Time         `bigquery:"occurred_at"`
	OrderID        string            `bigquery:"order_id"`
	UserID         string            `bigquery:"user_id"`
	Status         string            `bigquery:"status"`
	PreviousStatus *string           `bigquery:"previous_status"`
	PaymentMethod  *string           `bigquery:"payment_method"`
	SubtotalCents  *int64            `bigquery:"subtotal_cents"`
	ShippingCents  *int64            `bigquery:"shipping_cents"`
	TotalCents     int64             `bigquery:"total_cents"`
	ItemCount      int64             `bigquery:"item_count"`
	Lines          bigquery.NullJSON `bigquery:"lines"`
	Payload        bigquery.NullJSON `bigquery:"payload"`
}

// Event is one delivery once the message attributes and the envelope in its
// body have been merged.
type Event struct {
	ID            uuid.UUID
	Type          enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Version       int
	OccurredAt    time.Time
	Data          json.RawMessage
}

var hundred = decimal.NewFromInt(100)

func cents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// factFor flattens a decoded payload into a fact row.
func factFor(ev Event, payload any) (OrderFact, error) {
	raw, err := jsonColumn(payload)
	if err != nil {
		return OrderFact{}, err
	}
	fact := OrderFact{
		EventID:    ev.ID.String(),
		EventType:  string(ev.Type),
		OccurredAt: ev.OccurredAt,
		Payload:    raw,
	}

	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		lines, err := jsonColumn(p.Lines)
		if err != nil {
			return OrderFact{}, err
		}
		subtotal, shipping := cents(p.Subtotal), cents(p.Shipping)
		fact.OrderID = p.OrderID.String()
		fact.UserID = p.UserID.String()
		fact.Status = string(p.Status)
		fact.PaymentMethod = optional(string(p.PaymentMethod))
		fact.SubtotalCents = &subtotal
		fact.ShippingCents = &shipping
		fact.TotalCents = cents(p.Total)
		fact.ItemCount = int64(p.ItemCount)
		fact.Lines = lines
	case *payloads.OrderStatusChangedEvent:
		fact.OrderID = p.OrderID.String()
		fact.UserID = p.UserID.String()
		fact.Status = string(p.ToStatus)
		fact.PreviousStatus = optional(string(p.FromStatus))
		fact.TotalCents = cents(p.Total)
		fact.ItemCount = int64(p.ItemCount)
	default:
		return OrderFact{}, fmt.Errorf("%w: no order fact for %T", registry.ErrPermanent, payload)
	}
	return fact, nil
}

func jsonColumn(v any) (bigquery.NullJSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return bigquery.NullJSON{}, fmt.Errorf("encode json column: %w", err)
	}
	return bigquery.NullJSON{JSONVal: string(b), Valid: true}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
