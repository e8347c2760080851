package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type rowPutter interface {
	Put(ctx context.Context, rows any) error
}

// FactWriter inserts one fact per call, retrying throttled and transient
// BigQuery failures with exponential backoff.
type FactWriter struct {
	table      rowPutter
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewFactWriter(table rowPutter) (*FactWriter, error) {
	if table == nil {
		return nil, errors.New("analytics: bigquery table required")
	}
	return &FactWriter{table: table, attempts: 3, backoff: 250 * time.Millisecond, maxBackoff: 2 * time.Second}, nil
}

func (w *FactWriter) Write(ctx context.Context, fact OrderFact) error {
	wait := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.table.Put(ctx, &fact)
		if err == nil {
			return nil
		}
		if attempt >= w.attempts || !transient(err) {
			return fmt.Errorf("insert order fact %s: %w", fact.EventID, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, w.maxBackoff)
	}
}

// transient reports whether a failed insert is worth repeating. A row level
// failure only qualifies when every reported row error does.
func transient(err error) bool {
	var rows bigquery.PutMultiError
	if errors.As(err, &rows) {
		if len(rows) == 0 {
			return false
		}
		for _, row := range rows {
			for _, cause := range row.Errors {
				if !transient(cause) {
					return false
				}
			}
		}
		return true
	}

	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) {
		switch bqErr.Reason {
		case "backendError", "internalError", "rateLimitExceeded", "timeout":
			return true
		}
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return true
	}
	return false
}
