package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterPurger interface {
	DeleteFailedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// retentionJob deletes rows older than a cutoff in a single transaction.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention time.Duration
	purge     func(tx *gorm.DB, cutoff time.Time) (int64, error)
	now       func() time.Time
}

// NewOutboxRetentionJob removes published outbox events older than retention.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo publishedPurger, retention time.Duration) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	return newRetentionJob("outbox-retention", logg, db, retention, defaultOutboxRetention, repo.DeletePublishedBefore)
}

// NewDLQRetentionJob removes dead-lettered events older than retention.
func NewDLQRetentionJob(logg *logger.Logger, db txRunner, repo deadLetterPurger, retention time.Duration) (Job, error) {
	if repo == nil {
		return nil, errors.New("dlq repository required")
	}
	return newRetentionJob("dlq-retention", logg, db, retention, defaultDLQRetention, repo.DeleteFailedBefore)
}

func newRetentionJob(
	name string,
	logg *logger.Logger,
	db txRunner,
	retention, fallback time.Duration,
	purge func(tx *gorm.DB, cutoff time.Time) (int64, error),
) (*retentionJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if db == nil {
		return nil, errors.New("db runner required")
	}
	if retention <= 0 {
		retention = fallback
	}
	return &retentionJob{
		name:      name,
		logg:      logg,
		db:        db,
		retention: retention,
		purge:     purge,
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "retention cleanup complete")
	return nil
}
