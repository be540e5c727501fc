package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldarchive/unitlabel/internal/datastore"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// RetryConfig bounds the retries of transient store errors.
type RetryConfig struct {
	MaxAttempts int           // total attempts, including the first
	Backoff     time.Duration // base delay; attempt n waits n*Backoff
}

// DefaultRetryConfig matches the configuration defaults.
var DefaultRetryConfig = RetryConfig{MaxAttempts: 3, Backoff: 50 * time.Millisecond}

// RetryRecorder observes retried store operations.
type RetryRecorder interface {
	RecordRetry(reason string)
}

// withRetry runs op until it succeeds, fails with a non-transient error,
// the context ends or the attempt budget is spent. Exhausting the budget
// returns an error wrapping both ErrStoreUnavailable and the last cause.
func withRetry(ctx context.Context, cfg RetryConfig, rec RetryRecorder, log logger.Logger, operation string, op func() error) error {
	attempts := max(cfg.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}
		if !datastore.IsTransientError(err) {
			return err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		reason := datastore.CategorizeError(err)
		if rec != nil {
			rec.RecordRetry(reason)
		}
		if log != nil {
			log.Debug("retrying store operation",
				logger.String("operation", operation),
				logger.String("reason", reason),
				logger.Int("attempt", attempt),
				logger.Int("max_attempts", attempts),
				logger.Error(err))
		}

		// Linear backoff: 1x, 2x, 3x ...
		timer := time.NewTimer(cfg.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return errors.New(fmt.Errorf("%w: %w", ErrStoreUnavailable, lastErr)).
		Component("repository").
		Category(errors.CategoryRetry).
		Priority(errors.PriorityHigh).
		Context("operation", operation).
		Context("attempts", attempts).
		Context("error_kind", datastore.CategorizeError(lastErr)).
		Build()
}
