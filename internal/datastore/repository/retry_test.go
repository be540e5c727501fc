package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enhancederrors "github.com/fieldarchive/unitlabel/internal/errors"
)

type countingRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (c *countingRecorder) RecordRetry(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

var busyErr = sqlite3.Error{Code: sqlite3.ErrBusy}

func TestWithRetry_RecoversFromTransientErrors(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	calls := 0
	err := withRetry(t.Context(), RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond}, rec, nil, "test", func() error {
		calls++
		if calls < 3 {
			return busyErr
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.reasons, 2)
}

func TestWithRetry_ExhaustionWrapsStoreUnavailable(t *testing.T) {
	t.Parallel()

	calls := 0
	err := withRetry(t.Context(), RetryConfig{MaxAttempts: 2, Backoff: time.Millisecond}, nil, nil, "test", func() error {
		calls++
		return busyErr
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, enhancederrors.IsCategory(err, enhancederrors.CategoryRetry))

	var sqliteErr sqlite3.Error
	require.ErrorAs(t, err, &sqliteErr)
	assert.Equal(t, sqlite3.ErrBusy, sqliteErr.Code)
}

func TestWithRetry_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	permanent := fmt.Errorf("syntax error")
	calls := 0
	err := withRetry(t.Context(), RetryConfig{MaxAttempts: 5, Backoff: time.Millisecond}, nil, nil, "test", func() error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := withRetry(ctx, RetryConfig{MaxAttempts: 10, Backoff: time.Hour}, nil, nil, "test", func() error {
		calls++
		cancel()
		return busyErr
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
