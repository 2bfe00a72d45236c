package retry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsoracle/omicsoracle/internal/errors"
)

func TestDoReturnsNilOnFirstSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, Seed: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetriableErrorsUpToMaxAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, Seed: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New(errors.NetworkError, "test", "boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsImmediatelyOnNonRetriableError(t *testing.T) {
	p := Policy{MaxAttempts: 3, Seed: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New(errors.ValidationFailed, "test", "bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 3, Seed: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return errors.New(errors.NetworkError, "test", "boom")
	})
	require.Error(t, err)
	assert.Equal(t, errors.Cancelled, errors.CategoryOf(err))
	assert.Equal(t, 1, calls)
}

func TestDoDefaultsMaxAttemptsToOne(t *testing.T) {
	p := Policy{Seed: time.Millisecond}
	calls := 0
	_ = p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New(errors.NetworkError, "test", "boom")
	})
	assert.Equal(t, 1, calls)
}

type retryAfterErr struct {
	*errors.Error
	after time.Duration
}

func (e *retryAfterErr) RetryAfter() (time.Duration, bool) { return e.after, true }
func (e *retryAfterErr) Unwrap() error                     { return e.Error }

func TestRetryAfterErrCategoryStillReachesEmbeddedError(t *testing.T) {
	err := &retryAfterErr{Error: errors.New(errors.RateLimited, "test", "429"), after: time.Second}
	assert.Equal(t, errors.RateLimited, errors.CategoryOf(err))
	assert.True(t, errors.Retriable(errors.CategoryOf(err)))
}

func TestDoHonoursRetryAfterOverBackoffSeed(t *testing.T) {
	p := Policy{MaxAttempts: 2, Seed: time.Hour}
	start := time.Now()
	_ = p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		if attempt == 1 {
			return &retryAfterErr{Error: errors.New(errors.RateLimited, "test", "429"), after: 5 * time.Millisecond}
		}
		return nil
	})
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseRetryAfterParsesSeconds(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "30")
	d, ok := ParseRetryAfter(h)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)
}

func TestParseRetryAfterParsesHTTPDate(t *testing.T) {
	future := time.Now().Add(1 * time.Hour).UTC()
	h := http.Header{}
	h.Set("Retry-After", future.Format(http.TimeFormat))
	d, ok := ParseRetryAfter(h)
	assert.True(t, ok)
	assert.Greater(t, d, time.Duration(0))
}

func TestParseRetryAfterMissingHeader(t *testing.T) {
	_, ok := ParseRetryAfter(http.Header{})
	assert.False(t, ok)
}

func TestParseRetryAfterPastDateReturnsNotOK(t *testing.T) {
	past := time.Now().Add(-1 * time.Hour).UTC()
	h := http.Header{}
	h.Set("Retry-After", past.Format(http.TimeFormat))
	_, ok := ParseRetryAfter(h)
	assert.False(t, ok)
}
