// Package retry owns the one retry policy every source client uses, so callers
// never loop on transient errors themselves.
package retry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/errors"
)

// Policy is the shared external-client retry policy: three attempts total,
// exponential backoff seeded at 1s and doubling after each wait (so 1s,
// then 2s, between the three attempts), honouring Retry-After.
type Policy struct {
	MaxAttempts int
	Seed        time.Duration
}

// Default is the retry policy used by every source client.
var Default = Policy{MaxAttempts: 3, Seed: time.Second}

// Do runs fn up to p.MaxAttempts times, backing off between attempts. fn
// should classify its own failures by returning an *errors.Error; Do stops
// retrying as soon as the category is non-retriable.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var lastErr error
	backoff := p.Seed
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !errors.Retriable(errors.CategoryOf(err)) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := backoff
		if d, ok := retryAfter(err); ok {
			wait = d
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(errors.Cancelled, "", "context cancelled during retry backoff", ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
	return lastErr
}

// retryAfterCarrier is implemented by errors that know a server-specified
// backoff duration (parsed from a Retry-After header).
type retryAfterCarrier interface {
	RetryAfter() (time.Duration, bool)
}

func retryAfter(err error) (time.Duration, bool) {
	if rc, ok := err.(retryAfterCarrier); ok {
		return rc.RetryAfter()
	}
	return 0, false
}

// ParseRetryAfter parses an HTTP Retry-After header value, which may be
// either a delay in seconds or an HTTP-date.
func ParseRetryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d, true
		}
	}
	return 0, false
}
