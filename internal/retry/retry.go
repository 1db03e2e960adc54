// Package retry implements bounded exponential backoff for outbound provider
// calls. Only errors classified transient are retried; a rejected request is
// returned immediately since re-sending malformed input wastes a provider
// call and risks rate limiting.
package retry

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/vendano/payflow/internal/domain/errors"
)

// Policy bounds the retry loop. Delay doubles per attempt, capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Default mirrors the configuration defaults: three attempts, 200ms base.
var Default = Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

// Do runs op until it succeeds, fails permanently, or the attempt budget is
// spent. onAttempt, when non-nil, is invoked before every attempt so the
// caller can account for outbound calls. Backoff sleeps are cut short by ctx
// cancellation.
func (p Policy) Do(ctx context.Context, onAttempt func(attempt int), op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if onAttempt != nil {
			onAttempt(attempt)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !domainErrors.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", domainErrors.ErrRetriesExhausted, attempts, lastErr)
}
