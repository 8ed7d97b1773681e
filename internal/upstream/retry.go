package upstream

import (
	"context"
	"time"
)

// RetryPolicy controls repeated upstream attempts. It is a plain value so
// tests can inject a predicate and a fake sleeper.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is 3 attempts with 1s, 2s, 4s exponential backoff,
// retrying only server-side failures and connection resets.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Retryable:   DefaultRetryable,
		Sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn up to MaxAttempts times. The delay before retry n is
// BaseDelay·2^(n-1). Non-retryable failures and the final exhausted
// attempt's error propagate as-is. onRetry, if set, fires before each
// backoff sleep.
func (p RetryPolicy) Do(ctx context.Context, fn func() error, onRetry func(attempt int, delay time.Duration)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt == attempts-1 || p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		delay := p.BaseDelay << attempt
		if onRetry != nil {
			onRetry(attempt+1, delay)
		}
		if p.Sleep != nil {
			if serr := p.Sleep(ctx, delay); serr != nil {
				return err
			}
		}
	}
}
