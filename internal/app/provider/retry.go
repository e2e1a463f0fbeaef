package provider

import (
	"context"
	"time"
)

// RetryPolicy bounds transport-level retries inside remote adapters.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy matches the remote adapters' fixed attempt budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		Multiplier:      2.0,
	}
}

// WithRetry runs fn up to the policy's attempt budget, sleeping with
// exponential backoff between attempts. Only retryable provider errors are
// retried; semantic failures and context cancellation return immediately.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	interval := policy.InitialInterval

	var err error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			interval = time.Duration(float64(interval) * policy.Multiplier)
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
	}
	return err
}
