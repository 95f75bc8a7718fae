package usecase

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
)

const (
	defaultRetryAttempts = 3
	retryBaseDelay       = 20 * time.Millisecond
)

// retrier repeats operations that lost an optimistic-concurrency race.
type retrier struct {
	attempts int
	delay    time.Duration
}

func newRetrier(attempts int) retrier {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	return retrier{attempts: attempts, delay: retryBaseDelay}
}

// do runs fn until it succeeds, fails with a non-retryable error, or the budget is spent.
// An exhausted budget surfaces ErrTryAgain.
func (r retrier) do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = fn(ctx); err == nil || !domainErrors.IsRetryable(err) {
			return err
		}
		if attempt == r.attempts {
			break
		}
		select {
		case <-time.After(r.delay * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", domainErrors.ErrTryAgain, err)
}
