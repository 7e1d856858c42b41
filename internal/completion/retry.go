package completion

import (
	"context"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 30 * time.Second
)

// RetryPolicy decides how many attempts a completion gets and how long to
// wait between them. Sleep is swapped out in tests to avoid real waits.
type RetryPolicy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// ConstantDelay waits the same duration before every retry.
func ConstantDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// DefaultRetryPolicy returns three attempts spaced thirty seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		Delay:       ConstantDelay(defaultRetryDelay),
		Sleep:       SleepContext,
	}
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Delay == nil {
		p.Delay = ConstantDelay(defaultRetryDelay)
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	return p
}
