package retry

import (
	"context"
	"time"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy retries an operation a fixed number of times with a fixed delay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       SleepFunc
	// OnFailure, when set, is called after every failed attempt.
	OnFailure func(attempt int, err error)
}

// Do runs fn until it succeeds or MaxAttempts is exhausted. It returns the
// number of attempts made and the last error. The delay is applied only
// between attempts.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var err error
	for attempt := 1; attempt <= max; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt, nil
		}
		if p.OnFailure != nil {
			p.OnFailure(attempt, err)
		}
		if attempt == max {
			return attempt, err
		}
		if serr := sleep(ctx, p.Delay); serr != nil {
			return attempt, err
		}
	}
	return max, err
}

// Sleep waits for d, returning early with ctx.Err() if ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
