// Package retry re-runs idempotent reads that fail with a retryable error.
package retry

import (
	"context"
	"time"
)

// Policy bounds the number of attempts and the initial backoff, which doubles per attempt.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Once runs the operation a single time.
var Once = Policy{Attempts: 1}

// Do calls fn until it succeeds, returns an error retryable rejects,
// the attempts are exhausted or ctx is done. The last error is returned.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	wait := p.Backoff

	var (
		res T
		err error
	)
	for i := 0; i < attempts; i++ {
		res, err = fn(ctx)
		if err == nil || !retryable(err) || i == attempts-1 {
			return res, err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res, err
		case <-timer.C:
		}
		wait *= 2
	}
	return res, err
}
