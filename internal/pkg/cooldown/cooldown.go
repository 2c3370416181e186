// Package cooldown implements the attempt gate used by sign-in and sign-up.
// A key is Idle until Policy.MaxFailures attempts are recorded, then enters
// Cooldown until its expiry; calls are rejected with a RateLimitError until
// the expiry has passed, after which the key is Idle again.
package cooldown

import (
	"context"
	"time"
)

// Policy configures when a key enters cooldown and for how long.
type Policy struct {
	MaxFailures int
	Cooldown    time.Duration
}

// Gate tracks attempts per key.
type Gate interface {
	// Allow returns a *models.RateLimitError while key is cooling down.
	Allow(ctx context.Context, key string) error
	// Record counts an attempt against key, entering cooldown at the limit.
	Record(ctx context.Context, key string) error
	// Reset returns key to Idle.
	Reset(ctx context.Context, key string) error
}

// Nop is a Gate that never rejects.
type Nop struct{}

func (Nop) Allow(context.Context, string) error  { return nil }
func (Nop) Record(context.Context, string) error { return nil }
func (Nop) Reset(context.Context, string) error  { return nil }
