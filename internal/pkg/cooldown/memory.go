package cooldown

import (
	"context"
	"sync"
	"time"

	"ifcoins/internal/models"
)

// state counts failures inside the window opened by the first one. A non-zero
// expiry marks an active cooldown.
type state struct {
	failures    int
	windowStart time.Time
	expiry      time.Time
}

// MemoryGate keeps gate state in process memory.
type MemoryGate struct {
	policy Policy
	now    func() time.Time

	mu    sync.Mutex
	state map[string]state
}

// NewMemoryGate returns a MemoryGate. A nil now uses time.Now.
func NewMemoryGate(p Policy, now func() time.Time) *MemoryGate {
	if now == nil {
		now = time.Now
	}
	return &MemoryGate{policy: p, now: now, state: make(map[string]state)}
}

func (g *MemoryGate) Allow(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.state[key]
	if !ok {
		return nil
	}
	now := g.now()
	st = g.expire(st, now)
	if st.expiry.IsZero() {
		if st.failures == 0 {
			delete(g.state, key)
		} else {
			g.state[key] = st
		}
		return nil
	}
	return &models.RateLimitError{RetryAfter: st.expiry.Sub(now)}
}

// Record counts a failure. Failures older than one cooldown are forgotten, and
// reaching the limit starts a cooldown and clears the count, the way RedisGate does.
func (g *MemoryGate) Record(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	st := g.expire(g.state[key], now)
	if st.failures == 0 {
		st.windowStart = now
	}
	st.failures++
	if st.failures >= g.policy.MaxFailures {
		if st.expiry.IsZero() {
			st.expiry = now.Add(g.policy.Cooldown)
		}
		st.failures = 0
		st.windowStart = time.Time{}
	}
	g.state[key] = st
	return nil
}

// expire drops a finished cooldown and a failure window older than the cooldown.
func (g *MemoryGate) expire(st state, now time.Time) state {
	if !st.expiry.IsZero() && !now.Before(st.expiry) {
		st.expiry = time.Time{}
	}
	if st.failures > 0 && !now.Before(st.windowStart.Add(g.policy.Cooldown)) {
		st.failures = 0
		st.windowStart = time.Time{}
	}
	return st
}

func (g *MemoryGate) Reset(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.state, key)
	return nil
}
