package cooldown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcoins/internal/models"
)

var policy = Policy{MaxFailures: 3, Cooldown: time.Minute}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func retryAfter(t *testing.T, err error) time.Duration {
	t.Helper()
	var rl *models.RateLimitError
	require.True(t, errors.As(err, &rl), "expected RateLimitError, got %v", err)
	return rl.RetryAfter
}

func TestMemoryGate(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := NewMemoryGate(policy, c.now)

	for i := 0; i < policy.MaxFailures-1; i++ {
		require.NoError(t, g.Record(ctx, "ana"))
		require.NoError(t, g.Allow(ctx, "ana"))
	}
	require.NoError(t, g.Record(ctx, "ana"))

	assert.Equal(t, time.Minute, retryAfter(t, g.Allow(ctx, "ana")))
	assert.NoError(t, g.Allow(ctx, "bia"), "keys are independent")

	c.advance(40 * time.Second)
	assert.Equal(t, 20*time.Second, retryAfter(t, g.Allow(ctx, "ana")))

	c.advance(20 * time.Second)
	assert.NoError(t, g.Allow(ctx, "ana"), "expiry returns the key to idle")

	require.NoError(t, g.Record(ctx, "ana"))
	assert.NoError(t, g.Allow(ctx, "ana"), "counting restarts after cooldown")
}

func TestMemoryGateReset(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGate(policy, nil)

	for i := 0; i < policy.MaxFailures; i++ {
		require.NoError(t, g.Record(ctx, "ana"))
	}
	assert.Error(t, g.Allow(ctx, "ana"))

	require.NoError(t, g.Reset(ctx, "ana"))
	assert.NoError(t, g.Allow(ctx, "ana"))
}

func TestRedisGate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	g := NewRedisGate(client, "signin", policy)

	for i := 0; i < policy.MaxFailures-1; i++ {
		require.NoError(t, g.Record(ctx, "ana"))
		require.NoError(t, g.Allow(ctx, "ana"))
	}
	require.NoError(t, g.Record(ctx, "ana"))

	wait := retryAfter(t, g.Allow(ctx, "ana"))
	assert.InDelta(t, time.Minute.Seconds(), wait.Seconds(), 1)
	assert.NoError(t, g.Allow(ctx, "bia"))

	mr.FastForward(61 * time.Second)
	assert.NoError(t, g.Allow(ctx, "ana"))
}

func TestRedisGateReset(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	g := NewRedisGate(client, "signup", policy)
	for i := 0; i < policy.MaxFailures; i++ {
		require.NoError(t, g.Record(ctx, "ana"))
	}
	assert.Error(t, g.Allow(ctx, "ana"))

	require.NoError(t, g.Reset(ctx, "ana"))
	assert.NoError(t, g.Allow(ctx, "ana"))
	assert.False(t, mr.Exists("signup:ana:failures"))
}

func TestGatesAgree(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	gates := map[string]Gate{
		"memory": NewMemoryGate(policy, c.now),
		"redis":  NewRedisGate(client, "signin", policy),
	}
	advance := func(d time.Duration) {
		c.advance(d)
		mr.FastForward(d)
	}

	steps := []struct {
		name    string
		advance time.Duration
		records int
		locked  bool
	}{
		{name: "failures below the limit", records: policy.MaxFailures - 1},
		{name: "old failures are forgotten", advance: 24 * time.Hour, records: 1},
		{name: "limit inside one window", advance: 10 * time.Second, records: policy.MaxFailures - 1, locked: true},
		{name: "cooldown still running", advance: 30 * time.Second, locked: true},
		{name: "cooldown over", advance: 31 * time.Second},
		{name: "counting restarts", records: 1},
	}

	for _, step := range steps {
		advance(step.advance)
		for name, g := range gates {
			for i := 0; i < step.records; i++ {
				require.NoError(t, g.Record(ctx, "ana"), "%s: %s", step.name, name)
			}
			err := g.Allow(ctx, "ana")
			if step.locked {
				assert.Error(t, err, "%s: %s", step.name, name)
			} else {
				assert.NoError(t, err, "%s: %s", step.name, name)
			}
		}
	}
}

func TestRedisGateUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	g := NewRedisGate(client, "signin", policy)
	err = g.Allow(context.Background(), "ana")
	require.Error(t, err)
	var rl *models.RateLimitError
	assert.False(t, errors.As(err, &rl), "infrastructure errors are not rate limits")
}

func TestNop(t *testing.T) {
	var g Gate = Nop{}
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, g.Record(ctx, "x"))
	}
	assert.NoError(t, g.Allow(ctx, "x"))
}
