package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ifcoins/internal/models"
)

// RedisGate keeps gate state in Redis so every instance of the service shares it.
// Failures are counted under <prefix>:<key>:failures for one cooldown window;
// reaching the limit sets <prefix>:<key>:until with the cooldown as TTL.
type RedisGate struct {
	client redis.Cmdable
	prefix string
	policy Policy
}

// NewRedisGate returns a RedisGate storing keys under prefix.
func NewRedisGate(client redis.Cmdable, prefix string, p Policy) *RedisGate {
	return &RedisGate{client: client, prefix: prefix, policy: p}
}

func (g *RedisGate) failuresKey(key string) string { return fmt.Sprintf("%s:%s:failures", g.prefix, key) }
func (g *RedisGate) untilKey(key string) string    { return fmt.Sprintf("%s:%s:until", g.prefix, key) }

func (g *RedisGate) Allow(ctx context.Context, key string) error {
	ttl, err := g.client.PTTL(ctx, g.untilKey(key)).Result()
	if err != nil {
		return fmt.Errorf("cooldown: ttl: %w", err)
	}
	// -2: no key, -1: no expiry. Neither is a cooldown.
	if ttl <= 0 {
		return nil
	}
	return &models.RateLimitError{RetryAfter: ttl}
}

func (g *RedisGate) Record(ctx context.Context, key string) error {
	fk := g.failuresKey(key)
	count, err := g.client.Incr(ctx, fk).Result()
	if err != nil {
		return fmt.Errorf("cooldown: incr: %w", err)
	}
	if count == 1 {
		if err := g.client.Expire(ctx, fk, g.policy.Cooldown).Err(); err != nil {
			return fmt.Errorf("cooldown: expire: %w", err)
		}
	}
	if count < int64(g.policy.MaxFailures) {
		return nil
	}

	pipe := g.client.TxPipeline()
	pipe.SetNX(ctx, g.untilKey(key), time.Now().Add(g.policy.Cooldown).UnixMilli(), g.policy.Cooldown)
	pipe.Del(ctx, fk)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cooldown: enter cooldown: %w", err)
	}
	return nil
}

func (g *RedisGate) Reset(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.failuresKey(key), g.untilKey(key)).Err(); err != nil {
		return fmt.Errorf("cooldown: reset: %w", err)
	}
	return nil
}
