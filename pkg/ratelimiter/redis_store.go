package ratelimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// armScript keeps the window end, in unix milliseconds, as the key's value.
// The caller's clock decides whether it has elapsed; the key TTL only lets
// Redis drop windows nobody asks about again.
var armScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return {0, cur}
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return {1, ARGV[2]}
`)

// RedisStore implements Store on Redis. Window ends are compared against
// the time passed to Arm, never against the Redis server clock.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) Arm(ctx context.Context, key string, now time.Time, window time.Duration) (time.Time, bool, error) {
	next := now.Add(window)
	ttl := max(window.Milliseconds(), 1)

	res, err := armScript.Run(ctx, rs.client, []string{key},
		now.UnixMilli(), next.UnixMilli(), ttl).Slice()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("arm cooldown: %w", err)
	}
	if len(res) != 2 {
		return time.Time{}, false, fmt.Errorf("arm cooldown: unexpected reply %v", res)
	}

	armed, _ := res[0].(int64)
	if armed == 1 {
		return next, true, nil
	}
	end, err := strconv.ParseInt(fmt.Sprint(res[1]), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse cooldown window: %w", err)
	}
	return time.UnixMilli(end), false, nil
}

func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset cooldown: %w", err)
	}
	return nil
}

// Healthcheck pings Redis.
func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}
