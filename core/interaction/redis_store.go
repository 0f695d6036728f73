package interaction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// Sessions are stored as CBOR blobs under "{prefix}:<id>". A sorted set
// "{prefix}:deadlines" indexes ids by deadline in unix milliseconds. The
// hash tag keeps both keys in one cluster slot so the scripts stay atomic.

var putScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
return 1
`)

var claimScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
if not v then
	return false
end
redis.call('DEL', KEYS[1])
return v
`)

var claimExpiredScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	redis.call('ZREM', KEYS[2], ARGV[1])
	return {0}
end
local score = redis.call('ZSCORE', KEYS[2], ARGV[1])
if score and tonumber(score) > tonumber(ARGV[2]) then
	return {1}
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return {2, v}
`)

const (
	claimResultNotFound = 0
	claimResultLive     = 1
	claimResultClaimed  = 2
)

// RedisStore is a Store shared between processes. Sessions survive a
// restart between creation and resumption.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	enc       cbor.EncMode
	dec       cbor.DecMode
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.prefix = prefix
		}
	}
}

// WithRetention sets how long a session key outlives its deadline. The
// sweeper must claim an expired session within this window to notify the
// user; after it Redis drops the key on its own.
func WithRetention(d time.Duration) RedisStoreOption {
	return func(rs *RedisStore) {
		if d > 0 {
			rs.retention = d
		}
	}
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	enc, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("build cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("build cbor decoder: %w", err)
	}

	rs := &RedisStore{
		client:    client,
		prefix:    "keyverify:session",
		retention: 10 * time.Minute,
		enc:       enc,
		dec:       dec,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs, nil
}

func (rs *RedisStore) sessionKey(id string) string {
	return "{" + rs.prefix + "}:" + id
}

func (rs *RedisStore) indexKey() string {
	return "{" + rs.prefix + "}:deadlines"
}

func (rs *RedisStore) Put(ctx context.Context, s Session) error {
	if err := s.validate(); err != nil {
		return err
	}

	data, err := rs.enc.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	// CreatedAt and Deadline come from the manager's clock, so the key
	// lifetime does not depend on this host's wall clock.
	ttl := max(s.Deadline.Sub(s.CreatedAt)+rs.retention, time.Millisecond)

	res, err := putScript.Run(ctx, rs.client,
		[]string{rs.sessionKey(s.ID), rs.indexKey()},
		data, ttl.Milliseconds(), s.Deadline.UnixMilli(), s.ID,
	).Int()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if res == 0 {
		return ErrDuplicateID
	}
	return nil
}

func (rs *RedisStore) Peek(ctx context.Context, id string) (Session, error) {
	data, err := rs.client.Get(ctx, rs.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, errors.Join(ErrStoreUnavailable, err)
	}
	return rs.decode(data)
}

func (rs *RedisStore) ClaimAndRemove(ctx context.Context, id string) (Session, error) {
	res, err := claimScript.Run(ctx, rs.client,
		[]string{rs.sessionKey(id), rs.indexKey()}, id,
	).Text()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, errors.Join(ErrStoreUnavailable, err)
	}
	return rs.decode([]byte(res))
}

func (rs *RedisStore) ClaimExpired(ctx context.Context, id string, now time.Time) (Session, error) {
	res, err := claimExpiredScript.Run(ctx, rs.client,
		[]string{rs.sessionKey(id), rs.indexKey()}, id, now.UnixMilli(),
	).Slice()
	if err != nil {
		return Session{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) == 0 {
		return Session{}, fmt.Errorf("%w: empty claim reply", ErrStoreUnavailable)
	}

	code, _ := res[0].(int64)
	switch code {
	case claimResultNotFound:
		return Session{}, ErrNotFound
	case claimResultLive:
		return Session{}, ErrNotExpired
	case claimResultClaimed:
		if len(res) < 2 {
			return Session{}, fmt.Errorf("%w: claim reply without payload", ErrStoreUnavailable)
		}
		data, _ := res[1].(string)
		return rs.decode([]byte(data))
	default:
		return Session{}, fmt.Errorf("%w: unexpected claim reply %d", ErrStoreUnavailable, code)
	}
}

func (rs *RedisStore) Expired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}

	ids, err := rs.client.ZRangeByScore(ctx, rs.indexKey(), by).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return ids, nil
}

// Healthcheck pings Redis.
func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) decode(data []byte) (Session, error) {
	var s Session
	if err := rs.dec.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
