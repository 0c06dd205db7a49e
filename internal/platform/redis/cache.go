// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	stdctx "context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/tasker/internal/platform/cache"
)

// DefaultOpTimeout bounds a single cache round trip when none is configured.
const DefaultOpTimeout = 2 * time.Second

// # Lua Scripts

// incrementScript adds ARGV[1] and applies the window ttl (ms) only when the key
// was created by this call. A counter that somehow lost its expiry gets it back.
var incrementScript = redis.NewScript(`
local count = redis.call("INCRBY", KEYS[1], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  if count == tonumber(ARGV[1]) or redis.call("PTTL", KEYS[1]) == -1 then
    redis.call("PEXPIRE", KEYS[1], ttl)
  end
end
return count
`)

// thresholdScript records one failure against a {attempts, lockedUntil} record.
//
// ARGV: threshold, lockMs, ttlMs, nowMs. Returns {attempts, lockedUntil}.
var thresholdScript = redis.NewScript(`
local attempts = 0
local locked = 0
local raw = redis.call("GET", KEYS[1])
if raw then
  local ok, record = pcall(cjson.decode, raw)
  if ok and type(record) == "table" then
    attempts = tonumber(record.attempts) or 0
    locked = tonumber(record.lockedUntil) or 0
  end
end

local now = tonumber(ARGV[4])
if locked > 0 and now >= locked then
  attempts = 0
  locked = 0
end

attempts = attempts + 1
if attempts >= tonumber(ARGV[1]) and locked == 0 then
  locked = now + tonumber(ARGV[2])
end

redis.call("SET", KEYS[1], string.format('{"attempts":%d,"lockedUntil":%d}', attempts, locked), "PX", ARGV[3])
return {attempts, locked}
`)

// consumeScript is the single rotation point of a guarded value.
//
// ARGV: expected, notAfterMs, nowMs.
// Returns 0 missing, 1 mismatch, 2 expired (deleted), 3 ok (deleted).
var consumeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end

local stored = redis.call("GET", KEYS[2])
if not stored or stored ~= ARGV[1] then
  return 1
end

redis.call("DEL", KEYS[1], KEYS[2])
if tonumber(ARGV[3]) > tonumber(ARGV[2]) then
  return 2
end
return 3
`)

// # Cache

// Cache implements [cache.Store] on Redis. Every key is namespaced under
// prefix and every call runs under its own short timeout.
type Cache struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

var _ cache.Store = (*Cache)(nil)

// NewCache creates a Cache.
//
// Parameters:
//   - client: any go-redis client (single node, sentinel or cluster)
//   - prefix: application namespace, e.g. "app"
//   - timeout: per-operation deadline, [DefaultOpTimeout] when zero
func NewCache(client redis.UniversalClient, prefix string, timeout time.Duration) *Cache {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &Cache{client: client, prefix: prefix, timeout: timeout}
}

func (c *Cache) key(key string) string {
	return cache.Key(c.prefix, key)
}

func (c *Cache) op(context stdctx.Context) (stdctx.Context, stdctx.CancelFunc) {
	return stdctx.WithTimeout(context, c.timeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", cache.ErrUnavailable, err)
}

// Get returns the value at key or [cache.ErrMiss].
func (c *Cache) Get(context stdctx.Context, key string) (string, error) {
	context, cancel := c.op(context)
	defer cancel()

	value, err := c.client.Get(context, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrMiss
	}
	if err != nil {
		return "", unavailable(err)
	}
	return value, nil
}

// Set writes value with ttl. A zero ttl stores the key without expiry.
func (c *Cache) Set(context stdctx.Context, key, value string, ttl time.Duration) error {
	context, cancel := c.op(context)
	defer cancel()

	if err := c.client.Set(context, c.key(key), value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// SetMany writes entries inside MULTI/EXEC so they land and expire together.
func (c *Cache) SetMany(context stdctx.Context, entries map[string]string, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}

	context, cancel := c.op(context)
	defer cancel()

	_, err := c.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(context, c.key(key), value, ttl)
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Delete removes keys in one round trip.
func (c *Cache) Delete(context stdctx.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	context, cancel := c.op(context)
	defer cancel()

	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = c.key(key)
	}

	if err := c.client.Del(context, namespaced...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Increment adds by to the counter at key; the window ttl is only set on creation.
func (c *Cache) Increment(context stdctx.Context, key string, by int64, ttl time.Duration) (int64, error) {
	context, cancel := c.op(context)
	defer cancel()

	count, err := incrementScript.Run(context, c.client, []string{c.key(key)}, by, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

// Exists reports whether key is present.
func (c *Cache) Exists(context stdctx.Context, key string) (bool, error) {
	context, cancel := c.op(context)
	defer cancel()

	count, err := c.client.Exists(context, c.key(key)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return count == 1, nil
}

// TTL returns the remaining lifetime of key, zero when absent or persistent.
func (c *Cache) TTL(context stdctx.Context, key string) (time.Duration, error) {
	context, cancel := c.op(context)
	defer cancel()

	ttl, err := c.client.PTTL(context, c.key(key)).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	// PTTL answers -2 (missing) and -1 (no expiry) as raw negative durations.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Expire sets a new ttl and reports whether key existed.
func (c *Cache) Expire(context stdctx.Context, key string, ttl time.Duration) (bool, error) {
	context, cancel := c.op(context)
	defer cancel()

	ok, err := c.client.PExpire(context, c.key(key), ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// IncrementWithThreshold records one hit against a lockout record atomically.
func (c *Cache) IncrementWithThreshold(context stdctx.Context, key string, threshold int64, lockFor, ttl time.Duration, now time.Time) (cache.Threshold, error) {
	context, cancel := c.op(context)
	defer cancel()

	values, err := thresholdScript.Run(context, c.client, []string{c.key(key)},
		threshold, lockFor.Milliseconds(), ttl.Milliseconds(), now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return cache.Threshold{}, unavailable(err)
	}
	if len(values) != 2 {
		return cache.Threshold{}, unavailable(fmt.Errorf("unexpected threshold reply of %d values", len(values)))
	}

	result := cache.Threshold{Count: values[0]}
	if values[1] > 0 {
		result.LockedUntil = time.UnixMilli(values[1])
	}
	return result, nil
}

// CompareAndConsume deletes guardKey and valueKey when valueKey holds expected.
func (c *Cache) CompareAndConsume(context stdctx.Context, guardKey, valueKey, expected string, notAfter, now time.Time) (cache.Consume, error) {
	context, cancel := c.op(context)
	defer cancel()

	status, err := consumeScript.Run(context, c.client, []string{c.key(guardKey), c.key(valueKey)},
		expected, notAfter.UnixMilli(), now.UnixMilli(),
	).Int64()
	if err != nil {
		return cache.ConsumeMissing, unavailable(err)
	}

	switch status {
	case 0:
		return cache.ConsumeMissing, nil
	case 1:
		return cache.ConsumeMismatch, nil
	case 2:
		return cache.ConsumeExpired, nil
	case 3:
		return cache.ConsumeOK, nil
	default:
		return cache.ConsumeMissing, unavailable(errors.New("unexpected consume status " + strconv.FormatInt(status, 10)))
	}
}

// Ping verifies connectivity under the cache timeout.
func (c *Cache) Ping(context stdctx.Context) error {
	context, cancel := c.op(context)
	defer cancel()

	if err := c.client.Ping(context).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
