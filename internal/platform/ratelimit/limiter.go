// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements the distributed fixed-window counter shared by the
authorization pipeline and the request-rate guard.

A window starts on the first hit of a key and ends when the key expires; later
hits never extend it. All state lives in the cache so that every replica sees
the same counts.
*/
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taibuivan/tasker/internal/platform/cache"
	"github.com/taibuivan/tasker/internal/platform/constants"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

// Rule is a ceiling of Limit hits per Window.
type Rule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRule is used by guards mounted without an explicit rule.
var DefaultRule = Rule{Limit: constants.DefaultGuardMaxRequests, Window: constants.DefaultGuardWindow}

// Result is the state of a window after a hit.
type Result struct {
	Count      int64
	Limit      int64
	Remaining  int64
	Reset      time.Time
	RetryAfter time.Duration
	Allowed    bool
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum one.
func (r Result) RetryAfterSeconds() int64 {
	seconds := int64((r.RetryAfter + time.Second - 1) / time.Second)
	return max(seconds, 1)
}

// Limiter counts hits per key on a [cache.Store].
type Limiter struct {
	store cache.Store
	now   func() time.Time
}

// NewLimiter creates a Limiter on store.
func NewLimiter(store cache.Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// WithClock returns a copy of the limiter that reads time from now.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	return &Limiter{store: l.store, now: now}
}

// Hit records one request against key and reports whether it fits the rule.
func (l *Limiter) Hit(ctx context.Context, key string, rule Rule) (Result, error) {
	count, err := l.store.Increment(ctx, key, 1, rule.Window)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit_hit_failed: %w", err)
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit_ttl_failed: %w", err)
	}

	return l.result(count, ttl, rule), nil
}

// Peek returns the current window state of key without counting a hit.
func (l *Limiter) Peek(ctx context.Context, key string, rule Rule) (Result, error) {
	var count int64

	raw, err := l.store.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrMiss):
	case err != nil:
		return Result{}, fmt.Errorf("ratelimit_peek_failed: %w", err)
	default:
		if count, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Result{}, fmt.Errorf("ratelimit_peek_failed: corrupt counter: %w", err)
		}
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit_ttl_failed: %w", err)
	}

	result := l.result(count, ttl, rule)
	if count == 0 {
		result.Reset = l.now()
	}
	return result, nil
}

// Reset discards the window of key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("ratelimit_reset_failed: %w", err)
	}
	return nil
}

func (l *Limiter) result(count int64, ttl time.Duration, rule Rule) Result {
	// A key that expired between INCR and PTTL belongs to a window that just ended.
	if ttl <= 0 {
		ttl = rule.Window
	}

	result := Result{
		Count:     count,
		Limit:     rule.Limit,
		Remaining: max(0, rule.Limit-count),
		Reset:     l.now().Add(ttl),
		Allowed:   count <= rule.Limit,
	}
	if !result.Allowed {
		result.RetryAfter = ttl
	}
	return result
}

// # Keys

// EndpointKey is the pipeline counter of one user on one endpoint:
// "rate_limit:<userID>:<METHOD>:<route>".
func EndpointKey(userID, method, route string) string {
	return cache.Key(constants.CacheKeyRateLimit, userID, method, route)
}

// ClientKey is the guard counter of a client fingerprint:
// "rate_limit:<sha256(ip:userAgent:userID|anonymous)>".
func ClientKey(client sec.Client, userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return cache.Key(constants.CacheKeyRateLimit, sec.HashToken(client.IP+":"+client.UserAgent+":"+userID))
}
