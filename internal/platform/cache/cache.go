// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cache defines the atomic key-value contract every security counter and
session record in Tasker is stored behind.

The cache is the single source of truth for mutable security state (sessions,
refresh-token records, lockout counters, rate-limit windows). Nothing in this
process keeps a private copy of that state, so any number of API replicas can
run against the same backend.

Architecture:

  - Store: generic GET/SET/DEL/INCR/EXISTS/TTL/EXPIRE with per-key TTL.
  - Atomic primitives: [Store.IncrementWithThreshold] and [Store.CompareAndConsume]
    replace read-compute-write sequences that would otherwise race across replicas.
  - Keys: [Key] joins segments; the backend adds the application prefix.
*/
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMiss is returned by [Store.Get] when the key does not exist.
	ErrMiss = errors.New("cache: key not found")

	// ErrUnavailable wraps every backend failure. Security checks treat it as a deny.
	ErrUnavailable = errors.New("cache: backend unavailable")
)

// # Atomic Results

// Threshold is the state of a threshold counter after [Store.IncrementWithThreshold].
type Threshold struct {
	// Count is the number of hits recorded in the current budget.
	Count int64
	// LockedUntil is the end of the active lock, zero when not locked.
	LockedUntil time.Time
}

// Locked reports whether the lock is still active at now.
func (t Threshold) Locked(now time.Time) bool {
	return !t.LockedUntil.IsZero() && now.Before(t.LockedUntil)
}

// Consume is the outcome of [Store.CompareAndConsume].
type Consume int

const (
	// ConsumeMissing means the guard key was absent (revoked, consumed or never written).
	ConsumeMissing Consume = iota
	// ConsumeMismatch means the stored value was absent or differed from the expected one.
	ConsumeMismatch
	// ConsumeExpired means the value matched but the deadline had passed; both keys were deleted.
	ConsumeExpired
	// ConsumeOK means the value matched and both keys were deleted.
	ConsumeOK
)

// String implements fmt.Stringer for log attributes.
func (c Consume) String() string {
	switch c {
	case ConsumeMissing:
		return "missing"
	case ConsumeMismatch:
		return "mismatch"
	case ConsumeExpired:
		return "expired"
	case ConsumeOK:
		return "ok"
	default:
		return "unknown"
	}
}

// # Contract

// Store is the atomic key-value abstraction consumed by the auth core.
//
// All keys passed in are relative; implementations namespace them under an
// application prefix. A zero ttl means "no expiry".
type Store interface {
	// Get returns the value at key, or [ErrMiss].
	Get(ctx context.Context, key string) (string, error)

	// Set writes value at key with the given ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetMany writes every entry with the same ttl in one atomic step.
	SetMany(ctx context.Context, entries map[string]string, ttl time.Duration) error

	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Increment adds by to the integer at key and returns the new value. The ttl is
	// applied only when this call created the key, so later increments inside the
	// same window never extend it.
	Increment(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining lifetime of key, or zero when the key is absent
	// or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Expire sets a new ttl on an existing key and reports whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IncrementWithThreshold atomically records one hit against a threshold counter.
	//
	// A lock that ended before now restarts the budget from zero. When the count
	// reaches threshold the lock is set to now+lockFor. The record is rewritten
	// with ttl.
	IncrementWithThreshold(ctx context.Context, key string, threshold int64, lockFor, ttl time.Duration, now time.Time) (Threshold, error)

	// CompareAndConsume atomically deletes guardKey and valueKey when guardKey exists,
	// valueKey holds expected, and now is not after notAfter.
	CompareAndConsume(ctx context.Context, guardKey, valueKey, expected string, notAfter, now time.Time) (Consume, error)
}

// Key joins key segments with the ':' separator.
//
// Example:
//
//	cache.Key("session", userID, sid) // "session:<userID>:<sid>"
func Key(segments ...string) string {
	return strings.Join(segments, ":")
}
