// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/taibuivan/tasker/internal/platform/cache"
)

var (
	// ErrUserNotFound is returned by a [UserDirectory] when no account matches.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrEmailTaken is returned by [UserDirectory.Create] on a duplicate email.
	ErrEmailTaken = errors.New("auth: email already registered")
)

// # User Data Access

// UserDirectory is the authoritative account lookup.
type UserDirectory interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: [ErrUserNotFound] or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account registered under a normalized email.

		Returns:
		  - *User: Hydrated entity
		  - error: [ErrUserNotFound] or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new account.

		Returns:
		  - error: [ErrEmailTaken] on a duplicate email, or storage failures
	*/
	Create(context context.Context, user *User) error
}

// # Security State

// SessionRepository manages the per-device session records.
type SessionRepository interface {
	CreateSession(context context.Context, userID, sessionID string, ttl time.Duration) error
	SessionExists(context context.Context, userID, sessionID string) (bool, error)
	DeleteSession(context context.Context, userID, sessionID string) error
}

// RefreshTokenRepository manages the single active refresh token of a user.
type RefreshTokenRepository interface {
	// StoreRefresh writes the validity flag and the token hash with one ttl.
	StoreRefresh(context context.Context, userID, tokenHash string, ttl time.Duration) error

	// ConsumeRefresh atomically checks and deletes the record; see [cache.Store.CompareAndConsume].
	ConsumeRefresh(context context.Context, userID, tokenHash string, notAfter, now time.Time) (cache.Consume, error)

	// DeleteRefresh removes the record (logout).
	DeleteRefresh(context context.Context, userID string) error
}

// LockoutRepository manages the brute-force counters, keyed by normalized email.
type LockoutRepository interface {
	GetLockout(context context.Context, email string) (LockoutRecord, error)
	RecordFailure(context context.Context, email string, now time.Time) (LockoutRecord, error)
	ClearLockout(context context.Context, email string) error
}

// BlacklistRepository records explicitly revoked access tokens.
type BlacklistRepository interface {
	Blacklist(context context.Context, token string, ttl time.Duration) error
	IsBlacklisted(context context.Context, token string) (bool, error)
}
