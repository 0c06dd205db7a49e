// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/tasker/internal/platform/cache"
	"github.com/taibuivan/tasker/internal/platform/constants"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

// CacheRepository implements the session, refresh-token, lockout and blacklist
// repositories on a [cache.Store].
type CacheRepository struct {
	store cache.Store
}

var (
	_ SessionRepository      = (*CacheRepository)(nil)
	_ RefreshTokenRepository = (*CacheRepository)(nil)
	_ LockoutRepository      = (*CacheRepository)(nil)
	_ BlacklistRepository    = (*CacheRepository)(nil)
)

// NewCacheRepository creates a CacheRepository.
func NewCacheRepository(store cache.Store) *CacheRepository {
	return &CacheRepository{store: store}
}

// # Keys

func sessionKey(userID, sessionID string) string {
	return cache.Key(constants.CacheKeySession, userID, sessionID)
}

func refreshFlagKey(userID string) string {
	return cache.Key(constants.CacheKeyRefreshToken, userID)
}

func refreshHashKey(userID string) string {
	return cache.Key(constants.CacheKeyRefreshTokenHash, userID)
}

func lockoutKey(email string) string {
	return cache.Key(constants.CacheKeyLockout, email)
}

// Raw tokens never reach the cache; the blacklist is keyed by their digest.
func blacklistKey(token string) string {
	return cache.Key(constants.CacheKeyBlacklist, sec.HashToken(token))
}

// # Sessions

// CreateSession writes the presence marker of (userID, sessionID).
func (repository *CacheRepository) CreateSession(context context.Context, userID, sessionID string, ttl time.Duration) error {
	if err := repository.store.Set(context, sessionKey(userID, sessionID), sessionMarker, ttl); err != nil {
		return fmt.Errorf("cache_session_create_failed: %w", err)
	}
	return nil
}

// SessionExists reports whether (userID, sessionID) is live.
func (repository *CacheRepository) SessionExists(context context.Context, userID, sessionID string) (bool, error) {
	exists, err := repository.store.Exists(context, sessionKey(userID, sessionID))
	if err != nil {
		return false, fmt.Errorf("cache_session_exists_failed: %w", err)
	}
	return exists, nil
}

// DeleteSession revokes (userID, sessionID).
func (repository *CacheRepository) DeleteSession(context context.Context, userID, sessionID string) error {
	if err := repository.store.Delete(context, sessionKey(userID, sessionID)); err != nil {
		return fmt.Errorf("cache_session_delete_failed: %w", err)
	}
	return nil
}

// # Refresh Tokens

// StoreRefresh writes the flag and the hash of the user's current refresh token
// together, so neither can outlive the other.
func (repository *CacheRepository) StoreRefresh(context context.Context, userID, tokenHash string, ttl time.Duration) error {
	entries := map[string]string{
		refreshFlagKey(userID): refreshValidFlag,
		refreshHashKey(userID): tokenHash,
	}
	if err := repository.store.SetMany(context, entries, ttl); err != nil {
		return fmt.Errorf("cache_refresh_store_failed: %w", err)
	}
	return nil
}

// ConsumeRefresh is the rotation point: the record is deleted only when the
// presented hash matches.
func (repository *CacheRepository) ConsumeRefresh(context context.Context, userID, tokenHash string, notAfter, now time.Time) (cache.Consume, error) {
	result, err := repository.store.CompareAndConsume(context, refreshFlagKey(userID), refreshHashKey(userID), tokenHash, notAfter, now)
	if err != nil {
		return cache.ConsumeMissing, fmt.Errorf("cache_refresh_consume_failed: %w", err)
	}
	return result, nil
}

// DeleteRefresh removes the flag and hash.
func (repository *CacheRepository) DeleteRefresh(context context.Context, userID string) error {
	if err := repository.store.Delete(context, refreshFlagKey(userID), refreshHashKey(userID)); err != nil {
		return fmt.Errorf("cache_refresh_delete_failed: %w", err)
	}
	return nil
}

// # Lockout

// lockoutPayload mirrors the JSON written by the threshold script.
type lockoutPayload struct {
	Attempts    int64 `json:"attempts"`
	LockedUntil int64 `json:"lockedUntil"`
}

// GetLockout returns the counter of email; a missing record is the zero value.
func (repository *CacheRepository) GetLockout(context context.Context, email string) (LockoutRecord, error) {
	raw, err := repository.store.Get(context, lockoutKey(email))
	if errors.Is(err, cache.ErrMiss) {
		return LockoutRecord{}, nil
	}
	if err != nil {
		return LockoutRecord{}, fmt.Errorf("cache_lockout_get_failed: %w", err)
	}

	var payload lockoutPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return LockoutRecord{}, fmt.Errorf("cache_lockout_decode_failed: %w", err)
	}

	record := LockoutRecord{Attempts: payload.Attempts}
	if payload.LockedUntil > 0 {
		record.LockedUntil = time.UnixMilli(payload.LockedUntil)
	}
	return record, nil
}

// RecordFailure counts one failed login in a single atomic step.
func (repository *CacheRepository) RecordFailure(context context.Context, email string, now time.Time) (LockoutRecord, error) {
	state, err := repository.store.IncrementWithThreshold(context, lockoutKey(email), MaxLoginAttempts, LockoutDuration, LockoutDuration, now)
	if err != nil {
		return LockoutRecord{}, fmt.Errorf("cache_lockout_record_failed: %w", err)
	}
	return LockoutRecord{Attempts: state.Count, LockedUntil: state.LockedUntil}, nil
}

// ClearLockout deletes the counter of email.
func (repository *CacheRepository) ClearLockout(context context.Context, email string) error {
	if err := repository.store.Delete(context, lockoutKey(email)); err != nil {
		return fmt.Errorf("cache_lockout_clear_failed: %w", err)
	}
	return nil
}

// # Blacklist

// Blacklist marks token as revoked for ttl.
func (repository *CacheRepository) Blacklist(context context.Context, token string, ttl time.Duration) error {
	if err := repository.store.Set(context, blacklistKey(token), blacklistedMarker, ttl); err != nil {
		return fmt.Errorf("cache_blacklist_set_failed: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether token was explicitly revoked.
func (repository *CacheRepository) IsBlacklisted(context context.Context, token string) (bool, error) {
	exists, err := repository.store.Exists(context, blacklistKey(token))
	if err != nil {
		return false, fmt.Errorf("cache_blacklist_exists_failed: %w", err)
	}
	return exists, nil
}
