// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/tasker/internal/platform/cache"
	"github.com/taibuivan/tasker/internal/platform/constants"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

const (
	// PermissionTTL is how long a derived permission set is memoized.
	PermissionTTL = 300 * time.Second

	// OwnershipTTL is how long a resolved owner is memoized.
	OwnershipTTL = 300 * time.Second
)

var (
	// ErrResourceNotFound is returned by an [OwnershipResolver] for an absent resource.
	ErrResourceNotFound = errors.New("authz: resource not found")

	// ErrNoOwnershipResolver denies ownership checks that cannot be verified.
	ErrNoOwnershipResolver = errors.New("authz: ownership cannot be verified")
)

// OwnershipResolver is the authoritative owner lookup consulted on a cache miss.
type OwnershipResolver interface {
	ResolveOwner(ctx context.Context, resourceID string) (ownerID string, err error)
}

// OwnershipResolverFunc adapts a function to [OwnershipResolver].
type OwnershipResolverFunc func(ctx context.Context, resourceID string) (string, error)

// ResolveOwner implements OwnershipResolver.
func (f OwnershipResolverFunc) ResolveOwner(ctx context.Context, resourceID string) (string, error) {
	return f(ctx, resourceID)
}

// # Permissions

func permissionsKey(userID string) string {
	return cache.Key(constants.CacheKeyPermissions, userID)
}

// permissions returns the memoized permission set of the principal, deriving it
// from the static role table on a miss. The cache never overrides the table
// for longer than PermissionTTL.
func (pipeline *Pipeline) permissions(ctx context.Context, principal *Principal) ([]string, error) {
	key := permissionsKey(principal.ID)

	raw, err := pipeline.cache.Get(ctx, key)
	switch {
	case err == nil:
		var permissions []string
		if json.Unmarshal([]byte(raw), &permissions) == nil {
			return permissions, nil
		}
		pipeline.log(ctx).WarnContext(ctx, "permission_cache_corrupt", slog.String("user_id", principal.ID))
	case !errors.Is(err, cache.ErrMiss):
		return nil, fmt.Errorf("authz_permissions_read_failed: %w", err)
	}

	permissions := sec.PermissionsFor(principal.Role)

	encoded, err := json.Marshal(permissions)
	if err != nil {
		return nil, fmt.Errorf("authz_permissions_encode_failed: %w", err)
	}
	if err := pipeline.cache.Set(ctx, key, string(encoded), PermissionTTL); err != nil {
		return nil, fmt.Errorf("authz_permissions_write_failed: %w", err)
	}

	return permissions, nil
}

// InvalidatePermissions drops the memoized set, e.g. after a role change.
func (pipeline *Pipeline) InvalidatePermissions(ctx context.Context, userID string) error {
	if err := pipeline.cache.Delete(ctx, permissionsKey(userID)); err != nil {
		return fmt.Errorf("authz_permissions_invalidate_failed: %w", err)
	}
	return nil
}

// # Ownership

func ownershipKey(resourceID string) string {
	return cache.Key(constants.CacheKeyOwnership, resourceID)
}

// owns reports whether userID owns resourceID.
//
// A cached owner is compared directly. On a miss the resolver decides and a
// found owner is written through. An absent resource is allowed so the handler
// can answer 404; a route without a resolver cannot verify and is denied.
func (pipeline *Pipeline) owns(ctx context.Context, policy Policy, userID, resourceID string) (bool, error) {
	key := ownershipKey(resourceID)

	owner, err := pipeline.cache.Get(ctx, key)
	if err == nil {
		return owner == userID, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		return false, fmt.Errorf("authz_ownership_read_failed: %w", err)
	}

	if policy.Owners == nil {
		return false, ErrNoOwnershipResolver
	}

	owner, err = policy.Owners.ResolveOwner(ctx, resourceID)
	if errors.Is(err, ErrResourceNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("authz_ownership_resolve_failed: %w", err)
	}

	if err := pipeline.cache.Set(ctx, key, owner, OwnershipTTL); err != nil {
		pipeline.log(ctx).WarnContext(ctx, "ownership_cache_write_failed", slog.Any("error", err))
	}

	return owner == userID, nil
}

// RecordOwnership memoizes the owner of a resource, e.g. right after creation.
func (pipeline *Pipeline) RecordOwnership(ctx context.Context, resourceID, ownerID string) error {
	if err := pipeline.cache.Set(ctx, ownershipKey(resourceID), ownerID, OwnershipTTL); err != nil {
		return fmt.Errorf("authz_ownership_record_failed: %w", err)
	}
	return nil
}
