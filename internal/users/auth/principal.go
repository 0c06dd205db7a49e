// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/taibuivan/tasker/internal/authz"
)

// PrincipalLookup exposes a [UserDirectory] to the authorization pipeline.
type PrincipalLookup struct {
	users UserDirectory
}

// NewPrincipalLookup wraps users as an [authz.UserLookup].
func NewPrincipalLookup(users UserDirectory) *PrincipalLookup {
	return &PrincipalLookup{users: users}
}

// FindPrincipal implements authz.UserLookup.
func (lookup *PrincipalLookup) FindPrincipal(ctx context.Context, userID string) (*authz.Principal, error) {
	user, err := lookup.users.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, authz.ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("auth_principal_lookup_failed: %w", err)
	}

	return &authz.Principal{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}
