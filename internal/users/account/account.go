// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account serves the user profile endpoints.

Every route runs behind the authorization pipeline: listing needs a staff role
and the users:read permission, a single profile needs ownership (staff
bypass), and all of them share the 2 requests per 10 seconds guard.

# Architecture

  - Entities: Profile, the public projection of an account.
  - Ownership: the service resolves the owner of a profile for the pipeline;
    the owner of user X is X.
*/
package account

import (
	"context"
	"errors"
	"time"

	"github.com/taibuivan/tasker/internal/platform/sec"
	"github.com/taibuivan/tasker/pkg/pagination"
)

// ErrAccountNotFound is returned by an [AccountRepository] when no row matches.
var ErrAccountNotFound = errors.New("account: not found")

// Profile is the public view of an account. It never carries the hash.
type Profile struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Role      sec.UserRole `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// AccountRepository defines the persistence contract for profiles.
type AccountRepository interface {
	/*
		FindByID retrieves one profile.

		Returns:
		  - *Profile: Loaded profile
		  - error: [ErrAccountNotFound] or storage failures
	*/
	FindByID(ctx context.Context, id string) (*Profile, error)

	/*
		List returns one page of profiles ordered by creation time and the total count.
	*/
	List(ctx context.Context, page pagination.Params) ([]Profile, int, error)

	/*
		UpdateName changes the display name and returns the updated profile.

		Returns:
		  - error: [ErrAccountNotFound] or storage failures
	*/
	UpdateName(ctx context.Context, id, name string) (*Profile, error)
}
