// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/tasker/internal/platform/sec"
)

// # Authentication Constraints

const (
	// MaxLoginAttempts is the number of failures that locks an email.
	MaxLoginAttempts = 5

	// LockoutDuration is how long a locked email stays locked; it is also the
	// lifetime of the lockout record itself.
	LockoutDuration = 15 * time.Minute

	// SessionTTL is the lifetime of a session record.
	SessionTTL = 7 * 24 * time.Hour

	// RefreshRecordTTL matches the refresh token lifetime.
	RefreshRecordTTL = sec.RefreshTokenTTL

	// AccessTokenExpiresIn is the "expires_in" value of every token response, in seconds.
	AccessTokenExpiresIn = int(sec.AccessTokenTTL / time.Second)

	// MinPasswordLength is the first rule of the password policy.
	MinPasswordLength = 8

	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72

	// MaxNameLength bounds the display name accepted at registration.
	MaxNameLength = 100
)

// Cache values.
const (
	sessionMarker     = "1"
	refreshValidFlag  = "valid"
	blacklistedMarker = "1"
)

// decoyPassword is hashed once and compared against when the email is unknown.
const decoyPassword = "decoy-password-never-issued"

