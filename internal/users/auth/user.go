// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements credential login, registration, brute-force lockout,
session bookkeeping and refresh-token rotation.

# Architecture

  - Service: Orchestrates the login, register, refresh and logout use cases.
  - UserDirectory: Authoritative account lookup (PostgreSQL).
  - CacheRepository: Sessions, refresh-token records, lockout counters and the
    access-token blacklist, all on the shared [cache.Store].
  - Handler: The /auth HTTP surface.

Every piece of mutable security state lives in the cache, so the service holds
no per-process state and can be replicated freely.
*/
package auth

import (
	"time"

	"github.com/taibuivan/tasker/internal/platform/sec"
)

// # Domain Entities

// User is a registered account as stored in the directory.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Name         string       `json:"name"`
	Role         sec.UserRole `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PublicUser is the projection returned to clients. It never carries the hash.
type PublicUser struct {
	ID    string       `json:"id"`
	Email string       `json:"email"`
	Name  string       `json:"name"`
	Role  sec.UserRole `json:"role"`
}

// Public returns the client-safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Subject returns the account data embedded into tokens.
func (u *User) Subject() sec.TokenSubject {
	return sec.TokenSubject{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// # Results

// AuthResult is returned by login and registration.
type AuthResult struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
	User         PublicUser `json:"user"`
}

// RefreshResult is returned by a successful rotation.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// LockoutRecord is the brute-force counter of one email.
type LockoutRecord struct {
	Attempts    int64
	LockedUntil time.Time
}

// Locked reports whether logins for the email are rejected at now.
func (r LockoutRecord) Locked(now time.Time) bool {
	return r.Attempts >= MaxLoginAttempts && !r.LockedUntil.IsZero() && now.Before(r.LockedUntil)
}

// # Field Identifiers

const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldName         = "name"
	FieldRefreshToken = "refresh_token"
)
