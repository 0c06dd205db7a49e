// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Local flood-shield tuning and rate-limit response headers.
  - Security: JWT issuer, token classes and the cache key taxonomy.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "tasker-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// RateLimitCleanupInterval is how often idle entries are removed from the local throttle.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its local entry is deleted.
	RateLimitClientTTL = 3 * time.Minute

	// DefaultGuardWindow and DefaultGuardMaxRequests apply when a route mounts the
	// request-rate guard without its own rule.
	DefaultGuardWindow      = 2 * time.Second
	DefaultGuardMaxRequests = 2
)

// # Authentication

const (
	// AuthIssuer is the default 'iss' claim in JWTs.
	AuthIssuer = "tasker.app"

	// TokenTypeAccess and TokenTypeRefresh are the values of the 'type' claim.
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	// BearerScheme is the Authorization header scheme for both token classes.
	BearerScheme = "Bearer"
)

// # Routing

const (
	// APIPrefix is where the versioned API is mounted. Endpoint rate-limit keys
	// use route patterns relative to it.
	APIPrefix = "/api/v1"

	// MaxPeekBodyBytes bounds how much of a JSON body is read to find a resource owner.
	MaxPeekBodyBytes = 1 << 20
)

// # HTTP Headers

const (
	HeaderAuthorization   = "Authorization"
	HeaderXRequestID      = "X-Request-ID"
	HeaderXRealIP         = "X-Real-IP"
	HeaderXForwardedFor   = "X-Forwarded-For"
	HeaderOrigin          = "Origin"
	HeaderRateLimitLimit  = "X-RateLimit-Limit"
	HeaderRateLimitRemain = "X-RateLimit-Remaining"
	HeaderRateLimitReset  = "X-RateLimit-Reset"
	HeaderRetryAfter      = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Cache Key Taxonomy
//
// Every key below is additionally namespaced by the configured cache prefix.

const (
	CacheKeySession          = "session"
	CacheKeyRefreshToken     = "refresh_token"
	CacheKeyRefreshTokenHash = "refresh_token_hash"
	CacheKeyLockout          = "lockout"
	CacheKeyPermissions      = "permissions"
	CacheKeyRateLimit        = "rate_limit"
	CacheKeyBlacklist        = "blacklist"
	CacheKeyOwnership        = "ownership"
)
