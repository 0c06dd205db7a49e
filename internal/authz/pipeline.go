// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authz evaluates whether an authenticated request may proceed.

Every protected route runs the same ordered checks, each one stopping the
request with its own error:

 1. Bearer extraction
 2. Access-token verification, token class and blacklist
 3. Session liveness
 4. Account existence
 5. Role
 6. Permissions
 7. Ownership
 8. Per-endpoint rate limit
 9. Identity

Steps 1 to 4 answer 401 and steps 5 to 8 answer 403. When the cache cannot be
consulted the request is denied with the class of the step that failed.
*/
package authz

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/cache"
	"github.com/taibuivan/tasker/internal/platform/constants"
	"github.com/taibuivan/tasker/internal/platform/ctxutil"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/ratelimit"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

// Stage names one step of the pipeline in logs and metrics.
type Stage string

const (
	StageToken      Stage = "token"
	StageSession    Stage = "session"
	StageUser       Stage = "user"
	StageRole       Stage = "role"
	StagePermission Stage = "permission"
	StageOwnership  Stage = "ownership"
	StageRateLimit  Stage = "rate_limit"
	StageIdentity   Stage = "identity"
)

// # Contracts

// ErrUnknownUser is returned by a [UserLookup] for an absent account.
var ErrUnknownUser = errors.New("authz: unknown user")

// Principal is the account behind a verified token.
type Principal struct {
	ID    string
	Email string
	Role  sec.UserRole
}

// TokenVerifier verifies access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (*sec.TokenClaims, error)
}

// SessionChecker reports whether a session is still live.
type SessionChecker interface {
	SessionExists(ctx context.Context, userID, sessionID string) (bool, error)
}

// BlacklistChecker reports whether an access token was revoked.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// UserLookup loads the account named by a token subject.
type UserLookup interface {
	FindPrincipal(ctx context.Context, userID string) (*Principal, error)
}

// Request is the transport-neutral view of an incoming call.
type Request struct {
	Authorization string // raw Authorization header
	Method        string
	Route         string // route pattern, not the concrete path
	ResourceID    string
}

// Dependencies groups what a [Pipeline] consults.
type Dependencies struct {
	Tokens    TokenVerifier
	Sessions  SessionChecker
	Blacklist BlacklistChecker
	Users     UserLookup
	Cache     cache.Store
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Pipeline runs the ordered authorization checks.
type Pipeline struct {
	tokens    TokenVerifier
	sessions  SessionChecker
	blacklist BlacklistChecker
	users     UserLookup
	cache     cache.Store
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	ceilings  Ceilings
}

// Option customizes a [Pipeline].
type Option func(*Pipeline)

// WithCeilings replaces the default endpoint ceiling table.
func WithCeilings(ceilings Ceilings) Option {
	return func(pipeline *Pipeline) { pipeline.ceilings = ceilings }
}

// NewPipeline constructs a new [Pipeline].
func NewPipeline(deps Dependencies, opts ...Option) *Pipeline {
	pipeline := &Pipeline{
		tokens:    deps.Tokens,
		sessions:  deps.Sessions,
		blacklist: deps.Blacklist,
		users:     deps.Users,
		cache:     deps.Cache,
		limiter:   deps.Limiter,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		ceilings:  DefaultCeilings(),
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	return pipeline
}

func (pipeline *Pipeline) log(ctx context.Context) *slog.Logger {
	return ctxutil.LoggerOr(ctx, pipeline.logger)
}

/*
Authorize runs every check against request under policy.

Parameters:
  - ctx: context.Context
  - request: Request
  - policy: Policy attached to the route

Returns:
  - *sec.Identity: The caller, with its session and effective permissions
  - error: *apperr.AppError of the first failing step
*/
func (pipeline *Pipeline) Authorize(ctx context.Context, request Request, policy Policy) (*sec.Identity, error) {

	// 1. Bearer extraction
	token, ok := BearerToken(request.Authorization)
	if !ok {
		return nil, pipeline.deny(ctx, StageToken, apperr.Unauthorized("No token provided"), nil)
	}

	// 2. Signature, expiry, class and revocation
	claims, err := pipeline.tokens.VerifyAccess(token)
	if errors.Is(err, sec.ErrWrongTokenType) {
		return nil, pipeline.deny(ctx, StageToken, apperr.Unauthorized("Invalid token type"), err)
	}
	if err != nil {
		return nil, pipeline.deny(ctx, StageToken, apperr.Unauthorized("Invalid token"), err)
	}

	revoked, err := pipeline.blacklist.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, pipeline.deny(ctx, StageToken, apperr.Unauthorized("Invalid token"), err)
	}
	if revoked {
		return nil, pipeline.deny(ctx, StageToken, apperr.Unauthorized("Invalid token"), nil)
	}

	userID := claims.UserID()

	// 3. Session liveness
	if claims.SessionID == "" {
		return nil, pipeline.deny(ctx, StageSession, apperr.Unauthorized("Invalid session"), nil)
	}
	live, err := pipeline.sessions.SessionExists(ctx, userID, claims.SessionID)
	if err != nil || !live {
		return nil, pipeline.deny(ctx, StageSession, apperr.Unauthorized("Invalid session"), err)
	}

	// 4. Account existence
	principal, err := pipeline.users.FindPrincipal(ctx, userID)
	if errors.Is(err, ErrUnknownUser) {
		return nil, pipeline.deny(ctx, StageUser, apperr.Unauthorized("User not found"), nil)
	}
	if err != nil {
		return nil, pipeline.deny(ctx, StageUser, apperr.Unauthorized("User not found"), err)
	}

	// 5. Role
	if len(policy.Roles) > 0 && !principal.Role.In(policy.Roles...) {
		return nil, pipeline.deny(ctx, StageRole, apperr.Forbidden("Insufficient role"), nil)
	}

	// 6. Permissions, all of them
	permissions, err := pipeline.permissions(ctx, principal)
	if err != nil {
		return nil, pipeline.deny(ctx, StagePermission, apperr.Forbidden("Insufficient permissions"), err)
	}
	if !holdsAll(permissions, policy.Permissions) {
		return nil, pipeline.deny(ctx, StagePermission, apperr.Forbidden("Insufficient permissions"), nil)
	}

	// 7. Ownership
	if policy.CheckOwnership && request.ResourceID != "" && !principal.Role.In(policy.OwnershipBypassRoles...) {
		owned, err := pipeline.owns(ctx, policy, principal.ID, request.ResourceID)
		if err != nil || !owned {
			return nil, pipeline.deny(ctx, StageOwnership, apperr.Forbidden("Access denied to this resource"), err)
		}
	}

	// 8. Per-endpoint rate limit
	rule := pipeline.ceilings.Rule(request.Method, request.Route)
	if policy.RateLimit != nil {
		rule = *policy.RateLimit
	}

	result, err := pipeline.limiter.Hit(ctx, ratelimit.EndpointKey(principal.ID, request.Method, request.Route), rule)
	if err != nil {
		return nil, pipeline.deny(ctx, StageRateLimit, apperr.Forbidden("Rate limit exceeded"), err)
	}
	if !result.Allowed {
		pipeline.metrics.RateLimitRejected("endpoint")
		return nil, pipeline.deny(ctx, StageRateLimit, apperr.RateLimitExceeded(int(result.RetryAfterSeconds())), nil)
	}

	// 9. Identity
	pipeline.metrics.AuthzDecision(string(StageIdentity), metrics.ResultAllow)

	return &sec.Identity{
		UserID:      principal.ID,
		Email:       principal.Email,
		Role:        principal.Role,
		Permissions: permissions,
		SessionID:   claims.SessionID,
	}, nil
}

// deny records a rejected stage. The cause stays in the log.
func (pipeline *Pipeline) deny(ctx context.Context, stage Stage, appErr *apperr.AppError, cause error) error {
	pipeline.metrics.AuthzDecision(string(stage), metrics.ResultDeny)

	attrs := []any{
		slog.String("stage", string(stage)),
		slog.String("reason", appErr.Message),
	}
	if cause != nil {
		attrs = append(attrs, slog.Any("error", cause))
		appErr = appErr.WithCause(cause)
	}
	pipeline.log(ctx).WarnContext(ctx, "authz_denied", attrs...)

	return appErr
}

// BearerToken extracts the token of a "Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func holdsAll(held, required []string) bool {
	for _, permission := range required {
		found := false
		for _, candidate := range held {
			if candidate == permission {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
