// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authz_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tasker/internal/authz"
	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/ratelimit"
	"github.com/taibuivan/tasker/internal/platform/redis"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

// # Fakes

type fakeSessions map[string]bool

func (f fakeSessions) SessionExists(_ context.Context, userID, sessionID string) (bool, error) {
	return f[userID+":"+sessionID], nil
}

type fakeBlacklist map[string]bool

func (f fakeBlacklist) IsBlacklisted(_ context.Context, token string) (bool, error) {
	return f[token], nil
}

type fakeUsers map[string]*authz.Principal

func (f fakeUsers) FindPrincipal(_ context.Context, userID string) (*authz.Principal, error) {
	principal, ok := f[userID]
	if !ok {
		return nil, authz.ErrUnknownUser
	}
	return principal, nil
}

type verifierFunc func(token string) (*sec.TokenClaims, error)

func (f verifierFunc) VerifyAccess(token string) (*sec.TokenClaims, error) { return f(token) }

// # Fixture

type fixture struct {
	pipeline  *authz.Pipeline
	tokens    *sec.TokenService
	server    *miniredis.Miniredis
	sessions  fakeSessions
	blacklist fakeBlacklist
	users     fakeUsers
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, opts ...authz.Option) *fixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redis.NewCache(client, "app", time.Second)

	tokens, err := sec.NewTokenService(
		"access-secret-0123456789abcdef0123456789",
		"refresh-secret-0123456789abcdef012345678",
		"tasker.test",
	)
	require.NoError(t, err)

	f := &fixture{
		tokens:    tokens,
		server:    server,
		sessions:  fakeSessions{},
		blacklist: fakeBlacklist{},
		users: fakeUsers{
			"u-admin": {ID: "u-admin", Email: "admin@example.com", Role: sec.RoleAdmin},
			"u-user":  {ID: "u-user", Email: "user@example.com", Role: sec.RoleUser},
		},
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	f.pipeline = authz.NewPipeline(authz.Dependencies{
		Tokens:    tokens,
		Sessions:  f.sessions,
		Blacklist: f.blacklist,
		Users:     f.users,
		Cache:     store,
		Limiter:   ratelimit.NewLimiter(store),
		Metrics:   f.metrics,
	}, opts...)

	return f
}

// login mints an access token with a live session for userID.
func (f *fixture) login(t *testing.T, userID string) string {
	t.Helper()

	principal := f.users[userID]
	role := sec.RoleUser
	if principal != nil {
		role = principal.Role
	}

	pair, err := f.tokens.GenerateTokens(sec.TokenSubject{UserID: userID, Role: role}, "sid-"+userID)
	require.NoError(t, err)

	f.sessions[userID+":sid-"+userID] = true
	return pair.AccessToken
}

func request(token, route, resourceID string) authz.Request {
	return authz.Request{
		Authorization: "Bearer " + token,
		Method:        http.MethodGet,
		Route:         route,
		ResourceID:    resourceID,
	}
}

func assertDenied(t *testing.T, err error, status int, message string) {
	t.Helper()

	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
	assert.Equal(t, message, appErr.Message)
}

// # Authentication Stages

func TestAuthorize_MissingToken(t *testing.T) {
	f := newFixture(t)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		_, err := f.pipeline.Authorize(context.Background(), authz.Request{Authorization: header}, authz.Policy{})
		assertDenied(t, err, http.StatusUnauthorized, "No token provided")
	}
}

/*
TestAuthorize_RejectsRefreshToken verifies that a refresh token never authorizes a request.
*/
func TestAuthorize_RejectsRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.login(t, "u-user")

	pair, err := f.tokens.GenerateTokens(sec.TokenSubject{UserID: "u-user", Role: sec.RoleUser}, "sid-u-user")
	require.NoError(t, err)

	_, err = f.pipeline.Authorize(context.Background(), request(pair.RefreshToken, "/users/me", ""), authz.Policy{})
	assertDenied(t, err, http.StatusUnauthorized, "Invalid token")
}

func TestAuthorize_WrongTokenType(t *testing.T) {
	pipeline := authz.NewPipeline(authz.Dependencies{
		Tokens: verifierFunc(func(string) (*sec.TokenClaims, error) { return nil, sec.ErrWrongTokenType }),
	})

	_, err := pipeline.Authorize(context.Background(), request("t", "/users/me", ""), authz.Policy{})
	assertDenied(t, err, http.StatusUnauthorized, "Invalid token type")
}

func TestAuthorize_BlacklistedToken(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-user")
	f.blacklist[token] = true

	_, err := f.pipeline.Authorize(context.Background(), request(token, "/users/me", ""), authz.Policy{})
	assertDenied(t, err, http.StatusUnauthorized, "Invalid token")
}

/*
TestAuthorize_RevokedSession verifies that a deleted session invalidates its
still-unexpired access token.
*/
func TestAuthorize_RevokedSession(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-user")

	_, err := f.pipeline.Authorize(context.Background(), request(token, "/users/me", ""), authz.Policy{})
	require.NoError(t, err)

	delete(f.sessions, "u-user:sid-u-user")

	_, err = f.pipeline.Authorize(context.Background(), request(token, "/users/me", ""), authz.Policy{})
	assertDenied(t, err, http.StatusUnauthorized, "Invalid session")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthzDecisions.WithLabelValues("session", "deny")))
}

func TestAuthorize_UnknownUser(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-ghost")

	_, err := f.pipeline.Authorize(context.Background(), request(token, "/users/me", ""), authz.Policy{})
	assertDenied(t, err, http.StatusUnauthorized, "User not found")
}

// # Authorization Stages

/*
TestAuthorize_InsufficientRole verifies that a USER is forbidden from an ADMIN route.
*/
func TestAuthorize_InsufficientRole(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-user")

	_, err := f.pipeline.Authorize(context.Background(), request(token, "/users", ""), authz.Policy{Roles: []sec.UserRole{sec.RoleAdmin}})
	assertDenied(t, err, http.StatusForbidden, "Insufficient role")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthzDecisions.WithLabelValues("role", "deny")))
}

func TestAuthorize_Permissions(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-user")
	ctx := context.Background()

	policy := authz.Policy{Permissions: []string{sec.PermTasksRead, sec.PermUsersRead}}

	_, err := f.pipeline.Authorize(ctx, request(token, "/users", ""), policy)
	assertDenied(t, err, http.StatusForbidden, "Insufficient permissions")

	// The derived set is memoized for five minutes.
	raw, err := f.server.Get("app:permissions:u-user")
	require.NoError(t, err)
	assert.JSONEq(t, `["tasks:read","tasks:write:own"]`, raw)
	assert.Equal(t, 300*time.Second, f.server.TTL("app:permissions:u-user"))

	// A memoized grant is honored until it expires.
	require.NoError(t, f.server.Set("app:permissions:u-user", `["tasks:read","users:read"]`))

	identity, err := f.pipeline.Authorize(ctx, request(token, "/users", ""), policy)
	require.NoError(t, err)
	assert.True(t, identity.Can(sec.PermUsersRead))
}

// # Ownership

func TestAuthorize_Ownership(t *testing.T) {
	owners := map[string]string{"doc-1": "u-user", "doc-2": "u-other"}
	resolver := authz.OwnershipResolverFunc(func(_ context.Context, id string) (string, error) {
		owner, ok := owners[id]
		if !ok {
			return "", authz.ErrResourceNotFound
		}
		return owner, nil
	})

	policy := authz.Policy{
		CheckOwnership:       true,
		Owners:               resolver,
		OwnershipBypassRoles: []sec.UserRole{sec.RoleAdmin},
	}

	t.Run("owner is resolved and written through", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-user")

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs/{id}", "doc-1"), policy)
		require.NoError(t, err)

		cached, err := f.server.Get("app:ownership:doc-1")
		require.NoError(t, err)
		assert.Equal(t, "u-user", cached)
	})

	t.Run("other owner is denied", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-user")

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs/{id}", "doc-2"), policy)
		assertDenied(t, err, http.StatusForbidden, "Access denied to this resource")
	})

	t.Run("cached owner wins over resolver", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-user")
		require.NoError(t, f.server.Set("app:ownership:doc-2", "u-user"))

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs/{id}", "doc-2"), policy)
		require.NoError(t, err)
	})

	t.Run("missing resource is allowed", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-user")

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs/{id}", "doc-404"), policy)
		require.NoError(t, err)
	})

	t.Run("no resource id is allowed", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-user")

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs", ""), policy)
		require.NoError(t, err)
	})

	t.Run("bypass role skips the check", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-admin")

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs/{id}", "doc-2"), policy)
		require.NoError(t, err)
	})

	t.Run("no resolver denies", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-user")

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs/{id}", "doc-1"), authz.Policy{CheckOwnership: true})
		assertDenied(t, err, http.StatusForbidden, "Access denied to this resource")
	})

	t.Run("resolver failure denies", func(t *testing.T) {
		f := newFixture(t)
		token := f.login(t, "u-user")

		failing := authz.Policy{
			CheckOwnership: true,
			Owners: authz.OwnershipResolverFunc(func(context.Context, string) (string, error) {
				return "", errors.New("db down")
			}),
		}

		_, err := f.pipeline.Authorize(context.Background(), request(token, "/docs/{id}", "doc-1"), failing)
		assertDenied(t, err, http.StatusForbidden, "Access denied to this resource")
	})
}

// # Rate Limit

/*
TestAuthorize_EndpointRateLimit verifies the per-user endpoint counter.
*/
func TestAuthorize_EndpointRateLimit(t *testing.T) {
	f := newFixture(t, authz.WithCeilings(authz.Ceilings{
		Window:    time.Minute,
		Default:   50,
		Endpoints: map[string]int64{"GET:/tasks": 2},
	}))
	token := f.login(t, "u-user")
	ctx := context.Background()

	for range 2 {
		_, err := f.pipeline.Authorize(ctx, request(token, "/tasks", ""), authz.Policy{})
		require.NoError(t, err)
	}

	_, err := f.pipeline.Authorize(ctx, request(token, "/tasks", ""), authz.Policy{})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeRateLimitExceeded))
	assert.Equal(t, http.StatusForbidden, apperr.As(err).HTTPStatus)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RateLimitRejections.WithLabelValues("endpoint")))

	count, err := f.server.Get("app:rate_limit:u-user:GET:/tasks")
	require.NoError(t, err)
	assert.Equal(t, "3", count)
	assert.Equal(t, time.Minute, f.server.TTL("app:rate_limit:u-user:GET:/tasks"))

	// Other endpoints keep their own budget.
	_, err = f.pipeline.Authorize(ctx, request(token, "/users/me", ""), authz.Policy{})
	require.NoError(t, err)
}

func TestAuthorize_PolicyRateLimitOverride(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-user")
	ctx := context.Background()

	policy := authz.Policy{RateLimit: &ratelimit.Rule{Limit: 1, Window: 10 * time.Second}}

	_, err := f.pipeline.Authorize(ctx, request(token, "/users/me", ""), policy)
	require.NoError(t, err)

	_, err = f.pipeline.Authorize(ctx, request(token, "/users/me", ""), policy)
	assert.True(t, apperr.HasCode(err, apperr.CodeRateLimitExceeded))
}

func TestCeilings_Rule(t *testing.T) {
	ceilings := authz.DefaultCeilings()

	assert.EqualValues(t, 100, ceilings.Rule("GET", "/tasks").Limit)
	assert.EqualValues(t, 10, ceilings.Rule("POST", "/tasks").Limit)
	assert.EqualValues(t, 20, ceilings.Rule("PUT", "/tasks").Limit)
	assert.EqualValues(t, 5, ceilings.Rule("DELETE", "/tasks").Limit)
	assert.EqualValues(t, 50, ceilings.Rule("GET", "/users").Limit)
	assert.Equal(t, 60*time.Second, ceilings.Rule("GET", "/users").Window)
}

// # Identity

/*
TestAuthorize_Identity verifies that the attached identity carries the token session.
*/
func TestAuthorize_Identity(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-admin")

	identity, err := f.pipeline.Authorize(context.Background(), request(token, "/users", ""), authz.Policy{
		Roles:       []sec.UserRole{sec.RoleAdmin, sec.RoleManager},
		Permissions: []string{sec.PermUsersRead},
	})
	require.NoError(t, err)

	assert.Equal(t, "u-admin", identity.UserID)
	assert.Equal(t, "admin@example.com", identity.Email)
	assert.Equal(t, sec.RoleAdmin, identity.Role)
	assert.Equal(t, "sid-u-admin", identity.SessionID)
	assert.Equal(t, sec.PermissionsFor(sec.RoleAdmin), identity.Permissions)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthzDecisions.WithLabelValues("identity", "allow")))
}

/*
TestAuthorize_CacheUnavailable verifies that a cache outage at the permission
step denies with 403.
*/
func TestAuthorize_CacheUnavailable(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u-user")

	f.server.Close()

	_, err := f.pipeline.Authorize(context.Background(), request(token, "/users/me", ""), authz.Policy{})
	assertDenied(t, err, http.StatusForbidden, "Insufficient permissions")
}

func TestBearerToken(t *testing.T) {
	token, ok := authz.BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	token, ok = authz.BearerToken("bearer xyz")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = authz.BearerToken("Token abc")
	assert.False(t, ok)
}
