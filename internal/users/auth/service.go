// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/ctxutil"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/sec"
	"github.com/taibuivan/tasker/pkg/uuid"
)

// # Contracts & Types

// TokenProvider signs and verifies the token pair.
type TokenProvider interface {
	GenerateTokens(subject sec.TokenSubject, sessionID string) (sec.TokenPair, error)
	VerifyAccess(token string) (*sec.TokenClaims, error)
	VerifyRefresh(token string) (*sec.TokenClaims, error)
}

// Repositories groups the cache-backed security state the service writes.
// A single [CacheRepository] satisfies all of them.
type Repositories struct {
	Sessions  SessionRepository
	Refresh   RefreshTokenRepository
	Lockouts  LockoutRepository
	Blacklist BlacklistRepository
}

// NewRepositories wires every repository to one CacheRepository.
func NewRepositories(repository *CacheRepository) Repositories {
	return Repositories{
		Sessions:  repository,
		Refresh:   repository,
		Lockouts:  repository,
		Blacklist: repository,
	}
}

// Service implements the credential and session use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to lockout, rotation or
// token issuance must be reviewed by the security team.
type Service struct {
	users        UserDirectory
	repositories Repositories
	tokens       TokenProvider
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
	hash         func(password string) (string, error)
	decoy        func() string
}

// Option customizes a [Service].
type Option func(*Service)

// WithClock overrides the wall clock used for lockout arithmetic.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// WithMetrics attaches the Prometheus bundle.
func WithMetrics(bundle *metrics.Metrics) Option {
	return func(service *Service) { service.metrics = bundle }
}

// WithPasswordHasher replaces the bcrypt hasher, e.g. with a low-cost one in tests.
func WithPasswordHasher(hash func(password string) (string, error)) Option {
	return func(service *Service) { service.hash = hash }
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(users UserDirectory, repositories Repositories, tokens TokenProvider, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		users:        users,
		repositories: repositories,
		tokens:       tokens,
		logger:       logger,
		now:          time.Now,
		hash:         sec.HashPassword,
	}
	for _, opt := range opts {
		opt(service)
	}
	service.decoy = sync.OnceValue(func() string {
		hashed, _ := service.hash(decoyPassword)
		return hashed
	})
	return service
}

func (service *Service) log(ctx context.Context) *slog.Logger {
	return ctxutil.LoggerOr(ctx, service.logger)
}

// unavailable is the deny answer when the cache cannot be consulted.
func unavailable(cause error) error {
	return apperr.ServiceUnavailable("Authentication is temporarily unavailable").WithCause(cause)
}

// # Login Flow

// LoginInput holds the submitted credentials and the caller fingerprint.
type LoginInput struct {
	Email    string
	Password string
	Client   sec.Client
}

/*
Login authenticates credentials and opens a session.

Description: Rejects locked emails up front. An unknown email and a wrong
password both count a failure and return the same INVALID_CREDENTIALS error.
Both also cost one bcrypt comparison. A success clears the lockout record and issues a token pair bound to a
session derived from the client fingerprint.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *AuthResult: Token pair and public user
  - error: ACCOUNT_LOCKED, INVALID_CREDENTIALS, or infrastructure failures
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := sec.NormalizeEmail(input.Email)
	now := service.now()

	// 1. Lockout precheck
	record, err := service.repositories.Lockouts.GetLockout(ctx, email)
	if err != nil {
		return nil, unavailable(fmt.Errorf("auth_service_lockout_read_failed: %w", err))
	}
	if record.Locked(now) {
		service.metrics.LoginAttempt(metrics.ResultLocked)
		return nil, apperr.AccountLocked(remainingMinutes(record.LockedUntil, now))
	}

	// 2. Resolve the account
	user, err := service.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		// Pay for one comparison so an unknown email costs what a wrong password does.
		sec.CheckPasswordHash(input.Password, service.decoy())
		return nil, service.rejectCredentials(ctx, email, now)
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	// 3. Constant-time password comparison
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, service.rejectCredentials(ctx, email, now)
	}

	// 4. Success clears every prior failure
	if err := service.repositories.Lockouts.ClearLockout(ctx, email); err != nil {
		return nil, unavailable(fmt.Errorf("auth_service_lockout_clear_failed: %w", err))
	}

	result, err := service.openSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	service.metrics.LoginAttempt(metrics.ResultSuccess)
	service.log(ctx).InfoContext(ctx, "login_succeeded", slog.String("user_id", user.ID))
	return result, nil
}

// rejectCredentials counts a failure and returns the uniform credential error.
func (service *Service) rejectCredentials(ctx context.Context, email string, now time.Time) error {
	service.metrics.LoginAttempt(metrics.ResultFailure)
	service.recordFailedAttempt(ctx, email, now)
	return apperr.InvalidCredentials()
}

// recordFailedAttempt counts one failure atomically.
//
// A cache failure here is logged, not returned: the login has already been
// rejected and the caller must still see INVALID_CREDENTIALS.
func (service *Service) recordFailedAttempt(ctx context.Context, email string, now time.Time) {
	record, err := service.repositories.Lockouts.RecordFailure(ctx, email, now)
	if err != nil {
		service.log(ctx).ErrorContext(ctx, "lockout_record_failed", slog.Any("error", err))
		return
	}

	service.log(ctx).WarnContext(ctx, "login_failed", slog.Int64("attempts", record.Attempts))

	if record.Attempts == MaxLoginAttempts {
		service.metrics.AccountLocked()
		service.log(ctx).WarnContext(ctx, "account_locked",
			slog.Int64("attempts", record.Attempts),
			slog.Time("locked_until", record.LockedUntil),
		)
	}
}

// remainingMinutes rounds the time left on a lock up to whole minutes.
func remainingMinutes(lockedUntil, now time.Time) int {
	return int(math.Ceil(lockedUntil.Sub(now).Minutes()))
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Client   sec.Client
}

/*
Register validates the password policy, creates a USER account and opens a
session exactly as a successful login does.

Returns:
  - *AuthResult: Token pair and public user
  - error: WEAK_PASSWORD, EMAIL_ALREADY_EXISTS, or infrastructure failures
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	email := sec.NormalizeEmail(input.Email)

	_, err := service.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperr.EmailAlreadyExists()
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	hashedPassword, err := service.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         input.Name,
		Role:         sec.RoleUser,
	}

	// The unique index catches a concurrent registration the lookup missed.
	if err := service.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.EmailAlreadyExists()
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	service.log(ctx).InfoContext(ctx, "user_registered", slog.String("user_id", user.ID))

	return service.openSession(ctx, user, input.Client)
}

// # Session Issuance

// openSession writes the session record, mints a pair bound to it and stores
// the refresh record.
func (service *Service) openSession(ctx context.Context, user *User, client sec.Client) (*AuthResult, error) {
	sessionID := client.SessionID()

	if err := service.repositories.Sessions.CreateSession(ctx, user.ID, sessionID, SessionTTL); err != nil {
		return nil, unavailable(fmt.Errorf("auth_service_session_create_failed: %w", err))
	}

	pair, err := service.issue(ctx, user, sessionID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    AccessTokenExpiresIn,
		User:         user.Public(),
	}, nil
}

// issue mints a pair for sessionID and makes its refresh token the only valid one.
func (service *Service) issue(ctx context.Context, user *User, sessionID string) (sec.TokenPair, error) {
	pair, err := service.GenerateTokens(user, sessionID)
	if err != nil {
		return sec.TokenPair{}, err
	}

	if err := service.repositories.Refresh.StoreRefresh(ctx, user.ID, sec.HashToken(pair.RefreshToken), RefreshRecordTTL); err != nil {
		return sec.TokenPair{}, unavailable(fmt.Errorf("auth_service_refresh_store_failed: %w", err))
	}

	return pair, nil
}

// GenerateTokens signs an access and a refresh token that share sessionID.
func (service *Service) GenerateTokens(user *User, sessionID string) (sec.TokenPair, error) {
	pair, err := service.tokens.GenerateTokens(user.Subject(), sessionID)
	if err != nil {
		return sec.TokenPair{}, fmt.Errorf("auth_service_generate_tokens_failed: %w", err)
	}
	return pair, nil
}

// # Revocation

// Logout deletes the refresh-token record of userID. Sessions are revoked
// separately through [Service.RevokeSession].
func (service *Service) Logout(ctx context.Context, userID string) error {
	if err := service.repositories.Refresh.DeleteRefresh(ctx, userID); err != nil {
		return unavailable(fmt.Errorf("auth_service_logout_failed: %w", err))
	}

	service.log(ctx).InfoContext(ctx, "user_logged_out", slog.String("user_id", userID))
	return nil
}

// RevokeSession deletes one session; every access token bound to it stops
// being honored immediately.
func (service *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if err := service.repositories.Sessions.DeleteSession(ctx, userID, sessionID); err != nil {
		return unavailable(fmt.Errorf("auth_service_revoke_session_failed: %w", err))
	}

	service.log(ctx).InfoContext(ctx, "session_revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// RevokeAccessToken blacklists a still-valid access token for the rest of its
// lifetime. Tokens that no longer verify need no entry.
func (service *Service) RevokeAccessToken(ctx context.Context, token string) error {
	claims, err := service.tokens.VerifyAccess(token)
	if err != nil {
		return nil
	}

	remaining := claims.ExpiresAt.Sub(service.now())
	if remaining <= 0 {
		return nil
	}

	if err := service.repositories.Blacklist.Blacklist(ctx, token, remaining); err != nil {
		return unavailable(fmt.Errorf("auth_service_blacklist_failed: %w", err))
	}
	return nil
}
