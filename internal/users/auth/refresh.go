// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/cache"
	"github.com/taibuivan/tasker/internal/platform/metrics"
	"github.com/taibuivan/tasker/internal/platform/sec"
)

// Internal refresh failure causes. Callers only ever see INVALID_REFRESH_TOKEN.
var (
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	ErrRefreshTokenRevoked = errors.New("auth: refresh token revoked")
	ErrRefreshTokenExpired = errors.New("auth: refresh token expired")
)

/*
Refresh rotates a refresh token.

Description: Each user has a single valid refresh token, identified by the hash
stored next to its validity flag. The check of flag and hash, the expiry
defense and the deletion of the record are one atomic step, so out of any
number of concurrent calls with the same token exactly one wins. The winner
keeps the original session identifier.

Parameters:
  - ctx: context.Context
  - token: The presented refresh token

Returns:
  - *RefreshResult: The new pair
  - error: INVALID_REFRESH_TOKEN for every rejection, or infrastructure failures
*/
func (service *Service) Refresh(ctx context.Context, token string) (*RefreshResult, error) {

	// 1-2. Signature, expiry and token class
	claims, err := service.tokens.VerifyRefresh(token)
	if err != nil {
		return nil, service.rejectRefresh(ctx, "", fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err))
	}

	userID := claims.UserID()

	// 3. Account must still exist
	user, err := service.users.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, service.rejectRefresh(ctx, userID, fmt.Errorf("%w: unknown subject", ErrInvalidRefreshToken))
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	// 4-7. Flag, hash, expiry defense and invalidation in one step
	outcome, err := service.repositories.Refresh.ConsumeRefresh(ctx, userID, sec.HashToken(token), claims.ExpiresAt.Time, service.now())
	if err != nil {
		return nil, unavailable(fmt.Errorf("auth_service_refresh_consume_failed: %w", err))
	}

	switch outcome {
	case cache.ConsumeMissing:
		return nil, service.rejectRefresh(ctx, userID, ErrRefreshTokenRevoked)
	case cache.ConsumeMismatch:
		return nil, service.rejectRefresh(ctx, userID, fmt.Errorf("%w: hash mismatch", ErrInvalidRefreshToken))
	case cache.ConsumeExpired:
		return nil, service.rejectRefresh(ctx, userID, ErrRefreshTokenExpired)
	}

	// 8. Same session, new pair
	pair, err := service.issue(ctx, user, claims.SessionID)
	if err != nil {
		return nil, err
	}

	service.metrics.Refresh(metrics.ResultSuccess)
	service.log(ctx).InfoContext(ctx, "refresh_rotated", slog.String("user_id", userID))

	return &RefreshResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    AccessTokenExpiresIn,
	}, nil
}

// rejectRefresh logs the internal cause and collapses it into one client error.
func (service *Service) rejectRefresh(ctx context.Context, userID string, cause error) error {
	reason := "invalid"
	switch {
	case errors.Is(cause, ErrRefreshTokenRevoked):
		reason = "revoked"
	case errors.Is(cause, ErrRefreshTokenExpired):
		reason = "expired"
	}

	service.metrics.Refresh(reason)
	service.log(ctx).WarnContext(ctx, "refresh_rejected",
		slog.String("user_id", userID),
		slog.String("reason", reason),
		slog.String("cause", cause.Error()),
	)

	return apperr.InvalidRefreshToken(cause)
}
