// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/tasker/internal/authz"
	"github.com/taibuivan/tasker/internal/platform/apperr"
	"github.com/taibuivan/tasker/internal/platform/ctxutil"
	"github.com/taibuivan/tasker/pkg/pagination"
)

// Service implements the profile use cases.
type Service struct {
	accounts AccountRepository
	logger   *slog.Logger
}

// NewService constructs a new account [Service].
func NewService(accounts AccountRepository, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, logger: logger}
}

// GetProfile returns one profile or a 404.
func (service *Service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	profile, err := service.accounts.FindByID(ctx, id)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("account_service_get_failed: %w", err)
	}
	return profile, nil
}

// ListProfiles returns one page of profiles and its metadata.
func (service *Service) ListProfiles(ctx context.Context, page pagination.Params) ([]Profile, pagination.Meta, error) {
	profiles, total, err := service.accounts.List(ctx, page)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return profiles, pagination.NewMeta(page.Page, page.Limit, total), nil
}

// Rename changes the display name of id.
func (service *Service) Rename(ctx context.Context, id, name string) (*Profile, error) {
	profile, err := service.accounts.UpdateName(ctx, id, name)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("account_service_rename_failed: %w", err)
	}

	ctxutil.LoggerOr(ctx, service.logger).InfoContext(ctx, "account_renamed", slog.String("account_id", id))
	return profile, nil
}

// ResolveOwner implements authz.OwnershipResolver: an account is owned by itself.
func (service *Service) ResolveOwner(ctx context.Context, id string) (string, error) {
	profile, err := service.accounts.FindByID(ctx, id)
	if errors.Is(err, ErrAccountNotFound) {
		return "", authz.ErrResourceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("account_service_resolve_owner_failed: %w", err)
	}
	return profile.ID, nil
}
