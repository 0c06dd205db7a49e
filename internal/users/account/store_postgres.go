// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tasker/internal/platform/database/schema"
	"github.com/taibuivan/tasker/internal/platform/dberr"
	"github.com/taibuivan/tasker/pkg/pagination"
)

// PostgresAccountRepository implements [AccountRepository] using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new Postgres implementation for profiles.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

var profileColumns = strings.Join(schema.UserAccount.Profile(), ", ")

func scanProfile(row pgx.Row) (*Profile, error) {
	profile := &Profile{}
	err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.Name,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	return profile, err
}

/*
FindByID retrieves a profile from users.account.

Parameters:
  - ctx: context.Context
  - id: string (UUID); a malformed id is reported as absent

Returns:
  - *Profile
  - error: ErrAccountNotFound or database execution failure
*/
func (repository *PostgresAccountRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		profileColumns, schema.UserAccount.Table, schema.UserAccount.ID,
	)

	profile, err := scanProfile(repository.pool.QueryRow(ctx, query, id))
	if dberr.IsNotFound(err) || dberr.IsInvalidInput(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_find_by_id_failed: %w", err)
	}

	return profile, nil
}

// List returns one page ordered by creation time, newest first.
func (repository *PostgresAccountRepository) List(ctx context.Context, page pagination.Params) ([]Profile, int, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.UserAccount.Table)

	var total int
	if err := repository.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s DESC, %s LIMIT $1 OFFSET $2`,
		profileColumns, schema.UserAccount.Table, schema.UserAccount.CreatedAt, schema.UserAccount.ID,
	)

	rows, err := repository.pool.Query(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	profiles := make([]Profile, 0, page.Limit)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_account_repo_scan_failed: %w", err)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_rows_failed: %w", err)
	}

	return profiles, total, nil
}

// UpdateName changes the display name and refreshes updatedat.
func (repository *PostgresAccountRepository) UpdateName(ctx context.Context, id, name string) (*Profile, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1 RETURNING %s`,
		schema.UserAccount.Table, schema.UserAccount.Name, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, profileColumns,
	)

	profile, err := scanProfile(repository.pool.QueryRow(ctx, query, id, name))
	if dberr.IsNotFound(err) || dberr.IsInvalidInput(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_update_failed: %w", err)
	}

	return profile, nil
}
