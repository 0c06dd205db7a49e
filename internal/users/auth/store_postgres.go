// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tasker/internal/platform/dberr"
)

// # User Directory

// PostgresUserDirectory implements [UserDirectory] on the users.account table.
type PostgresUserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory creates a PostgreSQL implementation of the UserDirectory.
func NewUserDirectory(pool *pgxpool.Pool) *PostgresUserDirectory {
	return &PostgresUserDirectory{pool: pool}
}

const selectAccount = `
	SELECT id, email, passwordhash, name, role, createdat, updatedat
	FROM users.account`

/*
Create persists a new account.

Description: Timestamps are initialized when absent. A duplicate email, including
one inserted concurrently by another replica, surfaces as [ErrEmailTaken].
*/
func (repository *PostgresUserDirectory) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (id, email, passwordhash, name, role, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if dberr.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("postgres_user_directory_create_failed: %w", err)
	}

	return nil
}

// FindByEmail looks an account up by its normalized email.
func (repository *PostgresUserDirectory) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, selectAccount+` WHERE email = $1`, email)
}

// FindByID looks an account up by primary key. A malformed id is simply absent.
func (repository *PostgresUserDirectory) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, selectAccount+` WHERE id = $1`, id)
}

func (repository *PostgresUserDirectory) findOne(context context.Context, query string, argument string) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(context, query, argument).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if dberr.IsNotFound(err) || dberr.IsInvalidInput(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres_user_directory_find_failed: %w", err)
	}

	return user, nil
}
