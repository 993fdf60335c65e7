// Copyright (c) 2026 Glyphlock. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glyphlock/glyphlock/internal/pattern"
	"github.com/glyphlock/glyphlock/internal/platform/apperr"
	"github.com/glyphlock/glyphlock/internal/platform/constants"
)

// # Repository Implementation

// PostgresUserRepository implements [UserRepository] backed by PostgreSQL.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL-backed user repository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// account column list shared by the lookup queries. The graphical credential
// is stored denormalized on the account row: pattern and categories as text
// arrays, the displayed sets as a jsonb document.
const accountColumns = `
	id, username, email, passwordhash, role,
	pattern, categories, sets,
	createdat, updatedat`

/*
FindByID retrieves a single account row by its primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *User: Hydrated entity including the stored credential
  - err: apperr.NotFound when the row does not exist, wrapped pgx errors otherwise
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.account WHERE id = $1`, accountColumns, constants.SchemaUsers)
	return repository.scanOne(context, query, id)
}

// FindByEmail retrieves a single account row by its lowercased email.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.account WHERE email = $1`, accountColumns, constants.SchemaUsers)
	return repository.scanOne(context, query, email)
}

// FindByUsername retrieves a single account row by its lowercased username.
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.account WHERE username = $1`, accountColumns, constants.SchemaUsers)
	return repository.scanOne(context, query, username)
}

/*
Create inserts a new account row together with its graphical credential.

Description: The displayed sets are serialized to jsonb so the exact image
grids shown at enrollment can be re-presented at login. Timestamps are
assigned by the database defaults and read back into the entity.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - err: Unique-violation or connection errors from pgx
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	setsJSON, err := json.Marshal(user.Credential.Sets)
	if err != nil {
		return fmt.Errorf("auth_store_marshal_sets_failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.account (id, username, email, passwordhash, role, pattern, categories, sets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING createdat, updatedat`, constants.SchemaUsers)

	row := repository.pool.QueryRow(context, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role,
		user.Credential.Pattern, user.Credential.Categories, setsJSON,
	)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("auth_store_create_failed: %w", err)
	}

	return nil
}

/*
Delete removes an account row by id.

Description: Used as the compensating action of the enrollment saga when the
attempt ledger cannot be initialized after the account insert succeeded.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - err: Connection errors from pgx
*/
func (repository *PostgresUserRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s.account WHERE id = $1`, constants.SchemaUsers)

	if _, err := repository.pool.Exec(context, query, id); err != nil {
		return fmt.Errorf("auth_store_delete_failed: %w", err)
	}

	return nil
}

// scanOne executes a single-row account query and hydrates the entity,
// including the jsonb credential sets.
//
// A missing row maps to apperr.NotFound; every other scan error is an
// infrastructure failure and propagates wrapped, so an outage is never
// mistaken for an absent identity.
func (repository *PostgresUserRepository) scanOne(context context.Context, query string, argument any) (*User, error) {
	var (
		user     User
		setsJSON []byte
	)

	row := repository.pool.QueryRow(context, query, argument)
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role,
		&user.Credential.Pattern, &user.Credential.Categories, &setsJSON,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth_store_find_failed: %w", err)
	}

	if err := json.Unmarshal(setsJSON, &user.Credential.Sets); err != nil {
		return nil, fmt.Errorf("auth_store_unmarshal_sets_failed: %w", err)
	}
	if user.Credential.Sets == nil {
		user.Credential.Sets = []pattern.CategorySet{}
	}

	return &user, nil
}
