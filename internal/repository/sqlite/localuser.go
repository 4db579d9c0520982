package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/linkup/internal/apperror"
	"github.com/sakif/linkup/internal/model"
	"github.com/sakif/linkup/internal/repository"
)

// compile-time check that *DB implements repository.LocalUserRepository
var _ repository.LocalUserRepository = (*DB)(nil)

// Create inserts a local account record. Missing IDs and timestamps are
// filled in here so callers can pass a bare struct. A duplicate email
// surfaces as apperror.ErrEmailExists — the UNIQUE constraint is the source
// of truth, not a racy pre-check.
func (db *DB) Create(ctx context.Context, user *model.LocalUser) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO local_users (id, email, name, password_hash, is_guest, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.IsGuest,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Wrap(apperror.ErrEmailExists,
				"an account with this email already exists", err)
		}
		return fmt.Errorf("sqlite: inserting local user %s: %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a local account by its ID.
// Returns apperror.ErrNotFound if no row matches.
func (db *DB) GetByID(ctx context.Context, id string) (*model.LocalUser, error) {
	return db.getLocalUser(ctx, `SELECT id, email, name, password_hash, is_guest, created_at, updated_at
		 FROM local_users WHERE id = ?`, id)
}

// GetByEmail retrieves a local account by email.
// Returns apperror.ErrNotFound if no row matches.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.LocalUser, error) {
	return db.getLocalUser(ctx, `SELECT id, email, name, password_hash, is_guest, created_at, updated_at
		 FROM local_users WHERE email = ?`, email)
}

// Delete removes a local account. Deleting a missing row is not an error —
// logout paths call this unconditionally.
func (db *DB) Delete(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM local_users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting local user %s: %w", id, err)
	}
	return nil
}

func (db *DB) getLocalUser(ctx context.Context, query, arg string) (*model.LocalUser, error) {
	var u model.LocalUser
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.IsGuest,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("local user", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting local user %s: %w", arg, err)
	}
	return &u, nil
}
