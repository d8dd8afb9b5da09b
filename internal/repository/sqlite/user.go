package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/model"
	"github.com/sakif/medremind/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user.
//
// DUPLICATE EMAILS:
// The UNIQUE constraint on users.email is the source of truth. Checking with
// a SELECT first would race with a concurrent signup for the same address;
// letting the INSERT fail and translating the constraint error does not.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}

	return nil
}

// GetByEmail retrieves a user by email (case-insensitive).
// Returns apperror.ErrNotFound if no user has that email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	var created, updated time.Time

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&created,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}

	u.CreatedAt = &created
	u.UpdatedAt = &updated
	return &u, nil
}

// Update applies the non-nil fields of patch.
//
// COALESCE(?, column):
// A nil *string is sent as SQL NULL, and COALESCE(NULL, name) keeps the
// current value. That lets one statement serve every combination of fields
// instead of building the SET clause by hand.
func (db *DB) Update(ctx context.Context, email string, patch model.UserPatch) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = COALESCE(?, name),
		     password_hash = COALESCE(?, password_hash),
		     updated_at = ?
		 WHERE email = ?`,
		patch.Name,
		patch.PasswordHash,
		time.Now().UTC(),
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating user %s: %w", email, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("user", email)
	}

	return db.GetByEmail(ctx, email)
}

// Delete removes a user by email.
// Returns apperror.ErrNotFound if no user has that email.
func (db *DB) Delete(ctx context.Context, email string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", email, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", email)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlitedriver.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
