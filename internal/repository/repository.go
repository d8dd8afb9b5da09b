// Package repository defines the storage interfaces the service layer
// depends on. Implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/medremind/internal/model"
)

// UserRepository stores accounts keyed by email.
//
// Implementations return apperror.ErrNotFound for a missing email and
// apperror.ErrConflict when Create hits an email that already exists.
// Emails are compared case-insensitively.
type UserRepository interface {
	// Create inserts u and fills in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Update applies the non-nil fields of patch and returns the new record.
	Update(ctx context.Context, email string, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, email string) error
}
