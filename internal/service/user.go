// Package service contains the business logic layer of the backend.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// UserService takes a repository.UserRepository (interface), not a
// *sqlite.DB, so tests pass an in-memory fake instead of a database.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/model"
	"github.com/sakif/medremind/internal/repository"
)

// Validation limits.
const (
	MaxNameLength  = 100
	MaxEmailLength = 254
)

// UserService handles business rules for accounts.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// Get returns the user with the given email.
// Returns apperror.ErrNotFound if there is none.
func (s *UserService) Get(ctx context.Context, email string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByEmail(ctx, email)
}

// Create validates and stores a new account.
//
// THE BACKEND NEVER SEES A PLAINTEXT PASSWORD:
// Clients hash with bcrypt before calling POST /api/users. Anything that is
// not a bcrypt hash is rejected so a buggy client cannot store a plaintext
// password by accident.
func (s *UserService) Create(ctx context.Context, email, passwordHash, name string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name, err = validateName(name)
	if err != nil {
		return nil, err
	}
	if err := validateHash(passwordHash); err != nil {
		return nil, err
	}

	u := &model.User{Email: email, PasswordHash: passwordHash, Name: name}
	if err := s.repo.Create(ctx, u); err != nil {
		// A duplicate signup is an expected outcome, not a failure.
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("id", u.ID),
		slog.String("email", u.Email),
	)
	return u, nil
}

// Update applies a partial update. An empty patch is a validation error.
func (s *UserService) Update(ctx context.Context, email string, patch model.UserPatch) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperror.ValidationFailed("body", "nothing to update: set name or passwordHash")
	}
	if patch.Name != nil {
		name, err := validateName(*patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.PasswordHash != nil {
		if err := validateHash(*patch.PasswordHash); err != nil {
			return nil, err
		}
	}

	u, err := s.repo.Update(ctx, email, patch)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	s.logger.Info("user updated", slog.String("email", email))
	return u, nil
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, email); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	s.logger.Info("user deleted", slog.String("email", email))
	return nil
}

// normalizeEmail trims, lower-cases and checks the address has a mailbox
// shape. Display names ("Alice <a@x.com>") are rejected.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return "", apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	return name, nil
}

func validateHash(hash string) error {
	if hash == "" {
		return apperror.ValidationFailed("passwordHash", "passwordHash is required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return apperror.ValidationFailed("passwordHash", "passwordHash must be a bcrypt hash")
	}
	return nil
}
