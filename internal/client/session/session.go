// Package session drives sign-in: password login, signup, biometric unlock
// and logout, and keeps the resulting session in the secure store.
//
// Every operation returns either a session or an *Error. An *Error prints as
// a message that is safe to show the user. The underlying cause stays
// reachable for errors.Is / errors.As, but its text is never in the message.
// So a caller can branch on apperror.ErrUserNotFound without string matching,
// and a dropped connection never ends up on screen as "dial tcp ...".
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/biometric"
	"github.com/sakif/medremind/internal/client/securestore"
	"github.com/sakif/medremind/internal/model"
)

// User-facing messages.
const (
	MsgMissingCredentials = "Please enter your email and password"
	MsgMissingName        = "Please enter your name"
	MsgInvalidEmail       = "Please enter a valid email address"
	MsgUserNotFound       = "User not found"
	MsgInvalidPassword    = "Invalid password"
	MsgEmailTaken         = "Email already registered"
	MsgCreateFailed       = "Failed to create user"
	MsgLoginFailed        = "Login failed. Please try again."
	MsgSignupFailed       = "Signup failed. Please try again."
	MsgBiometricFailed    = "Authentication failed. Please try again."
	MsgBiometricError     = "An error occurred. Please try again."
	MsgBiometricNoSession = "Sign in with your password first."
	MsgBiometricMissing   = "Biometric authentication is not available on this device."
	MsgPersistFailed      = "Could not save your session. Please try again."
	MsgLogoutFailed       = "Could not sign out. Please try again."
)

// Error is a failed session operation.
type Error struct {
	// Message is safe to display.
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// Directory is the part of the user directory client the controller needs.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*model.User, bool, error)
	Create(ctx context.Context, u *model.User) (*model.User, error)
}

// Hasher hashes and verifies passwords. auth.PasswordService implements it.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) (bool, error)
}

// Controller orchestrates the sign-in flows.
type Controller struct {
	dir    Directory
	hasher Hasher
	store  securestore.Store
	bio    biometric.Authenticator
	logger *slog.Logger
	now    func() time.Time

	authenticating atomic.Bool

	mu      sync.Mutex
	lastErr string
}

func New(dir Directory, hasher Hasher, store securestore.Store, bio biometric.Authenticator, logger *slog.Logger) *Controller {
	return &Controller{
		dir:    dir,
		hasher: hasher,
		store:  store,
		bio:    bio,
		logger: logger,
		now:    time.Now,
	}
}

// LastError is the message of the most recent failed attempt, or "" when the
// latest attempt succeeded or is still running.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Authenticating reports whether an attempt is in flight. The interface layer
// disables its sign-in actions while it is true.
func (c *Controller) Authenticating() bool {
	return c.authenticating.Load()
}

// Login signs in with email and password.
func (c *Controller) Login(ctx context.Context, email, password string) (*model.Session, error) {
	defer c.begin()()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, c.fail(MsgMissingCredentials, apperror.ValidationFailed("email", "email and password are required"))
	}
	if !validEmail(email) {
		// No account can exist under a malformed address, and the backend
		// would answer the lookup with 400 rather than 404.
		return nil, c.fail(MsgUserNotFound, fmt.Errorf("%w: %w", apperror.ErrUserNotFound,
			apperror.ValidationFailed("email", "email is not a valid address")))
	}

	user, found, err := c.dir.FindByEmail(ctx, email)
	if err != nil {
		c.logger.Error("login lookup failed", slog.String("email", email), slog.String("error", err.Error()))
		return nil, c.fail(MsgLoginFailed, err)
	}
	if !found {
		return nil, c.fail(MsgUserNotFound, apperror.ErrUserNotFound)
	}

	ok, err := c.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		// The stored record is corrupt, which is not the user's fault.
		c.logger.Error("stored password hash unreadable", slog.String("email", email), slog.String("error", err.Error()))
		return nil, c.fail(MsgLoginFailed, err)
	}
	if !ok {
		return nil, c.fail(MsgInvalidPassword, apperror.ErrInvalidCredential)
	}

	s, err := c.persist(ctx, *user)
	if err != nil {
		return nil, err
	}
	c.logger.Info("user logged in", slog.String("email", email))
	return s, nil
}

// Signup creates an account and signs in with it.
func (c *Controller) Signup(ctx context.Context, email, password, name string) (*model.Session, error) {
	defer c.begin()()

	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" {
		return nil, c.fail(MsgMissingCredentials, apperror.ValidationFailed("email", "email and password are required"))
	}
	if name == "" {
		return nil, c.fail(MsgMissingName, apperror.ValidationFailed("name", "name is required"))
	}
	if !validEmail(email) {
		return nil, c.fail(MsgInvalidEmail, apperror.ValidationFailed("email", "email is not a valid address"))
	}

	_, found, err := c.dir.FindByEmail(ctx, email)
	if err != nil {
		c.logger.Error("signup lookup failed", slog.String("email", email), slog.String("error", err.Error()))
		return nil, c.fail(MsgSignupFailed, err)
	}
	if found {
		return nil, c.fail(MsgEmailTaken, apperror.ErrEmailTaken)
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, c.fail(appErr.Message, err)
		}
		c.logger.Error("hashing password", slog.String("error", err.Error()))
		return nil, c.fail(MsgSignupFailed, err)
	}

	created, err := c.dir.Create(ctx, &model.User{Email: email, PasswordHash: hash, Name: name})
	switch {
	case apperror.IsRemoteStatus(err, http.StatusConflict):
		// Someone registered the email between the lookup and the create.
		return nil, c.fail(MsgEmailTaken, fmt.Errorf("%w: %w", apperror.ErrEmailTaken, err))
	case errors.Is(err, apperror.ErrDisconnected):
		c.logger.Error("signup create failed", slog.String("email", email), slog.String("error", err.Error()))
		return nil, c.fail(MsgSignupFailed, err)
	case err != nil:
		c.logger.Error("signup create failed", slog.String("email", email), slog.String("error", err.Error()))
		return nil, c.fail(MsgCreateFailed, err)
	}

	s, err := c.persist(ctx, *created)
	if err != nil {
		return nil, err
	}
	c.logger.Info("user signed up", slog.String("email", email))
	return s, nil
}

// BiometricAvailable reports whether the biometric path should be offered:
// the device has enrolled biometrics and a previous session exists.
// Biometric success carries no identity, so it can only unlock a session
// that is already on the device.
func (c *Controller) BiometricAvailable(ctx context.Context) bool {
	caps, err := c.bio.Capabilities(ctx)
	if err != nil || !caps.Usable() {
		return false
	}
	_, found, err := c.Current(ctx)
	return err == nil && found
}

// AuthenticateBiometric unlocks the stored session with the device's
// biometrics. A refused or cancelled prompt returns apperror.ErrDeclined.
func (c *Controller) AuthenticateBiometric(ctx context.Context) (*model.Session, error) {
	defer c.begin()()

	prev, found, err := c.Current(ctx)
	if err != nil {
		c.logger.Error("reading stored session", slog.String("error", err.Error()))
		return nil, c.fail(MsgBiometricError, err)
	}
	if !found {
		return nil, c.fail(MsgBiometricNoSession, apperror.ErrNoSession)
	}

	caps, err := c.bio.Capabilities(ctx)
	if err != nil {
		c.logger.Error("querying biometric hardware", slog.String("error", err.Error()))
		return nil, c.fail(MsgBiometricError, err)
	}
	if !caps.Usable() {
		c.logger.Info("biometric unavailable",
			slog.Bool("hasHardware", caps.HasHardware),
			slog.Bool("isEnrolled", caps.IsEnrolled),
		)
		return nil, c.fail(MsgBiometricMissing, apperror.ErrDeclined)
	}

	res, err := c.bio.Authenticate(ctx, biometric.DefaultPrompt)
	if err != nil {
		c.logger.Error("biometric prompt failed", slog.String("error", err.Error()))
		return nil, c.fail(MsgBiometricError, err)
	}
	if res != biometric.Success {
		c.logger.Info("biometric declined", slog.String("result", res.String()))
		return nil, c.fail(MsgBiometricFailed, apperror.ErrDeclined)
	}

	s, err := c.persist(ctx, prev.User)
	if err != nil {
		return nil, err
	}
	c.logger.Info("user unlocked with biometrics", slog.String("email", s.User.Email))
	return s, nil
}

// Current returns the stored session, if any.
func (c *Controller) Current(ctx context.Context) (*model.Session, bool, error) {
	raw, found, err := c.store.Get(ctx, securestore.KeySession)
	if err != nil || !found {
		return nil, false, err
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("session: decoding stored session: %w", err)
	}
	return &s, true, nil
}

// Logout removes the stored session.
func (c *Controller) Logout(ctx context.Context) error {
	c.clearError()
	if err := c.store.Delete(ctx, securestore.KeySession); err != nil {
		c.logger.Error("deleting session", slog.String("error", err.Error()))
		return c.fail(MsgLogoutFailed, fmt.Errorf("%w: %w", apperror.ErrSessionPersist, err))
	}
	c.logger.Info("user logged out")
	return nil
}

// persist writes a fresh session for u. A failed write is reported and
// leaves the previous session in place.
func (c *Controller) persist(ctx context.Context, u model.User) (*model.Session, error) {
	s := &model.Session{User: u, CreatedAt: c.now().UTC()}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, c.fail(MsgPersistFailed, fmt.Errorf("%w: %w", apperror.ErrSessionPersist, err))
	}
	if err := c.store.Set(ctx, securestore.KeySession, raw); err != nil {
		c.logger.Error("saving session", slog.String("email", u.Email), slog.String("error", err.Error()))
		return nil, c.fail(MsgPersistFailed, fmt.Errorf("%w: %w", apperror.ErrSessionPersist, err))
	}
	return s, nil
}

// begin marks an attempt in flight and clears the previous error. The
// returned func ends the attempt.
func (c *Controller) begin() func() {
	c.authenticating.Store(true)
	c.clearError()
	return func() { c.authenticating.Store(false) }
}

func (c *Controller) clearError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

func (c *Controller) fail(msg string, err error) *Error {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
	return &Error{Message: msg, Err: err}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail applies the backend's address rule: a bare addr-spec with no
// display name.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
