// Package directory is the client for the backend's user resource.
//
// Every call first makes sure the backend is reachable through the
// connection.Guard. If it isn't, the call fails fast with
// apperror.ErrDisconnected instead of attempting the request.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/model"
)

// Backend is the part of connection.Guard the directory uses.
type Backend interface {
	EnsureConnected(ctx context.Context) error
	Do(ctx context.Context, method, path string, in, out any) error
	Reset()
}

// Client performs CRUD on /users.
type Client struct {
	backend Backend
}

func New(backend Backend) *Client {
	return &Client{backend: backend}
}

// FindByEmail looks a user up by email. A user that does not exist is
// reported as found=false with a nil error.
func (c *Client) FindByEmail(ctx context.Context, email string) (*model.User, bool, error) {
	if err := c.connect(ctx); err != nil {
		return nil, false, err
	}

	var u model.User
	err := c.do(ctx, http.MethodGet, userPath(email), nil, &u)
	if apperror.IsRemoteStatus(err, http.StatusNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("directory: find %s: %w", email, err)
	}
	return &u, true, nil
}

// Create stores a new user. It does not check for an existing email; callers
// look the email up first.
func (c *Client) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	var created model.User
	if err := c.do(ctx, http.MethodPost, "/users", u, &created); err != nil {
		return nil, fmt.Errorf("directory: create %s: %w", u.Email, err)
	}
	return &created, nil
}

// Update applies patch to the user with the given email.
func (c *Client) Update(ctx context.Context, email string, patch model.UserPatch) (*model.User, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	var updated model.User
	if err := c.do(ctx, http.MethodPut, userPath(email), patch, &updated); err != nil {
		return nil, fmt.Errorf("directory: update %s: %w", email, err)
	}
	return &updated, nil
}

// Delete removes the user. It returns false, with no error, when the user
// did not exist.
func (c *Client) Delete(ctx context.Context, email string) (bool, error) {
	if err := c.connect(ctx); err != nil {
		return false, err
	}

	err := c.do(ctx, http.MethodDelete, userPath(email), nil, nil)
	if apperror.IsRemoteStatus(err, http.StatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("directory: delete %s: %w", email, err)
	}
	return true, nil
}

func (c *Client) connect(ctx context.Context) error {
	if err := c.backend.EnsureConnected(ctx); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrDisconnected, err)
	}
	return nil
}

// do forwards to the backend. A transport failure means the cached
// "connected" answer is stale, so the guard is reset for the next call.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	err := c.backend.Do(ctx, method, path, in, out)
	var netErr *apperror.NetworkError
	if errors.As(err, &netErr) {
		c.backend.Reset()
	}
	return err
}

func userPath(email string) string {
	return "/users/" + url.PathEscape(email)
}
