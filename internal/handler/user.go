package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/model"
)

// UserService is what the handler needs from the service layer.
// *service.UserService implements it.
type UserService interface {
	Get(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, email, passwordHash, name string) (*model.User, error)
	Update(ctx context.Context, email string, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, email string) error
}

// UserHandler serves /api/users.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// HandleGet handles GET /api/users/{email}.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	u, err := h.svc.Get(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleCreate handles POST /api/users.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// The body is a User; id and timestamps, if sent, are ignored and
	// assigned by the repository.
	var req model.User
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid user JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	u, err := h.svc.Create(r.Context(), req.Email, req.PasswordHash, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// HandleUpdate handles PUT /api/users/{email}. Only fields present in the
// body change.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.svc.Update(r.Context(), email, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleDelete handles DELETE /api/users/{email}.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}

// emailParam returns the {email} path segment, unescaped.
//
// chi matches on r.URL.RawPath when the request has one and on the already
// decoded r.URL.Path otherwise. Only the raw form is unescaped here, so an
// address containing a literal "%41" is not decoded twice.
func emailParam(r *http.Request) (string, error) {
	email := chi.URLParam(r, "email")
	if r.URL.RawPath == "" {
		return email, nil
	}
	email, err := url.PathUnescape(email)
	if err != nil {
		return "", apperror.ValidationFailed("email", "email path segment is malformed")
	}
	return email, nil
}
