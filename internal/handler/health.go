// Package handler contains the HTTP request handlers of the MedRemind backend.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, JSON body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, JSON body)
//
// Handlers hold no business logic. Validation and uniqueness rules live in
// internal/service; the only translation done here is error → status code
// (see writeError).
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/medremind/internal/model"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /api/health. The client's connection guard calls
// it before any other request.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, model.Health{
			Status:  "error",
			Message: "Database unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, model.Health{Status: "ok", Message: "Server is running"})
}
