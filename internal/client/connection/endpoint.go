package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/client/securestore"
)

// DefaultEndpoint is used until the user configures another backend.
const DefaultEndpoint = "http://localhost:3000/api"

// Endpoint returns the configured backend base URL, or DefaultEndpoint when
// none is stored. A store read failure also falls back to the default.
//
// This is the only reader of securestore.KeyEndpoint; SetEndpoint is the
// only writer.
func (g *Guard) Endpoint(ctx context.Context) string {
	raw, found, err := g.store.Get(ctx, securestore.KeyEndpoint)
	if err != nil {
		g.logger.Warn("reading backend endpoint, using default",
			slog.String("default", DefaultEndpoint),
			slog.String("error", err.Error()),
		)
		return DefaultEndpoint
	}
	if !found || len(raw) == 0 {
		return DefaultEndpoint
	}
	return string(raw)
}

// SetEndpoint validates and persists a new backend base URL, then resets the
// Guard so the next request health-checks the new backend.
func (g *Guard) SetEndpoint(ctx context.Context, uri string) error {
	normalized, err := normalizeEndpoint(uri)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, securestore.KeyEndpoint, []byte(normalized)); err != nil {
		return fmt.Errorf("connection: saving endpoint: %w", err)
	}
	g.Reset()
	g.logger.Info("backend endpoint changed", slog.String("endpoint", normalized))
	return nil
}

func normalizeEndpoint(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperror.ValidationFailed("endpoint",
			fmt.Sprintf("endpoint must be an absolute http(s) URL, got %q", uri))
	}
	return strings.TrimRight(uri, "/"), nil
}
