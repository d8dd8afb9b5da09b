// Package connection owns the client's link to the backend API.
//
// A Guard answers one question, "is the backend reachable?", and makes sure
// the answer is computed by at most one health check at a time:
//
//	Idle ──EnsureConnected──▶ Connecting ──2xx──▶ Connected (sticky until Reset)
//	                               │
//	                               └──error──▶ Failed (next EnsureConnected retries)
//
// When several UI actions fire at startup they all call EnsureConnected; the
// first one starts GET {endpoint}/health and the rest wait on that same call
// (golang.org/x/sync/singleflight). Once Connected, EnsureConnected does no
// network work until Reset.
//
// The Guard is a value owned by the composition root, not package state, so
// every test builds a fresh one.
package connection

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/client/securestore"
)

// DefaultTimeout bounds every backend request, health checks included.
const DefaultTimeout = 5 * time.Second

// State is the Guard's connection state.
type State int

const (
	Idle State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Config tunes a Guard. Zero values select defaults.
type Config struct {
	// Timeout bounds each request. Expiry surfaces as *apperror.NetworkError.
	Timeout time.Duration
	// HTTPClient is used for all requests. Defaults to a fresh client.
	HTTPClient *http.Client
}

// Guard tracks backend reachability and performs JSON requests against it.
type Guard struct {
	store   securestore.Store
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	state State
	// gen increments on every Reset. An attempt started under an older
	// generation may still finish, but it can no longer change state.
	gen  uint64
	base string
}

// New creates a Guard in the Idle state. The endpoint is read from store
// lazily, on the first connect.
func New(store securestore.Store, cfg Config, logger *slog.Logger) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Guard{
		store:   store,
		client:  cfg.HTTPClient,
		timeout: cfg.Timeout,
		logger:  logger,
		state:   Idle,
	}
}

// State returns the current connection state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// EnsureConnected returns nil once the backend has answered a health check.
//
// Concurrent callers share one in-flight check and observe its outcome. Each
// caller may stop waiting when its own ctx ends; the check itself keeps
// running under the Guard's timeout so the other waiters still get a result.
func (g *Guard) EnsureConnected(ctx context.Context) error {
	g.mu.Lock()
	if g.state == Connected {
		g.mu.Unlock()
		return nil
	}
	gen := g.gen
	g.state = Connecting
	g.mu.Unlock()

	key := strconv.FormatUint(gen, 10)
	attemptCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (any, error) {
		return nil, g.connect(attemptCtx, gen)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &apperror.NetworkError{Op: "connect", Err: ctx.Err()}
	}
}

// Reset forces the Guard back to Idle. The next EnsureConnected re-reads the
// endpoint and performs a fresh health check.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.state = Idle
	g.base = ""
}

// connect runs one health check and commits the outcome if no Reset
// happened in the meantime.
func (g *Guard) connect(ctx context.Context, gen uint64) error {
	g.mu.Lock()
	if gen == g.gen && g.state == Connected {
		// A caller that queued behind a finished attempt.
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	base := g.Endpoint(ctx)
	var health healthResponse
	err := g.request(ctx, base, http.MethodGet, "/health", nil, &health)

	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return err
	}
	if err != nil {
		g.state = Failed
		g.logger.Warn("backend connection failed",
			slog.String("endpoint", base),
			slog.String("error", err.Error()),
		)
		return err
	}

	g.state = Connected
	g.base = base
	g.logger.Info("backend connected",
		slog.String("endpoint", base),
		slog.String("status", health.Status),
	)
	return nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
