// Package app is the composition root of the medremind terminal client. It
// wires the secure store, connection guard, directory, session controller,
// reminder scheduler and health assistant, and maps subcommands onto them.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sakif/medremind/internal/auth"
	"github.com/sakif/medremind/internal/biometric"
	"github.com/sakif/medremind/internal/client/config"
	"github.com/sakif/medremind/internal/client/connection"
	"github.com/sakif/medremind/internal/client/directory"
	"github.com/sakif/medremind/internal/client/securestore"
	"github.com/sakif/medremind/internal/client/session"
	"github.com/sakif/medremind/internal/healthai"
	"github.com/sakif/medremind/internal/notify"
)

// App holds the wired client.
type App struct {
	Guard     *connection.Guard
	Session   *session.Controller
	Reminders *notify.Scheduler
	Assistant *healthai.Assistant

	// Out receives command output.
	Out io.Writer
	// ReadSecret prompts for a password without echoing it.
	ReadSecret func(prompt string) (string, error)

	local  *notify.Local
	fired  chan notify.Content
	logger *slog.Logger
}

// Deps are the pieces Build would otherwise create. Tests supply them directly.
type Deps struct {
	Store      securestore.Store
	Hasher     session.Hasher
	Biometric  biometric.Authenticator
	Generator  healthai.Generator
	Connection connection.Config
	ProjectID  string
}

// New wires an App from deps.
func New(deps Deps, out io.Writer, logger *slog.Logger) *App {
	guard := connection.New(deps.Store, deps.Connection, logger)
	dir := directory.New(guard)

	a := &App{
		Guard:     guard,
		Session:   session.New(dir, deps.Hasher, deps.Store, deps.Biometric, logger),
		Assistant: healthai.New(deps.Generator, logger),
		Out:       out,
		fired:     make(chan notify.Content, 16),
		logger:    logger,
	}
	a.local = notify.NewLocal(func(_ string, c notify.Content) {
		select {
		case a.fired <- c:
		default:
			logger.Warn("reminder dropped", slog.String("title", c.Title))
		}
	})
	a.Reminders = notify.NewScheduler(a.local, deps.ProjectID, logger)
	return a
}

// Build opens the secure store named by cfg and wires a terminal App. The
// returned close func releases the store and cancels pending reminders.
func Build(ctx context.Context, cfg *config.Config, in *os.File, out io.Writer, logger *slog.Logger) (*App, func(), error) {
	var (
		store   securestore.Store
		closers []func() error
	)
	if cfg.Ephemeral {
		store = securestore.NewMemory()
	} else {
		secret, err := cfg.Secret()
		if err != nil {
			return nil, nil, err
		}
		db, err := securestore.Open(ctx, cfg.StorePath(), secret)
		if err != nil {
			return nil, nil, err
		}
		store = db
		closers = append(closers, db.Close)
	}

	var gen healthai.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := healthai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("health assistant disabled", slog.String("error", err.Error()))
		} else {
			gen = g
		}
	}

	a := New(Deps{
		Store:      store,
		Hasher:     auth.NewPasswordService(),
		Biometric:  biometric.Terminal{},
		Generator:  gen,
		Connection: connection.Config{Timeout: cfg.Timeout},
		ProjectID:  cfg.ProjectID,
	}, out, logger)
	a.ReadSecret = terminalSecretReader(in, out)

	closeFn := func() {
		a.local.Stop()
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("closing secure store", slog.String("error", err.Error()))
			}
		}
	}
	return a, closeFn, nil
}

// terminalSecretReader reads without echo when in is a terminal and falls
// back to one line of input otherwise, so passwords can be piped in scripts.
func terminalSecretReader(in *os.File, out io.Writer) func(string) (string, error) {
	lines := bufio.NewReader(in)
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		fd := int(in.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			if err != nil {
				return "", fmt.Errorf("reading password: %w", err)
			}
			return string(b), nil
		}
		line, err := lines.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
