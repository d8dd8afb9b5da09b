// Package main is the medremind terminal client.
//
// Configuration comes from defaults, then MEDREMIND_* env vars, then flags
// (see internal/client/config). Everything else is wired in internal/client/app.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/medremind/internal/client/app"
	"github.com/sakif/medremind/internal/client/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "medremind: %v\n\n%s", err, app.Usage)
		return 2
	}

	// Logs go to stderr so command output stays scriptable.
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Ctrl+C cancels in-flight requests and a pending `remind`.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, closeApp, err := app.Build(ctx, cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		logger.Error("starting client", slog.String("error", err.Error()))
		return 1
	}
	defer closeApp()

	if err := a.Run(ctx, args); err != nil {
		if errors.Is(err, app.ErrUsage) {
			fmt.Fprintf(os.Stderr, "medremind: %v\n\n%s", err, app.Usage)
			return 2
		}
		fmt.Fprintln(os.Stderr, app.Message(err, logger))
		return 1
	}
	return 0
}
