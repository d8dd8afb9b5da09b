package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/medremind/internal/apperror"
	"github.com/sakif/medremind/internal/client/session"
	"github.com/sakif/medremind/internal/notify"
)

const msgGeneric = "An error occurred. Please try again."

// ErrUsage reports a malformed command line. Run prints Usage with it.
var ErrUsage = errors.New("usage error")

// Usage lists the subcommands.
const Usage = `usage: medremind [flags] <command> [args]

commands:
  status                       check the backend connection
  endpoint                     print the backend endpoint
  endpoint set <url>           change the backend endpoint
  signup <email> <name...>     create an account (password is prompted)
  login <email>                sign in (password is prompted)
  biometric                    unlock the stored session with biometrics
  whoami                       print the signed-in user
  logout                       remove the stored session
  remind [-in 2s] <title> [body...]
                               schedule a reminder and wait for it
  register                     register this device for push reminders
  ask <question...>            ask the health assistant
`

// Run executes one subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "status":
		return a.status(ctx)
	case "endpoint":
		return a.endpoint(ctx, rest)
	case "signup":
		return a.signup(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "biometric":
		return a.biometric(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "logout":
		return a.logout(ctx)
	case "remind":
		return a.remind(ctx, rest)
	case "register":
		return a.register(ctx)
	case "ask":
		return a.ask(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.Out, Usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) status(ctx context.Context) error {
	endpoint := a.Guard.Endpoint(ctx)
	if err := a.Guard.EnsureConnected(ctx); err != nil {
		fmt.Fprintf(a.Out, "%s: %s\n", endpoint, a.Guard.State())
		return err
	}
	fmt.Fprintf(a.Out, "%s: %s\n", endpoint, a.Guard.State())
	return nil
}

func (a *App) endpoint(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		fmt.Fprintln(a.Out, a.Guard.Endpoint(ctx))
		return nil
	case len(args) == 2 && args[0] == "set":
		if err := a.Guard.SetEndpoint(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(a.Out, a.Guard.Endpoint(ctx))
		return nil
	default:
		return fmt.Errorf("%w: endpoint [set <url>]", ErrUsage)
	}
}

func (a *App) signup(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: signup <email> <name...>", ErrUsage)
	}
	password, err := a.ReadSecret("Password: ")
	if err != nil {
		return err
	}
	s, err := a.Session.Signup(ctx, args[0], password, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Welcome, %s\n", s.User.Name)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <email>", ErrUsage)
	}
	password, err := a.ReadSecret("Password: ")
	if err != nil {
		return err
	}
	s, err := a.Session.Login(ctx, args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Signed in as %s\n", s.User.Email)
	return nil
}

func (a *App) biometric(ctx context.Context) error {
	s, err := a.Session.AuthenticateBiometric(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Unlocked %s\n", s.User.Email)
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	s, found, err := a.Session.Current(ctx)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(a.Out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.Out, "%s <%s> since %s\n", s.User.Name, s.User.Email, s.CreatedAt.Local().Format(time.RFC822))
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Signed out")
	return nil
}

func (a *App) remind(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remind", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	after := fs.Duration("in", notify.DefaultDelay, "delay before the reminder fires")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: remind [-in 2s] <title> [body...]", ErrUsage)
	}
	title, body := fs.Arg(0), strings.Join(fs.Args()[1:], " ")

	id, err := a.Reminders.Schedule(ctx, title, body, &notify.Trigger{After: *after})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Reminder %s scheduled in %s\n", id, *after)

	select {
	case c := <-a.fired:
		fmt.Fprintf(a.Out, "\a%s: %s\n", c.Title, c.Body)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) register(ctx context.Context) error {
	token, err := a.Reminders.RegisterDevice(ctx)
	if errors.Is(err, apperror.ErrDeclined) {
		fmt.Fprintln(a.Out, "Push notifications are not available on this device")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, token)
	return nil
}

func (a *App) ask(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: ask <question...>", ErrUsage)
	}
	fmt.Fprintln(a.Out, a.Assistant.Ask(ctx, strings.Join(args, " ")))
	return nil
}

// Message returns the text to show the user for err. Session errors carry a
// display-safe message; other errors are logged and replaced by a generic one.
func Message(err error, logger *slog.Logger) string {
	var se *session.Error
	if errors.As(err, &se) {
		return se.Message
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "Cancelled"
	}
	if errors.Is(err, apperror.ErrDisconnected) {
		return "Backend unreachable"
	}
	var netErr *apperror.NetworkError
	if errors.As(err, &netErr) {
		return "Backend unreachable"
	}
	var remote *apperror.RemoteError
	if errors.As(err, &remote) {
		return fmt.Sprintf("Backend responded with status %d", remote.Status)
	}
	logger.Error("command failed", slog.String("error", err.Error()))
	return msgGeneric
}
