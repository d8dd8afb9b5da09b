// Package notify registers the device for notifications and schedules local
// medication reminders.
//
// The platform notification service is a collaborator behind the OS
// interface. A refused permission or a missing project id is an expected
// outcome: RegisterDevice returns apperror.ErrDeclined and logs at info,
// never as a failure.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/medremind/internal/apperror"
)

// DefaultDelay is used when Schedule is called without a trigger.
const DefaultDelay = 2 * time.Second

// Platforms reported by OS.Platform.
const (
	PlatformAndroid  = "android"
	PlatformIOS      = "ios"
	PlatformTerminal = "terminal"
)

// Permission is the notification permission state.
type Permission string

const (
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
	PermissionUndetermined Permission = "undetermined"
)

// Importance of an Android notification channel.
type Importance int

const (
	ImportanceDefault Importance = iota
	ImportanceHigh
	ImportanceMax
)

// Channel is an Android notification channel.
type Channel struct {
	ID               string
	Name             string
	Importance       Importance
	VibrationPattern []time.Duration
	LightColor       string
}

// DefaultChannel is created on Android before asking for permission.
var DefaultChannel = Channel{
	ID:               "default",
	Name:             "default",
	Importance:       ImportanceMax,
	VibrationPattern: []time.Duration{0, 250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond},
	LightColor:       "#FF231F7C",
}

// Content is what the reminder shows.
type Content struct {
	Title string
	Body  string
	Sound string
}

// Trigger says when a reminder fires. At wins over After when set.
type Trigger struct {
	After time.Duration
	At    time.Time
}

// Delay returns how long from now the trigger fires. It never returns a
// negative duration.
func (t Trigger) Delay(now time.Time) time.Duration {
	d := t.After
	if !t.At.IsZero() {
		d = t.At.Sub(now)
	}
	return max(d, 0)
}

// Request is a reminder handed to the OS.
type Request struct {
	Content Content
	Trigger Trigger
}

// OS is the platform notification service.
type OS interface {
	Platform() string
	// IsDevice is false on simulators and hosts without push hardware.
	IsDevice() bool
	SetChannel(ctx context.Context, ch Channel) error
	Permission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (Permission, error)
	PushToken(ctx context.Context, projectID string) (string, error)
	// Schedule queues a local notification and returns its id.
	Schedule(ctx context.Context, req Request) (string, error)
}

// Scheduler is the app-facing notification API.
type Scheduler struct {
	os        OS
	projectID string
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler. projectID identifies the app to the push
// service; registration is declined without it.
func NewScheduler(os OS, projectID string, logger *slog.Logger) *Scheduler {
	return &Scheduler{os: os, projectID: projectID, logger: logger}
}

// RegisterDevice asks for notification permission and returns the device's
// push token. It returns apperror.ErrDeclined when the host is not a physical
// device, permission is refused or no project id is configured.
func (s *Scheduler) RegisterDevice(ctx context.Context) (string, error) {
	if s.os.Platform() == PlatformAndroid {
		if err := s.os.SetChannel(ctx, DefaultChannel); err != nil {
			return "", fmt.Errorf("notify: creating channel: %w", err)
		}
	}

	if !s.os.IsDevice() {
		s.logger.Info("push registration skipped: not a physical device")
		return "", apperror.ErrDeclined
	}

	status, err := s.os.Permission(ctx)
	if err != nil {
		return "", fmt.Errorf("notify: reading permission: %w", err)
	}
	if status != PermissionGranted {
		status, err = s.os.RequestPermission(ctx)
		if err != nil {
			return "", fmt.Errorf("notify: requesting permission: %w", err)
		}
	}
	if status != PermissionGranted {
		s.logger.Info("push registration declined", slog.String("permission", string(status)))
		return "", apperror.ErrDeclined
	}

	if s.projectID == "" {
		s.logger.Info("push registration skipped: no project id configured")
		return "", apperror.ErrDeclined
	}

	token, err := s.os.PushToken(ctx, s.projectID)
	if err != nil {
		return "", fmt.Errorf("notify: fetching push token: %w", err)
	}
	return token, nil
}

// Schedule queues a reminder and returns an id that identifies it to the OS.
// A nil trigger fires after DefaultDelay.
func (s *Scheduler) Schedule(ctx context.Context, title, body string, trigger *Trigger) (string, error) {
	t := Trigger{After: DefaultDelay}
	if trigger != nil {
		t = *trigger
	}

	id, err := s.os.Schedule(ctx, Request{
		Content: Content{Title: title, Body: body, Sound: "default"},
		Trigger: t,
	})
	if err != nil {
		return "", fmt.Errorf("notify: scheduling %q: %w", title, err)
	}
	s.logger.Debug("reminder scheduled", slog.String("id", id), slog.String("title", title))
	return id, nil
}
