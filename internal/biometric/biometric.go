// Package biometric describes the device's fingerprint/face subsystem.
//
// The session controller only talks to the Authenticator interface; the
// platform supplies the real implementation. Terminal is the implementation
// used by the command-line client, where no biometric hardware exists.
package biometric

import (
	"context"
	"strconv"
)

// Capabilities reports what the device can do.
type Capabilities struct {
	HasHardware bool
	IsEnrolled  bool
}

// Usable reports whether a biometric prompt can succeed on this device.
func (c Capabilities) Usable() bool {
	return c.HasHardware && c.IsEnrolled
}

// Prompt configures the system dialog.
type Prompt struct {
	Message       string
	FallbackLabel string
	CancelLabel   string
	// DisableDeviceFallback hides the device PIN/passcode fallback.
	DisableDeviceFallback bool
}

// DefaultPrompt is the login screen's dialog.
var DefaultPrompt = Prompt{
	Message:       "Use Face ID or Touch ID",
	FallbackLabel: "Use PIN",
	CancelLabel:   "Cancel",
}

// Result is the outcome of a prompt.
type Result int

const (
	Failure Result = iota
	Success
	Cancel
)

func (r Result) String() string {
	switch r {
	case Failure:
		return "failure"
	case Success:
		return "success"
	case Cancel:
		return "cancel"
	default:
		return "Result(" + strconv.Itoa(int(r)) + ")"
	}
}

// Authenticator is the biometric subsystem.
type Authenticator interface {
	Capabilities(ctx context.Context) (Capabilities, error)
	Authenticate(ctx context.Context, p Prompt) (Result, error)
}

// Terminal is an Authenticator for hosts without biometric hardware.
type Terminal struct{}

var _ Authenticator = Terminal{}

func (Terminal) Capabilities(context.Context) (Capabilities, error) {
	return Capabilities{}, nil
}

func (Terminal) Authenticate(context.Context, Prompt) (Result, error) {
	return Failure, nil
}
