package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Local is an in-process OS for the terminal client. Permission is always
// granted, there is no push hardware, and reminders fire on timers and are
// handed to Deliver.
type Local struct {
	// Deliver receives each reminder when it fires. It runs on the timer's
	// goroutine.
	Deliver func(id string, c Content)

	now func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

var _ OS = (*Local)(nil)

func NewLocal(deliver func(id string, c Content)) *Local {
	return &Local{
		Deliver: deliver,
		now:     time.Now,
		timers:  make(map[string]*time.Timer),
	}
}

func (l *Local) Platform() string { return PlatformTerminal }
func (l *Local) IsDevice() bool   { return false }

func (l *Local) SetChannel(context.Context, Channel) error { return nil }

func (l *Local) Permission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (l *Local) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (l *Local) PushToken(context.Context, string) (string, error) {
	return "", nil
}

func (l *Local) Schedule(_ context.Context, req Request) (string, error) {
	id := uuid.NewString()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.timers[id] = time.AfterFunc(req.Trigger.Delay(l.now()), func() {
		l.mu.Lock()
		delete(l.timers, id)
		l.mu.Unlock()
		if l.Deliver != nil {
			l.Deliver(id, req.Content)
		}
	})
	return id, nil
}

// Pending returns how many reminders have not fired yet.
func (l *Local) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Stop cancels every pending reminder.
func (l *Local) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
}
