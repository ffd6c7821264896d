package cli

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStopper struct {
	stopped int
	err     error
}

func (f *fakeStopper) Stop(ctx context.Context) error {
	f.stopped++
	return f.err
}

func TestWithApp_StopsOnFailure(t *testing.T) {
	app := &fakeStopper{}
	failure := errors.New("session check failed")

	err := withApp(app, time.Second, func() error { return failure })
	if !errors.Is(err, failure) {
		t.Errorf("expected command error, got %v", err)
	}
	if app.stopped != 1 {
		t.Errorf("expected app stopped once, got %d", app.stopped)
	}
}

func TestWithApp_ReportsShutdownError(t *testing.T) {
	shutdown := errors.New("server shutdown timed out")
	app := &fakeStopper{err: shutdown}

	if err := withApp(app, time.Second, func() error { return nil }); !errors.Is(err, shutdown) {
		t.Errorf("expected shutdown error, got %v", err)
	}

	// The command's own error wins over the shutdown error.
	app = &fakeStopper{err: shutdown}
	failure := errors.New("mint failed")
	if err := withApp(app, time.Second, func() error { return failure }); !errors.Is(err, failure) {
		t.Errorf("expected command error, got %v", err)
	}
	if app.stopped != 1 {
		t.Errorf("expected app stopped once, got %d", app.stopped)
	}
}
