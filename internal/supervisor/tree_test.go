// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitStarted(t *testing.T, svc *MockService) {
	t.Helper()
	select {
	case <-svc.Started():
	case <-time.After(2 * time.Second):
		t.Fatalf("%s was not started", svc)
	}
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.root == nil {
			t.Fatal("root supervisor should not be nil")
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want defaults", tree.config)
		}
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: time.Second})
		if tree.config.FailureBackoff != time.Second {
			t.Errorf("FailureBackoff = %v, want 1s", tree.config.FailureBackoff)
		}
	})
}

func TestSupervisorTreeStartsEveryLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	data := NewMockService("idempotency-gc")
	messaging := NewMockService("gateway")
	api := NewMockService("http-server")
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*MockService{data, messaging, api} {
		waitStarted(t, svc)
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
	for _, svc := range []*MockService{data, messaging, api} {
		if svc.StopCount() != svc.StartCount() {
			t.Errorf("%s: %d starts, %d stops", svc, svc.StartCount(), svc.StopCount())
		}
	}
}

func TestSupervisorTreeRestartsFailingService(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	relay := NewMockService("relay-consumer")
	relay.SetFailCount(2)
	httpSvc := NewMockService("http-server")
	tree.AddMessagingService(relay)
	tree.AddAPIService(httpSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	waitStarted(t, httpSvc)
	deadline := time.After(2 * time.Second)
	for relay.StartCount() < 3 {
		select {
		case <-relay.Started():
		case <-deadline:
			t.Fatalf("relay started %d times, want 3", relay.StartCount())
		}
	}
	if httpSvc.StartCount() != 1 {
		t.Errorf("http server restarted %d times, want 1 start", httpSvc.StartCount())
	}
}

func TestMockService(t *testing.T) {
	var _ suture.Service = (*MockService)(nil)

	svc := NewMockService("one-shot")
	svc.SetError(suture.ErrDoNotRestart)
	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("err = %v, want ErrDoNotRestart", err)
	}

	svc = NewMockService("retry")
	svc.SetFailCount(1)
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("first call should fail")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second call err = %v, want deadline", err)
	}
}
