// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/Zonoik09/Mangasaki-server/internal/idempotency"
)

func TestIdempotencyGCServiceRemovesExpired(t *testing.T) {
	var _ suture.Service = (*IdempotencyGCService)(nil)

	tracker := idempotency.NewMemoryTracker()
	ctx := context.Background()
	if err := tracker.Remember(ctx, "short", []byte(`{}`), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Remember(ctx, "long", []byte(`{}`), time.Hour); err != nil {
		t.Fatal(err)
	}

	svc := NewIdempotencyGCService(tracker, 10*time.Millisecond)
	runCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(runCtx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := tracker.Size(ctx); n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n, _ := tracker.Size(ctx); n != 1 {
		t.Errorf("size = %d, want 1 after cleanup", n)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
}

func TestIdempotencyGCServiceStopsOnClosedStore(t *testing.T) {
	tracker := idempotency.NewMemoryTracker()
	_ = tracker.Close()

	svc := NewIdempotencyGCService(tracker, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("Serve = %v, want ErrDoNotRestart", err)
	}
}

type gcStore struct {
	cleanups atomic.Int32
	gcRuns   atomic.Int32
	err      error
}

func (g *gcStore) CleanupExpired(context.Context) (int, error) {
	g.cleanups.Add(1)
	return 0, g.err
}

func (g *gcStore) RunGC() error {
	g.gcRuns.Add(1)
	return nil
}

func TestIdempotencyGCServiceRunsValueLogGC(t *testing.T) {
	store := &gcStore{}
	svc := NewIdempotencyGCService(store, time.Hour)

	if err := svc.collect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.cleanups.Load() != 1 || store.gcRuns.Load() != 1 {
		t.Errorf("cleanups = %d, gc = %d", store.cleanups.Load(), store.gcRuns.Load())
	}

	store.err = errors.New("disk full")
	if err := svc.collect(context.Background()); err != nil {
		t.Errorf("transient failure should not stop the service: %v", err)
	}
	if store.gcRuns.Load() != 1 {
		t.Error("value log GC should be skipped after a failed cleanup")
	}
}

func TestNewIdempotencyGCServiceDefaults(t *testing.T) {
	svc := NewIdempotencyGCService(&gcStore{}, 0)
	if svc.interval != DefaultGCInterval {
		t.Errorf("interval = %v", svc.interval)
	}
	if svc.String() != "idempotency-gc" {
		t.Errorf("String() = %q", svc.String())
	}
}
