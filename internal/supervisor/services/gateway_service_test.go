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
)

// fakeGateway stands in for *websocket.Gateway.
type fakeGateway struct {
	runErr   error
	runCount atomic.Int32
}

func (f *fakeGateway) RunWithContext(ctx context.Context) error {
	f.runCount.Add(1)
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestGatewayService(t *testing.T) {
	var _ suture.Service = (*GatewayService)(nil)

	t.Run("returns context error on cancellation", func(t *testing.T) {
		gw := &fakeGateway{}
		svc := NewGatewayService(gw)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return after cancellation")
		}
		if gw.runCount.Load() != 1 {
			t.Errorf("expected 1 run, got %d", gw.runCount.Load())
		}
	})

	t.Run("propagates loop errors", func(t *testing.T) {
		want := errors.New("loop failed")
		svc := NewGatewayService(&fakeGateway{runErr: want})
		if err := svc.Serve(context.Background()); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})

	if got := NewGatewayService(&fakeGateway{}).String(); got != "gateway" {
		t.Errorf("String() = %q", got)
	}
}

func TestGatewayServiceUnderSupervisor(t *testing.T) {
	gw := &fakeGateway{}
	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
	})
	sup.Add(NewGatewayService(gw))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(time.Second)
	for gw.runCount.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if gw.runCount.Load() == 0 {
		t.Error("gateway loop was not started")
	}
	cancel()
	<-errCh
}
