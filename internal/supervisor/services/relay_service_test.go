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

	"github.com/Zonoik09/Mangasaki-server/internal/relay"
)

type fakeRelay struct {
	err      error
	block    bool
	got      relay.Deliverer
	runCount atomic.Int32
}

func (f *fakeRelay) Run(ctx context.Context, d relay.Deliverer) error {
	f.runCount.Add(1)
	f.got = d
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type nopDeliverer struct{}

func (nopDeliverer) DeliverToUser(context.Context, string, []byte) bool { return false }

func TestRelayConsumerService(t *testing.T) {
	var _ suture.Service = (*RelayConsumerService)(nil)

	t.Run("passes the deliverer and stops on cancel", func(t *testing.T) {
		r := &fakeRelay{block: true}
		svc := NewRelayConsumerService(r, nopDeliverer{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
		if _, ok := r.got.(nopDeliverer); !ok {
			t.Error("deliverer not passed to relay")
		}
	})

	t.Run("wraps subscribe errors", func(t *testing.T) {
		want := errors.New("nats: no servers available")
		svc := NewRelayConsumerService(&fakeRelay{err: want}, nopDeliverer{})
		if err := svc.Serve(context.Background()); !errors.Is(err, want) {
			t.Errorf("Serve = %v, want %v", err, want)
		}
	})

	t.Run("closed subscription is a failure", func(t *testing.T) {
		svc := NewRelayConsumerService(&fakeRelay{}, nopDeliverer{})
		if err := svc.Serve(context.Background()); err == nil {
			t.Error("a closed subscription should make the supervisor resubscribe")
		}
	})

	if got := NewRelayConsumerService(&fakeRelay{}, nopDeliverer{}).String(); got != "relay-consumer" {
		t.Errorf("String() = %q", got)
	}
}

type fakeNATSServer struct {
	running  atomic.Bool
	shutdown atomic.Int32
}

func (f *fakeNATSServer) ClientURL() string { return "nats://127.0.0.1:4222" }

func (f *fakeNATSServer) IsRunning() bool { return f.running.Load() }

func (f *fakeNATSServer) Shutdown(context.Context) error {
	f.shutdown.Add(1)
	f.running.Store(false)
	return nil
}

func TestEmbeddedNATSService(t *testing.T) {
	t.Run("shuts the server down on cancel", func(t *testing.T) {
		srv := &fakeNATSServer{}
		srv.running.Store(true)
		svc := NewEmbeddedNATSService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		cancel()

		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v", err)
		}
		if srv.shutdown.Load() != 1 {
			t.Errorf("shutdown calls = %d, want 1", srv.shutdown.Load())
		}
	})

	t.Run("gives up when the server dies", func(t *testing.T) {
		srv := &fakeNATSServer{}
		svc := NewEmbeddedNATSService(srv, time.Second)
		svc.checkInterval = 5 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := svc.Serve(ctx); !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve = %v, want ErrDoNotRestart", err)
		}
	})
}
