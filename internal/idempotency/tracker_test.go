// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zonoik09/Mangasaki-server/internal/config"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func trackers(t *testing.T) map[string]func(clock *fakeClock) Tracker {
	t.Helper()
	return map[string]func(clock *fakeClock) Tracker{
		"memory": func(clock *fakeClock) Tracker {
			m := NewMemoryTracker()
			m.now = clock.now
			return m
		},
		"badger": func(clock *fakeClock) Tracker {
			b, err := OpenBadger("")
			if err != nil {
				t.Fatalf("OpenBadger: %v", err)
			}
			b.now = clock.now
			return b
		},
	}
}

func TestKey(t *testing.T) {
	if got := Key("like_notification", "4", "r1"); got != "like_notification|4|r1" {
		t.Errorf("Key = %q", got)
	}
	if Key("like_notification", "4", "") != "" {
		t.Error("missing request id should give an empty key")
	}
}

func TestTrackerRoundTrip(t *testing.T) {
	for name, build := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{t: time.Now()}
			tr := build(clock)
			defer tr.Close()

			if _, ok, err := tr.Lookup(ctx, "k"); ok || err != nil {
				t.Fatalf("empty lookup = %v, %v", ok, err)
			}
			reply := []byte(`{"type":"notificationSent","status":"OK","message":"first"}`)
			if err := tr.Remember(ctx, "k", reply, time.Minute); err != nil {
				t.Fatalf("Remember: %v", err)
			}
			// The first reply wins.
			if err := tr.Remember(ctx, "k", []byte(`{"type":"x"}`), time.Minute); err != nil {
				t.Fatalf("second Remember: %v", err)
			}

			got, ok, err := tr.Lookup(ctx, "k")
			if err != nil || !ok || string(got) != string(reply) {
				t.Fatalf("Lookup = %s, %v, %v", got, ok, err)
			}
			if n, _ := tr.Size(ctx); n != 1 {
				t.Errorf("Size = %d, want 1", n)
			}
		})
	}
}

func TestTrackerExpiry(t *testing.T) {
	for name, build := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{t: time.Now()}
			tr := build(clock)
			defer tr.Close()

			_ = tr.Remember(ctx, "old", []byte(`{"a":1}`), time.Minute)
			_ = tr.Remember(ctx, "new", []byte(`{"a":2}`), time.Hour)

			clock.t = clock.t.Add(2 * time.Minute)
			if _, ok, _ := tr.Lookup(ctx, "old"); ok {
				t.Error("expired entry should miss")
			}
			removed, err := tr.CleanupExpired(ctx)
			if err != nil || removed != 1 {
				t.Fatalf("CleanupExpired = %d, %v", removed, err)
			}
			if _, ok, _ := tr.Lookup(ctx, "new"); !ok {
				t.Error("live entry should survive cleanup")
			}

			// An expired key may be reused.
			if err := tr.Remember(ctx, "old", []byte(`{"a":3}`), time.Minute); err != nil {
				t.Fatal(err)
			}
			got, ok, _ := tr.Lookup(ctx, "old")
			if !ok || string(got) != `{"a":3}` {
				t.Errorf("reused key = %s, %v", got, ok)
			}
		})
	}
}

func TestTrackerClosed(t *testing.T) {
	for name, build := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			tr := build(&fakeClock{t: time.Now()})
			if err := tr.Close(); err != nil {
				t.Fatal(err)
			}
			ctx := context.Background()
			if _, _, err := tr.Lookup(ctx, "k"); !errors.Is(err, ErrClosed) {
				t.Errorf("Lookup err = %v", err)
			}
			if err := tr.Remember(ctx, "k", []byte(`{}`), time.Minute); !errors.Is(err, ErrClosed) {
				t.Errorf("Remember err = %v", err)
			}
		})
	}
}

func TestBadgerRunGCInMemory(t *testing.T) {
	b, err := OpenBadger("")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.RunGC(); err != nil {
		t.Errorf("RunGC = %v", err)
	}
}

func TestNew(t *testing.T) {
	tr, err := New(&config.IdempotencyConfig{Enabled: false})
	if err != nil || tr != nil {
		t.Fatalf("disabled = %v, %v", tr, err)
	}

	tr, err = New(&config.IdempotencyConfig{Enabled: true, Backend: BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*MemoryTracker); !ok {
		t.Errorf("memory backend gave %T", tr)
	}

	tr, err = New(&config.IdempotencyConfig{Enabled: true, Backend: BackendBadger, Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*BadgerTracker); !ok {
		t.Errorf("badger backend gave %T", tr)
	}
	_ = tr.Close()

	if _, err := New(&config.IdempotencyConfig{Enabled: true, Backend: "redis"}); err == nil {
		t.Error("unknown backend should fail")
	}
}
