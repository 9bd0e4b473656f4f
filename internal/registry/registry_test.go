// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	open   bool
	frames [][]byte
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, open: true}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func mustAdd(t *testing.T, r *Registry, id string) *fakeConn {
	t.Helper()
	c := newFakeConn(id)
	if err := r.Add(c); err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
	return c
}

func TestAddRejectsDuplicateID(t *testing.T) {
	r := New()
	mustAdd(t, r, "CAAAAA")
	if err := r.Add(newFakeConn("CAAAAA")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRebindOverwrites(t *testing.T) {
	r := New()
	c := mustAdd(t, r, "C1")

	if prev, err := r.Bind("C1", "a"); err != nil || prev != "" {
		t.Fatalf("first Bind = %q, %v", prev, err)
	}
	prev, err := r.Bind("C1", "b")
	if err != nil || prev != "a" {
		t.Fatalf("rebind = %q, %v", prev, err)
	}

	got, ok := r.ResolveByUsername("b")
	if !ok || got != c {
		t.Errorf("ResolveByUsername(b) = %v, %v", got, ok)
	}
	if _, ok := r.ResolveByUsername("a"); ok {
		t.Error("ResolveByUsername(a) should be absent after rebind")
	}
	if names := r.Usernames(); len(names) != 1 || names[0] != "b" {
		t.Errorf("Usernames = %v", names)
	}
}

func TestBindUnknownID(t *testing.T) {
	r := New()
	if _, err := r.Bind("nope", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolvePicksMostRecentBinding(t *testing.T) {
	r := New()
	first := mustAdd(t, r, "C1")
	second := mustAdd(t, r, "C2")

	_, _ = r.Bind("C2", "alice")
	_, _ = r.Bind("C1", "alice")

	got, ok := r.ResolveByUsername("alice")
	if !ok || got != first {
		t.Fatalf("expected C1 (bound last), got %v", got)
	}

	// A closed transport is skipped even before the gateway removes it.
	first.Close()
	got, ok = r.ResolveByUsername("alice")
	if !ok || got != second {
		t.Fatalf("expected C2 after C1 closed, got %v", got)
	}

	r.Remove("C2")
	if _, ok := r.ResolveByUsername("alice"); ok {
		t.Error("no open connection should remain for alice")
	}
}

func TestRemoveClearsEverything(t *testing.T) {
	r := New()
	mustAdd(t, r, "C1")
	_, _ = r.Bind("C1", "alice")

	info, ok := r.Remove("C1")
	if !ok || info.Username != "alice" || info.ID != "C1" {
		t.Fatalf("Remove = %+v, %v", info, ok)
	}
	if r.Has("C1") || r.IsOnline("alice") || len(r.Usernames()) != 0 {
		t.Error("registry still holds state for C1")
	}
	if _, ok := r.Username("C1"); ok {
		t.Error("Username should be absent")
	}
	if _, ok := r.Remove("C1"); ok {
		t.Error("second Remove should report false")
	}
}

func TestOrderingFollowsAccept(t *testing.T) {
	r := New()
	for _, id := range []string{"CZ", "CA", "CM"} {
		mustAdd(t, r, id)
	}
	_, _ = r.Bind("CA", "bob")

	conns := r.Conns()
	ids := make([]string, len(conns))
	for i, c := range conns {
		ids[i] = c.ID()
	}
	if fmt.Sprint(ids) != "[CZ CA CM]" {
		t.Errorf("Conns order = %v, want accept order", ids)
	}
	if name, ok := r.Username("CA"); !ok || name != "bob" {
		t.Errorf("Username(CA) = %q, %v", name, ok)
	}
}

func TestConcurrentReads(t *testing.T) {
	r := New()
	for i := 0; i < 50; i++ {
		mustAdd(t, r, fmt.Sprintf("C%02d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Conns()
				_ = r.IsOnline("user")
			}
		}()
	}
	for i := 0; i < 50; i++ {
		_, _ = r.Bind(fmt.Sprintf("C%02d", i), "user")
	}
	wg.Wait()

	if !r.IsOnline("user") {
		t.Error("user should be online")
	}
}
