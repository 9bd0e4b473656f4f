// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package idempotency remembers the reply sent for a client request token so
// that a retried notification message is answered again without being
// applied twice.
//
// Keys combine the message type, the sender and the client's request_id.
// Entries expire after a TTL; BadgerDB expires them natively and
// CleanupExpired sweeps anything compaction has not reached yet.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("idempotency: tracker closed")

// Entry is one remembered reply.
type Entry struct {
	Key       string          `json:"key"`
	Reply     json.RawMessage `json:"reply"`
	FirstSeen time.Time       `json:"first_seen"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Tracker stores replies by request key.
type Tracker interface {
	// Lookup returns the reply remembered for key, if it has not expired.
	Lookup(ctx context.Context, key string) ([]byte, bool, error)

	// Remember stores reply under key for ttl. An existing live entry is
	// kept so the first reply wins.
	Remember(ctx context.Context, key string, reply []byte, ttl time.Duration) error

	// CleanupExpired removes expired entries and returns how many it removed.
	CleanupExpired(ctx context.Context) (int, error)

	// Size returns the number of stored entries.
	Size(ctx context.Context) (int, error)

	Close() error
}

// Key builds the tracker key for a client request. It returns "" when the
// client did not send a request id.
func Key(msgType, senderID, requestID string) string {
	if requestID == "" {
		return ""
	}
	return strings.Join([]string{msgType, senderID, requestID}, "|")
}

// MemoryTracker keeps entries in a map. Entries are lost on restart.
type MemoryTracker struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	closed  bool
	now     func() time.Time
}

// NewMemoryTracker creates an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (t *MemoryTracker) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		metrics.RecordIdempotency("lookup", "failure")
		return nil, false, ErrClosed
	}
	e, ok := t.entries[key]
	if !ok || e.expired(t.now()) {
		metrics.RecordIdempotency("lookup", "miss")
		return nil, false, nil
	}
	metrics.RecordIdempotency("lookup", "hit")
	return append([]byte(nil), e.Reply...), true, nil
}

func (t *MemoryTracker) Remember(_ context.Context, key string, reply []byte, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		metrics.RecordIdempotency("store", "failure")
		return ErrClosed
	}
	now := t.now()
	if e, ok := t.entries[key]; ok && !e.expired(now) {
		metrics.RecordIdempotency("store", "exists")
		return nil
	}
	t.entries[key] = &Entry{
		Key:       key,
		Reply:     append(json.RawMessage(nil), reply...),
		FirstSeen: now,
		ExpiresAt: now.Add(ttl),
	}
	metrics.RecordIdempotency("store", "success")
	return nil
}

func (t *MemoryTracker) CleanupExpired(_ context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}
	now := t.now()
	removed := 0
	for key, e := range t.entries {
		if e.expired(now) {
			delete(t.entries, key)
			removed++
		}
	}
	metrics.RecordIdempotency("cleanup", "success")
	return removed, nil
}

func (t *MemoryTracker) Size(_ context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return 0, ErrClosed
	}
	return len(t.entries), nil
}

func (t *MemoryTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.entries = nil
	return nil
}

var _ Tracker = (*MemoryTracker)(nil)
