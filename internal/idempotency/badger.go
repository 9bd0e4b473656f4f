// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
)

const defaultPrefix = "idem:"

// BadgerTracker persists entries in BadgerDB so a retry after a restart is
// still recognized.
type BadgerTracker struct {
	db     *badger.DB
	ownsDB bool
	prefix []byte

	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// OpenBadger opens a BadgerDB at path, or an in-memory one when path is
// empty, and returns a tracker that owns it.
func OpenBadger(path string) (*BadgerTracker, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for idempotency: %w", err)
	}
	t := NewBadgerTracker(db, "")
	t.ownsDB = true
	return t, nil
}

// NewBadgerTracker uses an existing database. The caller keeps ownership.
func NewBadgerTracker(db *badger.DB, prefix string) *BadgerTracker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &BadgerTracker{db: db, prefix: []byte(prefix), now: time.Now}
}

func (t *BadgerTracker) key(k string) []byte {
	out := make([]byte, 0, len(t.prefix)+len(k))
	out = append(out, t.prefix...)
	return append(out, k...)
}

func (t *BadgerTracker) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

func (t *BadgerTracker) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	if t.isClosed() {
		metrics.RecordIdempotency("lookup", "failure")
		return nil, false, ErrClosed
	}

	var reply []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(t.key(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			if !e.expired(t.now()) {
				reply = append([]byte(nil), e.Reply...)
			}
			return nil
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		metrics.RecordIdempotency("lookup", "miss")
		return nil, false, nil
	case err != nil:
		metrics.RecordIdempotency("lookup", "failure")
		return nil, false, fmt.Errorf("lookup %q: %w", key, err)
	case reply == nil:
		metrics.RecordIdempotency("lookup", "miss")
		return nil, false, nil
	}
	metrics.RecordIdempotency("lookup", "hit")
	return reply, true, nil
}

func (t *BadgerTracker) Remember(_ context.Context, key string, reply []byte, ttl time.Duration) error {
	if t.isClosed() {
		metrics.RecordIdempotency("store", "failure")
		return ErrClosed
	}

	k := t.key(key)
	exists := false
	err := t.db.Update(func(txn *badger.Txn) error {
		now := t.now()
		item, err := txn.Get(k)
		if err == nil {
			var e Entry
			if verr := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); verr == nil && !e.expired(now) {
				exists = true
				return nil
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(&Entry{
			Key:       key,
			Reply:     reply,
			FirstSeen: now,
			ExpiresAt: now.Add(ttl),
		})
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(k, data).WithTTL(ttl))
	})
	if err != nil {
		metrics.RecordIdempotency("store", "failure")
		return fmt.Errorf("remember %q: %w", key, err)
	}
	if exists {
		metrics.RecordIdempotency("store", "exists")
	} else {
		metrics.RecordIdempotency("store", "success")
	}
	return nil
}

// CleanupExpired deletes entries past their ExpiresAt.
func (t *BadgerTracker) CleanupExpired(_ context.Context) (int, error) {
	if t.isClosed() {
		return 0, ErrClosed
	}

	now := t.now()
	removed := 0
	err := t.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = t.prefix
		it := txn.NewIterator(opts)

		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var e Entry
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				continue
			}
			if e.expired(now) {
				stale = append(stale, item.KeyCopy(nil))
			}
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		metrics.RecordIdempotency("cleanup", "failure")
		return removed, err
	}
	metrics.RecordIdempotency("cleanup", "success")
	return removed, nil
}

func (t *BadgerTracker) Size(_ context.Context) (int, error) {
	if t.isClosed() {
		return 0, ErrClosed
	}
	count := 0
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = t.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// RunGC reclaims value log space. Having nothing to collect is not an error.
func (t *BadgerTracker) RunGC() error {
	if t.isClosed() || !t.ownsDB {
		return nil
	}
	err := t.db.RunValueLogGC(0.5)
	switch {
	case err == nil,
		errors.Is(err, badger.ErrNoRewrite),
		errors.Is(err, badger.ErrRejected),
		errors.Is(err, badger.ErrGCInMemoryMode):
		return nil
	}
	return err
}

// Close closes the database if the tracker opened it.
func (t *BadgerTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.ownsDB {
		if err := t.db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close idempotency store")
			return err
		}
	}
	return nil
}

var _ Tracker = (*BadgerTracker)(nil)
