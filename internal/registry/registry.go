// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package registry tracks live client connections and the usernames they
// have announced.
//
// A connection id maps to at most one username. A username may map to
// several connections while a client reconnects; ResolveByUsername returns
// the one bound most recently.
//
// Trust boundary: the username comes from the client's joinedClientWithInfo
// announcement and is not authenticated. Any client can claim any username
// and rebinding overwrites silently.
//
// Mutations are expected from a single goroutine (the gateway loop). The
// RWMutex exists so HTTP handlers and metrics collectors can read
// concurrently.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrDuplicateID is returned by Add when the id is already registered.
	ErrDuplicateID = errors.New("registry: duplicate connection id")

	// ErrNotFound is returned for ids that are not registered.
	ErrNotFound = errors.New("registry: connection not found")
)

// Conn is the transport side of a registered connection.
type Conn interface {
	ID() string
	// Send queues frame for delivery. It reports false when the connection
	// is closed or cannot accept more frames, and never blocks.
	Send(frame []byte) bool
	Close()
	IsOpen() bool
}

// Info is a read-only view of one entry.
type Info struct {
	ID          string    `json:"id"`
	Username    string    `json:"username,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	BoundAt     time.Time `json:"bound_at,omitempty"`
}

type entry struct {
	conn        Conn
	username    string
	acceptSeq   uint64
	bindSeq     uint64
	connectedAt time.Time
	boundAt     time.Time
}

// Registry is the connection id and username index.
type Registry struct {
	mu         sync.RWMutex
	byID       map[string]*entry
	byUsername map[string]map[string]struct{}
	acceptSeq  uint64
	bindSeq    uint64
	now        func() time.Time
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byID:       make(map[string]*entry),
		byUsername: make(map[string]map[string]struct{}),
		now:        time.Now,
	}
}

// Add registers conn with no identity.
func (r *Registry) Add(conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if _, ok := r.byID[id]; ok {
		return ErrDuplicateID
	}
	r.acceptSeq++
	r.byID[id] = &entry{
		conn:        conn,
		acceptSeq:   r.acceptSeq,
		connectedAt: r.now(),
	}
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Bind associates username with id, replacing any previous username. It
// returns the previous username, which is empty for a first bind.
func (r *Registry) Bind(id, username string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return "", ErrNotFound
	}
	prev := e.username
	if prev != "" {
		r.unindex(prev, id)
	}

	r.bindSeq++
	e.username = username
	e.bindSeq = r.bindSeq
	e.boundAt = r.now()

	set, ok := r.byUsername[username]
	if !ok {
		set = make(map[string]struct{}, 1)
		r.byUsername[username] = set
	}
	set[id] = struct{}{}
	return prev, nil
}

func (r *Registry) unindex(username, id string) {
	set := r.byUsername[username]
	delete(set, id)
	if len(set) == 0 {
		delete(r.byUsername, username)
	}
}

// ResolveByUsername returns the open connection most recently bound to
// username.
func (r *Registry) ResolveByUsername(username string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entry
	for id := range r.byUsername[username] {
		e := r.byID[id]
		if e == nil || !e.conn.IsOpen() {
			continue
		}
		if best == nil || e.bindSeq > best.bindSeq {
			best = e
		}
	}
	if best == nil {
		return nil, false
	}
	return best.conn, true
}

// IsOnline reports whether username has at least one open bound connection.
func (r *Registry) IsOnline(username string) bool {
	_, ok := r.ResolveByUsername(username)
	return ok
}

// Remove drops id and its username binding. It returns the removed entry's
// info and false when id was unknown.
func (r *Registry) Remove(id string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return Info{}, false
	}
	delete(r.byID, id)
	if e.username != "" {
		r.unindex(e.username, id)
	}
	return e.info(id), true
}

// Get returns the connection for id.
func (r *Registry) Get(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Username returns the username bound to id, if any.
func (r *Registry) Username(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok || e.username == "" {
		return "", false
	}
	return e.username, true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Conns returns every registered connection in accept order.
func (r *Registry) Conns() []Conn {
	entries := r.ordered()
	out := make([]Conn, len(entries))
	for i, e := range entries {
		out[i] = e.conn
	}
	return out
}

// Usernames returns the distinct bound usernames, sorted.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUsername))
	for name := range r.byUsername {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *Registry) ordered() []entry {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, *e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].acceptSeq < entries[j].acceptSeq
	})
	return entries
}

func (e *entry) info(id string) Info {
	return Info{
		ID:          id,
		Username:    e.username,
		ConnectedAt: e.connectedAt,
		BoundAt:     e.boundAt,
	}
}
