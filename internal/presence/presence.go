// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package presence answers which of a user's friends are connected.
package presence

import (
	"context"
	"fmt"
)

// FriendStore lists a user's friends by nickname, sorted.
type FriendStore interface {
	ListFriendNicknames(ctx context.Context, nickname string) ([]string, error)
}

// Directory reports whether a username has a live bound connection.
type Directory interface {
	IsOnline(username string) bool
}

// Result partitions friends by presence. Both slices are non-nil and keep
// the store's order.
type Result struct {
	Online  []string `json:"online"`
	Offline []string `json:"offline"`
}

// Query combines the friendship store with the connection registry.
type Query struct {
	friends FriendStore
	dir     Directory
}

// New returns a Query.
func New(friends FriendStore, dir Directory) *Query {
	return &Query{friends: friends, dir: dir}
}

// OnlineOffline returns the friends of username split into online and
// offline. Errors from the store are returned wrapped.
func (q *Query) OnlineOffline(ctx context.Context, username string) (Result, error) {
	names, err := q.friends.ListFriendNicknames(ctx, username)
	if err != nil {
		return Result{Online: []string{}, Offline: []string{}}, fmt.Errorf("list friends of %s: %w", username, err)
	}

	res := Result{
		Online:  make([]string, 0, len(names)),
		Offline: make([]string, 0, len(names)),
	}
	for _, name := range names {
		if q.dir.IsOnline(name) {
			res.Online = append(res.Online, name)
		} else {
			res.Offline = append(res.Offline, name)
		}
	}
	return res, nil
}
