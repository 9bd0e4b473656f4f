// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

/*
Package models defines the persisted records shared by the store, the
notification router and the HTTP API.

Key types:

  - User: directory entry resolved by id or by unique nickname
  - Gallery: a user's manga collection; carries the like counter
  - Friendship: an accepted, unordered pair of users
  - Notification: one row of any of the four notification tables
  - FeedItem: a Notification as returned by the merged per-user feed

Notification kinds and their storage-level uniqueness:

	friend_request   UNIQUE(sender, receiver)
	friend           UNIQUE(sender, receiver)
	like             UNIQUE(sender, receiver, gallery)
	recommendation   none
*/
package models
