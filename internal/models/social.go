// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package models

import "time"

// User is the slice of the user directory the real-time server needs.
type User struct {
	ID        int64     `json:"id"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// Gallery is a named manga collection owned by one user.
type Gallery struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

// FriendshipAccepted is the only status the server writes.
const FriendshipAccepted = "ACCEPTED"

// Friendship is stored with UserID1 < UserID2.
type Friendship struct {
	ID        int64     `json:"id"`
	UserID1   int64     `json:"user_id_1"`
	UserID2   int64     `json:"user_id_2"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizePair orders two user ids so an unordered pair has one key.
func NormalizePair(a, b int64) (lo, hi int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Other returns the member of the pair that is not userID.
func (f Friendship) Other(userID int64) int64 {
	if f.UserID1 == userID {
		return f.UserID2
	}
	return f.UserID1
}
