// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package models

import (
	"testing"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		a, b, lo, hi int64
	}{
		{1, 2, 1, 2},
		{9, 3, 3, 9},
		{5, 5, 5, 5},
	}
	for _, tt := range tests {
		lo, hi := NormalizePair(tt.a, tt.b)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("NormalizePair(%d, %d) = %d, %d; want %d, %d", tt.a, tt.b, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestFriendshipOther(t *testing.T) {
	f := Friendship{UserID1: 3, UserID2: 8}
	if f.Other(3) != 8 || f.Other(8) != 3 {
		t.Errorf("Other mismatch for %+v", f)
	}
}

func TestNotificationKinds(t *testing.T) {
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if NotificationKind("poke").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FriendRequestMessage("alice"), "alice sent you a friend request"},
		{FriendAcceptedMessage("bob"), "bob accepted your friend request"},
		{LikeMessage("carol", "shelf"), "carol liked your gallery shelf"},
		{RecommendationMessage("dave"), "dave recommended you a manga"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
