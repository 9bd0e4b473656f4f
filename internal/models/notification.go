// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package models

import (
	"fmt"
	"time"
)

// NotificationKind discriminates the four notification tables.
type NotificationKind string

const (
	KindFriendRequest  NotificationKind = "friend_request"
	KindFriend         NotificationKind = "friend"
	KindLike           NotificationKind = "like"
	KindRecommendation NotificationKind = "recommendation"
)

// FriendRequestPending is the status of a request awaiting an answer.
const FriendRequestPending = "PENDING"

// Kinds lists every kind in a stable order.
func Kinds() []NotificationKind {
	return []NotificationKind{KindFriendRequest, KindFriend, KindLike, KindRecommendation}
}

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindFriendRequest, KindFriend, KindLike, KindRecommendation:
		return true
	}
	return false
}

// Notification is one persisted notification of any kind. GalleryID is set
// only for likes, MangaID only for recommendations, Status only for friend
// requests.
type Notification struct {
	ID             int64            `json:"id"`
	Kind           NotificationKind `json:"type"`
	SenderUserID   int64            `json:"sender_user_id"`
	ReceiverUserID int64            `json:"receiver_user_id"`
	Message        string           `json:"message"`
	Status         string           `json:"status,omitempty"`
	GalleryID      *int64           `json:"gallery_id,omitempty"`
	MangaID        *int64           `json:"manga_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// FeedItem is a Notification enriched with the sender's nickname, as served
// by the notifications feed.
type FeedItem struct {
	Notification
	SenderNickname string `json:"sender_nickname"`
}

// FriendRequestMessage is the human-readable text stored with a request.
func FriendRequestMessage(sender string) string {
	return fmt.Sprintf("%s sent you a friend request", sender)
}

// FriendAcceptedMessage is stored when a request is accepted.
func FriendAcceptedMessage(sender string) string {
	return fmt.Sprintf("%s accepted your friend request", sender)
}

// LikeMessage names the liked gallery.
func LikeMessage(sender, gallery string) string {
	return fmt.Sprintf("%s liked your gallery %s", sender, gallery)
}

// RecommendationMessage is stored with a recommendation.
func RecommendationMessage(sender string) string {
	return fmt.Sprintf("%s recommended you a manga", sender)
}
