// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Zonoik09/Mangasaki-server/internal/models"
)

// CreateFriendRequest stores a PENDING request from sender to receiver.
// It returns ErrAlreadyFriends when the pair is already friends and
// ErrDuplicate when the same ordered pair already has a request.
func (db *DB) CreateFriendRequest(ctx context.Context, senderID, receiverID int64, message string) (n *models.Notification, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("INSERT", tableFriendRequests, start, err) }(time.Now())

	n = &models.Notification{
		Kind:           models.KindFriendRequest,
		SenderUserID:   senderID,
		ReceiverUserID: receiverID,
		Message:        message,
		Status:         models.FriendRequestPending,
		CreatedAt:      db.now(),
	}

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		friends, err := areFriends(ctx, tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if friends {
			return ErrAlreadyFriends
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO notification_friend_requests
				(sender_user_id, receiver_user_id, status, message, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			n.SenderUserID, n.ReceiverUserID, n.Status, n.Message, n.CreatedAt,
		).Scan(&n.ID)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("friend request %d->%d: %w", senderID, receiverID, ErrDuplicate)
			}
			return fmt.Errorf("failed to insert friend request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// AcceptFriendship turns acceptor and requester into friends. In a single
// transaction it removes pending requests in both directions, creates the
// friendship and records the FriendAccepted notification addressed to the
// requester.
//
// Accepting an existing friendship is a no-op: created is false and the
// returned notification is nil.
func (db *DB) AcceptFriendship(ctx context.Context, acceptorID, requesterID int64, message string) (n *models.Notification, created bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("INSERT", tableFriendships, start, err) }(time.Now())

	lo, hi := models.NormalizePair(acceptorID, requesterID)
	now := db.now()

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		n, created = nil, false

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM notification_friend_requests
			WHERE (sender_user_id = ? AND receiver_user_id = ?)
			   OR (sender_user_id = ? AND receiver_user_id = ?)`,
			requesterID, acceptorID, acceptorID, requesterID,
		); err != nil {
			return fmt.Errorf("failed to delete friend requests: %w", err)
		}

		var friendshipID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO friendships (user_id_1, user_id_2, status, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
			RETURNING id`,
			lo, hi, models.FriendshipAccepted, now,
		).Scan(&friendshipID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to insert friendship: %w", err)
		}

		// A pair that unfriended and re-friended already has an accept row;
		// refresh it instead of failing the unique key.
		n = &models.Notification{
			Kind:           models.KindFriend,
			SenderUserID:   acceptorID,
			ReceiverUserID: requesterID,
			Message:        message,
			CreatedAt:      now,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO notification_friends (sender_user_id, receiver_user_id, message, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (sender_user_id, receiver_user_id)
			DO UPDATE SET message = excluded.message, created_at = excluded.created_at
			RETURNING id`,
			n.SenderUserID, n.ReceiverUserID, n.Message, n.CreatedAt,
		).Scan(&n.ID)
		if err != nil {
			return fmt.Errorf("failed to insert friend notification: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return n, created, nil
}

// CreateLike stores a like on one of receiver's galleries and increments the
// gallery's like counter in the same transaction. A repeated
// (sender, receiver, gallery) returns ErrDuplicate and leaves the counter
// untouched. A gallery that does not exist or is not receiver's returns
// ErrNotFound.
func (db *DB) CreateLike(ctx context.Context, senderID, receiverID, galleryID int64, message string) (n *models.Notification, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("INSERT", tableLikes, start, err) }(time.Now())

	gid := galleryID
	n = &models.Notification{
		Kind:           models.KindLike,
		SenderUserID:   senderID,
		ReceiverUserID: receiverID,
		Message:        message,
		GalleryID:      &gid,
		CreatedAt:      db.now(),
	}

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM galleries WHERE id = ?`, galleryID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != receiverID) {
			return fmt.Errorf("gallery %d of user %d: %w", galleryID, receiverID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to query gallery: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO notification_likes
				(sender_user_id, receiver_user_id, gallery_id, message, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			n.SenderUserID, n.ReceiverUserID, galleryID, n.Message, n.CreatedAt,
		).Scan(&n.ID)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("like %d->%d on gallery %d: %w", senderID, receiverID, galleryID, ErrDuplicate)
			}
			return fmt.Errorf("failed to insert like: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE galleries SET likes = likes + 1 WHERE id = ?`, galleryID,
		); err != nil {
			return fmt.Errorf("failed to increment gallery likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateRecommendation stores a recommendation. Recommendations are not
// deduplicated.
func (db *DB) CreateRecommendation(ctx context.Context, senderID, receiverID, mangaID int64, message string) (n *models.Notification, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("INSERT", tableRecommendations, start, err) }(time.Now())

	mid := mangaID
	n = &models.Notification{
		Kind:           models.KindRecommendation,
		SenderUserID:   senderID,
		ReceiverUserID: receiverID,
		Message:        message,
		MangaID:        &mid,
		CreatedAt:      db.now(),
	}
	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO notification_recommendations
			(sender_user_id, receiver_user_id, manga_id, message, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		n.SenderUserID, n.ReceiverUserID, mangaID, n.Message, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return n, nil
}

// DeclineFriendRequest deletes a pending request by id.
func (db *DB) DeclineFriendRequest(ctx context.Context, id int64) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("DELETE", tableFriendRequests, start, err) }(time.Now())

	res, err := db.conn.ExecContext(ctx, `DELETE FROM notification_friend_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete friend request %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("friend request %d: %w", id, ErrNotFound)
	}
	return nil
}

const feedQuery = `
SELECT f.id, f.kind, f.sender_user_id, f.receiver_user_id, f.message,
       f.status, f.gallery_id, f.manga_id, f.created_at,
       COALESCE(u.nickname, '') AS sender_nickname
FROM (
	SELECT id, 'friend_request' AS kind, sender_user_id, receiver_user_id, message,
	       status, CAST(NULL AS BIGINT) AS gallery_id, CAST(NULL AS BIGINT) AS manga_id, created_at
	FROM notification_friend_requests WHERE receiver_user_id = ?
	UNION ALL
	SELECT id, 'friend', sender_user_id, receiver_user_id, message,
	       CAST(NULL AS VARCHAR), CAST(NULL AS BIGINT), CAST(NULL AS BIGINT), created_at
	FROM notification_friends WHERE receiver_user_id = ?
	UNION ALL
	SELECT id, 'like', sender_user_id, receiver_user_id, message,
	       CAST(NULL AS VARCHAR), gallery_id, CAST(NULL AS BIGINT), created_at
	FROM notification_likes WHERE receiver_user_id = ?
	UNION ALL
	SELECT id, 'recommendation', sender_user_id, receiver_user_id, message,
	       CAST(NULL AS VARCHAR), CAST(NULL AS BIGINT), manga_id, created_at
	FROM notification_recommendations WHERE receiver_user_id = ?
) f
LEFT JOIN users u ON u.id = f.sender_user_id
ORDER BY f.created_at DESC, f.kind, f.id DESC`

// ListNotifications merges the four notification tables for one receiver,
// newest first.
func (db *DB) ListNotifications(ctx context.Context, receiverID int64) (items []models.FeedItem, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("SELECT", "notifications", start, err) }(time.Now())

	rows, err := db.conn.QueryContext(ctx, feedQuery, receiverID, receiverID, receiverID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer closeWithLog(rows, "rows")

	items = make([]models.FeedItem, 0)
	for rows.Next() {
		var (
			item      models.FeedItem
			kind      string
			status    sql.NullString
			galleryID sql.NullInt64
			mangaID   sql.NullInt64
		)
		if err := rows.Scan(
			&item.ID, &kind, &item.SenderUserID, &item.ReceiverUserID, &item.Message,
			&status, &galleryID, &mangaID, &item.CreatedAt, &item.SenderNickname,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		item.Kind = models.NotificationKind(kind)
		item.Status = status.String
		if galleryID.Valid {
			v := galleryID.Int64
			item.GalleryID = &v
		}
		if mangaID.Valid {
			v := mangaID.Int64
			item.MangaID = &v
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return items, nil
}
