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

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func areFriends(ctx context.Context, q querier, a, b int64) (bool, error) {
	lo, hi := models.NormalizePair(a, b)
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM friendships WHERE user_id_1 = ? AND user_id_2 = ?`, lo, hi,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return n > 0, nil
}

// AreFriends reports whether a friendship exists for the unordered pair.
func (db *DB) AreFriends(ctx context.Context, a, b int64) (ok bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("SELECT", tableFriendships, start, err) }(time.Now())
	return areFriends(ctx, db.conn, a, b)
}

// FindFriendship returns the friendship row for the unordered pair.
func (db *DB) FindFriendship(ctx context.Context, a, b int64) (f *models.Friendship, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("SELECT", tableFriendships, start, err) }(time.Now())

	lo, hi := models.NormalizePair(a, b)
	f = &models.Friendship{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, user_id_1, user_id_2, status, created_at
		 FROM friendships WHERE user_id_1 = ? AND user_id_2 = ?`, lo, hi,
	).Scan(&f.ID, &f.UserID1, &f.UserID2, &f.Status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("friendship %d-%d: %w", lo, hi, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query friendship: %w", err)
	}
	return f, nil
}

// ListFriendNicknames returns the nicknames of every friend of nickname in
// alphabetical order. An unknown nickname returns ErrNotFound.
func (db *DB) ListFriendNicknames(ctx context.Context, nickname string) (names []string, err error) {
	user, err := db.FindUserByNickname(ctx, nickname)
	if err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("SELECT", tableFriendships, start, err) }(time.Now())

	rows, err := db.conn.QueryContext(ctx, `
		SELECT u.nickname
		FROM friendships f
		JOIN users u
		  ON u.id = CASE WHEN f.user_id_1 = ? THEN f.user_id_2 ELSE f.user_id_1 END
		WHERE f.user_id_1 = ? OR f.user_id_2 = ?
		ORDER BY u.nickname`,
		user.ID, user.ID, user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends of %q: %w", nickname, err)
	}
	defer closeWithLog(rows, "rows")

	names = make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return names, nil
}

// DeleteFriendship hard-deletes a friendship by id.
func (db *DB) DeleteFriendship(ctx context.Context, id int64) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("DELETE", tableFriendships, start, err) }(time.Now())

	res, err := db.conn.ExecContext(ctx, `DELETE FROM friendships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete friendship %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("friendship %d: %w", id, ErrNotFound)
	}
	return nil
}
