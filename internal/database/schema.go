// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package database

import (
	"context"
	"fmt"
)

// Table names, also used as metric labels.
const (
	tableUsers           = "users"
	tableGalleries       = "galleries"
	tableFriendships     = "friendships"
	tableFriendRequests  = "notification_friend_requests"
	tableFriendAccepts   = "notification_friends"
	tableLikes           = "notification_likes"
	tableRecommendations = "notification_recommendations"
)

// schemaStatements are idempotent. DuckDB has no AUTOINCREMENT, so ids come
// from sequences. Timestamps are plain TIMESTAMP written by the application
// in UTC, which keeps the schema free of the ICU extension.
//
// Uniqueness that the router relies on lives here, not in application code:
// the router's pre-checks only pick the error code, the constraints close
// the race between concurrent nodes.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_users START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_galleries START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_friendships START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_friend_requests START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_friend_accepts START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_likes START 1`,
	`CREATE SEQUENCE IF NOT EXISTS seq_recommendations START 1`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_users'),
		nickname VARCHAR NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS galleries (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_galleries'),
		user_id BIGINT NOT NULL,
		name VARCHAR NOT NULL,
		likes BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS friendships (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_friendships'),
		user_id_1 BIGINT NOT NULL,
		user_id_2 BIGINT NOT NULL,
		status VARCHAR NOT NULL DEFAULT 'ACCEPTED',
		created_at TIMESTAMP NOT NULL,
		UNIQUE (user_id_1, user_id_2),
		CHECK (user_id_1 < user_id_2)
	)`,

	`CREATE TABLE IF NOT EXISTS notification_friend_requests (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_friend_requests'),
		sender_user_id BIGINT NOT NULL,
		receiver_user_id BIGINT NOT NULL,
		status VARCHAR NOT NULL DEFAULT 'PENDING',
		message VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (sender_user_id, receiver_user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS notification_friends (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_friend_accepts'),
		sender_user_id BIGINT NOT NULL,
		receiver_user_id BIGINT NOT NULL,
		message VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (sender_user_id, receiver_user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS notification_likes (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_likes'),
		sender_user_id BIGINT NOT NULL,
		receiver_user_id BIGINT NOT NULL,
		gallery_id BIGINT NOT NULL,
		message VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (sender_user_id, receiver_user_id, gallery_id)
	)`,

	`CREATE TABLE IF NOT EXISTS notification_recommendations (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_recommendations'),
		sender_user_id BIGINT NOT NULL,
		receiver_user_id BIGINT NOT NULL,
		manga_id BIGINT NOT NULL,
		message VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_galleries_user ON galleries(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_receiver ON notification_recommendations(receiver_user_id)`,
}

// InitSchema creates every sequence, table and index that does not exist.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
