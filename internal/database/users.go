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

	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
	"github.com/Zonoik09/Mangasaki-server/internal/models"
)

// observe records query latency. Expected business outcomes are not counted
// as query errors.
func observe(operation, table string, start time.Time, err error) {
	if IsBusinessError(err) {
		err = nil
	}
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}

// CreateUser inserts a user. A taken nickname returns ErrDuplicate.
func (db *DB) CreateUser(ctx context.Context, nickname string) (user *models.User, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("INSERT", tableUsers, start, err) }(time.Now())

	u := &models.User{Nickname: nickname, CreatedAt: db.now()}
	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO users (nickname, created_at) VALUES (?, ?) RETURNING id`,
		u.Nickname, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("nickname %q: %w", nickname, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// FindUserByID looks a user up by primary key.
func (db *DB) FindUserByID(ctx context.Context, id int64) (user *models.User, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("SELECT", tableUsers, start, err) }(time.Now())

	u := &models.User{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, nickname, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Nickname, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return u, nil
}

// FindUserByNickname looks a user up by its unique nickname.
func (db *DB) FindUserByNickname(ctx context.Context, nickname string) (user *models.User, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("SELECT", tableUsers, start, err) }(time.Now())

	u := &models.User{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, nickname, created_at FROM users WHERE nickname = ?`, nickname,
	).Scan(&u.ID, &u.Nickname, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", nickname, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %q: %w", nickname, err)
	}
	return u, nil
}

// CreateGallery inserts a gallery with zero likes.
func (db *DB) CreateGallery(ctx context.Context, userID int64, name string) (gallery *models.Gallery, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("INSERT", tableGalleries, start, err) }(time.Now())

	g := &models.Gallery{UserID: userID, Name: name, CreatedAt: db.now()}
	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO galleries (user_id, name, created_at) VALUES (?, ?, ?) RETURNING id, likes`,
		g.UserID, g.Name, g.CreatedAt,
	).Scan(&g.ID, &g.Likes)
	if err != nil {
		return nil, fmt.Errorf("failed to insert gallery: %w", err)
	}
	return g, nil
}

// FindGallery looks a gallery up by primary key.
func (db *DB) FindGallery(ctx context.Context, id int64) (gallery *models.Gallery, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("SELECT", tableGalleries, start, err) }(time.Now())

	g := &models.Gallery{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, likes, created_at FROM galleries WHERE id = ?`, id,
	).Scan(&g.ID, &g.UserID, &g.Name, &g.Likes, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("gallery %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query gallery %d: %w", id, err)
	}
	return g, nil
}
