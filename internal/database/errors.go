// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package database

import (
	"errors"
	"io"
	"strings"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
)

var (
	// ErrNotFound is returned when a user, gallery or row id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a UNIQUE constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")

	// ErrAlreadyFriends is returned when a friend request targets an
	// existing friend.
	ErrAlreadyFriends = errors.New("users are already friends")

	// ErrUnavailable is returned by ResilientStore while its breaker is open.
	ErrUnavailable = errors.New("store unavailable")
)

// IsBusinessError reports whether err is an expected outcome of a store call
// rather than a sign that the store is unhealthy.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrAlreadyFriends)
}

// closeWithLog closes a resource and logs a failure without returning it.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly is for error paths where a close failure adds nothing.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// isUniqueConstraintError matches DuckDB's "Duplicate key ... violates unique
// constraint" message.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "primary key constraint")
}

// isTransactionConflict matches DuckDB optimistic concurrency failures,
// which are safe to retry.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion")
}
