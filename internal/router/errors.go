// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zonoik09/Mangasaki-server/internal/database"
	"github.com/Zonoik09/Mangasaki-server/internal/validation"
)

// Reply codes carried by notificationSent{status:"ERROR"}.
const (
	CodeUnresolvedPeer   = "UNRESOLVED_PEER"
	CodeDuplicateRequest = "DUPLICATE_REQUEST"
	CodeAlreadyFriends   = "ALREADY_FRIENDS"
	CodeDuplicateLike    = "DUPLICATE_LIKE"
	CodeSelfTarget       = "SELF_TARGET"
	CodeGalleryNotFound  = "GALLERY_NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeValidation       = validation.Code
)

var (
	ErrUnresolvedPeer   = errors.New("sender or receiver does not exist")
	ErrDuplicateRequest = errors.New("friend request already sent")
	ErrAlreadyFriends   = errors.New("users are already friends")
	ErrDuplicateLike    = errors.New("gallery already liked")
	ErrSelfTarget       = errors.New("sender and receiver are the same user")
	ErrGalleryNotFound  = errors.New("gallery not found")
	ErrStoreUnavailable = errors.New("notification store unavailable")

	// ErrUnreachablePeer and ErrTransportSendFailure describe a skipped live
	// push. They are recorded, never replied.
	ErrUnreachablePeer      = errors.New("receiver has no live connection")
	ErrTransportSendFailure = errors.New("receiver connection rejected the frame")
)

// NotificationError is a failed notification message. Code is sent to the
// client; Err keeps the cause for logs.
type NotificationError struct {
	Code string
	Msg  string
	Err  error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func notificationError(code string, sentinel error, cause error) *NotificationError {
	err := sentinel
	if cause != nil && !errors.Is(cause, sentinel) {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &NotificationError{Code: code, Msg: sentinel.Error(), Err: err}
}

// storeError maps a persistence failure that has no business meaning for
// the operation to STORE_UNAVAILABLE.
func storeError(err error) *NotificationError {
	return notificationError(CodeStoreUnavailable, ErrStoreUnavailable, err)
}

// lookupError maps a user lookup failure.
func lookupError(err error) *NotificationError {
	if errors.Is(err, database.ErrNotFound) {
		return notificationError(CodeUnresolvedPeer, ErrUnresolvedPeer, err)
	}
	return storeError(err)
}

// cacheable reports whether a reply for err can be replayed for a retry.
// Transient failures are not remembered so the client may retry them.
func cacheable(err *NotificationError) bool {
	if err == nil {
		return true
	}
	if err.Code == CodeStoreUnavailable {
		return false
	}
	return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
}
