// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package protocol defines the JSON frames exchanged over the client
// WebSocket.
//
// Every frame is a flat object with a "type" discriminator. Inbound frames
// are decoded into one concrete Message per type and validated before they
// reach the router, so handlers never see a frame with missing fields.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Zonoik09/Mangasaki-server/internal/validation"
)

// Type is the inbound message discriminator.
type Type string

// Inbound message types.
const (
	TypeJoin           Type = "joinedClientWithInfo"
	TypeFriendRequest  Type = "friend_request_notification"
	TypeFriendAccept   Type = "friend_notification"
	TypeLike           Type = "like_notification"
	TypeRecommendation Type = "recommendation_notification"
	TypePresence       Type = "getFriendsOnlineOffline"
	TypeDisconnect     Type = "disconnectRequest"
)

// IsNotification reports whether t creates a notification record and is
// acknowledged with notificationSent.
func (t Type) IsNotification() bool {
	switch t {
	case TypeFriendRequest, TypeFriendAccept, TypeLike, TypeRecommendation:
		return true
	}
	return false
}

// Known reports whether t is one of the inbound types.
func (t Type) Known() bool {
	_, ok := factories[t]
	return ok
}

var (
	// ErrMalformed marks frames that are not a JSON object with a string type.
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownType marks well-formed frames whose type is not recognized.
	ErrUnknownType = errors.New("unknown message type")

	// ErrInvalid marks recognized frames with missing or bad fields.
	ErrInvalid = errors.New("invalid message")
)

// InvalidError carries the type and request id of a frame that failed
// validation so that the caller can still address a reply.
type InvalidError struct {
	Type      Type
	RequestID string
	Fields    []string
	Err       error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s message: %v", e.Type, e.Err)
}

func (e *InvalidError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalid) match.
func (e *InvalidError) Is(target error) bool { return target == ErrInvalid }

// Message is implemented by every decoded inbound frame.
type Message interface {
	MessageType() Type
	RequestToken() string
}

// Header holds the fields common to every inbound frame. RequestID is an
// optional client token used to deduplicate retried notification messages.
type Header struct {
	Type      Type   `json:"type"`
	RequestID string `json:"request_id,omitempty" validate:"omitempty,max=128"`
}

// MessageType implements Message.
func (h Header) MessageType() Type { return h.Type }

// RequestToken implements Message.
func (h Header) RequestToken() string { return h.RequestID }

// ID is a numeric primary key. Clients send it either as a JSON number or as
// a numeric string.
type ID int64

// UnmarshalJSON accepts 12 and "12".
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer id: %s", b)
	}
	*id = ID(n)
	return nil
}

// Join announces the username of the connection.
type Join struct {
	Header
	Username string `json:"username" validate:"required,nickname"`
}

// Addressed is the sender and receiver pair carried by notification types.
type Addressed struct {
	Header
	SenderUserID     ID     `json:"sender_user_id" validate:"required,gt=0"`
	ReceiverUsername string `json:"receiver_username" validate:"required,nickname"`
}

// FriendRequest asks receiver to become sender's friend.
type FriendRequest struct {
	Addressed
}

// FriendAccept accepts receiver's pending request to sender.
type FriendAccept struct {
	Addressed
}

// Like records sender liking receiver's gallery.
type Like struct {
	Addressed
	GalleryID ID `json:"gallery_id" validate:"required,gt=0"`
}

// Recommendation recommends a manga to receiver.
type Recommendation struct {
	Addressed
	MangaID ID `json:"manga_id" validate:"required,gt=0"`
}

// PresenceRequest asks for the online and offline friends of Username.
type PresenceRequest struct {
	Header
	Username string `json:"username" validate:"required,nickname"`
}

// DisconnectRequest asks the server to drop Username's connection.
type DisconnectRequest struct {
	Header
	Username string `json:"username" validate:"required,nickname"`
}

var factories = map[Type]func() Message{
	TypeJoin:           func() Message { return &Join{} },
	TypeFriendRequest:  func() Message { return &FriendRequest{} },
	TypeFriendAccept:   func() Message { return &FriendAccept{} },
	TypeLike:           func() Message { return &Like{} },
	TypeRecommendation: func() Message { return &Recommendation{} },
	TypePresence:       func() Message { return &PresenceRequest{} },
	TypeDisconnect:     func() Message { return &DisconnectRequest{} },
}

// PeekType returns the type field of data, or "" when it cannot be read.
func PeekType(data []byte) Type {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return ""
	}
	return h.Type
}

// Decode parses one inbound frame.
//
// The returned error wraps ErrMalformed, ErrUnknownType or ErrInvalid. For
// ErrInvalid it is an *InvalidError.
func Decode(data []byte) (Message, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	factory, ok := factories[h.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, h.Type)
	}

	msg := factory()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, &InvalidError{Type: h.Type, RequestID: h.RequestID, Err: err}
	}
	if verr := validation.ValidateStruct(msg); verr != nil {
		return nil, &InvalidError{Type: h.Type, RequestID: h.RequestID, Fields: verr.Fields(), Err: verr}
	}
	return msg, nil
}
