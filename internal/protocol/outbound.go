// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package protocol

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/models"
)

// Outbound frame types.
const (
	FrameWelcome            = "welcome"
	FrameNewClient          = "newClient"
	FrameClientDisconnected = "clientDisconnected"
	FrameJoinResponse       = "joinedClientWithInfoResponse"
	FrameNotification       = "notification"
	FrameNotificationSent   = "notificationSent"
	FramePresence           = "amigosOnlineOfflineCompartidos"
	FrameDisconnectResponse = "disconnectResponse"
	FramePing               = "ping"
)

// Reply statuses.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// WelcomeMessage is the greeting sent with every welcome frame.
const WelcomeMessage = "Welcome to the server"

// Welcome is sent to a connection right after accept.
type Welcome struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Peer announces another connection joining or leaving.
type Peer struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Text is a frame carrying only a message.
type Text struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Push delivers a notification record to its receiver.
type Push struct {
	Type    string                  `json:"type"`
	Subtype models.NotificationKind `json:"subtype"`
	Data    models.FeedItem         `json:"data"`
}

// Ack answers a notification message.
type Ack struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// PresenceData partitions a user's friends.
type PresenceData struct {
	Online  []string `json:"online"`
	Offline []string `json:"offline"`
}

// Presence answers getFriendsOnlineOffline.
type Presence struct {
	Type      string       `json:"type"`
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	Data      PresenceData `json:"data"`
	RequestID string       `json:"request_id,omitempty"`
}

// Encode marshals a frame. Frames are plain structs so failure indicates a
// programming error; it is logged and nil is returned.
func Encode(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Str("frame", fmt.Sprintf("%T", v)).Msg("Failed to encode frame")
		return nil
	}
	return b
}

// WelcomeFrame greets a newly accepted connection.
func WelcomeFrame(id string) []byte {
	return Encode(Welcome{Type: FrameWelcome, ID: id, Message: WelcomeMessage})
}

// NewClientFrame tells other connections that id joined.
func NewClientFrame(id string) []byte {
	return Encode(Peer{Type: FrameNewClient, ID: id})
}

// ClientDisconnectedFrame tells the remaining connections that id left.
func ClientDisconnectedFrame(id string) []byte {
	return Encode(Peer{Type: FrameClientDisconnected, ID: id})
}

// JoinResponseFrame confirms a username binding.
func JoinResponseFrame(username string) []byte {
	return Encode(Text{
		Type:    FrameJoinResponse,
		Message: fmt.Sprintf("Client registered as %s", username),
	})
}

// PushFrame wraps a stored notification for live delivery.
func PushFrame(n *models.Notification, senderNickname string) []byte {
	return Encode(Push{
		Type:    FrameNotification,
		Subtype: n.Kind,
		Data:    models.FeedItem{Notification: *n, SenderNickname: senderNickname},
	})
}

// OKFrame acknowledges a processed notification message.
func OKFrame(message, requestID string) []byte {
	return Encode(Ack{Type: FrameNotificationSent, Status: StatusOK, Message: message, RequestID: requestID})
}

// ErrorFrame rejects a notification message with a machine-readable code.
func ErrorFrame(code, message, requestID string) []byte {
	return Encode(Ack{
		Type:      FrameNotificationSent,
		Status:    StatusError,
		Code:      code,
		Message:   message,
		RequestID: requestID,
	})
}

// PresenceFrame answers a presence query. Nil slices are sent as [].
func PresenceFrame(username string, online, offline []string, requestID string) []byte {
	if online == nil {
		online = []string{}
	}
	if offline == nil {
		offline = []string{}
	}
	return Encode(Presence{
		Type:      FramePresence,
		Status:    StatusOK,
		Message:   fmt.Sprintf("Friends of %s", username),
		Data:      PresenceData{Online: online, Offline: offline},
		RequestID: requestID,
	})
}

// PresenceErrorFrame reports a failed presence query.
func PresenceErrorFrame(message, requestID string) []byte {
	return Encode(Presence{
		Type:      FramePresence,
		Status:    StatusError,
		Message:   message,
		Data:      PresenceData{Online: []string{}, Offline: []string{}},
		RequestID: requestID,
	})
}

// DisconnectResponseFrame answers a disconnectRequest.
func DisconnectResponseFrame(username string, found bool) []byte {
	msg := fmt.Sprintf("Client %s disconnected", username)
	if !found {
		msg = fmt.Sprintf("Client %s is not connected", username)
	}
	return Encode(Text{Type: FrameDisconnectResponse, Message: msg})
}

// PingFrame is the application keepalive.
func PingFrame() []byte {
	return pingFrame
}

var pingFrame = Encode(Text{Type: FramePing, Message: "ping"})

var typePrefix = []byte(`{"type":"`)

// FrameType returns the type of an encoded outbound frame without a full
// decode. Frames built by this package always lead with the type field.
func FrameType(frame []byte) string {
	if !bytes.HasPrefix(frame, typePrefix) {
		return "unknown"
	}
	rest := frame[len(typePrefix):]
	end := bytes.IndexByte(rest, '"')
	if end <= 0 {
		return "unknown"
	}
	return string(rest[:end])
}
