// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Zonoik09/Mangasaki-server/internal/models"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Type
		wantErr error
	}{
		{"join", `{"type":"joinedClientWithInfo","username":"alice"}`, TypeJoin, nil},
		{"friend request", `{"type":"friend_request_notification","sender_user_id":1,"receiver_username":"bob"}`, TypeFriendRequest, nil},
		{"string id", `{"type":"friend_notification","sender_user_id":"7","receiver_username":"bob"}`, TypeFriendAccept, nil},
		{"like", `{"type":"like_notification","sender_user_id":1,"receiver_username":"bob","gallery_id":3}`, TypeLike, nil},
		{"recommendation", `{"type":"recommendation_notification","sender_user_id":1,"receiver_username":"bob","manga_id":9}`, TypeRecommendation, nil},
		{"presence", `{"type":"getFriendsOnlineOffline","username":"bob"}`, TypePresence, nil},
		{"disconnect", `{"type":"disconnectRequest","username":"bob"}`, TypeDisconnect, nil},
		{"not json", `hello`, "", ErrMalformed},
		{"array", `[1,2]`, "", ErrMalformed},
		{"missing type", `{"username":"alice"}`, "", ErrMalformed},
		{"numeric type", `{"type":5}`, "", ErrMalformed},
		{"unknown type", `{"type":"friendship_notification"}`, "", ErrUnknownType},
		{"missing username", `{"type":"joinedClientWithInfo"}`, "", ErrInvalid},
		{"missing gallery", `{"type":"like_notification","sender_user_id":1,"receiver_username":"bob"}`, "", ErrInvalid},
		{"bad id", `{"type":"friend_notification","sender_user_id":"abc","receiver_username":"bob"}`, "", ErrInvalid},
		{"zero sender", `{"type":"friend_notification","sender_user_id":0,"receiver_username":"bob"}`, "", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if msg != nil {
					t.Errorf("msg = %#v, want nil", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.MessageType() != tt.want {
				t.Errorf("type = %s, want %s", msg.MessageType(), tt.want)
			}
		})
	}
}

func TestDecodeFields(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"like_notification","request_id":"r-1","sender_user_id":"4","receiver_username":"bob","gallery_id":12}`))
	if err != nil {
		t.Fatal(err)
	}
	like, ok := msg.(*Like)
	if !ok {
		t.Fatalf("got %T, want *Like", msg)
	}
	if like.SenderUserID != 4 || like.ReceiverUsername != "bob" || like.GalleryID != 12 {
		t.Errorf("decoded %+v", like)
	}
	if like.RequestToken() != "r-1" {
		t.Errorf("request id = %q", like.RequestToken())
	}
}

func TestDecodeInvalidKeepsAddress(t *testing.T) {
	_, err := Decode([]byte(`{"type":"recommendation_notification","request_id":"x","sender_user_id":2}`))
	var inv *InvalidError
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want *InvalidError", err)
	}
	if inv.Type != TypeRecommendation || inv.RequestID != "x" {
		t.Errorf("address lost: %+v", inv)
	}
	if len(inv.Fields) != 2 || inv.Fields[0] != "receiver_username" || inv.Fields[1] != "manga_id" {
		t.Errorf("fields = %v", inv.Fields)
	}
}

func TestTypeHelpers(t *testing.T) {
	if !TypeLike.IsNotification() || TypeJoin.IsNotification() || TypePresence.IsNotification() {
		t.Error("IsNotification mismatch")
	}
	if !TypeDisconnect.Known() || Type("nope").Known() {
		t.Error("Known mismatch")
	}
	if PeekType([]byte(`{"type":"ping"}`)) != "ping" || PeekType([]byte(`{`)) != "" {
		t.Error("PeekType mismatch")
	}
}

func decodeMap(t *testing.T, b []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("frame is not JSON: %v (%s)", err, b)
	}
	return m
}

func TestOutboundFrames(t *testing.T) {
	w := decodeMap(t, WelcomeFrame("CAB12F"))
	if w["type"] != "welcome" || w["id"] != "CAB12F" || w["message"] != "Welcome to the server" {
		t.Errorf("welcome = %v", w)
	}

	if m := decodeMap(t, NewClientFrame("C1")); m["type"] != "newClient" || m["id"] != "C1" {
		t.Errorf("newClient = %v", m)
	}
	if m := decodeMap(t, ClientDisconnectedFrame("C1")); m["type"] != "clientDisconnected" {
		t.Errorf("clientDisconnected = %v", m)
	}
	if m := decodeMap(t, PingFrame()); m["type"] != "ping" || m["message"] != "ping" {
		t.Errorf("ping = %v", m)
	}

	ok := decodeMap(t, OKFrame("sent", ""))
	if ok["status"] != "OK" || ok["type"] != "notificationSent" {
		t.Errorf("ok = %v", ok)
	}
	if _, has := ok["code"]; has {
		t.Error("OK ack should not carry a code")
	}

	e := decodeMap(t, ErrorFrame("DUPLICATE_LIKE", "already liked", "req-9"))
	if e["status"] != "ERROR" || e["code"] != "DUPLICATE_LIKE" || e["request_id"] != "req-9" {
		t.Errorf("error = %v", e)
	}
}

func TestPresenceFrameEmptyLists(t *testing.T) {
	m := decodeMap(t, PresenceFrame("bob", nil, nil, ""))
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data = %v", m["data"])
	}
	for _, key := range []string{"online", "offline"} {
		list, ok := data[key].([]interface{})
		if !ok || len(list) != 0 {
			t.Errorf("%s = %v, want []", key, data[key])
		}
	}
	if m["type"] != "amigosOnlineOfflineCompartidos" || m["status"] != "OK" {
		t.Errorf("presence = %v", m)
	}
}

func TestPushFrame(t *testing.T) {
	gid := int64(3)
	n := &models.Notification{
		ID:             10,
		Kind:           models.KindLike,
		SenderUserID:   1,
		ReceiverUserID: 2,
		Message:        "alice liked your gallery shonen",
		GalleryID:      &gid,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	m := decodeMap(t, PushFrame(n, "alice"))
	if m["type"] != "notification" || m["subtype"] != "like" {
		t.Errorf("push = %v", m)
	}
	data := m["data"].(map[string]interface{})
	if data["sender_nickname"] != "alice" || data["gallery_id"].(float64) != 3 {
		t.Errorf("data = %v", data)
	}
	if _, has := data["manga_id"]; has {
		t.Error("like push should omit manga_id")
	}
}

func TestDisconnectResponseFrame(t *testing.T) {
	if m := decodeMap(t, DisconnectResponseFrame("bob", true)); m["message"] != "Client bob disconnected" {
		t.Errorf("found = %v", m)
	}
	if m := decodeMap(t, DisconnectResponseFrame("bob", false)); m["message"] != "Client bob is not connected" {
		t.Errorf("missing = %v", m)
	}
}

func TestFrameType(t *testing.T) {
	tests := []struct {
		frame []byte
		want  string
	}{
		{WelcomeFrame("C1"), FrameWelcome},
		{OKFrame("ok", ""), FrameNotificationSent},
		{PingFrame(), FramePing},
		{[]byte(`{"id":1}`), "unknown"},
		{[]byte(`{"type":"`), "unknown"},
	}
	for _, tt := range tests {
		if got := FrameType(tt.frame); got != tt.want {
			t.Errorf("FrameType(%s) = %q, want %q", tt.frame, got, tt.want)
		}
	}
}
