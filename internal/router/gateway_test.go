// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/Zonoik09/Mangasaki-server/internal/config"
	"github.com/Zonoik09/Mangasaki-server/internal/database"
	"github.com/Zonoik09/Mangasaki-server/internal/presence"
	"github.com/Zonoik09/Mangasaki-server/internal/protocol"
	"github.com/Zonoik09/Mangasaki-server/internal/registry"
	ws "github.com/Zonoik09/Mangasaki-server/internal/websocket"
)

// liveServer runs the router behind a real gateway and upgrader.
type liveServer struct {
	reg *registry.Registry
	url string
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 2})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := database.NewResilientStore(db, database.BreakerConfig{Name: "router-live-" + t.Name()})

	reg := registry.New()
	gw := ws.New(ws.Config{PingInterval: time.Hour}, reg)
	gw.SetObserver(New(Config{HandlerTimeout: 5 * time.Second}, gw, reg, store, presence.New(store, reg)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = gw.RunWithContext(ctx)
	}()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if err := gw.Accept(r.Context(), conn); err != nil {
			_ = conn.Close()
		}
	}))
	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})
	return &liveServer{reg: reg, url: "ws" + strings.TrimPrefix(server.URL, "http")}
}

func (s *liveServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(s.url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readFrame returns the next frame of type want, skipping others. It
// fails the test on any read error, including a close.
func readFrame(t *testing.T, conn *websocket.Conn, want string) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		if m["type"] == want {
			return m
		}
	}
}

func writeJSON(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSelfDisconnectReplyReachesSocket(t *testing.T) {
	s := newLiveServer(t)

	for i := 0; i < 20; i++ {
		conn := s.dial(t)
		id := readFrame(t, conn, protocol.FrameWelcome)["id"].(string)

		writeJSON(t, conn, map[string]interface{}{"type": "joinedClientWithInfo", "username": "alice"})
		readFrame(t, conn, protocol.FrameJoinResponse)

		writeJSON(t, conn, map[string]interface{}{"type": "disconnectRequest", "username": "alice"})
		reply := readFrame(t, conn, protocol.FrameDisconnectResponse)
		if reply["message"] != "Client alice disconnected" {
			t.Fatalf("round %d: reply = %v", i, reply)
		}

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			_, _, err := conn.ReadMessage()
			if err == nil {
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("round %d: read ended with %v, want a normal close", i, err)
			}
			break
		}

		deadline := time.Now().Add(2 * time.Second)
		for s.reg.Has(id) {
			if time.Now().After(deadline) {
				t.Fatalf("round %d: %s still registered", i, id)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestDisconnectOtherRepliesToRequester(t *testing.T) {
	s := newLiveServer(t)

	alice := s.dial(t)
	readFrame(t, alice, protocol.FrameWelcome)
	writeJSON(t, alice, map[string]interface{}{"type": "joinedClientWithInfo", "username": "alice"})
	readFrame(t, alice, protocol.FrameJoinResponse)

	bob := s.dial(t)
	readFrame(t, bob, protocol.FrameWelcome)
	writeJSON(t, bob, map[string]interface{}{"type": "disconnectRequest", "username": "alice"})
	reply := readFrame(t, bob, protocol.FrameDisconnectResponse)
	if reply["message"] != "Client alice disconnected" {
		t.Fatalf("reply = %v", reply)
	}

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := alice.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("alice read ended with %v, want a normal close", err)
			}
			break
		}
	}
	readFrame(t, bob, protocol.FrameClientDisconnected)
}
