// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
)

// Client is one accepted socket. It implements registry.Conn.
type Client struct {
	id      string
	gw      *Gateway
	conn    *websocket.Conn
	limiter *rate.Limiter

	open atomic.Bool

	mu         sync.Mutex
	send       chan []byte
	sendClosed bool

	closeOnce sync.Once
}

func newClient(gw *Gateway, conn *websocket.Conn) *Client {
	c := &Client{
		gw:      gw,
		conn:    conn,
		send:    make(chan []byte, gw.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(gw.cfg.InboundRate), gw.cfg.InboundBurst),
	}
	c.open.Store(true)
	return c
}

// ID returns the connection id assigned at accept.
func (c *Client) ID() string {
	return c.id
}

// IsOpen reports whether the transport can still carry frames.
func (c *Client) IsOpen() bool {
	return c.open.Load()
}

// Send queues frame without blocking. A full buffer closes the client.
func (c *Client) Send(frame []byte) bool {
	if len(frame) == 0 || !c.IsOpen() {
		return false
	}

	c.mu.Lock()
	if c.sendClosed {
		c.mu.Unlock()
		return false
	}
	select {
	case c.send <- frame:
		c.mu.Unlock()
		return true
	default:
	}
	c.mu.Unlock()

	logging.Warn().Str("connection_id", c.id).Msg("Send buffer full, closing slow client")
	metrics.RecordSendFailure("buffer_full")
	c.open.Store(false)
	go c.Close()
	return false
}

// closeControlWait bounds the close frame written by Close.
const closeControlWait = time.Second

// Close shuts the transport down at once, dropping queued frames. The read
// pump then reports the disconnect to the gateway loop.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		if c.conn == nil {
			return
		}
		wait := c.gw.cfg.WriteWait
		if wait <= 0 || wait > closeControlWait {
			wait = closeControlWait
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wait)) //nolint:errcheck // best effort
		_ = c.conn.Close()
	})
}

// drain stops accepting frames and lets the write pump flush what is
// already queued before it sends the close frame. The read pump exits on
// the peer's close reply or after WriteWait.
func (c *Client) drain() {
	c.open.Store(false)
	c.closeSend()
}

// closeSend ends the write pump. Called once by the gateway loop after the
// client has been removed from the registry.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.open.Store(false)
		c.gw.enqueueUnregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.gw.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.gw.cfg.PongWait)); err != nil {
		logging.Error().Err(err).Str("connection_id", c.id).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.gw.cfg.PongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("connection_id", c.id).Msg("Unexpected websocket close")
			}
			return
		}
		if kind != websocket.TextMessage {
			logging.Debug().Str("connection_id", c.id).Msg("Ignoring non-text frame")
			continue
		}
		if !c.limiter.Allow() {
			metrics.WSInboundRateLimited.Inc()
			logging.Debug().Str("connection_id", c.id).Msg("Inbound frame dropped by rate limit")
			continue
		}
		if !c.gw.enqueueInbound(c, data) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.gw.cfg.pingPeriod())
	closeConn := true
	defer func() {
		ticker.Stop()
		if closeConn {
			_ = c.conn.Close()
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteWait)); err != nil {
				return
			}
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
					return
				}
				// The read pump owns the socket from here and closes it once
				// the handshake completes.
				closeConn = false
				_ = c.conn.SetReadDeadline(time.Now().Add(c.gw.cfg.WriteWait))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Debug().Err(err).Str("connection_id", c.id).Msg("Write failed")
				metrics.RecordSendFailure("write_error")
				c.open.Store(false)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.open.Store(false)
				return
			}
		}
	}
}
