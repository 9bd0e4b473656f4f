// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package websocket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Zonoik09/Mangasaki-server/internal/config"
	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
	"github.com/Zonoik09/Mangasaki-server/internal/protocol"
	"github.com/Zonoik09/Mangasaki-server/internal/registry"
)

// ShutdownReason identifies why the gateway loop stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// maxIDAttempts bounds id regeneration on collision.
const maxIDAttempts = 16

var (
	// ErrStopped is returned when the gateway loop is no longer running.
	ErrStopped = errors.New("websocket: gateway stopped")

	// ErrBusy is returned when a connection cannot be handed to the loop in time.
	ErrBusy = errors.New("websocket: gateway busy")
)

// Observer receives connection lifecycle events and inbound frames. Every
// method is called on the gateway loop goroutine, one call at a time.
type Observer interface {
	Connected(ctx context.Context, connID string)
	Message(ctx context.Context, connID string, data []byte)
	Disconnected(ctx context.Context, connID, username string)
}

// Config tunes the gateway.
type Config struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	InboundRate    float64
	InboundBurst   int
}

// ConfigFrom maps the websocket config section.
func ConfigFrom(c config.WebSocketConfig) Config {
	return Config{
		PingInterval:   c.PingInterval,
		PongWait:       c.PongWait,
		WriteWait:      c.WriteWait,
		MaxMessageSize: c.MaxMessageSize,
		SendBuffer:     c.SendBuffer,
		InboundRate:    c.InboundRatePerSecond,
		InboundBurst:   c.InboundBurst,
	}
}

// DefaultConfig returns the values used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		PingInterval:   5 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		InboundRate:    20,
		InboundBurst:   40,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.InboundRate <= 0 {
		c.InboundRate = d.InboundRate
	}
	if c.InboundBurst <= 0 {
		c.InboundBurst = d.InboundBurst
	}
	return c
}

// pingPeriod must stay below PongWait so a healthy peer's pong arrives
// before the read deadline.
func (c Config) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

type inboundFrame struct {
	client *Client
	data   []byte
}

type delivery struct {
	username string
	frame    []byte
	result   chan bool
}

// Gateway owns the client connections.
type Gateway struct {
	cfg      Config
	reg      *registry.Registry
	observer Observer

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	deliver    chan delivery

	stopped  chan struct{}
	stopOnce sync.Once

	newID func() string
}

// New creates a gateway around reg.
func New(cfg Config, reg *registry.Registry) *Gateway {
	return &Gateway{
		cfg:        cfg.withDefaults(),
		reg:        reg,
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		inbound:    make(chan inboundFrame),
		deliver:    make(chan delivery, 256),
		stopped:    make(chan struct{}),
		newID:      NewConnectionID,
	}
}

// NewConnectionID returns "C" followed by the first five characters of a
// random UUID, upper-cased.
func NewConnectionID() string {
	return "C" + strings.ToUpper(uuid.NewString()[:5])
}

// SetObserver installs the event receiver. It must be called before
// RunWithContext.
func (g *Gateway) SetObserver(o Observer) {
	g.observer = o
}

// Registry returns the connection registry.
func (g *Gateway) Registry() *registry.Registry {
	return g.reg
}

// Accept hands an upgraded socket to the loop. It returns once the loop has
// taken the connection, or with an error when the loop is not running.
func (g *Gateway) Accept(ctx context.Context, conn *websocket.Conn) error {
	c := newClient(g, conn)
	timer := time.NewTimer(g.cfg.WriteWait)
	defer timer.Stop()

	select {
	case g.register <- c:
		return nil
	case <-g.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

func (g *Gateway) enqueueUnregister(c *Client) {
	select {
	case g.unregister <- c:
	case <-g.stopped:
	}
}

func (g *Gateway) enqueueInbound(c *Client, data []byte) bool {
	select {
	case g.inbound <- inboundFrame{client: c, data: data}:
		return true
	case <-g.stopped:
		return false
	}
}

// RunWithContext runs the event loop until ctx is canceled. Lifecycle
// events are drained before inbound frames so that a frame is never routed
// for a connection whose registration is still queued.
func (g *Gateway) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()

	logger := logging.WithComponent("gateway")
	logger.Info().Dur("ping_interval", g.cfg.PingInterval).Msg("Gateway loop started")

	for {
		select {
		case <-ctx.Done():
			g.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-g.register:
			g.accept(ctx, c)
			continue
		case c := <-g.unregister:
			g.disconnect(ctx, c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			g.shutdown(ctx)
			return ctx.Err()
		case c := <-g.register:
			g.accept(ctx, c)
		case c := <-g.unregister:
			g.disconnect(ctx, c)
		case in := <-g.inbound:
			g.dispatch(ctx, in)
		case d := <-g.deliver:
			ok := g.SendToUser(d.username, d.frame)
			if d.result != nil {
				d.result <- ok
			}
		case <-ticker.C:
			g.Broadcast(protocol.PingFrame())
		}
	}
}

func (g *Gateway) accept(ctx context.Context, c *Client) {
	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		c.id = g.newID()
		if err = g.reg.Add(c); !errors.Is(err, registry.ErrDuplicateID) {
			break
		}
		logging.Debug().Str("connection_id", c.id).Msg("Connection id collision, drawing again")
	}
	if err != nil {
		logging.Error().Err(err).Msg("Could not assign a connection id")
		c.Close()
		return
	}

	metrics.WSConnections.Set(float64(g.reg.Len()))
	logging.Info().Str("connection_id", c.id).Int("total_clients", g.reg.Len()).Msg("Client connected")

	if c.conn != nil {
		c.start()
	}
	g.send(c, protocol.WelcomeFrame(c.id))
	g.broadcastExcept(protocol.NewClientFrame(c.id), c.id)

	if g.observer != nil {
		g.observer.Connected(logging.ContextWithConnectionID(ctx, c.id), c.id)
	}
}

func (g *Gateway) disconnect(ctx context.Context, c *Client) {
	info, ok := g.reg.Remove(c.id)
	if !ok {
		return
	}
	c.open.Store(false)
	c.closeSend()

	metrics.WSConnections.Set(float64(g.reg.Len()))
	logging.Info().Str("connection_id", c.id).Str("username", info.Username).
		Int("total_clients", g.reg.Len()).Msg("Client disconnected")

	if g.observer != nil {
		g.observer.Disconnected(logging.ContextWithConnectionID(ctx, c.id), c.id, info.Username)
	}
	g.Broadcast(protocol.ClientDisconnectedFrame(c.id))
}

func (g *Gateway) dispatch(ctx context.Context, in inboundFrame) {
	if !g.reg.Has(in.client.id) {
		return
	}
	if g.observer == nil {
		return
	}
	msgCtx := logging.ContextWithNewCorrelationID(ctx)
	msgCtx = logging.ContextWithConnectionID(msgCtx, in.client.id)
	g.observer.Message(msgCtx, in.client.id, in.data)
}

// Send delivers frame to connID. It reports false when the connection is
// unknown, closing or cannot accept the frame.
func (g *Gateway) Send(connID string, frame []byte) bool {
	conn, ok := g.reg.Get(connID)
	if !ok {
		metrics.RecordSendFailure("unknown_connection")
		return false
	}
	return g.send(conn, frame)
}

func (g *Gateway) send(conn registry.Conn, frame []byte) bool {
	if !conn.IsOpen() {
		metrics.RecordSendFailure("closed")
		return false
	}
	if !conn.Send(frame) {
		return false
	}
	metrics.RecordFrameSent(protocol.FrameType(frame))
	return true
}

// SendToUser resolves username to its most recent live connection and
// sends frame there.
func (g *Gateway) SendToUser(username string, frame []byte) bool {
	conn, ok := g.reg.ResolveByUsername(username)
	if !ok {
		return false
	}
	return g.send(conn, frame)
}

// Broadcast sends frame to every open connection in accept order.
func (g *Gateway) Broadcast(frame []byte) {
	g.broadcastExcept(frame, "")
}

func (g *Gateway) broadcastExcept(frame []byte, skip string) {
	for _, conn := range g.reg.Conns() {
		if conn.ID() == skip || !conn.IsOpen() {
			continue
		}
		g.send(conn, frame)
	}
}

// Close closes connID's transport after the frames already queued for it
// have been written, so a reply sent just before Close still arrives. The
// disconnect is processed when the read pump exits. It reports false for
// unknown ids.
func (g *Gateway) Close(connID string) bool {
	conn, ok := g.reg.Get(connID)
	if !ok {
		return false
	}
	if c, isClient := conn.(*Client); isClient && c.conn != nil {
		c.drain()
		return true
	}
	conn.Close()
	return true
}

// DeliverToUser queues a frame for username from outside the loop, e.g. the
// relay subscriber. It waits for the loop to attempt the send and reports
// whether a local connection took the frame.
func (g *Gateway) DeliverToUser(ctx context.Context, username string, frame []byte) bool {
	result := make(chan bool, 1)
	select {
	case g.deliver <- delivery{username: username, frame: frame, result: result}:
	case <-g.stopped:
		return false
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-result:
		return ok
	case <-g.stopped:
		return false
	case <-ctx.Done():
		return false
	}
}

// ClientCount returns the number of registered connections.
func (g *Gateway) ClientCount() int {
	return g.reg.Len()
}

func (g *Gateway) shutdown(ctx context.Context) {
	g.stopOnce.Do(func() { close(g.stopped) })

	conns := g.reg.Conns()
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn registry.Conn) {
			defer wg.Done()
			conn.Close()
		}(conn)
	}
	wg.Wait()

	for _, conn := range conns {
		if info, ok := g.reg.Remove(conn.ID()); ok {
			if c, isClient := conn.(*Client); isClient {
				c.closeSend()
			}
			if g.observer != nil {
				g.observer.Disconnected(ctx, info.ID, info.Username)
			}
		}
	}
	metrics.WSConnections.Set(0)

	logging.Info().
		Str("component", "gateway").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", len(conns)).
		Msg("Gateway loop stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
