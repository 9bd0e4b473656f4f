// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("relay is closed")

// Deliverer hands a relayed frame to a locally connected user.
// *websocket.Gateway implements it.
type Deliverer interface {
	DeliverToUser(ctx context.Context, username string, frame []byte) bool
}

// Config configures a Relay.
type Config struct {
	// Topic is the subject every node publishes to and consumes from.
	Topic string

	// NodeID tags envelopes so a node ignores its own publications.
	NodeID string

	// Breaker settings for publishing. A zero FailureThreshold means 5.
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold uint32
}

// NewNodeID returns a random node id.
func NewNodeID() string {
	return "node-" + strings.ToUpper(uuid.New().String()[:8])
}

// Relay publishes pushes for remote receivers and consumes pushes
// published by other nodes.
type Relay struct {
	cfg Config
	pub message.Publisher
	sub message.Subscriber
	cb  *gobreaker.CircuitBreaker[interface{}]

	mu     sync.RWMutex
	closed bool
}

// New builds a relay over pub and sub. Either may be nil for a publish-only
// or consume-only node.
func New(cfg Config, pub message.Publisher, sub message.Subscriber) *Relay {
	if cfg.Topic == "" {
		cfg.Topic = "mangasaki.push"
	}
	if cfg.NodeID == "" {
		cfg.NodeID = NewNodeID()
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	return &Relay{
		cfg: cfg,
		pub: pub,
		sub: sub,
		cb:  newBreaker(cfg),
	}
}

func newBreaker(cfg Config) *gobreaker.CircuitBreaker[interface{}] {
	name := "relay-publish"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Relay circuit breaker state transition")
			var v float64
			switch to {
			case gobreaker.StateHalfOpen:
				v = 1
			case gobreaker.StateOpen:
				v = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(v)
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// NodeID returns the id this relay stamps on its envelopes.
func (r *Relay) NodeID() string {
	return r.cfg.NodeID
}

// BreakerState reports the publish breaker state.
func (r *Relay) BreakerState() string {
	return r.cb.State().String()
}

// Publish sends frame for username to every other node.
func (r *Relay) Publish(ctx context.Context, username string, frame []byte) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed || r.pub == nil {
		return ErrClosed
	}

	payload, err := encodeEnvelope(&Envelope{Origin: r.cfg.NodeID, Username: username, Frame: frame})
	if err != nil {
		metrics.RecordRelay("publish", "error")
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("origin", r.cfg.NodeID)

	_, err = r.cb.Execute(func() (interface{}, error) {
		return nil, r.pub.Publish(r.cfg.Topic, msg)
	})
	if err != nil {
		metrics.RecordRelay("publish", "error")
		return fmt.Errorf("publish to %s: %w", r.cfg.Topic, err)
	}
	metrics.RecordRelay("publish", "success")
	return nil
}

// Run consumes relayed pushes until ctx is canceled or the subscription
// channel closes.
func (r *Relay) Run(ctx context.Context, d Deliverer) error {
	if r.sub == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	messages, err := r.sub.Subscribe(ctx, r.cfg.Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.cfg.Topic, err)
	}
	logging.Info().Str("topic", r.cfg.Topic).Str("node_id", r.cfg.NodeID).Msg("Relay consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, d, msg)
			// Live pushes are not redelivered.
			msg.Ack()
		}
	}
}

func (r *Relay) handle(ctx context.Context, d Deliverer, msg *message.Message) {
	env, err := decodeEnvelope(msg.Payload)
	if err != nil {
		metrics.RecordRelay("consume", "invalid")
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping relay message")
		return
	}
	if env.Origin == r.cfg.NodeID {
		metrics.RecordRelay("consume", "own")
		return
	}
	if d.DeliverToUser(ctx, env.Username, env.Frame) {
		metrics.RecordRelay("consume", "delivered")
		return
	}
	metrics.RecordRelay("consume", "not_local")
}

// Close closes the publisher and subscriber.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.pub != nil {
		errs = append(errs, r.pub.Close())
	}
	if r.sub != nil && any(r.sub) != any(r.pub) {
		errs = append(errs, r.sub.Close())
	}
	return errors.Join(errs...)
}
