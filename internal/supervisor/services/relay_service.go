// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/relay"
)

// RelayConsumer is satisfied by *relay.Relay.
type RelayConsumer interface {
	Run(ctx context.Context, d relay.Deliverer) error
}

// RelayConsumerService feeds pushes published by other nodes into the local
// gateway. A subscription that ends without cancellation is reported as an
// error so the supervisor resubscribes.
type RelayConsumerService struct {
	relay   RelayConsumer
	deliver relay.Deliverer
	name    string
}

func NewRelayConsumerService(r RelayConsumer, d relay.Deliverer) *RelayConsumerService {
	return &RelayConsumerService{relay: r, deliver: d, name: "relay-consumer"}
}

// Serve implements suture.Service.
func (s *RelayConsumerService) Serve(ctx context.Context) error {
	err := s.relay.Run(ctx, s.deliver)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = fmt.Errorf("subscription closed")
	}
	return fmt.Errorf("relay consumer: %w", err)
}

func (s *RelayConsumerService) String() string {
	return s.name
}

// NATSServer is satisfied by *relay.EmbeddedServer.
type NATSServer interface {
	ClientURL() string
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedNATSService owns the lifetime of an in-process NATS server. The
// server is started by its constructor; the service reports when it stops
// on its own and shuts it down when the tree stops.
type EmbeddedNATSService struct {
	server          NATSServer
	checkInterval   time.Duration
	shutdownTimeout time.Duration
	name            string
}

func NewEmbeddedNATSService(server NATSServer, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		server:          server,
		checkInterval:   5 * time.Second,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// Serve implements suture.Service. A server that stopped by itself cannot be
// restarted in place, so the service gives up with ErrDoNotRestart.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS server shutdown incomplete")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				logging.Error().Str("url", s.server.ClientURL()).Msg("Embedded NATS server stopped unexpectedly")
				return fmt.Errorf("embedded NATS server stopped: %w", errDoNotRestart)
			}
		}
	}
}

func (s *EmbeddedNATSService) String() string {
	return s.name
}
