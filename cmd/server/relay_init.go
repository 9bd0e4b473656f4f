// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package main

import (
	"context"
	"fmt"

	"github.com/Zonoik09/Mangasaki-server/internal/config"
	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/relay"
	"github.com/Zonoik09/Mangasaki-server/internal/supervisor"
	"github.com/Zonoik09/Mangasaki-server/internal/supervisor/services"
)

// initRelay connects the cross-node relay when it is enabled and compiled
// in. It returns nil when pushes stay local to this process.
func initRelay(cfg *config.Config, tree *supervisor.SupervisorTree, local relay.Deliverer) (*relay.Relay, error) {
	if !cfg.Relay.Enabled {
		logging.Info().Msg("Relay disabled, pushes stay on this node")
		return nil, nil
	}
	if !relay.Available() {
		logging.Warn().Msg("RELAY_ENABLED=true but this binary was built without -tags nats; relay disabled")
		return nil, nil
	}

	url := cfg.Relay.URL
	var embedded *relay.EmbeddedServer
	if cfg.Relay.EmbeddedServer {
		srv, err := relay.NewEmbeddedServer(cfg.Relay.Host, cfg.Relay.Port)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		embedded = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	pub, sub, err := relay.NewNATS(relay.NATSConfig{URL: url}, relay.NewWatermillLogger())
	if err != nil {
		if embedded != nil {
			_ = embedded.Shutdown(context.Background())
		}
		return nil, fmt.Errorf("connect relay: %w", err)
	}
	if embedded != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(embedded, cfg.Server.ShutdownTimeout))
	}

	nodeID := cfg.Relay.NodeID
	if nodeID == "" {
		nodeID = relay.NewNodeID()
	}
	r := relay.New(relay.Config{
		Topic:  cfg.Relay.Subject,
		NodeID: nodeID,
	}, pub, sub)

	tree.AddMessagingService(services.NewRelayConsumerService(r, local))
	logging.Info().Str("node_id", nodeID).Str("subject", cfg.Relay.Subject).Msg("Relay enabled")
	return r, nil
}
