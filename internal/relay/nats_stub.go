// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

//go:build !nats

package relay

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ErrNATSUnavailable is returned by NATS constructors in binaries built
// without -tags nats.
var ErrNATSUnavailable = errors.New("NATS relay not available: build with -tags=nats")

// NATSConfig is the connection part of the relay configuration.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// Available reports whether this binary was built with NATS support.
func Available() bool { return false }

// NewNATS always fails without the nats build tag.
func NewNATS(NATSConfig, watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	return nil, nil, ErrNATSUnavailable
}
