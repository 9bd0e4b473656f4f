// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

//go:build !nats

package relay

import "context"

// EmbeddedServer is unavailable without the nats build tag.
type EmbeddedServer struct{}

// NewEmbeddedServer always fails without the nats build tag.
func NewEmbeddedServer(string, int) (*EmbeddedServer, error) {
	return nil, ErrNATSUnavailable
}

func (s *EmbeddedServer) ClientURL() string { return "" }

func (s *EmbeddedServer) IsRunning() bool { return false }

func (s *EmbeddedServer) Shutdown(context.Context) error { return nil }
