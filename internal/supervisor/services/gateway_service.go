// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

package services

import (
	"context"
)

// ContextGateway is satisfied by *websocket.Gateway.
type ContextGateway interface {
	RunWithContext(ctx context.Context) error
}

// GatewayService supervises the gateway loop. The loop only returns once
// ctx is canceled, after it has closed every client.
type GatewayService struct {
	gateway ContextGateway
	name    string
}

func NewGatewayService(gw ContextGateway) *GatewayService {
	return &GatewayService{gateway: gw, name: "gateway"}
}

// Serve implements suture.Service.
func (g *GatewayService) Serve(ctx context.Context) error {
	return g.gateway.RunWithContext(ctx)
}

func (g *GatewayService) String() string {
	return g.name
}
