// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

/*
Package services adapts server components to suture.Service.

Each wrapper translates one lifecycle shape into Serve(ctx) error and names
itself through fmt.Stringer for supervisor logs:

  - HTTPServerService: ListenAndServe plus Shutdown with a drain timeout
  - GatewayService: the gateway's RunWithContext loop
  - RelayConsumerService: relay.Run feeding the gateway's local delivery
  - EmbeddedNATSService: keeps an in-process NATS server up until shutdown
  - IdempotencyGCService: periodic cleanup of expired request replies

The wrappers depend on small interfaces rather than on the component
packages, so they can be tested with fakes.
*/
package services
