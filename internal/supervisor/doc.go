// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

/*
Package supervisor runs the long-lived parts of the server under a suture v4
supervisor tree.

# Tree

	mangasaki
	├── data-layer
	│   └── idempotency-gc          (when idempotency is enabled)
	├── messaging-layer
	│   ├── nats-server             (embedded relay server, -tags nats)
	│   ├── gateway                 (the connection and routing loop)
	│   └── relay-consumer          (cross-node pushes, -tags nats)
	└── api-layer
	    └── http-server             (REST endpoints and the /ws upgrade)

Each layer restarts its own children. A relay consumer that cannot reach NATS
is restarted with backoff while the gateway keeps serving local clients.

Supervisor events are logged through sutureslog using the slog bridge from
the logging package, so they share the zerolog output of the rest of the
process.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddMessagingService(services.NewGatewayService(gw))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	return tree.Serve(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
