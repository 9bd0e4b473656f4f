// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

/*
Package api is the HTTP surface of the real-time server.

Routes:

	GET    /ws                                   WebSocket upgrade into the gateway
	GET    /metrics                              Prometheus exposition
	GET    /api/v1/health                        status, connections, breakers
	GET    /api/v1/health/live                   liveness probe
	GET    /api/v1/health/ready                  readiness probe (database ping)
	GET    /api/v1/users/{userID}/notifications  merged notification feed
	GET    /api/v1/presence/{username}           online and offline friends
	DELETE /api/v1/friend-requests/{id}          decline a pending request
	DELETE /api/v1/friendships/{id}              remove a friendship

Every JSON response uses the models.APIResponse envelope. The /ws route is
mounted outside the instrumented group because the upgrade hijacks the
connection.
*/
package api
