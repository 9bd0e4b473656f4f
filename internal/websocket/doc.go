// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

/*
Package websocket is the transport gateway for Mangasaki clients.

It accepts upgraded gorilla/websocket connections, assigns each one an id of
the form "C" plus five upper-case hex characters, and keeps them in a
registry.Registry. A single goroutine, Gateway.RunWithContext, owns every
registry mutation and every call into the Observer:

	read pumps ──inbound──┐
	ServeWS    ──register─┼──> RunWithContext ──> Observer (router)
	read pumps ─unregister┤         │
	relay      ──deliver──┘         └──> Client.send ──> write pumps

Each Client runs two goroutines:
  - readPump reads text frames, applies the per-connection rate limit and
    hands frames to the loop in arrival order
  - writePump drains the send buffer and writes protocol pings

Lifecycle frames:
  - welcome{id,message} to the new connection
  - newClient{id} to everyone else
  - clientDisconnected{id} to the remaining connections
  - ping{message:"ping"} to everyone every PingInterval

Send never blocks. It returns false when the id is gone, the transport is
closing or the send buffer is full; a full buffer also closes the slow
client. Liveness is checked on every call, so a reference captured before a
store round trip is safe to use afterwards.

Peers that stop answering protocol pings are evicted once PongWait elapses.
*/
package websocket
