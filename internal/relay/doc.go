// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package relay carries live notification pushes between server nodes.
//
// When a receiver has no connection on the node that processed the
// notification, the router publishes the encoded push frame on a shared
// subject. Every node subscribes to that subject and hands frames that it
// did not publish itself to its gateway, which delivers them when the
// receiver is connected locally. Pushes are best effort: the stored record
// stays the source of truth and a missed relay is never retried.
//
// Relay works over any watermill Publisher and Subscriber. Binaries built
// with -tags nats use core NATS (optionally an embedded server); tests and
// single-node setups use the in-process gochannel pub/sub.
package relay
