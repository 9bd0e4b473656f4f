// Mangasaki - Social Manga Tracking Real-Time Server
// Copyright 2026 Zonoik09
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Zonoik09/Mangasaki-server

// Package router interprets inbound client messages. It binds usernames,
// persists notifications, pushes them to the receiver's live connection and
// answers presence and disconnect requests.
//
// Router implements the gateway Observer interface and runs on the gateway
// loop goroutine. Every send goes through the transport, which re-checks
// that the connection is still open; a receiver resolved before a store
// call is resolved again afterwards.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Zonoik09/Mangasaki-server/internal/database"
	"github.com/Zonoik09/Mangasaki-server/internal/idempotency"
	"github.com/Zonoik09/Mangasaki-server/internal/logging"
	"github.com/Zonoik09/Mangasaki-server/internal/metrics"
	"github.com/Zonoik09/Mangasaki-server/internal/models"
	"github.com/Zonoik09/Mangasaki-server/internal/presence"
	"github.com/Zonoik09/Mangasaki-server/internal/protocol"
	"github.com/Zonoik09/Mangasaki-server/internal/registry"
)

// Store is the persistence the router needs. *database.ResilientStore
// implements it.
type Store interface {
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByNickname(ctx context.Context, nickname string) (*models.User, error)
	FindGallery(ctx context.Context, id int64) (*models.Gallery, error)
	CreateFriendRequest(ctx context.Context, senderID, receiverID int64, message string) (*models.Notification, error)
	AcceptFriendship(ctx context.Context, acceptorID, requesterID int64, message string) (*models.Notification, bool, error)
	CreateLike(ctx context.Context, senderID, receiverID, galleryID int64, message string) (*models.Notification, error)
	CreateRecommendation(ctx context.Context, senderID, receiverID, mangaID int64, message string) (*models.Notification, error)
}

// Transport sends frames to and closes connections. *websocket.Gateway
// implements it.
type Transport interface {
	Send(connID string, frame []byte) bool
	Close(connID string) bool
}

// Relay forwards a live push to other server nodes.
type Relay interface {
	Publish(ctx context.Context, username string, frame []byte) error
}

// PresenceQuery answers getFriendsOnlineOffline.
type PresenceQuery interface {
	OnlineOffline(ctx context.Context, username string) (presence.Result, error)
}

// Config tunes the router.
type Config struct {
	HandlerTimeout time.Duration
	IdempotencyTTL time.Duration
}

// Router dispatches decoded messages.
type Router struct {
	cfg       Config
	transport Transport
	reg       *registry.Registry
	store     Store
	presence  PresenceQuery
	tracker   idempotency.Tracker
	relay     Relay
}

// Option configures optional collaborators.
type Option func(*Router)

// WithIdempotency enables request_id replay protection.
func WithIdempotency(t idempotency.Tracker) Option {
	return func(r *Router) { r.tracker = t }
}

// WithRelay forwards pushes for users not connected to this node.
func WithRelay(rl Relay) Option {
	return func(r *Router) { r.relay = rl }
}

// New builds a router.
func New(cfg Config, transport Transport, reg *registry.Registry, store Store, pq PresenceQuery, opts ...Option) *Router {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 5 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 10 * time.Minute
	}
	r := &Router{
		cfg:       cfg,
		transport: transport,
		reg:       reg,
		store:     store,
		presence:  pq,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connected implements the gateway Observer.
func (r *Router) Connected(ctx context.Context, connID string) {
	logging.Ctx(ctx).Debug().Msg("Connection ready for messages")
}

// Disconnected implements the gateway Observer.
func (r *Router) Disconnected(ctx context.Context, connID, username string) {
	if username != "" {
		logging.Ctx(ctx).Debug().Str("username", username).Msg("Bound connection closed")
	}
}

// Message handles one inbound frame. Failures never escape; a panicking
// handler is logged and counted.
func (r *Router) Message(ctx context.Context, connID string, data []byte) {
	start := time.Now()
	msgType := "unknown"

	defer func() {
		if rec := recover(); rec != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("type", msgType).
				Msg("Message handler panicked")
			metrics.RecordRouterError("panic")
			metrics.RecordRouted(msgType, "panic", time.Since(start))
		}
	}()

	msg, err := protocol.Decode(data)
	if err != nil {
		msgType = r.rejectFrame(ctx, connID, data, err)
		metrics.RecordRouted(msgType, "rejected", time.Since(start))
		return
	}
	msgType = string(msg.MessageType())
	metrics.RecordInbound(msgType, true)

	hctx, cancel := context.WithTimeout(ctx, r.cfg.HandlerTimeout)
	defer cancel()

	outcome := r.dispatch(hctx, connID, msg)
	metrics.RecordRouted(msgType, outcome, time.Since(start))
}

// rejectFrame handles a frame that failed decoding and returns the type
// label used for metrics.
func (r *Router) rejectFrame(ctx context.Context, connID string, data []byte, err error) string {
	log := logging.Ctx(ctx)

	var invalid *protocol.InvalidError
	switch {
	case errors.As(err, &invalid):
		t := string(invalid.Type)
		metrics.RecordInbound(t, true)
		log.Warn().Err(err).Str("type", t).Strs("fields", invalid.Fields).Msg("Rejected invalid message")
		if invalid.Type.IsNotification() {
			metrics.RecordRouterError(CodeValidation)
			r.transport.Send(connID, protocol.ErrorFrame(CodeValidation, invalid.Err.Error(), invalid.RequestID))
		}
		return t

	case errors.Is(err, protocol.ErrUnknownType):
		t := string(protocol.PeekType(data))
		metrics.RecordInbound(t, false)
		log.Warn().Str("type", t).Msg("Dropping message of unknown type")
		return "unknown"

	default:
		metrics.RecordInbound("", false)
		log.Debug().Err(err).Int("bytes", len(data)).Msg("Dropping malformed message")
		return "malformed"
	}
}

func (r *Router) dispatch(ctx context.Context, connID string, msg protocol.Message) string {
	switch m := msg.(type) {
	case *protocol.Join:
		return r.handleJoin(ctx, connID, m)
	case *protocol.PresenceRequest:
		return r.handlePresence(ctx, connID, m)
	case *protocol.DisconnectRequest:
		return r.handleDisconnect(ctx, connID, m)
	case *protocol.FriendRequest, *protocol.FriendAccept, *protocol.Like, *protocol.Recommendation:
		return r.handleNotification(ctx, connID, msg)
	}
	logging.Ctx(ctx).Error().Str("type", string(msg.MessageType())).Msg("Decoded message has no handler")
	return "unhandled"
}

func (r *Router) handleJoin(ctx context.Context, connID string, m *protocol.Join) string {
	prev, err := r.reg.Bind(connID, m.Username)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("username", m.Username).Msg("Bind for unknown connection")
		return "dropped"
	}
	ev := logging.Ctx(ctx).Info().Str("username", m.Username)
	if prev != "" && prev != m.Username {
		ev = ev.Str("previous_username", prev)
	}
	ev.Msg("Client identified")

	r.transport.Send(connID, protocol.JoinResponseFrame(m.Username))
	return "ok"
}

func (r *Router) handlePresence(ctx context.Context, connID string, m *protocol.PresenceRequest) string {
	res, err := r.presence.OnlineOffline(ctx, m.Username)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("username", m.Username).Msg("Presence query failed")
		msg := "Could not load friends"
		if errors.Is(err, database.ErrNotFound) {
			msg = fmt.Sprintf("User %s not found", m.Username)
		}
		r.transport.Send(connID, protocol.PresenceErrorFrame(msg, m.RequestID))
		return "error"
	}
	r.transport.Send(connID, protocol.PresenceFrame(m.Username, res.Online, res.Offline, m.RequestID))
	return "ok"
}

func (r *Router) handleDisconnect(ctx context.Context, connID string, m *protocol.DisconnectRequest) string {
	target, found := r.reg.ResolveByUsername(m.Username)

	// Reply first: the requester may be the connection being closed.
	r.transport.Send(connID, protocol.DisconnectResponseFrame(m.Username, found))
	if !found {
		return "not_found"
	}
	r.transport.Close(target.ID())
	logging.Ctx(ctx).Info().Str("username", m.Username).Str("target_connection", target.ID()).
		Msg("Closed connection on request")
	return "ok"
}

func (r *Router) handleNotification(ctx context.Context, connID string, msg protocol.Message) string {
	log := logging.Ctx(ctx)
	key := idempotency.Key(string(msg.MessageType()), senderOf(msg), msg.RequestToken())

	if key != "" && r.tracker != nil {
		reply, ok, err := r.tracker.Lookup(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("Idempotency lookup failed, processing message")
		} else if ok {
			log.Debug().Str("request_id", msg.RequestToken()).Msg("Replaying stored reply")
			r.transport.Send(connID, reply)
			return "replayed"
		}
	}

	okMsg, nerr := r.apply(ctx, msg)

	var reply []byte
	outcome := "ok"
	if nerr != nil {
		metrics.RecordRouterError(nerr.Code)
		ev := log.Info()
		if nerr.Code == CodeStoreUnavailable {
			ev = log.Error()
		}
		ev.Err(nerr.Err).Str("code", nerr.Code).Str("type", string(msg.MessageType())).Msg("Notification rejected")
		reply = protocol.ErrorFrame(nerr.Code, nerr.Msg, msg.RequestToken())
		outcome = "error"
	} else {
		reply = protocol.OKFrame(okMsg, msg.RequestToken())
	}
	r.transport.Send(connID, reply)

	if key != "" && r.tracker != nil && cacheable(nerr) {
		if err := r.tracker.Remember(ctx, key, reply, r.cfg.IdempotencyTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to remember reply")
		}
	}
	return outcome
}

func senderOf(msg protocol.Message) string {
	var id protocol.ID
	switch m := msg.(type) {
	case *protocol.FriendRequest:
		id = m.SenderUserID
	case *protocol.FriendAccept:
		id = m.SenderUserID
	case *protocol.Like:
		id = m.SenderUserID
	case *protocol.Recommendation:
		id = m.SenderUserID
	}
	return strconv.FormatInt(int64(id), 10)
}

func (r *Router) apply(ctx context.Context, msg protocol.Message) (string, *NotificationError) {
	switch m := msg.(type) {
	case *protocol.FriendRequest:
		return r.friendRequest(ctx, m)
	case *protocol.FriendAccept:
		return r.friendAccept(ctx, m)
	case *protocol.Like:
		return r.like(ctx, m)
	case *protocol.Recommendation:
		return r.recommend(ctx, m)
	}
	return "", storeError(fmt.Errorf("no notification handler for %s", msg.MessageType()))
}

// resolvePair loads the sender by id and the receiver by nickname.
func (r *Router) resolvePair(ctx context.Context, a protocol.Addressed) (sender, receiver *models.User, nerr *NotificationError) {
	sender, err := r.store.FindUserByID(ctx, int64(a.SenderUserID))
	if err != nil {
		return nil, nil, lookupError(fmt.Errorf("sender %d: %w", a.SenderUserID, err))
	}
	receiver, err = r.store.FindUserByNickname(ctx, a.ReceiverUsername)
	if err != nil {
		return nil, nil, lookupError(fmt.Errorf("receiver %s: %w", a.ReceiverUsername, err))
	}
	return sender, receiver, nil
}

func (r *Router) friendRequest(ctx context.Context, m *protocol.FriendRequest) (string, *NotificationError) {
	sender, receiver, nerr := r.resolvePair(ctx, m.Addressed)
	if nerr != nil {
		return "", nerr
	}
	if sender.ID == receiver.ID {
		return "", notificationError(CodeSelfTarget, ErrSelfTarget, nil)
	}

	n, err := r.store.CreateFriendRequest(ctx, sender.ID, receiver.ID, models.FriendRequestMessage(sender.Nickname))
	switch {
	case errors.Is(err, database.ErrAlreadyFriends):
		return "", notificationError(CodeAlreadyFriends, ErrAlreadyFriends, err)
	case errors.Is(err, database.ErrDuplicate):
		return "", notificationError(CodeDuplicateRequest, ErrDuplicateRequest, err)
	case err != nil:
		return "", storeError(err)
	}
	metrics.RecordNotificationPersisted(string(n.Kind))

	r.push(ctx, receiver.Nickname, n, sender.Nickname)
	return fmt.Sprintf("Friend request sent to %s", receiver.Nickname), nil
}

func (r *Router) friendAccept(ctx context.Context, m *protocol.FriendAccept) (string, *NotificationError) {
	sender, receiver, nerr := r.resolvePair(ctx, m.Addressed)
	if nerr != nil {
		return "", nerr
	}
	if sender.ID == receiver.ID {
		return "", notificationError(CodeSelfTarget, ErrSelfTarget, nil)
	}

	n, created, err := r.store.AcceptFriendship(ctx, sender.ID, receiver.ID, models.FriendAcceptedMessage(sender.Nickname))
	if err != nil {
		return "", storeError(err)
	}
	if !created {
		return fmt.Sprintf("You are already friends with %s", receiver.Nickname), nil
	}
	metrics.RecordNotificationPersisted(string(n.Kind))

	r.push(ctx, receiver.Nickname, n, sender.Nickname)
	return fmt.Sprintf("You are now friends with %s", receiver.Nickname), nil
}

func (r *Router) like(ctx context.Context, m *protocol.Like) (string, *NotificationError) {
	sender, receiver, nerr := r.resolvePair(ctx, m.Addressed)
	if nerr != nil {
		return "", nerr
	}
	if sender.ID == receiver.ID {
		return "", notificationError(CodeSelfTarget, ErrSelfTarget, nil)
	}

	gallery, err := r.store.FindGallery(ctx, int64(m.GalleryID))
	switch {
	case errors.Is(err, database.ErrNotFound):
		return "", notificationError(CodeGalleryNotFound, ErrGalleryNotFound, err)
	case err != nil:
		return "", storeError(err)
	case gallery.UserID != receiver.ID:
		return "", notificationError(CodeGalleryNotFound, ErrGalleryNotFound,
			fmt.Errorf("gallery %d belongs to user %d", gallery.ID, gallery.UserID))
	}

	n, err := r.store.CreateLike(ctx, sender.ID, receiver.ID, gallery.ID, models.LikeMessage(sender.Nickname, gallery.Name))
	switch {
	case errors.Is(err, database.ErrDuplicate):
		return "", notificationError(CodeDuplicateLike, ErrDuplicateLike, err)
	case errors.Is(err, database.ErrNotFound):
		return "", notificationError(CodeGalleryNotFound, ErrGalleryNotFound, err)
	case err != nil:
		return "", storeError(err)
	}
	metrics.RecordNotificationPersisted(string(n.Kind))

	r.push(ctx, receiver.Nickname, n, sender.Nickname)
	return fmt.Sprintf("Like sent to %s", receiver.Nickname), nil
}

func (r *Router) recommend(ctx context.Context, m *protocol.Recommendation) (string, *NotificationError) {
	sender, receiver, nerr := r.resolvePair(ctx, m.Addressed)
	if nerr != nil {
		return "", nerr
	}

	n, err := r.store.CreateRecommendation(ctx, sender.ID, receiver.ID, int64(m.MangaID), models.RecommendationMessage(sender.Nickname))
	if err != nil {
		return "", storeError(err)
	}
	metrics.RecordNotificationPersisted(string(n.Kind))

	r.push(ctx, receiver.Nickname, n, sender.Nickname)
	return fmt.Sprintf("Recommendation sent to %s", receiver.Nickname), nil
}

// push delivers n to the receiver's newest live connection. The receiver is
// resolved here, after the store call, and never cached. A receiver with no
// local connection is handed to the relay when one is configured.
func (r *Router) push(ctx context.Context, receiver string, n *models.Notification, senderNick string) {
	log := logging.Ctx(ctx)
	frame := protocol.PushFrame(n, senderNick)

	conn, ok := r.reg.ResolveByUsername(receiver)
	if ok {
		if r.transport.Send(conn.ID(), frame) {
			metrics.RecordLivePush("delivered")
			return
		}
		metrics.RecordLivePush("send_failed")
		log.Debug().Err(ErrTransportSendFailure).Str("receiver", receiver).Msg("Live push skipped")
		return
	}

	if r.relay == nil {
		metrics.RecordLivePush("unreachable")
		log.Debug().Err(ErrUnreachablePeer).Str("receiver", receiver).Msg("Live push skipped")
		return
	}
	if err := r.relay.Publish(ctx, receiver, frame); err != nil {
		metrics.RecordLivePush("relay_failed")
		log.Warn().Err(err).Str("receiver", receiver).Msg("Relay publish failed")
		return
	}
	metrics.RecordLivePush("relayed")
}
