// Package lobby is the session orchestrator. It owns the registry, queue,
// rooms and rematch negotiation, and runs every inbound message, transport
// disconnect and timer callback under one lock.
package lobby

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/blitzarena/internal/dependencies/clock"
	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/matchmaking"
	"github.com/mcoot/blitzarena/internal/services/registry"
	"github.com/mcoot/blitzarena/internal/services/rematch"
	"github.com/mcoot/blitzarena/internal/services/room"
	"github.com/mcoot/blitzarena/internal/services/rules"
	"github.com/mcoot/blitzarena/internal/services/timer"
)

// Config groups the settings of every orchestrated component
type Config struct {
	Registry registry.Config
	Room     room.Config
	Rematch  rematch.Config
}

// DefaultConfig returns the standard settings for every component
func DefaultConfig() Config {
	return Config{
		Registry: registry.DefaultConfig(),
		Room:     room.DefaultConfig(),
		Rematch:  rematch.DefaultConfig(),
	}
}

// Transport is the connection layer the controller talks through
type Transport interface {
	room.Transport
	BroadcastAll(msg model.Outbound)
	Close(connID model.ConnID)
}

// Controller dispatches client messages to the session components
type Controller struct {
	mu sync.Mutex

	cfg       Config
	transport Transport
	logger    *slog.Logger

	timers   *timer.Service
	registry *registry.Registry
	queue    *matchmaking.Queue
	rooms    *room.Manager
	rematch  *rematch.Coordinator

	// countsDirty is set when queue or room membership changed during the current handler
	countsDirty bool
	stopped     bool
}

// NewController creates a Controller and wires its components together
func NewController(
	cfg Config,
	engines rules.Engines,
	transport Transport,
	recorder room.Recorder,
	clk clock.Clock,
	logger *slog.Logger,
) *Controller {
	c := &Controller{
		cfg:       cfg,
		transport: transport,
		logger:    logger.With(slog.String("component", "lobby")),
	}

	c.timers = timer.New(clk, c.run)
	c.registry = registry.New(cfg.Registry, c.timers, clk, transport, logger)
	c.queue = matchmaking.New(logger)
	c.rooms = room.New(cfg.Room, engines, c.registry, transport, recorder, c.timers, clk, logger)
	c.rematch = rematch.New(cfg.Rematch, c.rooms, c.registry, transport, c.timers, logger)

	c.registry.OnTimeout(c.handleTimeout)
	c.registry.OnReconnectExpired(c.handleReconnectExpired)
	c.rooms.OnChange(c.markCountsDirty)
	c.rooms.OnDeleted(c.rematch.Forget)

	return c
}

// run executes fn under the controller lock and flushes any pending counts broadcast.
// It is also the timer executor, so timer callbacks serialize with message handlers.
func (c *Controller) run(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	fn()

	if c.countsDirty {
		c.countsDirty = false
		c.transport.BroadcastAll(model.NewOutbound(model.MsgPlayerCounts, c.playerCounts()))
	}
}

// Shutdown cancels every session timer and drops all later messages, disconnects
// and timer callbacks. No walkover or match result is produced after it returns.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true

	c.registry.Stop()
	c.rooms.Stop()
	c.rematch.Stop()
	c.logger.Info("lobby stopped", slog.Int("rooms", c.rooms.Len()))
}

// HandleMessage decodes and dispatches one raw client message
func (c *Controller) HandleMessage(connID model.ConnID, raw []byte) {
	var msg model.Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.transport.Send(connID, errorMessage(model.ErrMalformedMessage))
		return
	}
	c.Dispatch(connID, msg)
}

// Dispatch handles one decoded client message
func (c *Controller) Dispatch(connID model.ConnID, msg model.Inbound) {
	c.run(func() {
		if err := c.dispatch(connID, msg); err != nil {
			c.logger.Debug("message rejected",
				slog.String("conn_id", string(connID)),
				slog.String("type", string(msg.Type)),
				slog.String("error", err.Error()))
			c.transport.Send(connID, errorMessage(err))
		}
	})
}

// HandleDisconnect handles the transport reporting that a connection closed
func (c *Controller) HandleDisconnect(connID model.ConnID) {
	c.run(func() {
		c.disconnect(connID)
	})
}

// PlayerCounts returns the number of players queued or playing per game type
func (c *Controller) PlayerCounts() model.PlayerCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerCounts()
}

// ConnectionStats summarises the connection registry
func (c *Controller) ConnectionStats() registry.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Stats()
}

// RoomCount returns the number of live rooms
func (c *Controller) RoomCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms.Len()
}

func (c *Controller) dispatch(connID model.ConnID, msg model.Inbound) error {
	if requiresSession(msg.Type) {
		if _, ok := c.registry.Session(connID); !ok {
			return model.ErrNotAuthenticated
		}
	}

	switch msg.Type {
	case model.MsgAuthenticate:
		var p model.AuthenticatePayload
		if err := msg.Decode(&p); err != nil {
			return model.ErrMalformedMessage
		}
		return c.authenticate(connID, model.UserID(p.UserID))

	case model.MsgJoinQueue:
		var p model.JoinQueuePayload
		if err := msg.Decode(&p); err != nil {
			return model.ErrMalformedMessage
		}
		return c.joinQueue(connID, p)

	case model.MsgLeaveQueue:
		var p model.LeaveQueuePayload
		if err := msg.Decode(&p); err != nil {
			return model.ErrMalformedMessage
		}
		return c.leaveQueue(connID, p)

	case model.MsgGameMove:
		var p model.GameMovePayload
		if err := msg.Decode(&p); err != nil {
			return model.ErrMalformedMessage
		}
		c.gameMove(connID, p)
		return nil

	case model.MsgRequestRematch:
		var p model.RoomPayload
		if err := msg.Decode(&p); err != nil {
			return model.ErrMalformedMessage
		}
		return c.requestRematch(connID, p.RoomID)

	case model.MsgDeclineRematch:
		var p model.RoomPayload
		if err := msg.Decode(&p); err != nil {
			return model.ErrMalformedMessage
		}
		c.ignoreStale(connID, c.rematch.Decline(p.RoomID, connID))
		return nil

	case model.MsgLeaveMatchEnd:
		var p model.RoomPayload
		if err := msg.Decode(&p); err != nil {
			return model.ErrMalformedMessage
		}
		c.ignoreStale(connID, c.rematch.Leave(p.RoomID, connID))
		return nil

	case model.MsgHeartbeatAck:
		c.registry.HeartbeatAck(connID)
		return nil

	case model.MsgRequestPlayerCounts:
		c.transport.Send(connID, model.NewOutbound(model.MsgPlayerCounts, c.playerCounts()))
		return nil

	case model.MsgQuit:
		c.quit(connID)
		return nil

	default:
		return model.ErrUnknownMessageType
	}
}

// authenticate binds a user to the connection, resuming their room if a reconnection is pending
func (c *Controller) authenticate(connID model.ConnID, userID model.UserID) error {
	if userID == "" {
		return model.ErrMissingUserID
	}
	if s, ok := c.registry.Session(connID); ok {
		if s.UserID != userID {
			return model.ErrIdentityMismatch
		}
		return nil
	}

	if roomID, ok := c.registry.AttemptReconnect(connID, userID); ok {
		c.resume(connID, userID, roomID)
		return nil
	}

	c.registry.Initialize(connID, userID)
	return nil
}

func (c *Controller) resume(connID model.ConnID, userID model.UserID, roomID model.RoomID) {
	if _, err := c.rooms.Rebind(roomID, userID, connID); err != nil {
		c.logger.Debug("reconnected into a vanished room",
			slog.String("conn_id", string(connID)),
			slog.String("room_id", string(roomID)))
		c.registry.LeaveRoom(connID)
		return
	}
	if err := c.rooms.Resync(roomID, connID); err != nil {
		c.logger.Warn("resync failed",
			slog.String("room_id", string(roomID)),
			slog.String("error", err.Error()))
	}
}

func (c *Controller) joinQueue(connID model.ConnID, p model.JoinQueuePayload) error {
	gameType, err := model.ParseGameType(p.GameType)
	if err != nil {
		return err
	}

	// join_queue doubles as authentication for clients that skip it
	if _, ok := c.registry.Session(connID); !ok {
		if err := c.authenticate(connID, model.UserID(p.UserID)); err != nil {
			return err
		}
	}
	session, ok := c.registry.Session(connID)
	if !ok {
		return model.ErrSessionNotFound
	}

	if session.InRoom() {
		if err := c.leaveRoomForQueue(connID, session.RoomID); err != nil {
			return err
		}
	}

	// Waiting for one game type at a time
	for _, other := range model.GameTypes {
		if other != gameType && c.queue.Leave(other, connID) {
			c.markCountsDirty()
		}
	}

	name := p.PlayerName
	if name == "" {
		name = string(session.UserID)
	}
	entry := model.WaitingEntry{
		ConnID:      connID,
		Identity:    model.ParseIdentity(string(session.UserID)),
		DisplayName: name,
	}

	res, err := c.queue.Enqueue(gameType, entry)
	if err != nil {
		return err
	}
	c.markCountsDirty()

	if !res.Paired() {
		c.transport.Send(connID, model.NewOutbound(model.MsgQueueJoined, model.QueueJoinedPayload{
			GameType: gameType,
			Position: res.Position,
		}))
		return nil
	}

	// The longer-waiting player takes the first seat
	players := [2]model.PlayerBinding{res.Opponent.Binding(), entry.Binding()}
	if _, err := c.rooms.Create(gameType, players); err != nil {
		c.logger.Error("failed to create room",
			slog.String("game_type", string(gameType)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// leaveRoomForQueue releases the connection from its current room before it queues again.
// A player cannot queue out of a match still in progress.
func (c *Controller) leaveRoomForQueue(connID model.ConnID, roomID model.RoomID) error {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		c.registry.LeaveRoom(connID)
		return nil
	}
	if r.IsActive() {
		return model.ErrAlreadyInRoom
	}
	if r.Status == model.RoomStatusFinished {
		c.ignoreStale(connID, c.rematch.Leave(roomID, connID))
	}
	c.registry.LeaveRoom(connID)
	return nil
}

func (c *Controller) leaveQueue(connID model.ConnID, p model.LeaveQueuePayload) error {
	gameType, err := model.ParseGameType(p.GameType)
	if err != nil {
		return err
	}
	if !c.queue.Leave(gameType, connID) {
		return nil
	}
	c.markCountsDirty()
	c.transport.Send(connID, model.NewOutbound(model.MsgQueueLeft, model.QueueLeftPayload{GameType: gameType}))
	return nil
}

// gameMove applies a move; rejections go back to the mover only as invalid_move
func (c *Controller) gameMove(connID model.ConnID, p model.GameMovePayload) {
	move, err := model.ParseMove(p.Move)
	if err == nil {
		err = c.rooms.HandleMove(p.RoomID, connID, move)
	}
	if err == nil {
		return
	}
	if errors.Is(err, model.ErrRoomNotFound) {
		c.logger.Debug("move for vanished room",
			slog.String("conn_id", string(connID)),
			slog.String("room_id", string(p.RoomID)))
		return
	}
	c.transport.Send(connID, model.NewOutbound(model.MsgInvalidMove, model.InvalidMovePayload{
		Reason: rules.ReasonFor(err),
	}))
}

func (c *Controller) requestRematch(connID model.ConnID, roomID model.RoomID) error {
	_, err := c.rematch.Request(roomID, connID)
	if errors.Is(err, model.ErrRoomNotFound) {
		// The requester has already been told the opponent left
		return nil
	}
	return err
}

// ignoreStale logs errors caused by a room that moved on before the message arrived
func (c *Controller) ignoreStale(connID model.ConnID, err error) {
	if err == nil {
		return
	}
	c.logger.Debug("stale rematch message",
		slog.String("conn_id", string(connID)),
		slog.String("error", err.Error()))
}

// disconnect handles an abrupt transport close.
// A player in a live match keeps their seat for the reconnection window.
func (c *Controller) disconnect(connID model.ConnID) {
	if len(c.queue.RemoveConn(connID)) > 0 {
		c.markCountsDirty()
	}

	info, ok := c.registry.Disconnect(connID, false)
	if !ok {
		c.registry.Remove(connID)
		return
	}

	if r, ok := c.rooms.Get(info.RoomID); ok && r.IsActive() {
		if seat := r.Seat(connID); seat >= 0 {
			c.rooms.NotifyOpponentDisconnected(r.ID, seat, c.cfg.Registry.ReconnectWindow)
			return
		}
	}

	c.settle(info)
	c.registry.Remove(connID)
}

// quit handles a player leaving on purpose: no reconnection window is offered
func (c *Controller) quit(connID model.ConnID) {
	info, ok := c.registry.GracefulQuit(connID)
	if !ok {
		if len(c.queue.RemoveConn(connID)) > 0 {
			c.markCountsDirty()
		}
		return
	}
	c.depart(info)
}

// handleTimeout runs after the registry declared a silent connection dead
func (c *Controller) handleTimeout(info model.DisconnectInfo) {
	c.depart(info)
	c.transport.Close(info.ConnID)
}

// handleReconnectExpired forfeits the match of a player who never came back
func (c *Controller) handleReconnectExpired(rec model.DisconnectRecord) {
	c.settle(model.DisconnectInfo{
		ConnID:   rec.ConnID,
		UserID:   rec.UserID,
		RoomID:   rec.RoomID,
		Graceful: false,
	})
}

// depart removes every trace of a connection that left for good
func (c *Controller) depart(info model.DisconnectInfo) {
	if len(c.queue.RemoveConn(info.ConnID)) > 0 {
		c.markCountsDirty()
	}
	c.settle(info)
	c.registry.Remove(info.ConnID)
}

// settle resolves the room of a departed player: a live match is a walkover,
// a finished one ends rematch negotiation
func (c *Controller) settle(info model.DisconnectInfo) {
	if info.RoomID == "" {
		return
	}
	r, ok := c.rooms.Get(info.RoomID)
	if !ok {
		return
	}
	seat := r.Seat(info.ConnID)
	if seat < 0 {
		seat = r.SeatForUser(info.UserID)
	}
	if seat < 0 {
		return
	}

	switch {
	case r.IsActive():
		c.rooms.AwardWalkover(r.ID, seat)
	case r.Status == model.RoomStatusFinished:
		c.ignoreStale(info.ConnID, c.rematch.HandleDisconnect(r.ID, r.Players[seat].ConnID))
	}
}

func (c *Controller) markCountsDirty() {
	c.countsDirty = true
}

func (c *Controller) playerCounts() model.PlayerCounts {
	playing := c.rooms.PlayingCounts()
	counts := make(model.PlayerCounts, len(model.GameTypes))
	for _, gameType := range model.GameTypes {
		counts[gameType] = c.queue.Depth(gameType) + playing[gameType]
	}
	return counts
}

// requiresSession reports whether a message type is only accepted once the
// connection has authenticated, directly or through join_queue
func requiresSession(t model.MessageType) bool {
	switch t {
	case model.MsgLeaveQueue, model.MsgGameMove, model.MsgRequestRematch,
		model.MsgDeclineRematch, model.MsgLeaveMatchEnd:
		return true
	}
	return false
}

func errorMessage(err error) model.Outbound {
	return model.NewOutbound(model.MsgError, model.ErrorPayload{Message: err.Error()})
}
