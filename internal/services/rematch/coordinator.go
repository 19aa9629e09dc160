// Package rematch runs the two-party rematch vote that follows a finished match.
package rematch

import (
	"log/slog"
	"time"

	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/timer"
)

// Config holds rematch settings
type Config struct {
	// Timeout is how long the first vote waits for the second
	Timeout time.Duration
	// Grace is how long a replaced room stays queryable after the new room starts
	Grace time.Duration
}

// DefaultConfig returns the standard rematch settings
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Grace:   time.Second,
	}
}

// Rooms is the part of the room manager the coordinator drives
type Rooms interface {
	Get(roomID model.RoomID) (*model.Room, bool)
	Create(gameType model.GameType, players [2]model.PlayerBinding) (*model.Room, error)
	CancelTeardown(roomID model.RoomID) bool
	ScheduleDeletion(roomID model.RoomID, d time.Duration)
	MarkRematchStarting(roomID model.RoomID)
	Delete(roomID model.RoomID) bool
}

// Connections reports whether a connection is still live
type Connections interface {
	IsConnected(connID model.ConnID) bool
}

// Sender delivers a message to one connection
type Sender interface {
	Send(connID model.ConnID, msg model.Outbound)
}

// Coordinator tracks rematch votes per finished room.
// It is not safe for concurrent use; the session orchestrator serializes access.
type Coordinator struct {
	cfg    Config
	rooms  Rooms
	conns  Connections
	sender Sender
	logger *slog.Logger

	votes  map[model.RoomID]map[model.ConnID]bool
	timers *timer.Group[model.RoomID]
}

// New creates a rematch coordinator
func New(cfg Config, rooms Rooms, conns Connections, sender Sender, timers *timer.Service, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		rooms:  rooms,
		conns:  conns,
		sender: sender,
		logger: logger.With(slog.String("component", "rematch")),
		votes:  make(map[model.RoomID]map[model.ConnID]bool),
		timers: timer.NewGroup[model.RoomID](timers),
	}
}

// Stop cancels every open rematch window
func (c *Coordinator) Stop() {
	c.timers.ClearAll()
}

// Request records connID's vote for a rematch of roomID.
// Returns the new room once both players have voted.
func (c *Coordinator) Request(roomID model.RoomID, connID model.ConnID) (*model.Room, error) {
	room, ok := c.rooms.Get(roomID)
	if !ok {
		// Torn down already; the opponent is gone
		c.sendRoom(connID, model.MsgRematchOpponentLeft, roomID)
		return nil, model.ErrRoomNotFound
	}
	seat := room.Seat(connID)
	if seat < 0 {
		return nil, model.ErrNotInRoom
	}
	switch room.Status {
	case model.RoomStatusFinished:
	case model.RoomStatusRematchStarting:
		// Both votes are in and the new room exists
		return nil, nil
	default:
		return nil, model.ErrMatchNotOver
	}

	// Negotiation keeps the room alive past its usual teardown
	c.rooms.CancelTeardown(roomID)

	opponent := room.Players[model.Opponent(seat)].ConnID
	if !c.conns.IsConnected(opponent) {
		c.logger.Info("rematch abandoned, opponent gone", slog.String("room_id", string(roomID)))
		c.sendRoom(connID, model.MsgRematchOpponentLeft, roomID)
		c.forget(roomID)
		c.rooms.Delete(roomID)
		return nil, nil
	}

	votes := c.votes[roomID]
	if votes == nil {
		votes = make(map[model.ConnID]bool)
		c.votes[roomID] = votes
	}
	if votes[connID] {
		return nil, nil
	}
	votes[connID] = true

	if len(votes) < len(room.Players) {
		c.sendRoom(opponent, model.MsgOpponentWantsRematch, roomID)
		c.timers.Start(roomID, c.cfg.Timeout, func() {
			c.expire(roomID)
		})
		c.logger.Info("rematch requested",
			slog.String("room_id", string(roomID)),
			slog.String("conn_id", string(connID)))
		return nil, nil
	}

	return c.start(room)
}

// start replaces a finished room with a fresh match between the same players.
// The new room exists before the old one is removed.
func (c *Coordinator) start(room *model.Room) (*model.Room, error) {
	c.forget(room.ID)

	next, err := c.rooms.Create(room.GameType, room.Players)
	if err != nil {
		return nil, err
	}
	c.rooms.MarkRematchStarting(room.ID)
	c.rooms.ScheduleDeletion(room.ID, c.cfg.Grace)

	c.logger.Info("rematch started",
		slog.String("room_id", string(room.ID)),
		slog.String("new_room_id", string(next.ID)))
	return next, nil
}

// Decline ends negotiation for roomID at connID's request
func (c *Coordinator) Decline(roomID model.RoomID, connID model.ConnID) error {
	return c.end(roomID, connID, model.MsgRematchDeclined, "rematch declined")
}

// Leave handles a player leaving the match-end screen.
// It resolves like a decline, telling the opponent they left.
func (c *Coordinator) Leave(roomID model.RoomID, connID model.ConnID) error {
	return c.end(roomID, connID, model.MsgRematchOpponentLeft, "left match end")
}

// HandleDisconnect abandons negotiation when a player of a finished room departs
func (c *Coordinator) HandleDisconnect(roomID model.RoomID, connID model.ConnID) error {
	return c.end(roomID, connID, model.MsgRematchOpponentLeft, "rematch abandoned")
}

func (c *Coordinator) end(roomID model.RoomID, connID model.ConnID, notify model.MessageType, why string) error {
	room, ok := c.rooms.Get(roomID)
	if !ok {
		return model.ErrRoomNotFound
	}
	seat := room.Seat(connID)
	if seat < 0 {
		return model.ErrNotInRoom
	}
	if room.Status != model.RoomStatusFinished {
		return model.ErrMatchNotOver
	}

	c.forget(roomID)
	c.sendRoom(room.Players[model.Opponent(seat)].ConnID, notify, roomID)
	c.rooms.Delete(roomID)

	c.logger.Info(why,
		slog.String("room_id", string(roomID)),
		slog.String("conn_id", string(connID)))
	return nil
}

func (c *Coordinator) expire(roomID model.RoomID) {
	room, ok := c.rooms.Get(roomID)
	if !ok || room.Status != model.RoomStatusFinished {
		c.forget(roomID)
		return
	}

	votes := c.votes[roomID]
	c.forget(roomID)

	// The requester learns it timed out; the other side learns it never answered
	for _, p := range room.Players {
		c.sender.Send(p.ConnID, model.NewOutbound(model.MsgRematchTimeout, model.RematchTimeoutPayload{
			RoomID:    roomID,
			Requested: votes[p.ConnID],
		}))
	}
	c.rooms.Delete(roomID)

	c.logger.Info("rematch timed out", slog.String("room_id", string(roomID)))
}

// Forget drops any votes and timer for a room that no longer exists
func (c *Coordinator) Forget(roomID model.RoomID) {
	c.forget(roomID)
}

func (c *Coordinator) forget(roomID model.RoomID) {
	c.timers.Clear(roomID)
	delete(c.votes, roomID)
}

// Votes returns the number of rematch votes for a room
func (c *Coordinator) Votes(roomID model.RoomID) int {
	return len(c.votes[roomID])
}

// TimerActive reports whether a room is waiting on a second vote
func (c *Coordinator) TimerActive(roomID model.RoomID) bool {
	return c.timers.Active(roomID)
}

func (c *Coordinator) sendRoom(connID model.ConnID, t model.MessageType, roomID model.RoomID) {
	c.sender.Send(connID, model.NewOutbound(t, model.RoomPayload{RoomID: roomID}))
}
