// Package registry tracks live connections, their liveness and room bindings,
// and the disconnect/reconnect state machine.
package registry

import (
	"log/slog"
	"time"

	"github.com/mcoot/blitzarena/internal/dependencies/clock"
	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/timer"
)

// Config holds liveness settings
type Config struct {
	// HeartbeatInterval is how often liveness is checked and a ping sent
	HeartbeatInterval time.Duration
	// HeartbeatTimeout is the silence after which a connection is declared dead
	HeartbeatTimeout time.Duration
	// ReconnectWindow is how long an ungraceful disconnect may be resumed
	ReconnectWindow time.Duration
}

// DefaultConfig returns the standard liveness settings
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 5 * time.Second,
		HeartbeatTimeout:  15 * time.Second,
		ReconnectWindow:   30 * time.Second,
	}
}

// Sender delivers a message to one connection
type Sender interface {
	Send(connID model.ConnID, msg model.Outbound)
}

// TimeoutHandler is called after a heartbeat timeout has been turned into a graceful disconnect
type TimeoutHandler func(info model.DisconnectInfo)

// ExpiryHandler is called when a reconnection window elapses unused
type ExpiryHandler func(record model.DisconnectRecord)

// Stats summarises the registry contents
type Stats struct {
	Sessions          int `json:"sessions"`
	Connected         int `json:"connected"`
	PendingReconnects int `json:"pending_reconnects"`
	InRooms           int `json:"in_rooms"`
}

// Registry is the source of truth for which users are reachable and in what room.
// It is not safe for concurrent use; the session orchestrator serializes access.
type Registry struct {
	cfg    Config
	clock  clock.Clock
	sender Sender
	logger *slog.Logger

	sessions   map[model.ConnID]*model.PlayerSession
	records    map[model.UserID]*model.DisconnectRecord
	heartbeats *timer.Group[model.ConnID]
	expiries   *timer.Group[model.UserID]

	onTimeout TimeoutHandler
	onExpired ExpiryHandler
}

// New creates a Registry
func New(cfg Config, timers *timer.Service, clk clock.Clock, sender Sender, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:        cfg,
		clock:      clk,
		sender:     sender,
		logger:     logger.With(slog.String("component", "registry")),
		sessions:   make(map[model.ConnID]*model.PlayerSession),
		records:    make(map[model.UserID]*model.DisconnectRecord),
		heartbeats: timer.NewGroup[model.ConnID](timers),
		expiries:   timer.NewGroup[model.UserID](timers),
	}
}

// Stop cancels heartbeat monitoring and every pending reconnection window
func (r *Registry) Stop() {
	r.heartbeats.ClearAll()
	r.expiries.ClearAll()
}

// OnTimeout registers the handler run after a heartbeat timeout
func (r *Registry) OnTimeout(h TimeoutHandler) {
	r.onTimeout = h
}

// OnReconnectExpired registers the handler run when a reconnection window elapses
func (r *Registry) OnReconnectExpired(h ExpiryHandler) {
	r.onExpired = h
}

// Initialize creates a session for a brand-new connection and starts heartbeat monitoring.
// Callers must first rule out a pending reconnection with AttemptReconnect.
func (r *Registry) Initialize(connID model.ConnID, userID model.UserID) {
	r.sessions[connID] = &model.PlayerSession{
		ConnID:        connID,
		UserID:        userID,
		LastHeartbeat: r.clock.Now(),
		Connected:     true,
	}
	r.startHeartbeat(connID)

	r.logger.Info("session initialized",
		slog.String("conn_id", string(connID)),
		slog.String("user_id", string(userID)))
}

// AttemptReconnect moves a pending session for userID onto connID.
// Returns the room the user was in, or false if there is nothing to resume.
func (r *Registry) AttemptReconnect(connID model.ConnID, userID model.UserID) (model.RoomID, bool) {
	rec, ok := r.records[userID]
	if !ok {
		return "", false
	}

	now := r.clock.Now()
	r.dropRecord(userID)

	if now.Sub(rec.DisconnectAt) >= r.cfg.ReconnectWindow {
		r.dropStaleSession(rec.ConnID)
		r.logger.Info("reconnect window elapsed",
			slog.String("user_id", string(userID)),
			slog.String("room_id", string(rec.RoomID)))
		return "", false
	}

	r.dropStaleSession(rec.ConnID)

	session := rec.Session
	session.ConnID = connID
	session.RoomID = rec.RoomID
	session.LastHeartbeat = now
	session.Connected = true
	session.Graceful = false
	session.DisconnectAt = nil
	r.sessions[connID] = &session
	r.startHeartbeat(connID)

	r.logger.Info("session reconnected",
		slog.String("user_id", string(userID)),
		slog.String("old_conn_id", string(rec.ConnID)),
		slog.String("conn_id", string(connID)),
		slog.String("room_id", string(rec.RoomID)),
		slog.Duration("offline", now.Sub(rec.DisconnectAt)))

	return rec.RoomID, true
}

// HeartbeatAck records a heartbeat for the connection
func (r *Registry) HeartbeatAck(connID model.ConnID) {
	if s, ok := r.sessions[connID]; ok {
		s.LastHeartbeat = r.clock.Now()
	}
}

// Disconnect marks the connection's session disconnected.
// An ungraceful disconnect while in a room opens a reconnection window.
// Returns false if the connection had no live session.
func (r *Registry) Disconnect(connID model.ConnID, graceful bool) (model.DisconnectInfo, bool) {
	s, ok := r.sessions[connID]
	if !ok || !s.Connected {
		return model.DisconnectInfo{}, false
	}

	r.heartbeats.Clear(connID)

	now := r.clock.Now()
	s.Connected = false
	s.Graceful = graceful
	s.DisconnectAt = &now

	info := model.DisconnectInfo{
		ConnID:   connID,
		UserID:   s.UserID,
		RoomID:   s.RoomID,
		Graceful: graceful,
	}

	if !graceful && s.InRoom() {
		r.records[s.UserID] = &model.DisconnectRecord{
			UserID:       s.UserID,
			ConnID:       connID,
			RoomID:       s.RoomID,
			DisconnectAt: now,
			Session:      *s,
		}
		userID := s.UserID
		r.expiries.Start(userID, r.cfg.ReconnectWindow, func() {
			r.expire(userID, now)
		})
	}

	r.logger.Info("session disconnected",
		slog.String("conn_id", string(connID)),
		slog.String("user_id", string(s.UserID)),
		slog.String("room_id", string(s.RoomID)),
		slog.Bool("graceful", graceful))

	return info, true
}

// GracefulQuit removes the session without offering a reconnection window
func (r *Registry) GracefulQuit(connID model.ConnID) (model.DisconnectInfo, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return model.DisconnectInfo{}, false
	}

	r.heartbeats.Clear(connID)
	delete(r.sessions, connID)

	r.logger.Info("session quit",
		slog.String("conn_id", string(connID)),
		slog.String("user_id", string(s.UserID)))

	return model.DisconnectInfo{
		ConnID:   connID,
		UserID:   s.UserID,
		RoomID:   s.RoomID,
		Graceful: true,
	}, true
}

// Remove deletes a session and any reconnection record it left behind
func (r *Registry) Remove(connID model.ConnID) {
	r.heartbeats.Clear(connID)
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	delete(r.sessions, connID)

	if rec, ok := r.records[s.UserID]; ok && rec.ConnID == connID {
		r.dropRecord(s.UserID)
	}
}

// JoinRoom binds the connection's session to a room
func (r *Registry) JoinRoom(connID model.ConnID, roomID model.RoomID) error {
	s, ok := r.sessions[connID]
	if !ok {
		return model.ErrSessionNotFound
	}
	s.RoomID = roomID
	return nil
}

// LeaveRoom unbinds the connection's session from its room
func (r *Registry) LeaveRoom(connID model.ConnID) {
	if s, ok := r.sessions[connID]; ok {
		s.RoomID = ""
	}
}

// ClearRoom unbinds every session from a torn-down room and purges reconnection records into it
func (r *Registry) ClearRoom(roomID model.RoomID) {
	for _, s := range r.sessions {
		if s.RoomID == roomID {
			s.RoomID = ""
		}
	}
	for userID, rec := range r.records {
		if rec.RoomID == roomID {
			r.dropRecord(userID)
			r.dropStaleSession(rec.ConnID)
		}
	}
}

// IsConnected returns true if the connection has a live session
func (r *Registry) IsConnected(connID model.ConnID) bool {
	s, ok := r.sessions[connID]
	return ok && s.Connected
}

// UserID returns the user bound to a connection
func (r *Registry) UserID(connID model.ConnID) (model.UserID, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return "", false
	}
	return s.UserID, true
}

// Session returns a copy of the connection's session
func (r *Registry) Session(connID model.ConnID) (model.PlayerSession, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return model.PlayerSession{}, false
	}
	return *s, true
}

// CanReconnect returns true if the user has a pending reconnection record
func (r *Registry) CanReconnect(userID model.UserID) bool {
	_, ok := r.records[userID]
	return ok
}

// HeartbeatActive returns true if the connection is being monitored
func (r *Registry) HeartbeatActive(connID model.ConnID) bool {
	return r.heartbeats.Active(connID)
}

// Stats summarises the registry
func (r *Registry) Stats() Stats {
	st := Stats{
		Sessions:          len(r.sessions),
		PendingReconnects: len(r.records),
	}
	for _, s := range r.sessions {
		if s.Connected {
			st.Connected++
		}
		if s.InRoom() {
			st.InRooms++
		}
	}
	return st
}

func (r *Registry) startHeartbeat(connID model.ConnID) {
	r.heartbeats.Every(connID, r.cfg.HeartbeatInterval, func() {
		r.checkHeartbeat(connID)
	})
}

func (r *Registry) checkHeartbeat(connID model.ConnID) {
	s, ok := r.sessions[connID]
	if !ok || !s.Connected {
		r.heartbeats.Clear(connID)
		return
	}

	now := r.clock.Now()
	if now.Sub(s.LastHeartbeat) > r.cfg.HeartbeatTimeout {
		r.timeout(connID, now.Sub(s.LastHeartbeat))
		return
	}

	r.sender.Send(connID, model.NewOutbound(model.MsgHeartbeatPing, model.HeartbeatPingPayload{
		Timestamp: now.UnixMilli(),
	}))
}

// timeout treats a silent connection as a graceful disconnect: no reconnection window
func (r *Registry) timeout(connID model.ConnID, silence time.Duration) {
	r.logger.Warn("heartbeat timeout",
		slog.String("conn_id", string(connID)),
		slog.Duration("silence", silence))

	r.sender.Send(connID, model.NewOutbound(model.MsgSessionTimeout, model.SessionTimeoutPayload{
		Reason: "heartbeat timeout",
	}))

	info, ok := r.Disconnect(connID, true)
	if ok && r.onTimeout != nil {
		r.onTimeout(info)
	}
}

// expire drops a reconnection record whose window elapsed.
// A newer disconnect for the same user replaces the record; the timestamp check ignores the old callback.
func (r *Registry) expire(userID model.UserID, at time.Time) {
	rec, ok := r.records[userID]
	if !ok || !rec.DisconnectAt.Equal(at) {
		return
	}
	delete(r.records, userID)
	r.dropStaleSession(rec.ConnID)

	r.logger.Info("reconnect window expired",
		slog.String("user_id", string(userID)),
		slog.String("room_id", string(rec.RoomID)))

	if r.onExpired != nil {
		r.onExpired(*rec)
	}
}

func (r *Registry) dropRecord(userID model.UserID) {
	delete(r.records, userID)
	r.expiries.Clear(userID)
}

// dropStaleSession deletes a session left behind by a dropped connection
func (r *Registry) dropStaleSession(connID model.ConnID) {
	if s, ok := r.sessions[connID]; ok && !s.Connected {
		delete(r.sessions, connID)
	}
}
