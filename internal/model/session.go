package model

import "time"

// PlayerSession is the liveness and identity record for one connection
type PlayerSession struct {
	ConnID        ConnID
	UserID        UserID
	RoomID        RoomID // empty when not in a room
	LastHeartbeat time.Time
	Connected     bool
	Graceful      bool
	DisconnectAt  *time.Time
}

// InRoom returns true if the session is bound to a room
func (s *PlayerSession) InRoom() bool {
	return s.RoomID != ""
}

// DisconnectRecord remembers an ungraceful disconnect so the user can resume their room
type DisconnectRecord struct {
	UserID       UserID
	ConnID       ConnID // the connection that dropped
	RoomID       RoomID
	DisconnectAt time.Time
	Session      PlayerSession // snapshot at disconnect time
}

// DisconnectInfo describes the outcome of a disconnect for the caller to act on
type DisconnectInfo struct {
	ConnID   ConnID
	UserID   UserID
	RoomID   RoomID
	Graceful bool
}
