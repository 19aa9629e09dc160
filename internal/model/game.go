package model

import (
	"encoding/json"
	"time"
)

// GameType identifies which rules a room is played under
type GameType string

const (
	GameTicTacToe   GameType = "speedTicTacToe"
	GameMorris      GameType = "nineMensMorris"
	GameMemoryMatch GameType = "memoryMatch"
)

// GameTypes lists every supported game type in display order
var GameTypes = []GameType{GameTicTacToe, GameMorris, GameMemoryMatch}

// ParseGameType validates a game type tag
func ParseGameType(raw string) (GameType, error) {
	for _, gt := range GameTypes {
		if string(gt) == raw {
			return gt, nil
		}
	}
	return "", ErrUnknownGameType
}

// RoomID uniquely identifies a room
type RoomID string

// RoomStatus is the lifecycle state of a room
type RoomStatus string

const (
	RoomStatusPlaying         RoomStatus = "playing"          // awaiting a move
	RoomStatusRoundOver       RoomStatus = "round_over"       // display delay before the next round
	RoomStatusFinished        RoomStatus = "finished"         // match over, rematch negotiation possible
	RoomStatusRematchStarting RoomStatus = "rematch_starting" // replaced by a new room, pending deletion
	RoomStatusAbandoned       RoomStatus = "abandoned"        // torn down
)

// NoWinner marks a drawn round or match
const NoWinner = -1

// Room is one match between two players
type Room struct {
	ID       RoomID
	GameType GameType
	Players  [2]PlayerBinding

	Round         int    // rounds completed so far
	Scores        [2]int // round wins
	CurrentPlayer int    // seat index whose turn it is
	Board         any    // rules-engine owned state
	Status        RoomStatus
	Winner        int // match winner seat, NoWinner for a draw; valid once finished

	// TurnSeq increments every time a turn starts so timer callbacks can detect staleness
	TurnSeq       uint64
	TurnStartedAt time.Time
	StartedAt     time.Time
	EndedAt       time.Time
}

// Seat returns the seat index for a connection, or -1
func (r *Room) Seat(connID ConnID) int {
	for i, p := range r.Players {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

// SeatForUser returns the seat index for a user, or -1
func (r *Room) SeatForUser(userID UserID) int {
	for i, p := range r.Players {
		if p.Identity.ID == userID {
			return i
		}
	}
	return -1
}

// Opponent returns the other seat index
func Opponent(seat int) int {
	return 1 - seat
}

// IsActive returns true while rounds are still being played
func (r *Room) IsActive() bool {
	return r.Status == RoomStatusPlaying || r.Status == RoomStatusRoundOver
}

// Duration returns the match length so far, or the final length once ended
func (r *Room) Duration(now time.Time) time.Duration {
	if !r.EndedAt.IsZero() {
		return r.EndedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// Move is a game-agnostic move payload.
// Tic-tac-toe and memory match use Position; morris uses Position or From/To.
type Move struct {
	Position *int `json:"position,omitempty"`
	From     *int `json:"from,omitempty"`
	To       *int `json:"to,omitempty"`
}

// ParseMove decodes a move payload
func ParseMove(raw json.RawMessage) (Move, error) {
	var m Move
	if len(raw) == 0 {
		return m, ErrInvalidMove
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, ErrInvalidMove
	}
	return m, nil
}
