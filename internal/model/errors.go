package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotAuthenticated = errors.New("connection has not authenticated")
	ErrMissingUserID    = errors.New("user id is required")
	ErrIdentityMismatch = errors.New("connection is authenticated as another user")

	// Protocol errors
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")

	// Queue errors
	ErrUnknownGameType = errors.New("unknown game type")
	ErrAlreadyQueued   = errors.New("connection is already queued")
	ErrAlreadyInRoom   = errors.New("connection is already in a room")

	// Room errors
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotInRoom      = errors.New("connection is not in this room")
	ErrRoomNotPlaying = errors.New("room is not accepting moves")
	ErrMatchNotOver   = errors.New("match is not over")

	// Move errors
	ErrNotPlayerTurn        = errors.New("not this player's turn")
	ErrInvalidMove          = errors.New("invalid move")
	ErrInvalidPosition      = errors.New("invalid position")
	ErrPositionOccupied     = errors.New("position is occupied")
	ErrNotOwnPiece          = errors.New("piece does not belong to the player")
	ErrNotAdjacent          = errors.New("positions are not adjacent")
	ErrMustRemovePiece      = errors.New("must remove an opponent piece")
	ErrNotOpponentPiece     = errors.New("position does not hold an opponent piece")
	ErrCannotRemoveFromMill = errors.New("cannot remove a piece from a mill while other pieces are available")
	ErrCardAlreadyMatched   = errors.New("card is already matched")
	ErrCardAlreadyRevealed  = errors.New("card is already revealed")

	// Stats errors
	ErrStatsNotFound = errors.New("stats not found")
)
