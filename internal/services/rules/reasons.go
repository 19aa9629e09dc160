package rules

import (
	"errors"

	"github.com/mcoot/blitzarena/internal/model"
)

// ReasonFor converts a rejected move into the message shown to the player
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, model.ErrNotPlayerTurn):
		return "Not your turn"
	case errors.Is(err, model.ErrRoomNotPlaying):
		return "Round is not in progress"
	case errors.Is(err, model.ErrNotInRoom):
		return "Not in this room"
	case errors.Is(err, model.ErrInvalidPosition):
		return "Invalid position"
	case errors.Is(err, model.ErrPositionOccupied):
		return "Position occupied"
	case errors.Is(err, model.ErrNotOwnPiece):
		return "Select your own piece"
	case errors.Is(err, model.ErrNotAdjacent):
		return "Can only move to adjacent position"
	case errors.Is(err, model.ErrMustRemovePiece):
		return "Must remove opponent piece"
	case errors.Is(err, model.ErrNotOpponentPiece):
		return "Must remove opponent piece"
	case errors.Is(err, model.ErrCannotRemoveFromMill):
		return "Cannot remove piece from mill"
	case errors.Is(err, model.ErrCardAlreadyMatched):
		return "Card already matched"
	case errors.Is(err, model.ErrCardAlreadyRevealed):
		return "Card already revealed"
	default:
		return "Invalid move"
	}
}
