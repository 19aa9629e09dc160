// Package rules holds one move-validation engine per game type.
//
// Engines are pure: Apply either rejects a move with a model error and leaves
// the state untouched, or mutates the state and reports what happened.
// Turn order, timers and scoring across rounds belong to the room manager.
package rules

import (
	"fmt"

	"github.com/mcoot/blitzarena/internal/dependencies/random"
	"github.com/mcoot/blitzarena/internal/model"
)

// Result describes an accepted move
type Result struct {
	// Terminal is true when the move ended the round
	Terminal bool
	// Winner is the seat that won the round, or model.NoWinner for a draw. Only valid when Terminal.
	Winner int
	// KeepTurn is true when the mover acts again (mill removal, memory pair, first card flip)
	KeepTurn bool
}

// Engine implements the rules of one game type
type Engine interface {
	GameType() model.GameType
	// Symbols returns the marks shown for seat 0 and seat 1
	Symbols() [2]string
	// NewRound returns a fresh board for the given zero-based round
	NewRound(round int) any
	// Apply validates and applies a move for the given seat
	Apply(state any, seat int, move model.Move) (Result, error)
	// View returns the client-facing representation of the board
	View(state any) any
}

// Engines selects an engine by game type
type Engines map[model.GameType]Engine

// NewEngines returns an engine for every supported game type
func NewEngines(rnd random.Random) Engines {
	return Engines{
		model.GameTicTacToe:   NewTicTacToe(),
		model.GameMorris:      NewMorris(),
		model.GameMemoryMatch: NewMemoryMatch(rnd),
	}
}

// Get returns the engine for a game type
func (e Engines) Get(gameType model.GameType) (Engine, error) {
	engine, ok := e[gameType]
	if !ok {
		return nil, model.ErrUnknownGameType
	}
	return engine, nil
}

func continueTurn() Result {
	return Result{}
}

func keepTurn() Result {
	return Result{KeepTurn: true}
}

func roundWon(seat int) Result {
	return Result{Terminal: true, Winner: seat}
}

func roundDrawn() Result {
	return Result{Terminal: true, Winner: model.NoWinner}
}

func stateError(state any) error {
	return fmt.Errorf("unexpected board state %T: %w", state, model.ErrInvalidMove)
}

func validPosition(pos *int, size int) (int, error) {
	if pos == nil {
		return 0, model.ErrInvalidMove
	}
	if *pos < 0 || *pos >= size {
		return 0, model.ErrInvalidPosition
	}
	return *pos, nil
}
