// Package matchmaking pairs waiting players first-come-first-served, one FIFO per game type.
package matchmaking

import (
	"log/slog"

	"github.com/mcoot/blitzarena/internal/model"
)

// Queue holds the waiting players for every game type.
// It is not safe for concurrent use; the session orchestrator serializes access.
type Queue struct {
	waiting map[model.GameType][]model.WaitingEntry
	logger  *slog.Logger
}

// New creates an empty Queue
func New(logger *slog.Logger) *Queue {
	return &Queue{
		waiting: make(map[model.GameType][]model.WaitingEntry),
		logger:  logger.With(slog.String("component", "matchmaking")),
	}
}

// EnqueueResult is the outcome of joining a queue: either an opponent or a queue position
type EnqueueResult struct {
	// Opponent is set when the entry was paired immediately
	Opponent *model.WaitingEntry
	// Position is the 1-based queue position when no opponent was waiting
	Position int
}

// Paired returns true if an opponent was found
func (r EnqueueResult) Paired() bool {
	return r.Opponent != nil
}

// Enqueue pairs the entry with the longest-waiting player, or appends it
func (q *Queue) Enqueue(gameType model.GameType, entry model.WaitingEntry) (EnqueueResult, error) {
	line := q.waiting[gameType]
	for _, w := range line {
		if w.ConnID == entry.ConnID {
			return EnqueueResult{}, model.ErrAlreadyQueued
		}
	}

	if len(line) > 0 {
		head := line[0]
		q.waiting[gameType] = line[1:]
		q.logger.Info("players paired",
			slog.String("game_type", string(gameType)),
			slog.String("waiting_user", string(head.Identity.ID)),
			slog.String("arriving_user", string(entry.Identity.ID)))
		return EnqueueResult{Opponent: &head}, nil
	}

	q.waiting[gameType] = append(line, entry)
	position := len(q.waiting[gameType])
	q.logger.Info("player queued",
		slog.String("game_type", string(gameType)),
		slog.String("user_id", string(entry.Identity.ID)),
		slog.Int("position", position))
	return EnqueueResult{Position: position}, nil
}

// Leave removes a connection from one game type's queue. Returns false if it was not waiting.
func (q *Queue) Leave(gameType model.GameType, connID model.ConnID) bool {
	line := q.waiting[gameType]
	for i, w := range line {
		if w.ConnID == connID {
			q.waiting[gameType] = append(line[:i:i], line[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveConn removes a connection from every queue. Returns the game types it was waiting for.
func (q *Queue) RemoveConn(connID model.ConnID) []model.GameType {
	var removed []model.GameType
	for _, gameType := range model.GameTypes {
		if q.Leave(gameType, connID) {
			removed = append(removed, gameType)
		}
	}
	return removed
}

// Depth returns how many players wait for a game type
func (q *Queue) Depth(gameType model.GameType) int {
	return len(q.waiting[gameType])
}
