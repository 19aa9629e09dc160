// Package events publishes match lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/mcoot/blitzarena/internal/model"
)

// SubjectMatchCompleted is the default subject for finished matches
const SubjectMatchCompleted = "blitz.match.completed"

// MatchCompleted is published once per persisted match
type MatchCompleted struct {
	RoomID          model.RoomID    `json:"room_id"`
	GameType        model.GameType  `json:"game_type"`
	Players         [2]model.UserID `json:"players"`
	Scores          [2]int          `json:"scores"`
	Winner          int             `json:"winner"` // seat index, -1 for a draw
	DurationSeconds int             `json:"duration_seconds"`
	Walkover        bool            `json:"walkover"`
	EndedAt         time.Time       `json:"ended_at"`
}

// MatchCompletedFrom builds the event for a match result
func MatchCompletedFrom(r model.MatchResult) MatchCompleted {
	return MatchCompleted{
		RoomID:          r.RoomID,
		GameType:        r.GameType,
		Players:         [2]model.UserID{r.Players[0].ID, r.Players[1].ID},
		Scores:          r.Scores,
		Winner:          r.Winner,
		DurationSeconds: int(r.Duration.Seconds()),
		Walkover:        r.Walkover,
		EndedAt:         r.EndedAt,
	}
}

// Publisher sends match events somewhere
type Publisher interface {
	PublishMatchCompleted(ctx context.Context, evt MatchCompleted) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishMatchCompleted(context.Context, MatchCompleted) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}
