package storage

import (
	"context"
	"sort"
	"time"

	"github.com/mcoot/blitzarena/internal/model"
)

// StatsUpdate is one player's side of a finished match
type StatsUpdate struct {
	UserID     model.UserID
	GameType   model.GameType
	Outcome    model.Outcome
	RoundsWon  int
	RoundsLost int
	At         time.Time
}

// Storage defines the interface for data persistence
type Storage interface {
	// Match history operations
	RecordMatch(ctx context.Context, rec *model.MatchRecord) error
	RecentMatches(ctx context.Context, userID model.UserID, limit int) ([]model.MatchRecord, error)

	// Stats operations
	UpsertStats(ctx context.Context, update StatsUpdate) error
	GetStats(ctx context.Context, userID model.UserID, gameType model.GameType) (*model.PlayerStats, error)
	ListStats(ctx context.Context, userID model.UserID) ([]model.PlayerStats, error)

	// Leaderboard operations
	Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.LeaderboardEntry, error)
	LeaderboardAll(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	Close() error
}

// Rank sorts leaderboard rows, assigns ranks from 1 and truncates to limit
func Rank(entries []model.LeaderboardEntry, limit int) []model.LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return model.RankBefore(entries[i], entries[j])
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
