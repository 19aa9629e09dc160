package response

import (
	"time"

	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/identity"
	"github.com/mcoot/blitzarena/internal/services/registry"
)

// Guest represents a newly issued guest identity
type Guest struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"`
	IssuedAt    time.Time `json:"issued_at"`
}

// GuestFromIdentity converts an issued guest
func GuestFromIdentity(g identity.Guest) Guest {
	return Guest{
		UserID:      string(g.UserID),
		DisplayName: g.DisplayName,
		IsGuest:     true,
		IssuedAt:    g.IssuedAt,
	}
}

// Leaderboard is a ranked list for one game type, or every game type when GameType is "all"
type Leaderboard struct {
	GameType string                   `json:"game_type"`
	Entries  []model.LeaderboardEntry `json:"entries"`
}

// PlayerStats lists a user's per-game stats with a combined total
type PlayerStats struct {
	UserID  string              `json:"user_id"`
	IsGuest bool                `json:"is_guest"`
	Games   []model.PlayerStats `json:"games"`
	Total   StatsTotal          `json:"total"`
}

// StatsTotal sums a user's stats over every game type
type StatsTotal struct {
	GamesPlayed int `json:"games_played"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Draws       int `json:"draws"`
	Points      int `json:"points"`
}

// PlayerStatsFromModel builds the stats response; guests never have stats
func PlayerStatsFromModel(userID model.UserID, stats []model.PlayerStats) PlayerStats {
	resp := PlayerStats{
		UserID:  string(userID),
		IsGuest: model.ParseIdentity(string(userID)).IsGuest(),
		Games:   stats,
	}
	if resp.Games == nil {
		resp.Games = []model.PlayerStats{}
	}
	for _, st := range stats {
		resp.Total.GamesPlayed += st.GamesPlayed
		resp.Total.Wins += st.Wins
		resp.Total.Losses += st.Losses
		resp.Total.Draws += st.Draws
		resp.Total.Points += st.Points
	}
	return resp
}

// Matches lists a user's recent matches, newest first
type Matches struct {
	UserID  string              `json:"user_id"`
	Matches []model.MatchRecord `json:"matches"`
}

// Counts is the number of players queued or playing per game type
type Counts struct {
	Counts model.PlayerCounts `json:"counts"`
	Total  int                `json:"total"`
}

// CountsFromModel totals the per-game counts
func CountsFromModel(counts model.PlayerCounts) Counts {
	resp := Counts{Counts: counts}
	for _, n := range counts {
		resp.Total += n
	}
	return resp
}

// Connections summarises live sessions and rooms
type Connections struct {
	registry.Stats
	Rooms int `json:"rooms"`
}
