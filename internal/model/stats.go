package model

import "time"

// Outcome is a player's result for one match
type Outcome string

const (
	OutcomeWon   Outcome = "won"
	OutcomeLost  Outcome = "lost"
	OutcomeDrawn Outcome = "drawn"
)

// Leaderboard points per outcome
const (
	PointsWin  = 2
	PointsDraw = 1
	PointsLoss = 0
)

// Points returns the leaderboard points awarded for an outcome
func (o Outcome) Points() int {
	switch o {
	case OutcomeWon:
		return PointsWin
	case OutcomeDrawn:
		return PointsDraw
	default:
		return PointsLoss
	}
}

// MatchRecord is the persisted history entry for a finished match
type MatchRecord struct {
	GameType        GameType  `json:"game_type"`
	Player1ID       UserID    `json:"player1_id"`
	Player2ID       UserID    `json:"player2_id"`
	WinnerID        *UserID   `json:"winner_id"` // nil for a draw
	Score1          int       `json:"score1"`
	Score2          int       `json:"score2"`
	DurationSeconds int       `json:"duration_seconds"`
	Walkover        bool      `json:"walkover,omitempty"`
	PlayedAt        time.Time `json:"played_at"`
}

// MatchResult is everything needed to close out a match
type MatchResult struct {
	RoomID   RoomID
	GameType GameType
	Players  [2]Identity
	Names    [2]string
	Scores   [2]int
	Winner   int // seat index, NoWinner for a draw
	Duration time.Duration
	Walkover bool
	EndedAt  time.Time
}

// Record converts a result to its history entry
func (r MatchResult) Record() MatchRecord {
	rec := MatchRecord{
		GameType:        r.GameType,
		Player1ID:       r.Players[0].ID,
		Player2ID:       r.Players[1].ID,
		Score1:          r.Scores[0],
		Score2:          r.Scores[1],
		DurationSeconds: int(r.Duration.Seconds()),
		Walkover:        r.Walkover,
		PlayedAt:        r.EndedAt,
	}
	if r.Winner != NoWinner {
		winner := r.Players[r.Winner].ID
		rec.WinnerID = &winner
	}
	return rec
}

// OutcomeFor returns the outcome from the given seat's point of view
func (r MatchResult) OutcomeFor(seat int) Outcome {
	switch r.Winner {
	case NoWinner:
		return OutcomeDrawn
	case seat:
		return OutcomeWon
	default:
		return OutcomeLost
	}
}

// InvolvesGuest returns true if either player is a guest
func (r MatchResult) InvolvesGuest() bool {
	return r.Players[0].IsGuest() || r.Players[1].IsGuest()
}

// PlayerStats are the aggregate statistics for one user in one game type
type PlayerStats struct {
	UserID      UserID    `json:"user_id"`
	GameType    GameType  `json:"game_type"`
	GamesPlayed int       `json:"games_played"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	RoundsWon   int       `json:"rounds_won"`
	RoundsLost  int       `json:"rounds_lost"`
	Points      int       `json:"points"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Apply folds one match outcome into the stats
func (s *PlayerStats) Apply(outcome Outcome, roundsWon, roundsLost int) {
	s.GamesPlayed++
	switch outcome {
	case OutcomeWon:
		s.Wins++
	case OutcomeLost:
		s.Losses++
	case OutcomeDrawn:
		s.Draws++
	}
	s.RoundsWon += roundsWon
	s.RoundsLost += roundsLost
	s.Points += outcome.Points()
}

// LeaderboardEntry is one ranked row of a leaderboard
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      UserID `json:"user_id"`
	Points      int    `json:"points"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
	GamesPlayed int    `json:"games_played"`
}

// EntryFromStats builds an unranked leaderboard row
func EntryFromStats(s PlayerStats) LeaderboardEntry {
	return LeaderboardEntry{
		UserID:      s.UserID,
		Points:      s.Points,
		Wins:        s.Wins,
		Losses:      s.Losses,
		Draws:       s.Draws,
		GamesPlayed: s.GamesPlayed,
	}
}

// RankBefore orders leaderboard rows: points desc, wins desc, then user id
func RankBefore(a, b LeaderboardEntry) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	return a.UserID < b.UserID
}
