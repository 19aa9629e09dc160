// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/storage"
)

// Suite runs the storage contract against Store.
// Backends embed it and assign Store in their SetupTest.
type Suite struct {
	suite.Suite
	Store storage.Storage
	Ctx   context.Context
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) upsert(user model.UserID, gameType model.GameType, outcome model.Outcome, won, lost int) {
	err := s.Store.UpsertStats(s.Ctx, storage.StatsUpdate{
		UserID:     user,
		GameType:   gameType,
		Outcome:    outcome,
		RoundsWon:  won,
		RoundsLost: lost,
		At:         baseTime,
	})
	s.Require().NoError(err)
}

func (s *Suite) TestUpsertStatsCreatesRow() {
	s.upsert("alice", model.GameTicTacToe, model.OutcomeWon, 3, 1)

	st, err := s.Store.GetStats(s.Ctx, "alice", model.GameTicTacToe)
	s.Require().NoError(err)
	s.Equal(model.UserID("alice"), st.UserID)
	s.Equal(model.GameTicTacToe, st.GameType)
	s.Equal(1, st.GamesPlayed)
	s.Equal(1, st.Wins)
	s.Equal(0, st.Losses)
	s.Equal(3, st.RoundsWon)
	s.Equal(1, st.RoundsLost)
	s.Equal(model.PointsWin, st.Points)
}

func (s *Suite) TestUpsertStatsAccumulates() {
	s.upsert("alice", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	s.upsert("alice", model.GameTicTacToe, model.OutcomeDrawn, 2, 2)
	s.upsert("alice", model.GameTicTacToe, model.OutcomeLost, 1, 3)

	st, err := s.Store.GetStats(s.Ctx, "alice", model.GameTicTacToe)
	s.Require().NoError(err)
	s.Equal(3, st.GamesPlayed)
	s.Equal(1, st.Wins)
	s.Equal(1, st.Draws)
	s.Equal(1, st.Losses)
	s.Equal(6, st.RoundsWon)
	s.Equal(5, st.RoundsLost)
	s.Equal(model.PointsWin+model.PointsDraw, st.Points)
}

func (s *Suite) TestGetStatsNotFound() {
	_, err := s.Store.GetStats(s.Ctx, "nobody", model.GameMorris)
	s.ErrorIs(err, model.ErrStatsNotFound)
}

func (s *Suite) TestListStatsPerGameType() {
	s.upsert("alice", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	s.upsert("alice", model.GameMemoryMatch, model.OutcomeLost, 0, 3)
	s.upsert("bob", model.GameMorris, model.OutcomeWon, 3, 0)

	rows, err := s.Store.ListStats(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(model.GameMemoryMatch, rows[0].GameType)
	s.Equal(model.GameTicTacToe, rows[1].GameType)

	rows, err = s.Store.ListStats(s.Ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *Suite) TestLeaderboardOrdering() {
	// carol: 4 points from two wins, bob: 4 points from one win and two draws
	s.upsert("carol", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	s.upsert("carol", model.GameTicTacToe, model.OutcomeWon, 3, 1)
	s.upsert("bob", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	s.upsert("bob", model.GameTicTacToe, model.OutcomeDrawn, 2, 2)
	s.upsert("bob", model.GameTicTacToe, model.OutcomeDrawn, 2, 2)
	s.upsert("alice", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	s.upsert("dave", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	// Other game types don't leak in
	s.upsert("erin", model.GameMorris, model.OutcomeWon, 3, 0)

	board, err := s.Store.Leaderboard(s.Ctx, model.GameTicTacToe, 10)
	s.Require().NoError(err)
	s.Require().Len(board, 4)

	s.Equal(model.UserID("carol"), board[0].UserID)
	s.Equal(1, board[0].Rank)
	s.Equal(4, board[0].Points)
	s.Equal(model.UserID("bob"), board[1].UserID)
	s.Equal(2, board[1].Rank)
	// Equal points and wins fall back to user id
	s.Equal(model.UserID("alice"), board[2].UserID)
	s.Equal(model.UserID("dave"), board[3].UserID)
	s.Equal(4, board[3].Rank)
}

func (s *Suite) TestLeaderboardLimit() {
	s.upsert("alice", model.GameMorris, model.OutcomeWon, 3, 0)
	s.upsert("bob", model.GameMorris, model.OutcomeDrawn, 2, 2)
	s.upsert("carol", model.GameMorris, model.OutcomeLost, 0, 3)

	board, err := s.Store.Leaderboard(s.Ctx, model.GameMorris, 2)
	s.Require().NoError(err)
	s.Require().Len(board, 2)
	s.Equal(model.UserID("alice"), board[0].UserID)
	s.Equal(model.UserID("bob"), board[1].UserID)
}

func (s *Suite) TestLeaderboardEmpty() {
	board, err := s.Store.Leaderboard(s.Ctx, model.GameMemoryMatch, 10)
	s.Require().NoError(err)
	s.Empty(board)
}

func (s *Suite) TestLeaderboardAllSumsGameTypes() {
	s.upsert("alice", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	s.upsert("alice", model.GameMorris, model.OutcomeWon, 3, 0)
	s.upsert("bob", model.GameTicTacToe, model.OutcomeWon, 3, 0)
	s.upsert("bob", model.GameMemoryMatch, model.OutcomeDrawn, 2, 2)

	board, err := s.Store.LeaderboardAll(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(board, 2)
	s.Equal(model.UserID("alice"), board[0].UserID)
	s.Equal(4, board[0].Points)
	s.Equal(2, board[0].Wins)
	s.Equal(2, board[0].GamesPlayed)
	s.Equal(model.UserID("bob"), board[1].UserID)
	s.Equal(3, board[1].Points)
	s.Equal(1, board[1].Draws)
}

func (s *Suite) TestRecordAndListMatches() {
	winner := model.UserID("alice")
	for i := 0; i < 3; i++ {
		rec := &model.MatchRecord{
			GameType:        model.GameTicTacToe,
			Player1ID:       "alice",
			Player2ID:       "bob",
			WinnerID:        &winner,
			Score1:          3,
			Score2:          i,
			DurationSeconds: 60 + i,
			PlayedAt:        baseTime.Add(time.Duration(i) * time.Minute),
		}
		s.Require().NoError(s.Store.RecordMatch(s.Ctx, rec))
	}
	draw := &model.MatchRecord{
		GameType:  model.GameMorris,
		Player1ID: "carol",
		Player2ID: "bob",
		Score1:    2,
		Score2:    2,
		PlayedAt:  baseTime.Add(time.Hour),
	}
	s.Require().NoError(s.Store.RecordMatch(s.Ctx, draw))

	matches, err := s.Store.RecentMatches(s.Ctx, "bob", 10)
	s.Require().NoError(err)
	s.Require().Len(matches, 4)
	// Newest first
	s.Equal(model.UserID("carol"), matches[0].Player1ID)
	s.Nil(matches[0].WinnerID)
	s.Equal(2, matches[1].Score2)
	s.Require().NotNil(matches[1].WinnerID)
	s.Equal(winner, *matches[1].WinnerID)

	matches, err = s.Store.RecentMatches(s.Ctx, "alice", 2)
	s.Require().NoError(err)
	s.Require().Len(matches, 2)
	s.Equal(2, matches[0].Score2)
	s.Equal(1, matches[1].Score2)

	matches, err = s.Store.RecentMatches(s.Ctx, "nobody", 10)
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *Suite) TestRecordMatchWalkover() {
	winner := model.UserID("bob")
	rec := &model.MatchRecord{
		GameType:  model.GameMemoryMatch,
		Player1ID: "alice",
		Player2ID: "bob",
		WinnerID:  &winner,
		Score1:    0,
		Score2:    3,
		Walkover:  true,
		PlayedAt:  baseTime,
	}
	s.Require().NoError(s.Store.RecordMatch(s.Ctx, rec))

	matches, err := s.Store.RecentMatches(s.Ctx, "alice", 10)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.True(matches[0].Walkover)
	s.Equal(model.GameMemoryMatch, matches[0].GameType)
	s.True(matches[0].PlayedAt.Equal(baseTime))
}
