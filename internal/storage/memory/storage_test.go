package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/storage"
	"github.com/mcoot/blitzarena/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestGetStatsReturnsCopy() {
	s.upsertWin("alice")

	st, err := s.storage.GetStats(s.Ctx, "alice", model.GameTicTacToe)
	s.Require().NoError(err)
	st.Points = 100

	again, err := s.storage.GetStats(s.Ctx, "alice", model.GameTicTacToe)
	s.Require().NoError(err)
	s.Equal(model.PointsWin, again.Points)
}

func (s *StorageSuite) upsertWin(user model.UserID) {
	err := s.storage.UpsertStats(s.Ctx, storage.StatsUpdate{
		UserID:   user,
		GameType: model.GameTicTacToe,
		Outcome:  model.OutcomeWon,
	})
	s.Require().NoError(err)
}
