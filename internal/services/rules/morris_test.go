package rules

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blitzarena/internal/model"
)

type MorrisSuite struct {
	suite.Suite
	engine *Morris
}

func TestMorrisSuite(t *testing.T) {
	suite.Run(t, new(MorrisSuite))
}

func (s *MorrisSuite) SetupTest() {
	s.engine = NewMorris()
}

// board builds a movement-phase state with the given pieces
func (s *MorrisSuite) board(white, black []int) *MorrisState {
	state := s.engine.NewRound(0).(*MorrisState)
	state.InHand = [2]int{0, 0}
	for _, p := range white {
		state.Board[p] = 0
		state.OnBoard[0]++
	}
	for _, p := range black {
		state.Board[p] = 1
		state.OnBoard[1]++
	}
	return state
}

func step(from, to int) model.Move {
	return model.Move{From: &from, To: &to}
}

func (s *MorrisSuite) TestAdjacencyIsSymmetric() {
	for p, neighbours := range MorrisAdjacency {
		for _, n := range neighbours {
			s.Contains(MorrisAdjacency[n], p, "point %d lists %d", p, n)
		}
	}
}

func (s *MorrisSuite) TestMillsAreAdjacentLines() {
	for _, mill := range MorrisMills {
		s.True(adjacent(mill[0], mill[1]), "mill %v", mill)
		s.True(adjacent(mill[1], mill[2]), "mill %v", mill)
	}
}

// Placement

func (s *MorrisSuite) TestPlacementPassesTurn() {
	state := s.engine.NewRound(0).(*MorrisState)

	result, err := s.engine.Apply(state, 0, pos(0))
	s.Require().NoError(err)

	s.False(result.Terminal)
	s.False(result.KeepTurn)
	s.Equal(8, state.InHand[0])
	s.Equal(1, state.OnBoard[0])
}

func (s *MorrisSuite) TestPlacementOnOccupiedRejected() {
	state := s.engine.NewRound(0).(*MorrisState)
	_, err := s.engine.Apply(state, 0, pos(0))
	s.Require().NoError(err)

	_, err = s.engine.Apply(state, 1, pos(0))
	s.ErrorIs(err, model.ErrPositionOccupied)
	s.Equal(MorrisPieces, state.InHand[1])
}

func (s *MorrisSuite) TestPlacementRejectsStepMove() {
	state := s.engine.NewRound(0).(*MorrisState)

	_, err := s.engine.Apply(state, 0, step(0, 1))
	s.ErrorIs(err, model.ErrInvalidMove)
}

func (s *MorrisSuite) TestPlacingMillStartsRemoval() {
	state := s.engine.NewRound(0).(*MorrisState)
	for _, m := range []struct{ seat, pos int }{{0, 0}, {1, 3}, {0, 1}, {1, 4}} {
		_, err := s.engine.Apply(state, m.seat, pos(m.pos))
		s.Require().NoError(err)
	}

	result, err := s.engine.Apply(state, 0, pos(2))
	s.Require().NoError(err)

	s.True(result.KeepTurn)
	s.True(state.Removing)
	s.Equal(PhaseRemoval, state.Phase(0))
}

// Removal

func (s *MorrisSuite) TestRemovalRequiresPosition() {
	state := s.board([]int{0, 1, 2, 9}, []int{3, 4, 5, 6})
	state.Removing = true

	_, err := s.engine.Apply(state, 0, step(9, 10))
	s.ErrorIs(err, model.ErrMustRemovePiece)
}

func (s *MorrisSuite) TestRemovalOfOwnPieceRejected() {
	state := s.board([]int{0, 1, 2, 9}, []int{3, 4, 6, 7})
	state.Removing = true

	_, err := s.engine.Apply(state, 0, pos(9))
	s.ErrorIs(err, model.ErrNotOpponentPiece)
}

func (s *MorrisSuite) TestRemovingNonMillPieceSucceeds() {
	// W mill at 0-1-2 plus 9; B at 3 and 4 (3-4-5 incomplete)
	state := s.board([]int{0, 1, 2, 9}, []int{3, 4, 15, 16})
	state.Removing = true

	result, err := s.engine.Apply(state, 0, pos(3))
	s.Require().NoError(err)

	s.False(result.Terminal)
	s.Equal(empty, state.Board[3])
	s.Equal(3, state.OnBoard[1])
	s.False(state.Removing)
}

func (s *MorrisSuite) TestRemovingMillPieceRejectedWhileOthersAvailable() {
	// Same board, B has closed a mill and tries to take W's piece at 0
	state := s.board([]int{0, 1, 2, 9}, []int{3, 4, 15, 16})
	state.Removing = true

	_, err := s.engine.Apply(state, 1, pos(0))
	s.ErrorIs(err, model.ErrCannotRemoveFromMill)
	s.Equal("Cannot remove piece from mill", ReasonFor(err))
	s.Equal(0, state.Board[0])
	s.True(state.Removing)
}

func (s *MorrisSuite) TestRemovingMillPieceAllowedWhenAllInMills() {
	state := s.board([]int{0, 1, 2}, []int{3, 4, 15, 16})
	state.Removing = true

	result, err := s.engine.Apply(state, 1, pos(0))
	s.Require().NoError(err)

	// W is down to two pieces
	s.True(result.Terminal)
	s.Equal(1, result.Winner)
}

// Movement

func (s *MorrisSuite) TestMovementRequiresAdjacency() {
	state := s.board([]int{0, 10, 20, 22}, []int{3, 5, 15, 17})

	_, err := s.engine.Apply(state, 0, step(0, 2))
	s.ErrorIs(err, model.ErrNotAdjacent)

	_, err = s.engine.Apply(state, 0, step(0, 1))
	s.NoError(err)
}

func (s *MorrisSuite) TestMovementOfOpponentPieceRejected() {
	state := s.board([]int{0, 10, 20, 22}, []int{3, 5, 15, 17})

	_, err := s.engine.Apply(state, 0, step(3, 4))
	s.ErrorIs(err, model.ErrNotOwnPiece)
}

func (s *MorrisSuite) TestFlyingWithThreePieces() {
	state := s.board([]int{0, 10, 20}, []int{3, 5, 15, 17})

	result, err := s.engine.Apply(state, 0, step(0, 23))
	s.Require().NoError(err)
	s.False(result.Terminal)
	s.Equal(0, state.Board[23])
}

func (s *MorrisSuite) TestMovingIntoMillStartsRemoval() {
	state := s.board([]int{0, 1, 14, 9}, []int{3, 5, 15, 17})

	result, err := s.engine.Apply(state, 0, step(14, 2))
	s.Require().NoError(err)

	s.True(result.KeepTurn)
	s.True(state.Removing)
}

func (s *MorrisSuite) TestBlockingOpponentWinsRound() {
	// B's four corner pieces lose their last exit when W moves 10 -> 9
	state := s.board([]int{1, 14, 22, 10}, []int{0, 2, 21, 23})

	result, err := s.engine.Apply(state, 0, step(10, 9))
	s.Require().NoError(err)

	s.True(result.Terminal)
	s.Equal(0, result.Winner)
	s.False(state.CanMove(1))
}

func (s *MorrisSuite) TestViewReportsPhases() {
	state := s.engine.NewRound(0).(*MorrisState)
	_, err := s.engine.Apply(state, 0, pos(0))
	s.Require().NoError(err)

	view := s.engine.View(state).(map[string]any)
	s.Equal("W", view["board"].([]string)[0])
	s.Equal([2]int{8, 9}, view["piecesInHand"])
	s.Equal([2]string{PhasePlacement, PhasePlacement}, view["phases"])
}
