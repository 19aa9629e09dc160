package room

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blitzarena/internal/dependencies/mocks"
	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/rules"
	"github.com/mcoot/blitzarena/internal/services/timer"
	"github.com/mcoot/blitzarena/internal/testutil"
)

// fakeSessions records room bindings
type fakeSessions struct {
	rooms   map[model.ConnID]model.RoomID
	cleared []model.RoomID
}

func (f *fakeSessions) JoinRoom(connID model.ConnID, roomID model.RoomID) error {
	f.rooms[connID] = roomID
	return nil
}

func (f *fakeSessions) ClearRoom(roomID model.RoomID) {
	f.cleared = append(f.cleared, roomID)
	for conn, r := range f.rooms {
		if r == roomID {
			delete(f.rooms, conn)
		}
	}
}

type ManagerSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	transport *mocks.Recorder
	sessions  *fakeSessions
	recorder  *mocks.MatchRecorder
	manager   *Manager
	changes   int
	deleted   []model.RoomID
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s.transport = mocks.NewRecorder()
	s.sessions = &fakeSessions{rooms: make(map[model.ConnID]model.RoomID)}
	s.recorder = mocks.NewMatchRecorder()
	s.changes = 0
	s.deleted = nil

	s.manager = New(
		DefaultConfig(),
		rules.NewEngines(mocks.NewMockRandom()),
		s.sessions,
		s.transport,
		s.recorder,
		timer.New(s.clock, nil),
		s.clock,
		testutil.NopLogger(),
	)
	s.manager.OnChange(func() { s.changes++ })
	s.manager.OnDeleted(func(id model.RoomID) { s.deleted = append(s.deleted, id) })
}

func binding(conn, user, name string) model.PlayerBinding {
	return model.PlayerBinding{
		ConnID:      model.ConnID(conn),
		Identity:    model.ParseIdentity(user),
		DisplayName: name,
	}
}

func pos(n int) model.Move {
	return model.Move{Position: &n}
}

func (s *ManagerSuite) createTicTacToe() *model.Room {
	room, err := s.manager.Create(model.GameTicTacToe, [2]model.PlayerBinding{
		binding("c1", "alice", "Alice"),
		binding("c2", "bob", "Bob"),
	})
	s.Require().NoError(err)
	return room
}

func (s *ManagerSuite) conn(room *model.Room, seat int) model.ConnID {
	return room.Players[seat].ConnID
}

// winRound has the current player complete the top row
func (s *ManagerSuite) winRound(room *model.Room) int {
	mover := room.CurrentPlayer
	other := model.Opponent(mover)
	moves := []struct {
		seat int
		cell int
	}{{mover, 0}, {other, 3}, {mover, 1}, {other, 4}, {mover, 2}}
	for _, mv := range moves {
		s.Require().NoError(s.manager.HandleMove(room.ID, s.conn(room, mv.seat), pos(mv.cell)))
	}
	return mover
}

// Create tests

func (s *ManagerSuite) TestCreateSendsOpeningMessages() {
	room := s.createTicTacToe()

	s.True(strings.HasPrefix(string(room.ID), "speedTicTacToe_"))
	s.Equal(model.RoomStatusPlaying, room.Status)
	s.Equal(0, room.CurrentPlayer)

	s.Equal([]model.MessageType{model.MsgGameStart, model.MsgGameState}, s.transport.Types("c1"))
	s.Equal([]model.MessageType{model.MsgGameStart, model.MsgGameState}, s.transport.Types("c2"))

	msg, ok := s.transport.Last("c2", model.MsgGameStart)
	s.Require().True(ok)
	start := msg.Data.(model.GameStartPayload)
	s.Equal(1, start.PlayerNumber)
	s.Equal("Alice", start.Opponent)
	s.Equal("O", start.Symbol)
	s.Equal(5, start.TotalRounds)

	msg, _ = s.transport.Last("c1", model.MsgGameState)
	state := msg.Data.(model.GameStatePayload)
	s.Equal(1, state.Round)
	s.Equal(10, state.TurnSeconds)

	s.Equal(room.ID, s.sessions.rooms["c1"])
	s.True(s.transport.InRoom("c2", room.ID))
	s.True(s.manager.TurnTimerActive(room.ID))
	s.Equal(1, s.changes)
}

func (s *ManagerSuite) TestCreateUnknownGameType() {
	_, err := s.manager.Create("chess", [2]model.PlayerBinding{binding("c1", "a", "A"), binding("c2", "b", "B")})
	s.ErrorIs(err, model.ErrUnknownGameType)
	s.Equal(0, s.manager.Len())
}

// Move tests

func (s *ManagerSuite) TestMoveOutOfTurnIsRejected() {
	room := s.createTicTacToe()
	seq := room.TurnSeq
	s.transport.Reset()

	err := s.manager.HandleMove(room.ID, "c2", pos(4))
	s.ErrorIs(err, model.ErrNotPlayerTurn)

	s.Equal(seq, room.TurnSeq)
	s.Equal(0, room.CurrentPlayer)
	s.Empty(s.transport.All())
	s.True(s.manager.TurnTimerActive(room.ID))
}

func (s *ManagerSuite) TestMoveErrors() {
	room := s.createTicTacToe()

	s.ErrorIs(s.manager.HandleMove("missing", "c1", pos(0)), model.ErrRoomNotFound)
	s.ErrorIs(s.manager.HandleMove(room.ID, "stranger", pos(0)), model.ErrNotInRoom)

	s.Require().NoError(s.manager.HandleMove(room.ID, "c1", pos(0)))
	s.ErrorIs(s.manager.HandleMove(room.ID, "c2", pos(0)), model.ErrPositionOccupied)
	s.ErrorIs(s.manager.HandleMove(room.ID, "c2", pos(9)), model.ErrInvalidPosition)
}

func (s *ManagerSuite) TestValidMoveSwitchesTurnAndRestartsTimer() {
	room := s.createTicTacToe()
	seq := room.TurnSeq
	s.transport.Reset()

	s.clock.Advance(4 * time.Second)
	s.Require().NoError(s.manager.HandleMove(room.ID, "c1", pos(4)))

	s.Equal(1, room.CurrentPlayer)
	s.Equal(seq+1, room.TurnSeq)
	s.Equal(s.clock.Now(), room.TurnStartedAt)
	s.Equal(1, s.transport.Count("c1", model.MsgGameState))
	s.Equal(1, s.transport.Count("c2", model.MsgGameState))
}

func (s *ManagerSuite) TestMoveDuringRoundDelayIsRejected() {
	room := s.createTicTacToe()
	s.winRound(room)

	s.Equal(model.RoomStatusRoundOver, room.Status)
	s.ErrorIs(s.manager.HandleMove(room.ID, s.conn(room, room.CurrentPlayer), pos(0)), model.ErrRoomNotPlaying)
}

// Turn timer tests

func (s *ManagerSuite) TestTurnTimeoutAwardsRoundToOpponent() {
	room := s.createTicTacToe()
	s.transport.Reset()

	s.clock.Advance(9999 * time.Millisecond)
	s.Equal([2]int{0, 0}, room.Scores)

	s.clock.Advance(time.Millisecond)
	s.Equal([2]int{0, 1}, room.Scores)
	s.Equal(1, room.Round)
	s.Equal(model.RoomStatusRoundOver, room.Status)
	s.False(s.manager.TurnTimerActive(room.ID))

	msg, ok := s.transport.Last("c1", model.MsgRoundEnd)
	s.Require().True(ok)
	end := msg.Data.(model.RoundEndPayload)
	s.Equal(1, end.Winner)
	s.Equal(2, end.NextRound)
	s.Equal(ReasonTimeout, end.Reason)

	// Nothing fires for the closed round before the next one starts
	s.clock.Advance(1999 * time.Millisecond)
	s.Equal([2]int{0, 1}, room.Scores)
	s.Equal(1, s.transport.Count("c1", model.MsgRoundEnd))
	s.Equal(0, s.transport.Count("c1", model.MsgGameState))
	s.False(s.manager.TurnTimerActive(room.ID))

	s.clock.Advance(time.Millisecond)
	s.Equal(model.RoomStatusPlaying, room.Status)
	s.Equal(1, room.CurrentPlayer)
	s.True(s.manager.TurnTimerActive(room.ID))
	s.Equal(1, s.transport.Count("c2", model.MsgGameState))
}

func (s *ManagerSuite) TestMoveSupersedesPendingTimeout() {
	room := s.createTicTacToe()

	s.clock.Advance(9 * time.Second)
	s.Require().NoError(s.manager.HandleMove(room.ID, "c1", pos(0)))

	// The original deadline passes without effect
	s.clock.Advance(2 * time.Second)
	s.Equal([2]int{0, 0}, room.Scores)
	s.Equal(0, room.Round)

	// Seat 1 now runs out of time
	s.clock.Advance(8 * time.Second)
	s.Equal([2]int{1, 0}, room.Scores)
}

func (s *ManagerSuite) TestAtMostOneTurnTimerPerRoom() {
	room := s.createTicTacToe()
	s.manager.StartTurn(room.ID)
	s.manager.StartTurn(room.ID)

	s.Equal(1, s.manager.TurnTimers())
	s.Equal(1, s.clock.PendingTimers())
}

func (s *ManagerSuite) TestClearTurnTimerIsIdempotent() {
	room := s.createTicTacToe()

	s.True(s.manager.ClearTurnTimer(room.ID))
	s.False(s.manager.ClearTurnTimer(room.ID))
	s.False(s.manager.ClearTurnTimer(room.ID))
	s.False(s.manager.TurnTimerActive(room.ID))

	s.clock.Advance(time.Minute)
	s.Equal([2]int{0, 0}, room.Scores)
}

// Round and match progression tests

func (s *ManagerSuite) TestWinningLineEndsRound() {
	room := s.createTicTacToe()
	winner := s.winRound(room)

	s.Equal(0, winner)
	s.Equal([2]int{1, 0}, room.Scores)
	s.Equal(1, room.CurrentPlayer)

	msg, ok := s.transport.Last("c2", model.MsgRoundEnd)
	s.Require().True(ok)
	s.Equal(0, msg.Data.(model.RoundEndPayload).Winner)
	s.Empty(msg.Data.(model.RoundEndPayload).Reason)
}

func (s *ManagerSuite) TestMatchEndsAtThreeWins() {
	room := s.createTicTacToe()

	// Seat 0 opens rounds 1 and 3, seat 1 opens round 2
	s.winRound(room)
	s.clock.Advance(2 * time.Second)
	s.winRound(room)
	s.clock.Advance(2 * time.Second)
	s.winRound(room)
	s.clock.Advance(2 * time.Second)
	s.Equal([2]int{2, 1}, room.Scores)

	// Round 4: seat 1 opens and wins
	s.winRound(room)
	s.clock.Advance(2 * time.Second)
	s.Equal([2]int{2, 2}, room.Scores)

	// Round 5: seat 0 opens
	s.winRound(room)

	s.Equal(model.RoomStatusFinished, room.Status)
	s.Equal(0, room.Winner)
	s.Equal(1, s.transport.Count("c1", model.MsgMatchEnd))
	msg, _ := s.transport.Last("c2", model.MsgMatchEnd)
	s.Equal([2]int{3, 2}, msg.Data.(model.MatchEndPayload).FinalScores)

	results := s.recorder.Results()
	s.Require().Len(results, 1)
	s.False(results[0].Walkover)
	s.Equal(model.UserID("alice"), results[0].Players[0].ID)
	s.Equal(0, results[0].Winner)

	s.True(s.manager.TeardownActive(room.ID))
	s.False(s.manager.TurnTimerActive(room.ID))
}

func (s *ManagerSuite) TestMatchEndsEarlyAtThreeStraightWins() {
	room := s.createTicTacToe()
	for i := 0; i < 3; i++ {
		s.manager.HandleRoundEnd(room.ID, 1)
		s.clock.Advance(2 * time.Second)
	}

	s.Equal(model.RoomStatusFinished, room.Status)
	s.Equal(3, room.Round)
	s.Equal(1, room.Winner)
}

func (s *ManagerSuite) TestDrawnMatch() {
	room := s.createTicTacToe()
	for i := 0; i < 5; i++ {
		s.manager.HandleRoundEnd(room.ID, model.NoWinner)
		s.clock.Advance(2 * time.Second)
	}

	s.Equal(model.RoomStatusFinished, room.Status)
	s.Equal([2]int{0, 0}, room.Scores)
	msg, ok := s.transport.Last("c1", model.MsgMatchEnd)
	s.Require().True(ok)
	s.Equal(model.NoWinner, msg.Data.(model.MatchEndPayload).Winner)
}

func (s *ManagerSuite) TestTeardownAfterMatchEnd() {
	room := s.createTicTacToe()
	for i := 0; i < 3; i++ {
		s.manager.HandleRoundEnd(room.ID, 0)
		s.clock.Advance(2 * time.Second)
	}
	s.Require().Equal(model.RoomStatusFinished, room.Status)

	s.clock.Advance(2999 * time.Millisecond)
	_, ok := s.manager.Get(room.ID)
	s.True(ok)

	s.clock.Advance(time.Millisecond)
	_, ok = s.manager.Get(room.ID)
	s.False(ok)
	s.Equal([]model.RoomID{room.ID}, s.deleted)
	s.Contains(s.sessions.cleared, room.ID)
	s.False(s.transport.InRoom("c1", room.ID))
}

func (s *ManagerSuite) TestCancelTeardownKeepsRoom() {
	room := s.createTicTacToe()
	for i := 0; i < 3; i++ {
		s.manager.HandleRoundEnd(room.ID, 0)
		s.clock.Advance(2 * time.Second)
	}

	s.True(s.manager.CancelTeardown(room.ID))
	s.False(s.manager.CancelTeardown(room.ID))

	s.clock.Advance(time.Minute)
	_, ok := s.manager.Get(room.ID)
	s.True(ok)
}

// Walkover tests

func (s *ManagerSuite) TestAwardWalkoverUsesForfeitScore() {
	room := s.createTicTacToe()
	s.manager.HandleRoundEnd(room.ID, 0)
	s.manager.HandleRoundEnd(room.ID, 0) // ignored, round is already over
	s.Equal([2]int{1, 0}, room.Scores)

	result, ok := s.manager.AwardWalkover(room.ID, 0)
	s.Require().True(ok)

	s.Equal(1, result.Winner)
	s.Equal([2]int{0, 3}, result.Scores)
	s.True(result.Walkover)

	msg, ok := s.transport.Last("c2", model.MsgOpponentDisconnected)
	s.Require().True(ok)
	payload := msg.Data.(model.OpponentDisconnectedPayload)
	s.True(payload.Walkover)
	s.Require().NotNil(payload.FinalScores)
	s.Equal([2]int{0, 3}, *payload.FinalScores)

	_, exists := s.manager.Get(room.ID)
	s.False(exists)
	s.False(s.manager.RoundTimerActive(room.ID))
	s.Len(s.recorder.Results(), 1)

	// Nothing left to fire
	s.Equal(0, s.clock.PendingTimers())
}

func (s *ManagerSuite) TestAwardWalkoverIgnoresFinishedRoom() {
	room := s.createTicTacToe()
	for i := 0; i < 3; i++ {
		s.manager.HandleRoundEnd(room.ID, 0)
		s.clock.Advance(2 * time.Second)
	}

	_, ok := s.manager.AwardWalkover(room.ID, 1)
	s.False(ok)
	s.Len(s.recorder.Results(), 1)
}

func (s *ManagerSuite) TestNotifyOpponentDisconnected() {
	room := s.createTicTacToe()
	s.manager.NotifyOpponentDisconnected(room.ID, 1, 30*time.Second)

	msg, ok := s.transport.Last("c1", model.MsgOpponentDisconnected)
	s.Require().True(ok)
	payload := msg.Data.(model.OpponentDisconnectedPayload)
	s.False(payload.Walkover)
	s.Equal(30, payload.ReconnectSeconds)
	s.Nil(payload.FinalScores)
	s.Equal(0, s.transport.Count("c2", model.MsgOpponentDisconnected))
}

// Reconnect tests

func (s *ManagerSuite) TestRebindAndResync() {
	room := s.createTicTacToe()
	s.Require().NoError(s.manager.HandleMove(room.ID, "c1", pos(4)))
	s.transport.Reset()

	seat, err := s.manager.Rebind(room.ID, "bob", "c3")
	s.Require().NoError(err)
	s.Equal(1, seat)
	s.Equal(model.ConnID("c3"), room.Players[1].ConnID)
	s.True(s.transport.InRoom("c3", room.ID))
	s.False(s.transport.InRoom("c2", room.ID))
	s.Equal(1, s.transport.Count("c1", model.MsgReconnected))
	s.Equal(1, s.transport.Count("c3", model.MsgReconnected))

	s.Require().NoError(s.manager.Resync(room.ID, "c3"))
	s.Equal([]model.MessageType{model.MsgReconnected, model.MsgGameStart, model.MsgGameState}, s.transport.Types("c3"))

	// The new connection can move
	s.NoError(s.manager.HandleMove(room.ID, "c3", pos(0)))
}

func (s *ManagerSuite) TestResyncReportsRemainingTurnTime() {
	room := s.createTicTacToe()
	s.Require().NoError(s.manager.HandleMove(room.ID, "c1", pos(4)))
	s.clock.Advance(7 * time.Second)
	s.transport.Reset()

	_, err := s.manager.Rebind(room.ID, "bob", "c3")
	s.Require().NoError(err)
	s.Require().NoError(s.manager.Resync(room.ID, "c3"))

	msg, ok := s.transport.Last("c3", model.MsgGameState)
	s.Require().True(ok)
	state := msg.Data.(model.GameStatePayload)
	s.Equal(1, state.CurrentPlayer)
	s.Equal(3, state.TurnSeconds)
	s.Equal(int64(3000), state.TurnRemainingMs)
}

func (s *ManagerSuite) TestTurnRemaining() {
	room := s.createTicTacToe()
	s.Equal(10*time.Second, s.manager.TurnRemaining(room.ID))

	s.clock.Advance(4500 * time.Millisecond)
	s.Equal(5500*time.Millisecond, s.manager.TurnRemaining(room.ID))

	// A move restarts the clock for the opponent
	s.Require().NoError(s.manager.HandleMove(room.ID, "c1", pos(4)))
	s.Equal(10*time.Second, s.manager.TurnRemaining(room.ID))
	msg, ok := s.transport.Last("c2", model.MsgGameState)
	s.Require().True(ok)
	s.Equal(10, msg.Data.(model.GameStatePayload).TurnSeconds)

	// Once the turn times out the round is over and nothing is running
	s.clock.Advance(10 * time.Second)
	s.Equal(model.RoomStatusRoundOver, room.Status)
	s.Equal(time.Duration(0), s.manager.TurnRemaining(room.ID))

	s.Equal(time.Duration(0), s.manager.TurnRemaining("missing"))
}

func (s *ManagerSuite) TestRebindUnknownUser() {
	room := s.createTicTacToe()
	_, err := s.manager.Rebind(room.ID, "mallory", "c9")
	s.ErrorIs(err, model.ErrNotInRoom)

	_, err = s.manager.Rebind("missing", "bob", "c9")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Query tests

func (s *ManagerSuite) TestPlayingCounts() {
	s.createTicTacToe()
	_, err := s.manager.Create(model.GameMorris, [2]model.PlayerBinding{binding("c3", "carol", "Carol"), binding("c4", "dave", "Dave")})
	s.Require().NoError(err)
	finished, err := s.manager.Create(model.GameMorris, [2]model.PlayerBinding{binding("c5", "erin", "Erin"), binding("c6", "finn", "Finn")})
	s.Require().NoError(err)
	for i := 0; i < 3; i++ {
		s.manager.HandleRoundEnd(finished.ID, 0)
		s.clock.Advance(2 * time.Second)
	}

	counts := s.manager.PlayingCounts()
	s.Equal(2, counts[model.GameTicTacToe])
	s.Equal(2, counts[model.GameMorris])
	s.Equal(0, counts[model.GameMemoryMatch])
}
