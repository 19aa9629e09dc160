// Package room owns every live match: board state, turn order, turn timers,
// round and match progression, and teardown.
package room

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/blitzarena/internal/dependencies/clock"
	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/rules"
	"github.com/mcoot/blitzarena/internal/services/timer"
)

// Round end reasons sent with round_end
const (
	ReasonTimeout = "timeout"
)

// Config holds match pacing settings
type Config struct {
	// TurnDuration is how long the acting player has before forfeiting the round
	TurnDuration time.Duration
	// RoundDelay is the pause between round_end and the next round's first state
	RoundDelay time.Duration
	// TeardownDelay is how long a finished room lingers for trailing messages
	TeardownDelay time.Duration
	// Rounds is the maximum number of rounds in a match
	Rounds int
	// WinsNeeded ends the match early once one side reaches it
	WinsNeeded int
}

// DefaultConfig returns best-of-5 with a 10 second turn clock
func DefaultConfig() Config {
	return Config{
		TurnDuration:  10 * time.Second,
		RoundDelay:    2 * time.Second,
		TeardownDelay: 5 * time.Second,
		Rounds:        5,
		WinsNeeded:    3,
	}
}

// Transport delivers messages to connections and room channels
type Transport interface {
	Send(connID model.ConnID, msg model.Outbound)
	JoinRoom(connID model.ConnID, roomID model.RoomID)
	LeaveRoom(connID model.ConnID, roomID model.RoomID)
	BroadcastRoom(roomID model.RoomID, msg model.Outbound)
}

// Sessions is the part of the connection registry that tracks room bindings
type Sessions interface {
	JoinRoom(connID model.ConnID, roomID model.RoomID) error
	ClearRoom(roomID model.RoomID)
}

// Recorder persists finished matches without blocking
type Recorder interface {
	RecordMatchAsync(result model.MatchResult)
}

// Manager owns all rooms.
// It is not safe for concurrent use; the session orchestrator serializes access.
type Manager struct {
	cfg       Config
	engines   rules.Engines
	sessions  Sessions
	transport Transport
	recorder  Recorder
	clock     clock.Clock
	logger    *slog.Logger

	rooms     map[model.RoomID]*model.Room
	turns     *timer.Group[model.RoomID]
	rounds    *timer.Group[model.RoomID]
	teardowns *timer.Group[model.RoomID]

	onChange  func()
	onDeleted func(roomID model.RoomID)
}

// New creates a room manager
func New(
	cfg Config,
	engines rules.Engines,
	sessions Sessions,
	transport Transport,
	recorder Recorder,
	timers *timer.Service,
	clk clock.Clock,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:       cfg,
		engines:   engines,
		sessions:  sessions,
		transport: transport,
		recorder:  recorder,
		clock:     clk,
		logger:    logger.With(slog.String("component", "rooms")),
		rooms:     make(map[model.RoomID]*model.Room),
		turns:     timer.NewGroup[model.RoomID](timers),
		rounds:    timer.NewGroup[model.RoomID](timers),
		teardowns: timer.NewGroup[model.RoomID](timers),
		onChange:  func() {},
		onDeleted: func(model.RoomID) {},
	}
}

// Stop cancels every turn, round and teardown timer. Rooms are left as they are.
func (m *Manager) Stop() {
	m.turns.ClearAll()
	m.rounds.ClearAll()
	m.teardowns.ClearAll()
}

// OnChange registers a hook run whenever the set of active rooms changes
func (m *Manager) OnChange(fn func()) {
	m.onChange = fn
}

// OnDeleted registers a hook run after a room is removed
func (m *Manager) OnDeleted(fn func(roomID model.RoomID)) {
	m.onDeleted = fn
}

// Create starts a match between two players and sends the opening state
func (m *Manager) Create(gameType model.GameType, players [2]model.PlayerBinding) (*model.Room, error) {
	engine, err := m.engines.Get(gameType)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	room := &model.Room{
		ID:            model.RoomID(fmt.Sprintf("%s_%s", gameType, uuid.NewString())),
		GameType:      gameType,
		Players:       players,
		Board:         engine.NewRound(0),
		CurrentPlayer: 0,
		Status:        model.RoomStatusPlaying,
		Winner:        model.NoWinner,
		StartedAt:     now,
	}
	m.rooms[room.ID] = room

	for _, p := range players {
		if err := m.sessions.JoinRoom(p.ConnID, room.ID); err != nil {
			m.logger.Warn("player has no session",
				slog.String("room_id", string(room.ID)),
				slog.String("conn_id", string(p.ConnID)))
		}
		m.transport.JoinRoom(p.ConnID, room.ID)
	}

	for seat := range players {
		m.transport.Send(players[seat].ConnID, m.gameStart(room, engine, seat))
	}
	m.StartTurn(room.ID)
	m.transport.BroadcastRoom(room.ID, m.gameState(room, engine))

	m.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("game_type", string(gameType)),
		slog.String("player1", string(players[0].Identity.ID)),
		slog.String("player2", string(players[1].Identity.ID)))

	m.onChange()
	return room, nil
}

// Get returns a room by id
func (m *Manager) Get(roomID model.RoomID) (*model.Room, bool) {
	room, ok := m.rooms[roomID]
	return room, ok
}

// Len returns the number of rooms, finished ones included
func (m *Manager) Len() int {
	return len(m.rooms)
}

// HandleMove validates and applies a move from connID.
// A rejected move leaves the room untouched.
func (m *Manager) HandleMove(roomID model.RoomID, connID model.ConnID, move model.Move) error {
	room, ok := m.rooms[roomID]
	if !ok {
		return model.ErrRoomNotFound
	}
	seat := room.Seat(connID)
	if seat < 0 {
		return model.ErrNotInRoom
	}
	if room.Status != model.RoomStatusPlaying {
		return model.ErrRoomNotPlaying
	}
	if seat != room.CurrentPlayer {
		return model.ErrNotPlayerTurn
	}

	engine, err := m.engines.Get(room.GameType)
	if err != nil {
		return err
	}
	result, err := engine.Apply(room.Board, seat, move)
	if err != nil {
		return err
	}

	// The move is in; the pending timeout no longer applies
	m.ClearTurnTimer(roomID)

	if result.Terminal {
		m.endRound(room, result.Winner, "")
		return nil
	}
	if !result.KeepTurn {
		room.CurrentPlayer = model.Opponent(seat)
	}
	m.StartTurn(roomID)
	m.transport.BroadcastRoom(roomID, m.gameState(room, engine))
	return nil
}

// StartTurn (re)arms the turn timer for the room's current player
func (m *Manager) StartTurn(roomID model.RoomID) {
	room, ok := m.rooms[roomID]
	if !ok {
		return
	}
	room.TurnSeq++
	room.TurnStartedAt = m.clock.Now()

	seq := room.TurnSeq
	m.turns.Start(roomID, m.cfg.TurnDuration, func() {
		m.turnExpired(roomID, seq)
	})
}

// TurnRemaining reports how long the current player has left to move. Zero when
// the room is unknown or no turn is running.
func (m *Manager) TurnRemaining(roomID model.RoomID) time.Duration {
	room, ok := m.rooms[roomID]
	if !ok {
		return 0
	}
	return m.turnRemaining(room)
}

func (m *Manager) turnRemaining(room *model.Room) time.Duration {
	if room.Status != model.RoomStatusPlaying {
		return 0
	}
	remaining := m.cfg.TurnDuration - m.clock.Now().Sub(room.TurnStartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClearTurnTimer cancels the room's turn timer. Returns false if none was running.
func (m *Manager) ClearTurnTimer(roomID model.RoomID) bool {
	return m.turns.Clear(roomID)
}

// TurnTimerActive reports whether the room has a running turn timer
func (m *Manager) TurnTimerActive(roomID model.RoomID) bool {
	return m.turns.Active(roomID)
}

// TurnTimers returns the number of running turn timers across all rooms
func (m *Manager) TurnTimers() int {
	return m.turns.Len()
}

// RoundTimerActive reports whether the room is waiting to start its next round
func (m *Manager) RoundTimerActive(roomID model.RoomID) bool {
	return m.rounds.Active(roomID)
}

// TeardownActive reports whether the room is scheduled for deletion
func (m *Manager) TeardownActive(roomID model.RoomID) bool {
	return m.teardowns.Active(roomID)
}

func (m *Manager) turnExpired(roomID model.RoomID, seq uint64) {
	room, ok := m.rooms[roomID]
	if !ok || room.Status != model.RoomStatusPlaying || room.TurnSeq != seq {
		m.logger.Debug("dropping stale turn timeout", slog.String("room_id", string(roomID)))
		return
	}

	m.logger.Info("turn timed out",
		slog.String("room_id", string(roomID)),
		slog.Int("seat", room.CurrentPlayer),
		slog.Int("round", room.Round+1))

	// The whole round goes to the opponent
	m.endRound(room, model.Opponent(room.CurrentPlayer), ReasonTimeout)
}

// HandleRoundEnd closes the current round with the given winner seat,
// or model.NoWinner for a draw
func (m *Manager) HandleRoundEnd(roomID model.RoomID, winner int) {
	room, ok := m.rooms[roomID]
	if !ok || room.Status != model.RoomStatusPlaying {
		return
	}
	m.endRound(room, winner, "")
}

func (m *Manager) endRound(room *model.Room, winner int, reason string) {
	m.ClearTurnTimer(room.ID)

	if winner != model.NoWinner {
		room.Scores[winner]++
	}
	room.Round++

	if room.Round >= m.cfg.Rounds || room.Scores[0] >= m.cfg.WinsNeeded || room.Scores[1] >= m.cfg.WinsNeeded {
		m.finishMatch(room)
		return
	}

	engine, err := m.engines.Get(room.GameType)
	if err != nil {
		m.logger.Error("room has no engine", slog.String("room_id", string(room.ID)))
		return
	}

	room.Status = model.RoomStatusRoundOver
	room.Board = engine.NewRound(room.Round)
	// Alternate who opens each round
	room.CurrentPlayer = room.Round % 2

	m.transport.BroadcastRoom(room.ID, model.NewOutbound(model.MsgRoundEnd, model.RoundEndPayload{
		Winner:    winner,
		Scores:    room.Scores,
		NextRound: room.Round + 1,
		Reason:    reason,
	}))

	roomID, round := room.ID, room.Round
	m.rounds.Start(roomID, m.cfg.RoundDelay, func() {
		m.beginRound(roomID, round)
	})
}

func (m *Manager) beginRound(roomID model.RoomID, round int) {
	room, ok := m.rooms[roomID]
	if !ok || room.Status != model.RoomStatusRoundOver || room.Round != round {
		m.logger.Debug("dropping stale round start", slog.String("room_id", string(roomID)))
		return
	}
	engine, err := m.engines.Get(room.GameType)
	if err != nil {
		return
	}

	room.Status = model.RoomStatusPlaying
	m.StartTurn(roomID)
	m.transport.BroadcastRoom(roomID, m.gameState(room, engine))
}

func (m *Manager) finishMatch(room *model.Room) {
	m.rounds.Clear(room.ID)

	room.Status = model.RoomStatusFinished
	room.EndedAt = m.clock.Now()
	switch {
	case room.Scores[0] > room.Scores[1]:
		room.Winner = 0
	case room.Scores[1] > room.Scores[0]:
		room.Winner = 1
	default:
		room.Winner = model.NoWinner
	}

	m.transport.BroadcastRoom(room.ID, model.NewOutbound(model.MsgMatchEnd, model.MatchEndPayload{
		Winner:      room.Winner,
		FinalScores: room.Scores,
	}))

	// Persistence never delays the players
	m.recorder.RecordMatchAsync(m.result(room, false))

	m.ScheduleDeletion(room.ID, m.cfg.TeardownDelay)

	m.logger.Info("match finished",
		slog.String("room_id", string(room.ID)),
		slog.Int("winner", room.Winner),
		slog.Any("scores", room.Scores))

	m.onChange()
}

// AwardWalkover ends an active match in favour of the seat that stayed.
// The recorded score is a forfeit, not the score at the time of departure.
func (m *Manager) AwardWalkover(roomID model.RoomID, leaverSeat int) (model.MatchResult, bool) {
	room, ok := m.rooms[roomID]
	if !ok || !room.IsActive() {
		return model.MatchResult{}, false
	}

	m.ClearTurnTimer(roomID)
	m.rounds.Clear(roomID)

	winner := model.Opponent(leaverSeat)
	room.Scores = [2]int{}
	room.Scores[winner] = m.cfg.WinsNeeded
	room.Winner = winner
	room.Status = model.RoomStatusFinished
	room.EndedAt = m.clock.Now()

	final := room.Scores
	m.transport.Send(room.Players[winner].ConnID, model.NewOutbound(model.MsgOpponentDisconnected, model.OpponentDisconnectedPayload{
		Walkover:    true,
		FinalScores: &final,
	}))

	result := m.result(room, true)
	m.recorder.RecordMatchAsync(result)

	m.logger.Info("walkover awarded",
		slog.String("room_id", string(roomID)),
		slog.String("winner", string(room.Players[winner].Identity.ID)),
		slog.String("leaver", string(room.Players[leaverSeat].Identity.ID)))

	m.Delete(roomID)
	return result, true
}

// NotifyOpponentDisconnected tells the seat opposite leaverSeat that its
// opponent dropped and may come back within the window
func (m *Manager) NotifyOpponentDisconnected(roomID model.RoomID, leaverSeat int, window time.Duration) {
	room, ok := m.rooms[roomID]
	if !ok {
		return
	}
	opp := room.Players[model.Opponent(leaverSeat)]
	m.transport.Send(opp.ConnID, model.NewOutbound(model.MsgOpponentDisconnected, model.OpponentDisconnectedPayload{
		Walkover:         false,
		ReconnectSeconds: int(window.Seconds()),
	}))
}

// ScheduleDeletion deletes the room after d, replacing any earlier schedule
func (m *Manager) ScheduleDeletion(roomID model.RoomID, d time.Duration) {
	if _, ok := m.rooms[roomID]; !ok {
		return
	}
	m.teardowns.Start(roomID, d, func() {
		m.Delete(roomID)
	})
}

// CancelTeardown stops a scheduled deletion. Returns false if none was pending.
func (m *Manager) CancelTeardown(roomID model.RoomID) bool {
	return m.teardowns.Clear(roomID)
}

// MarkRematchStarting flags a finished room as replaced by a new one
func (m *Manager) MarkRematchStarting(roomID model.RoomID) {
	if room, ok := m.rooms[roomID]; ok {
		room.Status = model.RoomStatusRematchStarting
	}
}

// Delete removes a room along with its timers and bindings.
// Returns false if the room was already gone.
func (m *Manager) Delete(roomID model.RoomID) bool {
	room, ok := m.rooms[roomID]
	if !ok {
		return false
	}

	m.turns.Clear(roomID)
	m.rounds.Clear(roomID)
	m.teardowns.Clear(roomID)

	delete(m.rooms, roomID)
	room.Status = model.RoomStatusAbandoned

	m.sessions.ClearRoom(roomID)
	for _, p := range room.Players {
		m.transport.LeaveRoom(p.ConnID, roomID)
	}

	m.logger.Info("room deleted", slog.String("room_id", string(roomID)))

	m.onDeleted(roomID)
	m.onChange()
	return true
}

// Rebind moves a reconnecting user's seat onto their new connection
func (m *Manager) Rebind(roomID model.RoomID, userID model.UserID, connID model.ConnID) (int, error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return -1, model.ErrRoomNotFound
	}
	seat := room.SeatForUser(userID)
	if seat < 0 {
		return -1, model.ErrNotInRoom
	}

	old := room.Players[seat].ConnID
	m.transport.LeaveRoom(old, roomID)
	room.Players[seat].ConnID = connID
	m.transport.JoinRoom(connID, roomID)

	m.transport.BroadcastRoom(roomID, model.NewOutbound(model.MsgReconnected, model.ReconnectedPayload{
		RoomID: roomID,
		UserID: userID,
	}))
	return seat, nil
}

// Resync sends a reconnecting player the opening message and the current state
func (m *Manager) Resync(roomID model.RoomID, connID model.ConnID) error {
	room, ok := m.rooms[roomID]
	if !ok {
		return model.ErrRoomNotFound
	}
	seat := room.Seat(connID)
	if seat < 0 {
		return model.ErrNotInRoom
	}
	engine, err := m.engines.Get(room.GameType)
	if err != nil {
		return err
	}

	m.transport.Send(connID, m.gameStart(room, engine, seat))
	m.transport.Send(connID, m.gameState(room, engine))
	return nil
}

// PlayingCounts returns the number of players in active rooms per game type
func (m *Manager) PlayingCounts() map[model.GameType]int {
	counts := make(map[model.GameType]int)
	for _, room := range m.rooms {
		if room.IsActive() {
			counts[room.GameType] += len(room.Players)
		}
	}
	return counts
}

func (m *Manager) gameStart(room *model.Room, engine rules.Engine, seat int) model.Outbound {
	symbols := engine.Symbols()
	return model.NewOutbound(model.MsgGameStart, model.GameStartPayload{
		RoomID:       room.ID,
		GameType:     room.GameType,
		PlayerNumber: seat,
		Opponent:     room.Players[model.Opponent(seat)].DisplayName,
		Symbol:       symbols[seat],
		TotalRounds:  m.cfg.Rounds,
	})
}

func (m *Manager) gameState(room *model.Room, engine rules.Engine) model.Outbound {
	remaining := m.turnRemaining(room)
	return model.NewOutbound(model.MsgGameState, model.GameStatePayload{
		RoomID:          room.ID,
		GameType:        room.GameType,
		Round:           room.Round + 1,
		Scores:          room.Scores,
		CurrentPlayer:   room.CurrentPlayer,
		TurnSeconds:     int((remaining + time.Second - 1) / time.Second),
		TurnRemainingMs: remaining.Milliseconds(),
		Board:           engine.View(room.Board),
	})
}

func (m *Manager) result(room *model.Room, walkover bool) model.MatchResult {
	return model.MatchResult{
		RoomID:   room.ID,
		GameType: room.GameType,
		Players:  [2]model.Identity{room.Players[0].Identity, room.Players[1].Identity},
		Names:    [2]string{room.Players[0].DisplayName, room.Players[1].DisplayName},
		Scores:   room.Scores,
		Winner:   room.Winner,
		Duration: room.Duration(m.clock.Now()),
		Walkover: walkover,
		EndedAt:  room.EndedAt,
	}
}
