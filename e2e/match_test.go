package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/blitzarena/internal/model"
)

// wsPlayer is a scripted game client
type wsPlayer struct {
	t    *testing.T
	conn *websocket.Conn
	seat int
}

func dialPlayer(t *testing.T, serverURL string) *wsPlayer {
	t.Helper()

	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &wsPlayer{t: t, conn: conn, seat: -1}
}

func (p *wsPlayer) send(msgType model.MessageType, data any) error {
	return p.conn.WriteJSON(model.NewOutbound(msgType, data))
}

// next returns the next message that is not a heartbeat, acking pings on the way
func (p *wsPlayer) next() (model.Inbound, error) {
	for {
		_ = p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg model.Inbound
		if err := p.conn.ReadJSON(&msg); err != nil {
			return msg, err
		}
		if msg.Type == model.MsgHeartbeatPing {
			if err := p.send(model.MsgHeartbeatAck, nil); err != nil {
				return msg, err
			}
			continue
		}
		return msg, nil
	}
}

func (p *wsPlayer) waitFor(msgType model.MessageType) (model.Inbound, error) {
	for {
		msg, err := p.next()
		if err != nil {
			return msg, err
		}
		if msg.Type == msgType {
			return msg, nil
		}
	}
}

// playTicTacToe plays until match_end. The round opener takes the top row
// and the responder the middle row, so every round goes to its opener.
func (p *wsPlayer) playTicTacToe() (model.MatchEndPayload, error) {
	var (
		roomID model.RoomID
		round  int
		moves  []int
	)

	for {
		msg, err := p.next()
		if err != nil {
			return model.MatchEndPayload{}, err
		}

		switch msg.Type {
		case model.MsgGameStart:
			var start model.GameStartPayload
			if err := msg.Decode(&start); err != nil {
				return model.MatchEndPayload{}, err
			}
			roomID, p.seat = start.RoomID, start.PlayerNumber

		case model.MsgGameState:
			var state model.GameStatePayload
			if err := msg.Decode(&state); err != nil {
				return model.MatchEndPayload{}, err
			}
			if state.Round != round {
				round = state.Round
				moves = []int{3, 4, 5}
				if (round-1)%2 == p.seat {
					moves = []int{0, 1, 2}
				}
			}
			if state.CurrentPlayer != p.seat || len(moves) == 0 {
				continue
			}
			move := json.RawMessage(fmt.Sprintf(`{"position":%d}`, moves[0]))
			moves = moves[1:]
			if err := p.send(model.MsgGameMove, model.GameMovePayload{RoomID: roomID, Move: move}); err != nil {
				return model.MatchEndPayload{}, err
			}

		case model.MsgInvalidMove, model.MsgError:
			return model.MatchEndPayload{}, fmt.Errorf("server rejected play: %s", msg.Data)

		case model.MsgMatchEnd:
			var end model.MatchEndPayload
			err := msg.Decode(&end)
			return end, err
		}
	}
}

func TestMatch_FullSpeedTicTacToe(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := dialPlayer(t, ts.addr)
	bob := dialPlayer(t, ts.addr)

	// Alice waits longer, so she takes seat 0
	require.NoError(t, alice.send(model.MsgJoinQueue, model.JoinQueuePayload{
		GameType: string(model.GameTicTacToe), UserID: "alice", PlayerName: "Alice",
	}))
	_, err := alice.waitFor(model.MsgQueueJoined)
	require.NoError(t, err)

	require.NoError(t, bob.send(model.MsgJoinQueue, model.JoinQueuePayload{
		GameType: string(model.GameTicTacToe), UserID: "bob", PlayerName: "Bob",
	}))

	type outcome struct {
		end model.MatchEndPayload
		err error
	}
	results := make(chan outcome, 2)
	for _, p := range []*wsPlayer{alice, bob} {
		go func(p *wsPlayer) {
			end, err := p.playTicTacToe()
			results <- outcome{end, err}
		}(p)
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			require.NoError(t, r.err)
			assert.Equal(t, 0, r.end.Winner)
			assert.Equal(t, [2]int{3, 2}, r.end.FinalScores)
		case <-time.After(20 * time.Second):
			t.Fatal("match did not finish")
		}
	}
	assert.Equal(t, 0, alice.seat)
	assert.Equal(t, 1, bob.seat)

	// Stats are written asynchronously and then show up through the CLI
	cli := newCLIRunner(t, ts.addr)

	var board leaderboardResponse
	require.Eventually(t, func() bool {
		output, err := cli.run("leaderboard", "speedTicTacToe")
		if err != nil {
			return false
		}
		return json.Unmarshal([]byte(output), &board) == nil && len(board.Entries) == 2
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "alice", board.Entries[0].UserID)
	assert.Equal(t, model.PointsWin, board.Entries[0].Points)
	assert.Equal(t, "bob", board.Entries[1].UserID)
	assert.Equal(t, 1, board.Entries[1].Losses)

	output, err := cli.run("player", "matches", "bob")
	require.NoError(t, err, "output: %s", output)

	var matches matchesResponse
	require.NoError(t, json.Unmarshal([]byte(output), &matches))
	require.Len(t, matches.Matches, 1)
	require.NotNil(t, matches.Matches[0].WinnerID)
	assert.Equal(t, "alice", *matches.Matches[0].WinnerID)
	assert.Equal(t, 3, matches.Matches[0].Score1)
	assert.Equal(t, 2, matches.Matches[0].Score2)
}

func TestMatch_QuitAwardsWalkover(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	alice := dialPlayer(t, ts.addr)
	bob := dialPlayer(t, ts.addr)

	require.NoError(t, alice.send(model.MsgJoinQueue, model.JoinQueuePayload{
		GameType: string(model.GameMorris), UserID: "alice",
	}))
	_, err := alice.waitFor(model.MsgQueueJoined)
	require.NoError(t, err)
	require.NoError(t, bob.send(model.MsgJoinQueue, model.JoinQueuePayload{
		GameType: string(model.GameMorris), UserID: "bob",
	}))

	_, err = alice.waitFor(model.MsgGameStart)
	require.NoError(t, err)
	_, err = bob.waitFor(model.MsgGameStart)
	require.NoError(t, err)

	require.NoError(t, bob.send(model.MsgQuit, nil))

	msg, err := alice.waitFor(model.MsgOpponentDisconnected)
	require.NoError(t, err)
	var payload model.OpponentDisconnectedPayload
	require.NoError(t, msg.Decode(&payload))
	assert.True(t, payload.Walkover)

	require.Eventually(t, func() bool {
		board, err := ts.app.StatsService.Leaderboard(context.Background(), model.GameMorris, 10)
		return err == nil && len(board) == 2 && board[0].UserID == "alice"
	}, 5*time.Second, 50*time.Millisecond)
}
