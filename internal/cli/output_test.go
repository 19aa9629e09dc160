package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("json", &buf).Print(Counts{Counts: map[string]int{"memoryMatch": 2}, Total: 2})

	var got Counts
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Total)
}

func TestPrintLeaderboardText(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("text", &buf).Print(Leaderboard{
		GameType: "speedTicTacToe",
		Entries: []LeaderboardEntry{
			{Rank: 1, UserID: "alice", Points: 4, Wins: 2},
			{Rank: 2, UserID: "bob", Points: 1, Draws: 1},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Leaderboard: speedTicTacToe")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "4 pts  2W 0L 0D")
	assert.Contains(t, out, " 2. bob")
}

func TestPrintEmptyLeaderboardText(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("text", &buf).Print(Leaderboard{GameType: "all"})
	assert.Contains(t, buf.String(), "(no entries)")
}

func TestPrintCountsSortedText(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("text", &buf).Print(Counts{
		Counts: map[string]int{"speedTicTacToe": 1, "memoryMatch": 3, "nineMensMorris": 0},
		Total:  4,
	})

	assert.Equal(t,
		"memoryMatch      3\nnineMensMorris   0\nspeedTicTacToe   1\ntotal            4\n",
		buf.String())
}

func TestPrintMatchesText(t *testing.T) {
	winner := "alice"
	var buf bytes.Buffer
	NewOutputTo("text", &buf).Print(Matches{
		UserID: "bob",
		Matches: []MatchRecord{
			{Player1ID: "alice", Player2ID: "bob", WinnerID: &winner, Score1: 3, Score2: 0, Walkover: true,
				PlayedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
			{Player1ID: "bob", Player2ID: "carol", Score1: 2, Score2: 2},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Recent matches for bob (2):")
	assert.Contains(t, out, "2026-01-01 12:00:00  alice 3-0 bob  won by alice (walkover)")
	assert.Contains(t, out, "bob 2-2 carol  draw")
}

func TestPrintGuestStatsText(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("text", &buf).Print(PlayerStats{UserID: "guest_1_abc", IsGuest: true})
	assert.Contains(t, buf.String(), "Guest players have no recorded stats")
}

func TestPrintUnknownTypeFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	NewOutputTo("text", &buf).Print(map[string]int{"x": 1})
	assert.JSONEq(t, `{"x":1}`, buf.String())
}
