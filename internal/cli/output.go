package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// NewOutputTo creates an Output formatter writing to w
func NewOutputTo(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case Guest:
		o.printGuest(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case PlayerStats:
		o.printPlayerStats(v)
	case GameStats:
		o.printGameStats(v)
	case Matches:
		o.printMatches(v)
	case Counts:
		o.printCounts(v)
	case Connections:
		o.printConnections(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// Guest response type (matches API)
type Guest struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Leaderboard response type
type Leaderboard struct {
	GameType string             `json:"game_type"`
	Entries  []LeaderboardEntry `json:"entries"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	Points      int    `json:"points"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
	GamesPlayed int    `json:"games_played"`
}

// GameStats response type for one game type
type GameStats struct {
	UserID      string `json:"user_id"`
	GameType    string `json:"game_type"`
	GamesPlayed int    `json:"games_played"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
	RoundsWon   int    `json:"rounds_won"`
	RoundsLost  int    `json:"rounds_lost"`
	Points      int    `json:"points"`
}

// PlayerStats response type
type PlayerStats struct {
	UserID  string      `json:"user_id"`
	IsGuest bool        `json:"is_guest"`
	Games   []GameStats `json:"games"`
	Total   StatsTotal  `json:"total"`
}

// StatsTotal response type
type StatsTotal struct {
	GamesPlayed int `json:"games_played"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Draws       int `json:"draws"`
	Points      int `json:"points"`
}

// Matches response type
type Matches struct {
	UserID  string        `json:"user_id"`
	Matches []MatchRecord `json:"matches"`
}

// MatchRecord response type
type MatchRecord struct {
	GameType        string    `json:"game_type"`
	Player1ID       string    `json:"player1_id"`
	Player2ID       string    `json:"player2_id"`
	WinnerID        *string   `json:"winner_id"`
	Score1          int       `json:"score1"`
	Score2          int       `json:"score2"`
	DurationSeconds int       `json:"duration_seconds"`
	Walkover        bool      `json:"walkover,omitempty"`
	PlayedAt        time.Time `json:"played_at"`
}

// Counts response type
type Counts struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// Connections response type
type Connections struct {
	Sessions          int `json:"sessions"`
	Connected         int `json:"connected"`
	PendingReconnects int `json:"pending_reconnects"`
	InRooms           int `json:"in_rooms"`
	Rooms             int `json:"rooms"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}

func (o *Output) printGuest(g Guest) {
	fmt.Fprintf(o.w, "Guest: %s (%s)\n", g.DisplayName, g.UserID)
}

func (o *Output) printLeaderboard(l Leaderboard) {
	fmt.Fprintf(o.w, "Leaderboard: %s\n", l.GameType)
	if len(l.Entries) == 0 {
		fmt.Fprintln(o.w, "  (no entries)")
		return
	}
	for _, e := range l.Entries {
		fmt.Fprintf(o.w, "  %2d. %-24s %4d pts  %dW %dL %dD\n",
			e.Rank, e.UserID, e.Points, e.Wins, e.Losses, e.Draws)
	}
}

func (o *Output) printPlayerStats(p PlayerStats) {
	fmt.Fprintf(o.w, "Player: %s\n", p.UserID)
	if p.IsGuest {
		fmt.Fprintln(o.w, "Guest players have no recorded stats")
		return
	}
	for _, g := range p.Games {
		fmt.Fprintf(o.w, "  %-16s %4d pts  %dW %dL %dD (%d played)\n",
			g.GameType, g.Points, g.Wins, g.Losses, g.Draws, g.GamesPlayed)
	}
	fmt.Fprintf(o.w, "Total: %d pts  %dW %dL %dD (%d played)\n",
		p.Total.Points, p.Total.Wins, p.Total.Losses, p.Total.Draws, p.Total.GamesPlayed)
}

func (o *Output) printGameStats(g GameStats) {
	fmt.Fprintf(o.w, "Player: %s\n", g.UserID)
	fmt.Fprintf(o.w, "Game: %s\n", g.GameType)
	fmt.Fprintf(o.w, "Points: %d\n", g.Points)
	fmt.Fprintf(o.w, "Record: %dW %dL %dD (%d played)\n", g.Wins, g.Losses, g.Draws, g.GamesPlayed)
	fmt.Fprintf(o.w, "Rounds: %d won, %d lost\n", g.RoundsWon, g.RoundsLost)
}

func (o *Output) printMatches(m Matches) {
	fmt.Fprintf(o.w, "Recent matches for %s (%d):\n", m.UserID, len(m.Matches))
	for _, r := range m.Matches {
		result := "draw"
		if r.WinnerID != nil {
			result = "won by " + *r.WinnerID
		}
		if r.Walkover {
			result += " (walkover)"
		}
		fmt.Fprintf(o.w, "  %s  %s %d-%d %s  %s\n",
			r.PlayedAt.Format(time.DateTime), r.Player1ID, r.Score1, r.Score2, r.Player2ID, result)
	}
}

func (o *Output) printCounts(c Counts) {
	games := make([]string, 0, len(c.Counts))
	for g := range c.Counts {
		games = append(games, g)
	}
	sort.Strings(games)

	for _, g := range games {
		fmt.Fprintf(o.w, "%-16s %d\n", g, c.Counts[g])
	}
	fmt.Fprintf(o.w, "%-16s %d\n", "total", c.Total)
}

func (o *Output) printConnections(c Connections) {
	fmt.Fprintf(o.w, "Sessions: %d\n", c.Sessions)
	fmt.Fprintf(o.w, "Connected: %d\n", c.Connected)
	fmt.Fprintf(o.w, "Awaiting reconnect: %d\n", c.PendingReconnects)
	fmt.Fprintf(o.w, "In rooms: %d\n", c.InRooms)
	fmt.Fprintf(o.w, "Rooms: %d\n", c.Rooms)
}
