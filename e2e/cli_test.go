package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/blitzarena/internal/api"
	"github.com/mcoot/blitzarena/internal/factory"
	"github.com/mcoot/blitzarena/internal/services/lobby"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath   string
	serverURL    string
	identityFile string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(projectRoot, "bin", "blitz-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/blitz")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath:   binaryPath,
		serverURL:    serverURL,
		identityFile: filepath.Join(t.TempDir(), "identity"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--identity-file", r.identityFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "BLITZ_USER=")
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

// fastLobbyConfig keeps the real pacing rules but shortens the pauses
func fastLobbyConfig() lobby.Config {
	cfg := lobby.DefaultConfig()
	cfg.Room.RoundDelay = 20 * time.Millisecond
	cfg.Room.TeardownDelay = 200 * time.Millisecond
	return cfg
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, listener.Close())
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Create application
	app, err := factory.New(context.Background(), factory.Config{
		Logger:      logger,
		LobbyConfig: fastLobbyConfig(),
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		LobbyController: app.LobbyController,
		StatsService:    app.StatsService,
		IdentityService: app.IdentityService,
		WebSocket:       app.WebSocket,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", router)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = host
	serverConfig.Port = port
	server := api.NewServer(mux, serverConfig, logger)
	server.OnShutdown(app.Hub.Shutdown)

	// Start server
	go func() {
		if err := server.Start(); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + server.Addr()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			_ = server.Shutdown(context.Background())
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type healthResponse struct {
	Status string `json:"status"`
}

type guestResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

type leaderboardResponse struct {
	GameType string `json:"game_type"`
	Entries  []struct {
		Rank   int    `json:"rank"`
		UserID string `json:"user_id"`
		Points int    `json:"points"`
		Wins   int    `json:"wins"`
		Losses int    `json:"losses"`
	} `json:"entries"`
}

type statsResponse struct {
	UserID  string `json:"user_id"`
	IsGuest bool   `json:"is_guest"`
	Games   []struct {
		GameType string `json:"game_type"`
		Points   int    `json:"points"`
	} `json:"games"`
	Total struct {
		GamesPlayed int `json:"games_played"`
		Points      int `json:"points"`
	} `json:"total"`
}

type matchesResponse struct {
	UserID  string `json:"user_id"`
	Matches []struct {
		Player1ID string  `json:"player1_id"`
		Player2ID string  `json:"player2_id"`
		WinnerID  *string `json:"winner_id"`
		Score1    int     `json:"score1"`
		Score2    int     `json:"score2"`
	} `json:"matches"`
}

type countsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_GuestIdentity(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Issue a guest, which is saved to the identity file
	output, err := cli.run("player", "guest", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)

	var guest guestResponse
	require.NoError(t, json.Unmarshal([]byte(output), &guest))
	assert.Equal(t, "Alice", guest.DisplayName)
	assert.True(t, guest.IsGuest)
	assert.True(t, strings.HasPrefix(guest.UserID, "guest_"))

	// Stats default to the saved identity; guests never have any
	output, err = cli.run("player", "stats")
	require.NoError(t, err, "output: %s", output)

	var stats statsResponse
	require.NoError(t, json.Unmarshal([]byte(output), &stats))
	assert.Equal(t, guest.UserID, stats.UserID)
	assert.True(t, stats.IsGuest)
	assert.Empty(t, stats.Games)
}

func TestCLI_LeaderboardStartsEmpty(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("leaderboard")
	require.NoError(t, err, "output: %s", output)

	var board leaderboardResponse
	require.NoError(t, json.Unmarshal([]byte(output), &board))
	assert.Equal(t, "all", board.GameType)
	assert.Empty(t, board.Entries)
}

func TestCLI_PlayJoinsQueue(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("--user", "carol", "play", "memoryMatch", "--until", "queue_joined")
	require.NoError(t, err, "output: %s", output)

	var msg struct {
		Type string `json:"type"`
		Data struct {
			GameType string `json:"gameType"`
			Position int    `json:"position"`
		} `json:"data"`
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &msg))
	assert.Equal(t, "queue_joined", msg.Type)
	assert.Equal(t, "memoryMatch", msg.Data.GameType)
	assert.Equal(t, 1, msg.Data.Position)

	// Closing the connection leaves the queue
	require.Eventually(t, func() bool {
		output, err := cli.run("counts")
		if err != nil {
			return false
		}
		var counts countsResponse
		return json.Unmarshal([]byte(output), &counts) == nil && counts.Total == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Stats without a user
	output, err := cli.run("player", "stats")
	assert.Error(t, err)
	assert.Contains(t, output, "no user given")

	// Unknown game type
	output, err = cli.run("leaderboard", "chess")
	assert.Error(t, err)
	assert.Contains(t, output, "UNKNOWN_GAME_TYPE")

	// Stats for a game never played
	output, err = cli.run("player", "stats", "alice", "--game", "memoryMatch")
	assert.Error(t, err)
	assert.Contains(t, output, "STATS_NOT_FOUND")
}
