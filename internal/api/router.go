package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/blitzarena/internal/api/handler"
	"github.com/mcoot/blitzarena/internal/api/middleware"
	"github.com/mcoot/blitzarena/internal/services/identity"
	"github.com/mcoot/blitzarena/internal/services/lobby"
	"github.com/mcoot/blitzarena/internal/services/stats"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	LobbyController *lobby.Controller
	StatsService    *stats.Service
	IdentityService *identity.Service
	// WebSocket serves the game connection endpoint; nil leaves it unrouted
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.IdentityService, cfg.StatsService)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.StatsService)
	lobbyHandler := handler.NewLobbyHandler(cfg.LobbyController)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/{userId}/stats", playerHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/players/{userId}/stats/{gameType}", playerHandler.GameStats).Methods(http.MethodGet)
	api.HandleFunc("/players/{userId}/matches", playerHandler.Matches).Methods(http.MethodGet)

	// Leaderboard routes
	api.HandleFunc("/leaderboard", leaderboardHandler.All).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard/{gameType}", leaderboardHandler.ForGame).Methods(http.MethodGet)

	// Live session state
	api.HandleFunc("/counts", lobbyHandler.Counts).Methods(http.MethodGet)
	api.HandleFunc("/connections", lobbyHandler.Connections).Methods(http.MethodGet)

	// Game connection
	if cfg.WebSocket != nil {
		api.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
