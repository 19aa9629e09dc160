package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/blitzarena/internal/api/response"
	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/stats"
)

// LeaderboardHandler handles leaderboard endpoints
type LeaderboardHandler struct {
	statsService *stats.Service
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(statsService *stats.Service) *LeaderboardHandler {
	return &LeaderboardHandler{
		statsService: statsService,
	}
}

// All handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) All(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.statsService.LeaderboardAll(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, leaderboard("all", entries))
}

// ForGame handles GET /api/v1/leaderboard/{gameType}
func (h *LeaderboardHandler) ForGame(w http.ResponseWriter, r *http.Request) {
	gameType, err := model.ParseGameType(mux.Vars(r)["gameType"])
	if err != nil {
		WriteError(w, err)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.statsService.Leaderboard(r.Context(), gameType, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, leaderboard(string(gameType), entries))
}

func leaderboard(gameType string, entries []model.LeaderboardEntry) response.Leaderboard {
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return response.Leaderboard{GameType: gameType, Entries: entries}
}

// parseLimit reads the optional limit query parameter; zero means the service default
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, NewInvalidRequestError("limit must be a non-negative integer")
	}
	return limit, nil
}
