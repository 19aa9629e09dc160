package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/blitzarena/internal/api/request"
	"github.com/mcoot/blitzarena/internal/api/response"
	"github.com/mcoot/blitzarena/internal/model"
	"github.com/mcoot/blitzarena/internal/services/identity"
	"github.com/mcoot/blitzarena/internal/services/stats"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	identityService *identity.Service
	statsService    *stats.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(identityService *identity.Service, statsService *stats.Service) *PlayerHandler {
	return &PlayerHandler{
		identityService: identityService,
		statsService:    statsService,
	}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	// An empty body asks for a generated name
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	guest := h.identityService.IssueGuest(req.DisplayName)

	response.Created(w, response.GuestFromIdentity(guest))
}

// Stats handles GET /api/v1/players/{userId}/stats
func (h *PlayerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := model.UserID(mux.Vars(r)["userId"])

	st, err := h.statsService.PlayerStats(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerStatsFromModel(userID, st))
}

// GameStats handles GET /api/v1/players/{userId}/stats/{gameType}
func (h *PlayerHandler) GameStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	gameType, err := model.ParseGameType(vars["gameType"])
	if err != nil {
		WriteError(w, err)
		return
	}

	st, err := h.statsService.GameStats(r.Context(), model.UserID(vars["userId"]), gameType)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, st)
}

// Matches handles GET /api/v1/players/{userId}/matches
func (h *PlayerHandler) Matches(w http.ResponseWriter, r *http.Request) {
	userID := model.UserID(mux.Vars(r)["userId"])

	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	matches, err := h.statsService.RecentMatches(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	if matches == nil {
		matches = []model.MatchRecord{}
	}

	response.JSON(w, http.StatusOK, response.Matches{
		UserID:  string(userID),
		Matches: matches,
	})
}
