package handler

import (
	"net/http"

	"github.com/mcoot/blitzarena/internal/api/response"
	"github.com/mcoot/blitzarena/internal/services/lobby"
)

// LobbyHandler exposes live session state
type LobbyHandler struct {
	lobbyController *lobby.Controller
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobbyController *lobby.Controller) *LobbyHandler {
	return &LobbyHandler{
		lobbyController: lobbyController,
	}
}

// Counts handles GET /api/v1/counts
func (h *LobbyHandler) Counts(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.CountsFromModel(h.lobbyController.PlayerCounts()))
}

// Connections handles GET /api/v1/connections
func (h *LobbyHandler) Connections(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Connections{
		Stats: h.lobbyController.ConnectionStats(),
		Rooms: h.lobbyController.RoomCount(),
	})
}
