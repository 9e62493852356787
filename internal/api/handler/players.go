package handler

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/iq180/internal/api/response"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/services/registry"
)

// PlayerHandler serves read-only views of the player registry
type PlayerHandler struct {
	registry *registry.Registry
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(reg *registry.Registry) *PlayerHandler {
	return &PlayerHandler{registry: reg}
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players := h.registry.Online()
	response.JSON(w, http.StatusOK, response.PlayerListFromModel(players, h.registry.Ready()))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	player, ok := h.registry.Get(id)
	if !ok {
		WriteError(w, fmt.Errorf("get %s: %w", id, model.ErrUnknownPlayer))
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}
