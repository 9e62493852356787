package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/iq180/internal/api/request"
	"github.com/mcoot/iq180/internal/api/response"
	"github.com/mcoot/iq180/internal/events"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/services/machine"
	"github.com/mcoot/iq180/internal/services/registry"
)

// GameHandler serves the game state and lets operators stop a game
type GameHandler struct {
	machine  *machine.Machine
	registry *registry.Registry
	bus      *events.Bus
	logger   *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(m *machine.Machine, reg *registry.Registry, bus *events.Bus, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		machine:  m,
		registry: reg,
		bus:      bus,
		logger:   logger,
	}
}

// Get handles GET /api/v1/game
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	state := h.machine.State()
	resp := response.GameStateFromModel(state, func(id model.PlayerID) bool {
		_, ok := h.registry.Get(id)
		return ok
	})
	response.JSON(w, http.StatusOK, resp)
}

// Abort handles DELETE /api/v1/game
// The abort is applied asynchronously by the orchestrator
func (h *GameHandler) Abort(w http.ResponseWriter, r *http.Request) {
	var req request.AbortGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}
	switch req.Reason {
	case "":
		req.Reason = model.EndReasonAborted
	case model.EndReasonAborted, model.EndReasonCompleted:
	default:
		WriteError(w, NewInvalidRequestError("Unknown reason "+string(req.Reason)))
		return
	}

	if h.machine.State().Phase != machine.PhasePlaying {
		WriteError(w, model.ErrNoGameInProgress)
		return
	}

	if err := h.bus.PublishSystem(model.InAbort, model.AbortPayload{Reason: req.Reason}); err != nil {
		h.logger.Error("failed to publish abort", slog.Any("error", err))
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Health handles GET /api/v1/health
func Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
