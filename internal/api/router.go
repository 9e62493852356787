package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/iq180/internal/api/handler"
	"github.com/mcoot/iq180/internal/api/middleware"
	"github.com/mcoot/iq180/internal/events"
	"github.com/mcoot/iq180/internal/services/machine"
	"github.com/mcoot/iq180/internal/services/registry"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger   *slog.Logger
	Bus      *events.Bus
	Registry *registry.Registry
	Machine  *machine.Machine

	// Websocket serves /ws. The route is omitted when nil.
	Websocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.Registry)
	gameHandler := handler.NewGameHandler(cfg.Machine, cfg.Registry, cfg.Bus, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)

	api.HandleFunc("/game", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/game", gameHandler.Abort).Methods(http.MethodDelete)

	if cfg.Websocket != nil {
		r.Handle("/ws", recoveryMiddleware(loggingMiddleware(cfg.Websocket))).Methods(http.MethodGet)
	}

	return r
}
