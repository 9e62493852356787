package factory

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mcoot/iq180/internal/api"
	"github.com/mcoot/iq180/internal/dependencies/clock"
	"github.com/mcoot/iq180/internal/dependencies/random"
	"github.com/mcoot/iq180/internal/events"
	"github.com/mcoot/iq180/internal/services/conductor"
	"github.com/mcoot/iq180/internal/services/machine"
	"github.com/mcoot/iq180/internal/services/orchestrator"
	"github.com/mcoot/iq180/internal/services/registry"
	"github.com/mcoot/iq180/internal/transport/ws"
)

// App contains all wired application components
type App struct {
	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Core
	Bus          *events.Bus
	Registry     *registry.Registry
	Machine      *machine.Machine
	Orchestrator *orchestrator.Orchestrator
	Conductor    *conductor.Conductor

	// Transport
	Hub       *ws.Hub
	Websocket *ws.Handler
	Router    http.Handler

	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Conductor paces games (optional)
	// If zero value, defaults to conductor.DefaultConfig()
	Conductor conductor.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) *App {
	return newWithDependencies(clock.New(), random.New(), withDefaults(cfg), nil, nil)
}

func withDefaults(cfg Config) Config {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Conductor.Rounds == 0 {
		cfg.Conductor = conductor.DefaultConfig()
	}
	return cfg
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	regOpts []registry.Option,
	wsOpts []ws.Option,
) *App {
	logger := cfg.Logger

	bus := events.NewBus(clk, logger)
	reg := registry.New(clk, logger, regOpts...)
	m := machine.New()
	orch := orchestrator.New(bus, reg, m, logger)
	cond := conductor.New(bus, reg, clk, rnd, cfg.Conductor, logger)
	orch.Observe(cond.OnStep)

	hub := ws.NewHub(bus.Deliveries(), logger)
	wsHandler := ws.NewHandler(hub, bus, logger, wsOpts...)

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		Bus:       bus,
		Registry:  reg,
		Machine:   m,
		Websocket: wsHandler,
	})

	return &App{
		Clock:        clk,
		Random:       rnd,
		Bus:          bus,
		Registry:     reg,
		Machine:      m,
		Orchestrator: orch,
		Conductor:    cond,
		Hub:          hub,
		Websocket:    wsHandler,
		Router:       router,
		logger:       logger,
	}
}

// Start launches the hub, orchestrator and conductor workers
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)

	a.workers.Add(3)
	go func() {
		defer a.workers.Done()
		a.Hub.Run()
	}()
	go func() {
		defer a.workers.Done()
		a.Orchestrator.Run(ctx)
	}()
	go func() {
		defer a.workers.Done()
		a.Conductor.Run(ctx)
	}()
}

// Close stops the workers, disconnects every websocket client and waits for
// the workers to exit
func (a *App) Close() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	a.Orchestrator.Close()
	a.Conductor.Close()
	a.Hub.Close()
	a.Bus.Close()
	a.workers.Wait()
	a.logger.Info("application stopped")
}
