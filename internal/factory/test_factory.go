package factory

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mcoot/iq180/internal/dependencies/mocks"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/services/conductor"
	"github.com/mcoot/iq180/internal/services/registry"
	"github.com/mcoot/iq180/internal/testutil"
	"github.com/mcoot/iq180/internal/transport/ws"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Player ids are player-1, player-2, ... and websocket connections are
// conn-1, conn-2, ... in order of creation.
func NewTestApp(pacing conductor.Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	var players, conns atomic.Int64
	app := newWithDependencies(mockClock, mockRandom,
		withDefaults(Config{Logger: testutil.NopLogger(), Conductor: pacing}),
		[]registry.Option{registry.WithIDGenerator(func() model.PlayerID {
			return model.PlayerID(fmt.Sprintf("player-%d", players.Add(1)))
		})},
		[]ws.Option{ws.WithConnIDGenerator(func() model.ConnID {
			return model.ConnID(fmt.Sprintf("conn-%d", conns.Add(1)))
		})},
	)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
