package machine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/iq180/internal/model"
)

func TestMachineStartsIdle(t *testing.T) {
	m := New()
	assert.Equal(t, Idle(), m.State())
}

func TestMachineRejectedEventHasNoSteps(t *testing.T) {
	m := New()
	assert.Empty(t, m.Dispatch(Start{Participants: participants("a")}))
	assert.Equal(t, PhaseIdle, m.State().Phase)
}

func TestMachineAbortAutoResetsToIdle(t *testing.T) {
	m := New()
	require.Len(t, m.Dispatch(Start{Participants: participants("a", "b")}), 1)

	steps := m.Dispatch(Abort{Reason: model.EndReasonCompleted})

	require.Len(t, steps, 2)
	assert.Equal(t, PhasePlaying, steps[0].From.Phase)
	assert.Equal(t, PhaseEnd, steps[0].To.Phase)
	assert.IsType(t, GameEnded{}, steps[0].Effects[0])
	assert.Equal(t, PhaseEnd, steps[1].From.Phase)
	assert.Equal(t, PhaseIdle, steps[1].To.Phase)
	assert.Equal(t, Idle(), m.State())
}

func TestMachineStateIsACopy(t *testing.T) {
	m := New()
	m.Dispatch(Start{Participants: participants("a", "b")})

	s := m.State()
	s.Session.Participants[0].Score = 100

	assert.Equal(t, 0, m.State().Session.Participants[0].Score)
}

func TestMachineHoldsSingleSession(t *testing.T) {
	m := New()
	m.Dispatch(Start{Participants: participants("a", "b")})
	assert.Empty(t, m.Dispatch(Start{Participants: participants("c", "d")}))
	assert.Equal(t, participants("a", "b"), m.State().Session.Participants)
}

func TestMachineSerializesConcurrentDispatch(t *testing.T) {
	m := New()
	m.Dispatch(Start{Participants: participants("a", "b")})
	m.Dispatch(RoundBegin{})

	// Many concurrent resolutions of the same turn: exactly one may apply
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if steps := m.Dispatch(TurnResolved{Turn: 1, Winner: winner("b")}); len(steps) > 0 {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, m.State().Session.Participants[1].Score)
}
