package machine

import "sync"

// Step records one applied transition
type Step struct {
	From    State
	To      State
	Event   Event
	Effects []Effect
}

// Machine applies events one at a time to a single game state. It holds at
// most one session; entering END immediately resets to IDLE.
type Machine struct {
	mu    sync.Mutex
	state State
}

// New creates a Machine in the IDLE state
func New() *Machine {
	return &Machine{state: Idle()}
}

// Dispatch applies evt and returns the steps taken, including the automatic
// END -> IDLE step. A rejected event yields no steps.
func (m *Machine) Dispatch(evt Event) []Step {
	m.mu.Lock()
	defer m.mu.Unlock()

	var steps []Step
	next, effects, ok := Transition(m.state, evt)
	if !ok {
		return nil
	}
	steps = append(steps, Step{From: m.state.Clone(), To: next.Clone(), Event: evt, Effects: effects})
	m.state = next

	if m.state.Phase == PhaseEnd {
		idle, _, _ := Transition(m.state, reset{})
		steps = append(steps, Step{From: m.state.Clone(), To: idle, Event: reset{}})
		m.state = idle
	}
	return steps
}

// State returns a copy of the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}
