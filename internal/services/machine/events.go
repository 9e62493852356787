package machine

import "github.com/mcoot/iq180/internal/model"

// Event is an input to the state machine
type Event interface {
	eventName() string
}

// Ready signals that more than one player is ready
type Ready struct{}

// NotReady signals that readiness was lost
type NotReady struct{}

// Start begins a session with the given participants
type Start struct {
	Participants []model.Participant
	Solo         bool
}

// RoundBegin starts the next turn of the current round
type RoundBegin struct{}

// TurnResolved ends the active turn. Turn identifies the turn being resolved;
// zero means whichever turn is active. Winner, if set, scores one point.
type TurnResolved struct {
	Turn   int
	Winner *model.PlayerID
}

// NextRound advances to the following round
type NextRound struct{}

// Abort ends the session
type Abort struct {
	Reason model.EndReason
}

// reset is the automatic END -> IDLE step
type reset struct{}

func (Ready) eventName() string        { return "READY" }
func (NotReady) eventName() string     { return "NOT_READY" }
func (Start) eventName() string        { return "START" }
func (RoundBegin) eventName() string   { return "ROUND_BEGIN" }
func (TurnResolved) eventName() string { return "TURN_RESOLVED" }
func (NextRound) eventName() string    { return "NEXT_ROUND" }
func (Abort) eventName() string        { return "ABORT" }
func (reset) eventName() string        { return "RESET" }

// EventName returns the wire-style name of an event, for logging
func EventName(e Event) string {
	return e.eventName()
}
