package machine

import (
	"fmt"

	"github.com/mcoot/iq180/internal/model"
)

// Phase is the top level of the hierarchical game state
type Phase string

const (
	PhaseIdle    Phase = "IDLE"
	PhaseReady   Phase = "READY"
	PhasePlaying Phase = "PLAYING"
	PhaseEnd     Phase = "END"
)

// RoundStage is the ROUND sub-state of PLAYING
type RoundStage string

const (
	RoundStart  RoundStage = "START"  // Round entered, no turn taken yet
	RoundActive RoundStage = "ACTIVE" // At least one turn of the round has begun
)

// TurnStage is the TURN sub-state of PLAYING
type TurnStage string

const (
	TurnIdle   TurnStage = "IDLE"
	TurnActive TurnStage = "ACTIVE"
)

// Session is the authoritative state of a game in progress
type Session struct {
	// Participants is the immutable roster snapshotted at START, in turn order
	Participants []model.Participant
	Solo         bool

	Round      int // 1-indexed
	RoundStage RoundStage
	TurnStage  TurnStage

	// Holder is the participant whose turn is active, empty when TurnStage is idle
	Holder model.PlayerID
	// Turn counts turns started over the whole session and identifies the latest one
	Turn int
	// TurnsThisRound counts turns started in the current round
	TurnsThisRound int

	// EndReason is set once the session enters END
	EndReason model.EndReason
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = make([]model.Participant, len(s.Participants))
	copy(c.Participants, s.Participants)
	return &c
}

// IsParticipant reports whether id is part of the session
func (s *Session) IsParticipant(id model.PlayerID) bool {
	return s.indexOf(id) >= 0
}

// RoundComplete reports whether every participant has taken a turn this round
func (s *Session) RoundComplete() bool {
	return s.TurnsThisRound >= len(s.Participants)
}

func (s *Session) indexOf(id model.PlayerID) int {
	for i, p := range s.Participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// nextHolder picks the holder of the next turn round-robin over the roster
func (s *Session) nextHolder() model.PlayerID {
	return s.Participants[s.Turn%len(s.Participants)].ID
}

// State is the full game state. Session is non-nil only in PLAYING and END.
type State struct {
	Phase   Phase
	Session *Session
}

// Idle is the initial state
func Idle() State {
	return State{Phase: PhaseIdle}
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	return State{Phase: s.Phase, Session: s.Session.clone()}
}

// String renders the state path, e.g. PLAYING.ROUND(2).ACTIVE.TURN(ACTIVE)
func (s State) String() string {
	if s.Phase != PhasePlaying || s.Session == nil {
		return string(s.Phase)
	}
	return fmt.Sprintf("%s.ROUND(%d).%s.TURN(%s)",
		s.Phase, s.Session.Round, s.Session.RoundStage, s.Session.TurnStage)
}

// Matches reports whether the state is PLAYING with the given sub-states
func (s State) Matches(round RoundStage, turn TurnStage) bool {
	return s.Phase == PhasePlaying && s.Session != nil &&
		s.Session.RoundStage == round && s.Session.TurnStage == turn
}
