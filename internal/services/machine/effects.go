package machine

import "github.com/mcoot/iq180/internal/model"

// Effect describes an observable consequence of a transition. Effects are
// plain data; interpreting them (broadcasting, scheduling) is up to the caller.
type Effect interface {
	effectName() string
}

// GameReadyChanged is produced on IDLE <-> READY
type GameReadyChanged struct {
	Ready bool
}

// GameStarted is produced when a session is created
type GameStarted struct {
	Participants []model.Participant
	Solo         bool
}

// RoundStarted is produced when a round is entered
type RoundStarted struct {
	Round int
}

// TurnStarted is produced when a participant's turn begins
type TurnStarted struct {
	Round  int
	Turn   int
	Holder model.PlayerID
}

// TurnEnded is produced when the active turn is resolved
type TurnEnded struct {
	Round         int
	Turn          int
	Holder        model.PlayerID
	Winner        *model.PlayerID
	Participants  []model.Participant
	RoundComplete bool
}

// RoundEnded is produced when the session moves past a round
type RoundEnded struct {
	Round        int
	Participants []model.Participant
}

// GameEnded is produced on entering END, with the frozen scores
type GameEnded struct {
	Participants []model.Participant
	Reason       model.EndReason
	Rounds       int
}

func (GameReadyChanged) effectName() string { return "GAME_READY_CHANGED" }
func (GameStarted) effectName() string      { return "GAME_STARTED" }
func (RoundStarted) effectName() string     { return "ROUND_STARTED" }
func (TurnStarted) effectName() string      { return "TURN_STARTED" }
func (TurnEnded) effectName() string        { return "TURN_ENDED" }
func (RoundEnded) effectName() string       { return "ROUND_ENDED" }
func (GameEnded) effectName() string        { return "GAME_ENDED" }

// EffectName returns the name of an effect, for logging
func EffectName(e Effect) string {
	return e.effectName()
}
