package machine

import "github.com/mcoot/iq180/internal/model"

// Transition is the pure transition function. It never mutates s. When the
// event is unknown in the current state or a guard fails, it returns s
// unchanged with ok=false and no effects.
func Transition(s State, evt Event) (next State, effects []Effect, ok bool) {
	switch s.Phase {
	case PhaseIdle:
		return fromIdle(s, evt)
	case PhaseReady:
		return fromReady(s, evt)
	case PhasePlaying:
		return fromPlaying(s, evt)
	case PhaseEnd:
		if _, isReset := evt.(reset); isReset {
			return Idle(), nil, true
		}
	}
	return s, nil, false
}

func fromIdle(s State, evt Event) (State, []Effect, bool) {
	switch e := evt.(type) {
	case Ready:
		return State{Phase: PhaseReady}, []Effect{GameReadyChanged{Ready: true}}, true
	case Start:
		return start(s, e)
	}
	return s, nil, false
}

func fromReady(s State, evt Event) (State, []Effect, bool) {
	switch e := evt.(type) {
	case NotReady:
		return Idle(), []Effect{GameReadyChanged{Ready: false}}, true
	case Start:
		return start(s, e)
	}
	return s, nil, false
}

func start(s State, e Start) (State, []Effect, bool) {
	if !startAllowed(e) {
		return s, nil, false
	}

	participants := make([]model.Participant, len(e.Participants))
	for i, p := range e.Participants {
		participants[i] = model.Participant{ID: p.ID, Score: 0}
	}
	session := &Session{
		Participants: participants,
		Solo:         e.Solo,
		Round:        1,
		RoundStage:   RoundStart,
		TurnStage:    TurnIdle,
	}
	effects := []Effect{
		GameStarted{Participants: copyParticipants(participants), Solo: e.Solo},
		RoundStarted{Round: 1},
	}
	return State{Phase: PhasePlaying, Session: session}, effects, true
}

// startAllowed guards START: more than one distinct participant, or exactly
// one for a solo game
func startAllowed(e Start) bool {
	seen := make(map[model.PlayerID]struct{}, len(e.Participants))
	for _, p := range e.Participants {
		if p.ID == "" {
			return false
		}
		if _, dup := seen[p.ID]; dup {
			return false
		}
		seen[p.ID] = struct{}{}
	}
	if e.Solo {
		return len(e.Participants) == 1
	}
	return len(e.Participants) > 1
}

func fromPlaying(s State, evt Event) (State, []Effect, bool) {
	session := s.Session
	if session == nil {
		return s, nil, false
	}

	switch e := evt.(type) {
	case RoundBegin:
		if session.TurnStage != TurnIdle || session.RoundComplete() {
			return s, nil, false
		}
		next := session.clone()
		next.Holder = next.nextHolder()
		next.Turn++
		next.TurnsThisRound++
		next.RoundStage = RoundActive
		next.TurnStage = TurnActive
		effects := []Effect{TurnStarted{Round: next.Round, Turn: next.Turn, Holder: next.Holder}}
		return State{Phase: PhasePlaying, Session: next}, effects, true

	case TurnResolved:
		if session.TurnStage != TurnActive {
			return s, nil, false
		}
		if e.Turn != 0 && e.Turn != session.Turn {
			return s, nil, false
		}
		next := session.clone()
		var winner *model.PlayerID
		if e.Winner != nil {
			if idx := next.indexOf(*e.Winner); idx >= 0 {
				next.Participants[idx].Score++
				id := *e.Winner
				winner = &id
			}
		}
		holder := next.Holder
		next.Holder = ""
		next.TurnStage = TurnIdle
		effects := []Effect{TurnEnded{
			Round:         next.Round,
			Turn:          next.Turn,
			Holder:        holder,
			Winner:        winner,
			Participants:  copyParticipants(next.Participants),
			RoundComplete: next.RoundComplete(),
		}}
		return State{Phase: PhasePlaying, Session: next}, effects, true

	case NextRound:
		if session.TurnStage != TurnIdle {
			return s, nil, false
		}
		next := session.clone()
		ended := next.Round
		next.Round++
		next.RoundStage = RoundStart
		next.TurnsThisRound = 0
		effects := []Effect{
			RoundEnded{Round: ended, Participants: copyParticipants(next.Participants)},
			RoundStarted{Round: next.Round},
		}
		return State{Phase: PhasePlaying, Session: next}, effects, true

	case Abort:
		next := session.clone()
		next.Holder = ""
		next.TurnStage = TurnIdle
		next.EndReason = e.Reason
		if next.EndReason == "" {
			next.EndReason = model.EndReasonAborted
		}
		effects := []Effect{GameEnded{
			Participants: copyParticipants(next.Participants),
			Reason:       next.EndReason,
			Rounds:       next.Round,
		}}
		return State{Phase: PhaseEnd, Session: next}, effects, true
	}
	return s, nil, false
}

func copyParticipants(participants []model.Participant) []model.Participant {
	c := make([]model.Participant, len(participants))
	copy(c, participants)
	return c
}
