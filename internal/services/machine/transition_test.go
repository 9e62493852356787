package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/iq180/internal/model"
)

func participants(ids ...model.PlayerID) []model.Participant {
	ps := make([]model.Participant, len(ids))
	for i, id := range ids {
		ps[i] = model.Participant{ID: id}
	}
	return ps
}

func winner(id model.PlayerID) *model.PlayerID {
	return &id
}

// apply runs evt and fails the test if it is rejected
func apply(t *testing.T, s State, evt Event) (State, []Effect) {
	t.Helper()
	next, effects, ok := Transition(s, evt)
	require.True(t, ok, "%s rejected in %s", EventName(evt), s)
	return next, effects
}

func playing(t *testing.T, ids ...model.PlayerID) State {
	t.Helper()
	s, _ := apply(t, Idle(), Start{Participants: participants(ids...)})
	return s
}

func TestIdleReadyToggle(t *testing.T) {
	s, effects := apply(t, Idle(), Ready{})
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, []Effect{GameReadyChanged{Ready: true}}, effects)

	s, effects = apply(t, s, NotReady{})
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, []Effect{GameReadyChanged{Ready: false}}, effects)
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{"not ready in idle", Idle(), NotReady{}},
		{"ready in ready", State{Phase: PhaseReady}, Ready{}},
		{"round begin in idle", Idle(), RoundBegin{}},
		{"turn resolved in ready", State{Phase: PhaseReady}, TurnResolved{}},
		{"next round in idle", Idle(), NextRound{}},
		{"abort in idle", Idle(), Abort{}},
		{"reset in idle", Idle(), reset{}},
		{"ready while playing", playing(t, "a", "b"), Ready{}},
		{"not ready while playing", playing(t, "a", "b"), NotReady{}},
		{"start while playing", playing(t, "a", "b"), Start{Participants: participants("c", "d")}},
		{"turn resolved with idle turn", playing(t, "a", "b"), TurnResolved{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effects, ok := Transition(tt.state, tt.event)
			assert.False(t, ok)
			assert.Empty(t, effects)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestStartGuards(t *testing.T) {
	tests := []struct {
		name  string
		start Start
		ok    bool
	}{
		{"no participants", Start{}, false},
		{"single participant", Start{Participants: participants("a")}, false},
		{"two participants", Start{Participants: participants("a", "b")}, true},
		{"duplicate participants", Start{Participants: participants("a", "a")}, false},
		{"empty id", Start{Participants: participants("a", "")}, false},
		{"solo with one", Start{Participants: participants("a"), Solo: true}, true},
		{"solo with two", Start{Participants: participants("a", "b"), Solo: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, from := range []State{Idle(), {Phase: PhaseReady}} {
				next, effects, ok := Transition(from, tt.start)
				assert.Equal(t, tt.ok, ok)
				if !tt.ok {
					assert.Equal(t, from, next)
					assert.Empty(t, effects)
				}
			}
		})
	}
}

func TestStartSnapshotsParticipantsWithZeroScore(t *testing.T) {
	input := []model.Participant{{ID: "a", Score: 7}, {ID: "b"}, {ID: "c"}}
	s, effects := apply(t, State{Phase: PhaseReady}, Start{Participants: input})

	assert.Equal(t, "PLAYING.ROUND(1).START.TURN(IDLE)", s.String())
	assert.True(t, s.Matches(RoundStart, TurnIdle))
	assert.Equal(t, []model.Participant{{ID: "a"}, {ID: "b"}, {ID: "c"}}, s.Session.Participants)
	assert.Equal(t, []Effect{
		GameStarted{Participants: []model.Participant{{ID: "a"}, {ID: "b"}, {ID: "c"}}},
		RoundStarted{Round: 1},
	}, effects)

	// The snapshot is independent of the caller's slice
	input[1].ID = "mutated"
	assert.Equal(t, model.PlayerID("b"), s.Session.Participants[1].ID)
}

func TestRoundBeginStartsTurnForNextHolder(t *testing.T) {
	s := playing(t, "a", "b")

	s, effects := apply(t, s, RoundBegin{})
	assert.True(t, s.Matches(RoundActive, TurnActive))
	assert.Equal(t, model.PlayerID("a"), s.Session.Holder)
	assert.Equal(t, []Effect{TurnStarted{Round: 1, Turn: 1, Holder: "a"}}, effects)

	// A second ROUND_BEGIN during an active turn is ignored
	_, _, ok := Transition(s, RoundBegin{})
	assert.False(t, ok)
}

func TestTurnResolvedIncrementsWinnerByExactlyOne(t *testing.T) {
	s := playing(t, "a", "b", "c")
	s, _ = apply(t, s, RoundBegin{})
	s, _ = apply(t, s, TurnResolved{Turn: 1, Winner: winner("b")})

	assert.Equal(t, []model.Participant{{ID: "a"}, {ID: "b", Score: 1}, {ID: "c"}}, s.Session.Participants)
	assert.True(t, s.Matches(RoundActive, TurnIdle))
	assert.Empty(t, s.Session.Holder)
}

func TestTurnResolvedEffects(t *testing.T) {
	s := playing(t, "a", "b")
	s, _ = apply(t, s, RoundBegin{})
	_, effects := apply(t, s, TurnResolved{Winner: winner("a")})

	require.Len(t, effects, 1)
	ended := effects[0].(TurnEnded)
	assert.Equal(t, 1, ended.Round)
	assert.Equal(t, 1, ended.Turn)
	assert.Equal(t, model.PlayerID("a"), ended.Holder)
	require.NotNil(t, ended.Winner)
	assert.Equal(t, model.PlayerID("a"), *ended.Winner)
	assert.False(t, ended.RoundComplete)
	assert.Equal(t, []model.Participant{{ID: "a", Score: 1}, {ID: "b"}}, ended.Participants)
}

func TestTurnResolvedWithoutWinnerKeepsScores(t *testing.T) {
	s := playing(t, "a", "b")
	s, _ = apply(t, s, RoundBegin{})
	s, _ = apply(t, s, TurnResolved{Turn: 1})

	assert.Equal(t, participants("a", "b"), s.Session.Participants)
}

func TestTurnResolvedIgnoresNonParticipantWinner(t *testing.T) {
	s := playing(t, "a", "b")
	s, _ = apply(t, s, RoundBegin{})
	s, effects := apply(t, s, TurnResolved{Turn: 1, Winner: winner("stranger")})

	assert.Equal(t, participants("a", "b"), s.Session.Participants)
	assert.Nil(t, effects[0].(TurnEnded).Winner)
}

func TestStaleTurnResolvedIsIgnored(t *testing.T) {
	s := playing(t, "a", "b")
	s, _ = apply(t, s, RoundBegin{})
	s, _ = apply(t, s, TurnResolved{Turn: 1})
	s, _ = apply(t, s, RoundBegin{})

	next, effects, ok := Transition(s, TurnResolved{Turn: 1, Winner: winner("b")})
	assert.False(t, ok)
	assert.Empty(t, effects)
	assert.Equal(t, s, next)
}

func TestRoundBeginRejectedOnceRoundIsComplete(t *testing.T) {
	s := playing(t, "a", "b")
	for turn := 1; turn <= 2; turn++ {
		s, _ = apply(t, s, RoundBegin{})
		s, _ = apply(t, s, TurnResolved{Turn: turn})
	}
	assert.True(t, s.Session.RoundComplete())

	_, _, ok := Transition(s, RoundBegin{})
	assert.False(t, ok)
}

func TestNextRoundAdvancesRound(t *testing.T) {
	s := playing(t, "a", "b")
	s, _ = apply(t, s, RoundBegin{})
	s, _ = apply(t, s, TurnResolved{Turn: 1, Winner: winner("a")})

	_, _, ok := Transition(s, NextRound{})
	require.True(t, ok)

	s, _ = apply(t, s, RoundBegin{})
	s, _ = apply(t, s, TurnResolved{Turn: 2})
	s, effects := apply(t, s, NextRound{})

	assert.Equal(t, "PLAYING.ROUND(2).START.TURN(IDLE)", s.String())
	assert.Equal(t, 0, s.Session.TurnsThisRound)
	assert.Equal(t, []Effect{
		RoundEnded{Round: 1, Participants: []model.Participant{{ID: "a", Score: 1}, {ID: "b"}}},
		RoundStarted{Round: 2},
	}, effects)
}

func TestNextRoundRejectedDuringActiveTurn(t *testing.T) {
	s := playing(t, "a", "b")
	s, _ = apply(t, s, RoundBegin{})

	_, _, ok := Transition(s, NextRound{})
	assert.False(t, ok)
}

func TestHolderRotationIsRoundRobinAcrossRounds(t *testing.T) {
	s := playing(t, "a", "b", "c")

	var holders []model.PlayerID
	for round := 0; round < 3; round++ {
		for i := 0; i < 3; i++ {
			s, _ = apply(t, s, RoundBegin{})
			holders = append(holders, s.Session.Holder)
			s, _ = apply(t, s, TurnResolved{})
		}
		s, _ = apply(t, s, NextRound{})
	}

	assert.Equal(t, []model.PlayerID{"a", "b", "c", "a", "b", "c", "a", "b", "c"}, holders)
}

func TestHolderRotationContinuesAfterEarlyNextRound(t *testing.T) {
	s := playing(t, "a", "b", "c")
	s, _ = apply(t, s, RoundBegin{})
	s, _ = apply(t, s, TurnResolved{})
	s, _ = apply(t, s, NextRound{})
	s, _ = apply(t, s, RoundBegin{})

	assert.Equal(t, model.PlayerID("b"), s.Session.Holder)
}

func TestAbortEndsSessionFromAnySubstate(t *testing.T) {
	base := playing(t, "a", "b")
	active, _ := apply(t, base, RoundBegin{})

	for _, s := range []State{base, active} {
		next, effects := apply(t, s, Abort{Reason: model.EndReasonNoPlayers})
		assert.Equal(t, PhaseEnd, next.Phase)
		assert.Equal(t, model.EndReasonNoPlayers, next.Session.EndReason)
		assert.Equal(t, TurnIdle, next.Session.TurnStage)
		assert.Equal(t, []Effect{GameEnded{
			Participants: participants("a", "b"),
			Reason:       model.EndReasonNoPlayers,
			Rounds:       1,
		}}, effects)
	}
}

func TestAbortDefaultsReason(t *testing.T) {
	_, effects := apply(t, playing(t, "a", "b"), Abort{})
	assert.Equal(t, model.EndReasonAborted, effects[0].(GameEnded).Reason)
}

func TestEndResetsToIdle(t *testing.T) {
	end, _ := apply(t, playing(t, "a", "b"), Abort{})
	next, effects := apply(t, end, reset{})
	assert.Equal(t, Idle(), next)
	assert.Empty(t, effects)

	// Nothing else is accepted in END
	_, _, ok := Transition(end, Ready{})
	assert.False(t, ok)
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	s := playing(t, "a", "b")
	s, _ = apply(t, s, RoundBegin{})
	before := s.Clone()

	_, _ = apply(t, s, TurnResolved{Winner: winner("a")})

	assert.Equal(t, before, s)
}
