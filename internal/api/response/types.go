package response

import (
	"time"

	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/services/machine"
)

// Player represents a player in API responses
type Player struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	Avatar   string    `json:"avatar,omitempty"`
	Ready    bool      `json:"ready"`
	JoinedAt time.Time `json:"joined_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		ID:       string(p.ID),
		Nickname: p.Nickname,
		Avatar:   p.Avatar,
		Ready:    p.Ready,
		JoinedAt: p.JoinedAt,
	}
}

// PlayerList is the online players listing
type PlayerList struct {
	Players    []Player `json:"players"`
	ReadyCount int      `json:"ready_count"`
	GameReady  bool     `json:"game_ready"`
}

// PlayerListFromModel converts the registry snapshot
func PlayerListFromModel(players []model.Player, ready bool) PlayerList {
	list := PlayerList{Players: make([]Player, len(players)), GameReady: ready}
	for i, p := range players {
		list.Players[i] = PlayerFromModel(p)
		if p.Ready {
			list.ReadyCount++
		}
	}
	return list
}

// Participant is one entry of the game scoreboard
type Participant struct {
	ID        string `json:"id"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

// GameState represents the current state machine snapshot
type GameState struct {
	Phase        string        `json:"phase"`
	State        string        `json:"state"`
	Solo         bool          `json:"solo,omitempty"`
	Round        int           `json:"round,omitempty"`
	RoundStage   string        `json:"round_stage,omitempty"`
	TurnStage    string        `json:"turn_stage,omitempty"`
	Turn         int           `json:"turn,omitempty"`
	Holder       string        `json:"holder,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

// GameStateFromModel converts a machine state. connected reports whether a
// participant is still online.
func GameStateFromModel(s machine.State, connected func(model.PlayerID) bool) GameState {
	resp := GameState{
		Phase: string(s.Phase),
		State: s.String(),
	}
	if s.Session == nil {
		return resp
	}

	resp.Solo = s.Session.Solo
	resp.Round = s.Session.Round
	resp.RoundStage = string(s.Session.RoundStage)
	resp.TurnStage = string(s.Session.TurnStage)
	resp.Turn = s.Session.Turn
	resp.Holder = string(s.Session.Holder)
	resp.Participants = make([]Participant, len(s.Session.Participants))
	for i, p := range s.Session.Participants {
		resp.Participants[i] = Participant{
			ID:        string(p.ID),
			Score:     p.Score,
			Connected: connected(p.ID),
		}
	}
	return resp
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status string `json:"status"`
}
