package model

import "time"

// InboundKind identifies an event consumed by the core
type InboundKind string

const (
	// Client events, delivered by the transport adapter
	InJoin        InboundKind = "JOIN"
	InLeave       InboundKind = "LEAVE"
	InEdit        InboundKind = "EDIT"
	InChatMessage InboundKind = "CHAT_MESSAGE"
	InReady       InboundKind = "READY"
	InStart       InboundKind = "START"
	InAnswer      InboundKind = "ANSWER"

	// Internal events, published by the conductor or any other caller
	InRoundBegin   InboundKind = "ROUND_BEGIN"
	InTurnResolved InboundKind = "TURN_RESOLVED"
	InNextRound    InboundKind = "NEXT_ROUND"
	InAbort        InboundKind = "ABORT"
)

// ClientInboundKinds are the kinds a transport adapter may publish on behalf of a connection
var ClientInboundKinds = []InboundKind{
	InJoin, InLeave, InEdit, InChatMessage, InReady, InStart, InAnswer,
}

// IsClientKind reports whether a remote client is allowed to send this kind
func IsClientKind(kind InboundKind) bool {
	for _, k := range ClientInboundKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// OutboundKind identifies an event emitted to connections
type OutboundKind string

const (
	OutPlayers       OutboundKind = "PLAYERS"
	OutPlayerInfo    OutboundKind = "PLAYER_INFO"
	OutChatMessage   OutboundKind = "CHAT_MESSAGE"
	OutGameReady     OutboundKind = "GAME_READY"
	OutStartGame     OutboundKind = "START_GAME"
	OutEndGame       OutboundKind = "END_GAME"
	OutStartRound    OutboundKind = "START_ROUND"
	OutEndRound      OutboundKind = "END_ROUND"
	OutStartTurn     OutboundKind = "START_TURN"
	OutEndTurn       OutboundKind = "END_TURN"
	OutCurrentPlayer OutboundKind = "CURRENT_PLAYER"
	OutQuestion      OutboundKind = "QUESTION"
	OutAnswerResult  OutboundKind = "ANSWER_RESULT"
	OutError         OutboundKind = "ERROR"
)

// Inbound payloads

// JoinPayload is the body of a JOIN event
type JoinPayload struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// EditPayload is the body of an EDIT event; empty fields are left unchanged
type EditPayload struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// ChatPayload is the body of an inbound CHAT_MESSAGE event
type ChatPayload struct {
	Text string `json:"text"`
}

// ReadyPayload is the body of a READY event
type ReadyPayload struct {
	Value bool `json:"value"`
}

// StartPayload is the body of a START event
type StartPayload struct {
	Solo bool `json:"solo,omitempty"`
}

// AnswerPayload is the body of an ANSWER event
type AnswerPayload struct {
	Tiles []string `json:"tiles"`
}

// TurnResolvedPayload is the body of a TURN_RESOLVED event
type TurnResolvedPayload struct {
	Turn     int       `json:"turn"`
	WinnerID *PlayerID `json:"winnerId,omitempty"`
}

// AbortPayload is the body of an ABORT event
type AbortPayload struct {
	Reason EndReason `json:"reason"`
}

// Outbound payloads

// PlayerView is the public projection of a Player
type PlayerView struct {
	ID       PlayerID `json:"id"`
	Nickname string   `json:"nickname"`
	Avatar   string   `json:"avatar"`
	Ready    bool     `json:"ready"`
}

// PlayerViewFromModel projects a Player for the wire
func PlayerViewFromModel(p Player) PlayerView {
	return PlayerView{
		ID:       p.ID,
		Nickname: p.Nickname,
		Avatar:   p.Avatar,
		Ready:    p.Ready,
	}
}

// PlayersPayload is the body of a PLAYERS broadcast
type PlayersPayload struct {
	Players []PlayerView `json:"players"`
}

// PlayerInfoPayload is the body of a PLAYER_INFO unicast
type PlayerInfoPayload struct {
	Player PlayerView `json:"player"`
}

// ChatMessagePayload is the body of an outbound CHAT_MESSAGE broadcast
type ChatMessagePayload struct {
	From PlayerView `json:"from"`
	Text string     `json:"text"`
	At   time.Time  `json:"at"`
}

// GameReadyPayload is the body of a GAME_READY broadcast
type GameReadyPayload struct {
	Ready bool `json:"ready"`
}

// ScoreView is one participant's entry in a scoreboard
type ScoreView struct {
	ID    PlayerID `json:"id"`
	Score int      `json:"score"`
}

// Scoreboard converts participants into their ordered wire form
func Scoreboard(participants []Participant) []ScoreView {
	scores := make([]ScoreView, len(participants))
	for i, p := range participants {
		scores[i] = ScoreView{ID: p.ID, Score: p.Score}
	}
	return scores
}

// StartGamePayload is the body of a START_GAME broadcast
type StartGamePayload struct {
	Participants []ScoreView `json:"participants"`
	Solo         bool        `json:"solo,omitempty"`
}

// EndGamePayload is the body of an END_GAME broadcast
type EndGamePayload struct {
	Participants []ScoreView `json:"participants"`
	Reason       EndReason   `json:"reason"`
}

// StartRoundPayload is the body of a START_ROUND broadcast
type StartRoundPayload struct {
	Round int `json:"round"`
}

// EndRoundPayload is the body of an END_ROUND broadcast
type EndRoundPayload struct {
	Round        int         `json:"round"`
	Participants []ScoreView `json:"participants"`
}

// StartTurnPayload is the body of a START_TURN unicast to the turn holder
type StartTurnPayload struct {
	HolderID PlayerID `json:"holderId"`
	Round    int      `json:"round"`
	Turn     int      `json:"turn"`
}

// EndTurnPayload is the body of an END_TURN unicast to the previous holder
type EndTurnPayload struct {
	Turn     int       `json:"turn"`
	WinnerID *PlayerID `json:"winnerId,omitempty"`
}

// CurrentPlayerPayload is the body of a CURRENT_PLAYER broadcast
type CurrentPlayerPayload struct {
	HolderID PlayerID `json:"holderId"`
	Round    int      `json:"round"`
}

// QuestionPayload is the body of a QUESTION unicast to the turn holder
type QuestionPayload struct {
	Turn     int       `json:"turn"`
	Numbers  []int     `json:"numbers"`
	Target   int       `json:"target"`
	Deadline time.Time `json:"deadline"`
}

// AnswerResultPayload is the body of an ANSWER_RESULT unicast
type AnswerResultPayload struct {
	Correct bool   `json:"correct"`
	Reason  string `json:"reason,omitempty"`
}

// Error codes carried by ERROR events
const (
	ErrorCodeMalformed     = "malformed_payload"
	ErrorCodeStartRejected = "start_rejected"
	ErrorCodeNotJoined     = "not_joined"
	ErrorCodeAlreadyJoined = "already_joined"
)

// ErrorPayload is the body of an ERROR unicast
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
