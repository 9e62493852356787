package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/mcoot/iq180/internal/api/response"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/transport/ws"
)

// Output handles formatting output based on the configured format. It is
// safe for concurrent use.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": err.Error()},
		})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintf(o.w, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintEvent outputs one websocket event. JSON output is one envelope per line.
func (o *Output) PrintEvent(env ws.Envelope) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(env)
		fmt.Fprintln(o.w, string(data))
		return
	}
	fmt.Fprintln(o.w, FormatEvent(env))
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.HealthResponse:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case response.Player:
		o.printPlayer(v)
	case response.PlayerList:
		o.printPlayerList(v)
	case response.GameState:
		o.printGameState(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.Nickname, p.ID)
	if p.Avatar != "" {
		fmt.Fprintf(o.w, "Avatar: %s\n", p.Avatar)
	}
	fmt.Fprintf(o.w, "Ready: %s\n", yesNo(p.Ready))
	fmt.Fprintf(o.w, "Joined: %s\n", p.JoinedAt.Format("2006-01-02 15:04:05"))
}

func (o *Output) printPlayerList(l response.PlayerList) {
	fmt.Fprintf(o.w, "Players (%d online, %d ready):\n", len(l.Players), l.ReadyCount)
	for _, p := range l.Players {
		readyStr := ""
		if p.Ready {
			readyStr = " [ready]"
		}
		fmt.Fprintf(o.w, "  - %s (%s)%s\n", p.Nickname, p.ID, readyStr)
	}
	fmt.Fprintf(o.w, "Game ready: %s\n", yesNo(l.GameReady))
}

func (o *Output) printGameState(g response.GameState) {
	fmt.Fprintf(o.w, "State: %s\n", g.State)
	if len(g.Participants) == 0 {
		return
	}

	if g.Solo {
		fmt.Fprintln(o.w, "Mode: solo")
	}
	fmt.Fprintf(o.w, "Round: %d\n", g.Round)
	fmt.Fprintf(o.w, "Turn: %d\n", g.Turn)
	if g.Holder != "" {
		fmt.Fprintf(o.w, "Holder: %s\n", g.Holder)
	}
	fmt.Fprintln(o.w, "Scores:")
	for _, p := range g.Participants {
		connStr := ""
		if !p.Connected {
			connStr = " (disconnected)"
		}
		fmt.Fprintf(o.w, "  %s: %d%s\n", p.ID, p.Score, connStr)
	}
}

// FormatEvent renders a websocket event as a single human readable line
func FormatEvent(env ws.Envelope) string {
	switch model.OutboundKind(env.Event) {
	case model.OutPlayers:
		var p model.PlayersPayload
		if decode(env, &p) {
			names := make([]string, len(p.Players))
			for i, v := range p.Players {
				names[i] = v.Nickname
				if v.Ready {
					names[i] += "*"
				}
			}
			return "players: " + strings.Join(names, ", ")
		}
	case model.OutPlayerInfo:
		var p model.PlayerInfoPayload
		if decode(env, &p) {
			return fmt.Sprintf("you are %s (%s)", p.Player.Nickname, p.Player.ID)
		}
	case model.OutChatMessage:
		var p model.ChatMessagePayload
		if decode(env, &p) {
			return fmt.Sprintf("<%s> %s", p.From.Nickname, p.Text)
		}
	case model.OutGameReady:
		var p model.GameReadyPayload
		if decode(env, &p) {
			return "game ready: " + yesNo(p.Ready)
		}
	case model.OutStartGame:
		var p model.StartGamePayload
		if decode(env, &p) {
			if p.Solo {
				return "solo game started"
			}
			return fmt.Sprintf("game started with %d players", len(p.Participants))
		}
	case model.OutStartRound:
		var p model.StartRoundPayload
		if decode(env, &p) {
			return fmt.Sprintf("round %d", p.Round)
		}
	case model.OutCurrentPlayer:
		var p model.CurrentPlayerPayload
		if decode(env, &p) {
			return fmt.Sprintf("now playing: %s", p.HolderID)
		}
	case model.OutStartTurn:
		var p model.StartTurnPayload
		if decode(env, &p) {
			return fmt.Sprintf("your turn (round %d, turn %d)", p.Round, p.Turn)
		}
	case model.OutQuestion:
		var p model.QuestionPayload
		if decode(env, &p) {
			numbers := make([]string, len(p.Numbers))
			for i, n := range p.Numbers {
				numbers[i] = strconv.Itoa(n)
			}
			return fmt.Sprintf("make %d from %s before %s",
				p.Target, strings.Join(numbers, " "), p.Deadline.Local().Format("15:04:05"))
		}
	case model.OutAnswerResult:
		var p model.AnswerResultPayload
		if decode(env, &p) {
			if p.Correct {
				return "correct!"
			}
			return "wrong: " + p.Reason
		}
	case model.OutEndTurn:
		var p model.EndTurnPayload
		if decode(env, &p) {
			if p.WinnerID == nil {
				return fmt.Sprintf("turn %d over: no winner", p.Turn)
			}
			return fmt.Sprintf("turn %d over: %s scored", p.Turn, *p.WinnerID)
		}
	case model.OutEndRound:
		var p model.EndRoundPayload
		if decode(env, &p) {
			return fmt.Sprintf("round %d over: %s", p.Round, formatScores(p.Participants))
		}
	case model.OutEndGame:
		var p model.EndGamePayload
		if decode(env, &p) {
			return fmt.Sprintf("game over (%s): %s", p.Reason, formatScores(p.Participants))
		}
	case model.OutError:
		var p model.ErrorPayload
		if decode(env, &p) {
			return fmt.Sprintf("error [%s]: %s", p.Code, p.Message)
		}
	}
	return strings.TrimSpace(env.Event + " " + string(env.Data))
}

func decode(env ws.Envelope, v any) bool {
	return json.Unmarshal(env.Data, v) == nil
}

func formatScores(scores []model.ScoreView) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%s=%d", s.ID, s.Score)
	}
	return strings.Join(parts, " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
