package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/transport/ws"
)

var errQuit = errors.New("quit")

const playHelp = `Commands:
  ready | unready         toggle your ready flag
  start [solo]            start a game with the ready players
  answer <expression>     answer the current question, e.g. answer (3 + 5) * 9
  say <text>              chat with everyone online
  nick <name>             change your nickname
  avatar <id>             change your avatar
  quit                    leave the arena`

func newPlayCmd() *cobra.Command {
	var nickname, avatar string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join the arena as a player",
		Long: `Connect to the arena over a websocket, join with a nickname and play
interactively. Events from the server are printed as they arrive.

` + playHelp + `

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(nickname) == "" {
				return errors.New("--nickname is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			profile := model.JoinPayload{Nickname: nickname, Avatar: avatar}
			return Play(ctx, cfg.ServerURL, profile, cmd.InOrStdin(), NewOutput(cmd.OutOrStdout(), cfg.Output))
		},
	}

	cmd.Flags().StringVarP(&nickname, "nickname", "n", "", "Nickname to join with")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar identifier")

	return cmd
}

// Play joins the arena and relays commands read from in until in is
// exhausted, the user quits, ctx is cancelled or the server disconnects
func Play(ctx context.Context, serverURL string, profile model.JoinPayload, in io.Reader, out *Output) error {
	wsURL, err := WebsocketURL(serverURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := send(conn, model.InJoin, profile); err != nil {
		return err
	}

	readErr := make(chan error, 1)
	go func() {
		readErr <- readEvents(conn, out)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return disconnect(conn)

		case err := <-readErr:
			return err

		case line, ok := <-lines:
			if !ok {
				return disconnect(conn)
			}
			kind, payload, err := ParseCommand(line)
			switch {
			case errors.Is(err, errQuit):
				return disconnect(conn)
			case err != nil:
				out.PrintError(err)
				continue
			case kind == "":
				continue
			}
			if err := send(conn, kind, payload); err != nil {
				return err
			}
		}
	}
}

// ParseCommand translates an input line into an inbound event. A blank line
// yields an empty kind.
func ParseCommand(line string) (model.InboundKind, any, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "":
		return "", nil, nil
	case "ready":
		return model.InReady, model.ReadyPayload{Value: true}, nil
	case "unready":
		return model.InReady, model.ReadyPayload{Value: false}, nil
	case "start":
		switch rest {
		case "":
			return model.InStart, model.StartPayload{}, nil
		case "solo":
			return model.InStart, model.StartPayload{Solo: true}, nil
		}
		return "", nil, fmt.Errorf("usage: start [solo]")
	case "answer":
		tiles := Tokenize(rest)
		if len(tiles) == 0 {
			return "", nil, fmt.Errorf("usage: answer <expression>")
		}
		return model.InAnswer, model.AnswerPayload{Tiles: tiles}, nil
	case "say":
		if rest == "" {
			return "", nil, fmt.Errorf("usage: say <text>")
		}
		return model.InChatMessage, model.ChatPayload{Text: rest}, nil
	case "nick":
		if rest == "" {
			return "", nil, fmt.Errorf("usage: nick <name>")
		}
		return model.InEdit, model.EditPayload{Nickname: rest}, nil
	case "avatar":
		if rest == "" {
			return "", nil, fmt.Errorf("usage: avatar <id>")
		}
		return model.InEdit, model.EditPayload{Avatar: rest}, nil
	case "quit", "exit":
		return "", nil, errQuit
	default:
		return "", nil, fmt.Errorf("unknown command %q\n%s", verb, playHelp)
	}
}

// Tokenize splits an arithmetic expression into tiles. Numbers may be
// written without surrounding spaces, so "(3+5)*9" gives ( 3 + 5 ) * 9.
func Tokenize(expr string) []string {
	var tiles []string
	var number strings.Builder
	flush := func() {
		if number.Len() > 0 {
			tiles = append(tiles, number.String())
			number.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
			number.WriteRune(r)
		case r == ' ' || r == '\t':
			flush()
		default:
			flush()
			tiles = append(tiles, string(r))
		}
	}
	flush()
	return tiles
}

func send(conn *websocket.Conn, kind model.InboundKind, payload any) error {
	message, err := ws.Encode(string(kind), payload)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

// readEvents prints server events until the connection closes. A normal
// close is not an error.
func readEvents(conn *websocket.Conn, out *Output) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				out.PrintMessage("Disconnected")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		env, err := ws.Decode(message)
		if err != nil {
			out.PrintError(fmt.Errorf("unreadable event: %w", err))
			continue
		}
		out.PrintEvent(env)
	}
}

func disconnect(conn *websocket.Conn) error {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
