package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/mcoot/iq180/internal/events"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/services/machine"
	"github.com/mcoot/iq180/internal/services/registry"
)

// MaxChatLength caps chat messages, in runes
const MaxChatLength = 500

// Kinds is every inbound kind the orchestrator consumes
var Kinds = []model.InboundKind{
	model.InJoin,
	model.InLeave,
	model.InEdit,
	model.InChatMessage,
	model.InReady,
	model.InStart,
	model.InRoundBegin,
	model.InTurnResolved,
	model.InNextRound,
	model.InAbort,
}

// Observer is called synchronously, on the worker goroutine, for every
// applied machine step after its broadcasts have been published
type Observer func(step machine.Step)

// Orchestrator is the single consumer of core inbound events. It applies
// them to the registry and the state machine one at a time and translates
// the resulting effects into outbound events.
type Orchestrator struct {
	bus      *events.Bus
	registry *registry.Registry
	machine  *machine.Machine
	logger   *slog.Logger

	sub *events.Subscription

	// lobbyReady mirrors the last readiness value reported by the registry
	lobbyReady atomic.Bool

	observersMu sync.RWMutex
	observers   []Observer

	closeOnce sync.Once
}

// New creates an Orchestrator and subscribes it to the bus. It installs
// itself as the registry listener.
func New(bus *events.Bus, reg *registry.Registry, m *machine.Machine, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		bus:      bus,
		registry: reg,
		machine:  m,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
	reg.SetListener(o)
	o.sub = bus.Subscribe(Kinds...)
	return o
}

// Observe registers an observer of machine steps
func (o *Orchestrator) Observe(fn Observer) {
	o.observersMu.Lock()
	defer o.observersMu.Unlock()
	o.observers = append(o.observers, fn)
}

// Run processes inbound events until ctx is cancelled or the orchestrator
// is closed
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("orchestrator started")
	defer o.logger.Info("orchestrator stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-o.sub.C:
			if !ok {
				return
			}
			o.handle(evt)
		}
	}
}

// Close stops consuming events. Events still queued are discarded.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(o.sub.Close)
}

func (o *Orchestrator) handle(evt events.Inbound) {
	if !model.IsClientKind(evt.Kind) && evt.Origin != events.SystemOrigin {
		o.logger.Warn("internal event from client dropped",
			slog.String("kind", string(evt.Kind)),
			slog.String("conn_id", string(evt.Origin)))
		return
	}

	var err error
	switch evt.Kind {
	case model.InJoin:
		err = o.handleJoin(evt)
	case model.InLeave:
		o.handleLeave(evt)
	case model.InEdit:
		err = o.handleEdit(evt)
	case model.InChatMessage:
		err = o.handleChat(evt)
	case model.InReady:
		err = o.handleReady(evt)
	case model.InStart:
		err = o.handleStart(evt)
	case model.InRoundBegin:
		o.dispatch(machine.RoundBegin{})
	case model.InTurnResolved:
		var p model.TurnResolvedPayload
		if err = evt.Decode(&p); err == nil {
			o.dispatch(machine.TurnResolved{Turn: p.Turn, Winner: p.WinnerID})
		}
	case model.InNextRound:
		o.dispatch(machine.NextRound{})
	case model.InAbort:
		var p model.AbortPayload
		if err = evt.Decode(&p); err == nil {
			o.dispatch(machine.Abort{Reason: p.Reason})
		}
	default:
		o.logger.Warn("unhandled event kind", slog.String("kind", string(evt.Kind)))
	}

	if err != nil {
		o.reject(evt, err)
	}
}

// reject logs a dropped event and tells the originating connection why
func (o *Orchestrator) reject(evt events.Inbound, err error) {
	o.logger.Warn("event dropped",
		slog.String("kind", string(evt.Kind)),
		slog.String("conn_id", string(evt.Origin)),
		slog.String("error", err.Error()))

	if evt.Origin == events.SystemOrigin {
		return
	}
	o.bus.PublishOutbound(model.OutError, model.ErrorPayload{
		Code:    errorCode(err),
		Message: err.Error(),
	}, evt.Origin)
}

var errStartRejected = errors.New("game cannot be started")

func errorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrDuplicateConnection):
		return model.ErrorCodeAlreadyJoined
	case errors.Is(err, model.ErrUnknownPlayer):
		return model.ErrorCodeNotJoined
	case errors.Is(err, errStartRejected):
		return model.ErrorCodeStartRejected
	default:
		return model.ErrorCodeMalformed
	}
}

func (o *Orchestrator) handleJoin(evt events.Inbound) error {
	var p model.JoinPayload
	if err := evt.Decode(&p); err != nil {
		return err
	}
	player, err := o.registry.Join(evt.Origin, model.Profile{Nickname: p.Nickname, Avatar: p.Avatar})
	if err != nil {
		return err
	}
	o.bus.PublishOutbound(model.OutPlayerInfo, model.PlayerInfoPayload{
		Player: model.PlayerViewFromModel(player),
	}, evt.Origin)
	return nil
}

func (o *Orchestrator) handleLeave(evt events.Inbound) {
	player, ok := o.registry.ByConn(evt.Origin)
	if !ok {
		o.logger.Debug("leave for unknown connection ignored", slog.String("conn_id", string(evt.Origin)))
		return
	}
	o.registry.Leave(player.ID)
	o.abortIfAbandoned()
}

// abortIfAbandoned ends a running session once no participant is connected
func (o *Orchestrator) abortIfAbandoned() {
	state := o.machine.State()
	if state.Phase != machine.PhasePlaying {
		return
	}
	ids := model.ParticipantIDs(state.Session.Participants)
	if len(o.registry.Conns(ids)) > 0 {
		return
	}
	o.logger.Info("all participants left, aborting game")
	o.dispatch(machine.Abort{Reason: model.EndReasonNoPlayers})
}

func (o *Orchestrator) handleEdit(evt events.Inbound) error {
	player, err := o.sender(evt)
	if err != nil {
		return err
	}
	var p model.EditPayload
	if err := evt.Decode(&p); err != nil {
		return err
	}
	_, err = o.registry.Edit(player.ID, model.Profile{Nickname: p.Nickname, Avatar: p.Avatar})
	return err
}

func (o *Orchestrator) handleChat(evt events.Inbound) error {
	player, err := o.sender(evt)
	if err != nil {
		return err
	}
	var p model.ChatPayload
	if err := evt.Decode(&p); err != nil {
		return err
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > MaxChatLength {
		text = string([]rune(text)[:MaxChatLength])
	}
	o.bus.PublishOutbound(model.OutChatMessage, model.ChatMessagePayload{
		From: model.PlayerViewFromModel(player),
		Text: text,
		At:   evt.At,
	}, o.registry.AllConns()...)
	return nil
}

func (o *Orchestrator) handleReady(evt events.Inbound) error {
	player, err := o.sender(evt)
	if err != nil {
		return err
	}
	var p model.ReadyPayload
	if err := evt.Decode(&p); err != nil {
		return err
	}
	_, err = o.registry.SetReady(player.ID, p.Value)
	return err
}

func (o *Orchestrator) handleStart(evt events.Inbound) error {
	requester, err := o.sender(evt)
	if err != nil {
		return err
	}
	var p model.StartPayload
	if err := evt.Decode(&p); err != nil {
		return err
	}

	ready := o.registry.ReadyPlayers()
	participants := make([]model.Participant, len(ready))
	for i, player := range ready {
		participants[i] = model.Participant{ID: player.ID, Score: 0}
	}

	if steps := o.dispatch(machine.Start{Participants: participants, Solo: p.Solo}); len(steps) == 0 {
		o.logger.Info("start rejected",
			slog.String("player_id", string(requester.ID)),
			slog.Int("ready_players", len(ready)),
			slog.Bool("solo", p.Solo),
			slog.String("state", o.machine.State().String()))
		return errStartRejected
	}
	return nil
}

// sender resolves the player registered for the event's connection
func (o *Orchestrator) sender(evt events.Inbound) (model.Player, error) {
	player, ok := o.registry.ByConn(evt.Origin)
	if !ok {
		return model.Player{}, model.ErrUnknownPlayer
	}
	return player, nil
}

// dispatch applies evt to the machine, publishes the effects of every step
// and notifies observers
func (o *Orchestrator) dispatch(evt machine.Event) []machine.Step {
	steps := o.machine.Dispatch(evt)
	if len(steps) == 0 {
		o.logger.Debug("transition rejected", slog.String("event", machine.EventName(evt)))
		return nil
	}

	ended := false
	for _, step := range steps {
		o.logger.Info("state transition",
			slog.String("event", machine.EventName(step.Event)),
			slog.String("from", step.From.String()),
			slog.String("to", step.To.String()))
		for _, effect := range step.Effects {
			o.publishEffect(step, effect)
		}
		o.notify(step)
		if step.From.Phase == machine.PhaseEnd {
			ended = true
		}
	}

	// A lobby that is still ready goes straight back to READY
	if ended && o.lobbyReady.Load() {
		steps = append(steps, o.dispatch(machine.Ready{})...)
	}
	return steps
}

func (o *Orchestrator) notify(step machine.Step) {
	o.observersMu.RLock()
	observers := make([]Observer, len(o.observers))
	copy(observers, o.observers)
	o.observersMu.RUnlock()

	for _, fn := range observers {
		fn(step)
	}
}

// publishEffect translates one effect into outbound events. Targets are the
// live connections of the session's participants.
func (o *Orchestrator) publishEffect(step machine.Step, effect machine.Effect) {
	var participants []model.ConnID
	if session := step.To.Session; session != nil {
		participants = o.registry.Conns(model.ParticipantIDs(session.Participants))
	} else if session := step.From.Session; session != nil {
		participants = o.registry.Conns(model.ParticipantIDs(session.Participants))
	}

	switch e := effect.(type) {
	case machine.GameReadyChanged:
		o.bus.PublishOutbound(model.OutGameReady, model.GameReadyPayload{Ready: e.Ready}, o.registry.AllConns()...)

	case machine.GameStarted:
		o.bus.PublishOutbound(model.OutStartGame, model.StartGamePayload{
			Participants: model.Scoreboard(e.Participants),
			Solo:         e.Solo,
		}, participants...)

	case machine.RoundStarted:
		o.bus.PublishOutbound(model.OutStartRound, model.StartRoundPayload{Round: e.Round}, participants...)

	case machine.TurnStarted:
		o.bus.PublishOutbound(model.OutStartTurn, model.StartTurnPayload{
			HolderID: e.Holder,
			Round:    e.Round,
			Turn:     e.Turn,
		}, o.registry.Conns([]model.PlayerID{e.Holder})...)
		o.bus.PublishOutbound(model.OutCurrentPlayer, model.CurrentPlayerPayload{
			HolderID: e.Holder,
			Round:    e.Round,
		}, participants...)

	case machine.TurnEnded:
		o.bus.PublishOutbound(model.OutEndTurn, model.EndTurnPayload{
			Turn:     e.Turn,
			WinnerID: e.Winner,
		}, o.registry.Conns([]model.PlayerID{e.Holder})...)

	case machine.RoundEnded:
		o.bus.PublishOutbound(model.OutEndRound, model.EndRoundPayload{
			Round:        e.Round,
			Participants: model.Scoreboard(e.Participants),
		}, participants...)

	case machine.GameEnded:
		o.logger.Info("game ended",
			slog.String("reason", string(e.Reason)),
			slog.Int("rounds", e.Rounds))
		o.bus.PublishOutbound(model.OutEndGame, model.EndGamePayload{
			Participants: model.Scoreboard(e.Participants),
			Reason:       e.Reason,
		}, participants...)

	default:
		o.logger.Warn("unhandled effect", slog.String("effect", machine.EffectName(effect)))
	}
}

// OnlineChanged broadcasts the online players to every connection
func (o *Orchestrator) OnlineChanged(players []model.Player) {
	views := make([]model.PlayerView, len(players))
	conns := make([]model.ConnID, len(players))
	for i, p := range players {
		views[i] = model.PlayerViewFromModel(p)
		conns[i] = p.Conn
	}
	o.bus.PublishOutbound(model.OutPlayers, model.PlayersPayload{Players: views}, conns...)
}

// PlayerChanged sends the edited record back to its owner
func (o *Orchestrator) PlayerChanged(player model.Player) {
	o.bus.PublishOutbound(model.OutPlayerInfo, model.PlayerInfoPayload{
		Player: model.PlayerViewFromModel(player),
	}, player.Conn)
}

// ReadinessChanged feeds the readiness aggregate into the machine
func (o *Orchestrator) ReadinessChanged(ready bool) {
	o.lobbyReady.Store(ready)
	if ready {
		o.dispatch(machine.Ready{})
	} else {
		o.dispatch(machine.NotReady{})
	}
}
