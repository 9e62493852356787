package conductor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/iq180/internal/dependencies/clock"
	"github.com/mcoot/iq180/internal/dependencies/random"
	"github.com/mcoot/iq180/internal/events"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/services/machine"
	"github.com/mcoot/iq180/internal/services/quiz"
	"github.com/mcoot/iq180/internal/services/registry"
)

// Config controls the pacing of a game
type Config struct {
	// Rounds is the number of rounds played before the game completes
	Rounds int
	// TurnDuration is how long the holder has to answer
	TurnDuration time.Duration
	// TurnGap is the pause between a turn ending and the next one starting
	TurnGap time.Duration
}

// DefaultConfig returns the default pacing
func DefaultConfig() Config {
	return Config{
		Rounds:       3,
		TurnDuration: 60 * time.Second,
		TurnGap:      3 * time.Second,
	}
}

// turn is the question currently in play
type turn struct {
	seq      int
	holder   model.PlayerID
	question model.Question
	deadline time.Time
	answered bool
}

// Conductor drives a running game. It observes machine steps, deals
// questions, judges answers and publishes the internal events that move
// the game forward. It never touches game state directly.
type Conductor struct {
	bus      *events.Bus
	registry *registry.Registry
	clock    clock.Clock
	random   random.Random
	cfg      Config
	logger   *slog.Logger

	sub *events.Subscription

	mu      sync.Mutex
	current *turn
	timer   clock.Timer
	// gen invalidates timers armed for an earlier phase of the game
	gen int

	closeOnce sync.Once
}

// New creates a Conductor subscribed to ANSWER events
func New(
	bus *events.Bus,
	reg *registry.Registry,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *Conductor {
	return &Conductor{
		bus:      bus,
		registry: reg,
		clock:    clk,
		random:   rnd,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "conductor")),
		sub:      bus.Subscribe(model.InAnswer),
	}
}

// Run judges answers until ctx is cancelled or the conductor is closed
func (c *Conductor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.sub.C:
			if !ok {
				return
			}
			c.handleAnswer(evt)
		}
	}
}

// Close stops judging answers and cancels any pending timer
func (c *Conductor) Close() {
	c.closeOnce.Do(func() {
		c.sub.Close()
		c.mu.Lock()
		c.stopTimerLocked()
		c.current = nil
		c.mu.Unlock()
	})
}

// OnStep reacts to a machine step. It is registered as an orchestrator observer.
func (c *Conductor) OnStep(step machine.Step) {
	for _, effect := range step.Effects {
		switch e := effect.(type) {
		case machine.RoundStarted:
			c.logger.Info("round started", slog.Int("round", e.Round))
			c.schedule(c.cfg.TurnGap, model.InRoundBegin, nil)

		case machine.TurnStarted:
			c.startTurn(e)

		case machine.TurnEnded:
			c.endTurn(e)

		case machine.GameEnded:
			c.mu.Lock()
			c.stopTimerLocked()
			c.current = nil
			c.mu.Unlock()
		}
	}
}

func (c *Conductor) startTurn(e machine.TurnStarted) {
	q := quiz.Generate(c.random)
	deadline := c.clock.Now().Add(c.cfg.TurnDuration)

	c.mu.Lock()
	c.current = &turn{seq: e.Turn, holder: e.Holder, question: q, deadline: deadline}
	c.mu.Unlock()

	c.logger.Info("question dealt",
		slog.Int("turn", e.Turn),
		slog.String("holder", string(e.Holder)),
		slog.Any("numbers", q.Numbers),
		slog.Int("target", q.Target))

	c.bus.PublishOutbound(model.OutQuestion, model.QuestionPayload{
		Turn:     e.Turn,
		Numbers:  q.Numbers,
		Target:   q.Target,
		Deadline: deadline,
	}, c.registry.Conns([]model.PlayerID{e.Holder})...)

	c.schedule(c.cfg.TurnDuration, model.InTurnResolved, model.TurnResolvedPayload{Turn: e.Turn})
}

func (c *Conductor) endTurn(e machine.TurnEnded) {
	c.mu.Lock()
	if c.current != nil && c.current.seq == e.Turn {
		c.current = nil
	}
	c.mu.Unlock()

	switch {
	case !e.RoundComplete:
		c.schedule(c.cfg.TurnGap, model.InRoundBegin, nil)
	case e.Round >= c.cfg.Rounds:
		c.schedule(c.cfg.TurnGap, model.InAbort, model.AbortPayload{Reason: model.EndReasonCompleted})
	default:
		c.mu.Lock()
		c.stopTimerLocked()
		c.mu.Unlock()
		c.publish(model.InNextRound, nil)
	}
}

// schedule replaces any pending timer with one that publishes kind after d
func (c *Conductor) schedule(d time.Duration, kind model.InboundKind, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	gen := c.gen
	c.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		live := gen == c.gen
		c.mu.Unlock()
		if live {
			c.publish(kind, payload)
		}
	})
}

func (c *Conductor) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Conductor) publish(kind model.InboundKind, payload any) {
	if err := c.bus.PublishSystem(kind, payload); err != nil {
		c.logger.Error("failed to publish", slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}
}

func (c *Conductor) handleAnswer(evt events.Inbound) {
	player, ok := c.registry.ByConn(evt.Origin)
	if !ok {
		c.logger.Debug("answer from unknown connection ignored", slog.String("conn_id", string(evt.Origin)))
		return
	}

	var p model.AnswerPayload
	if err := evt.Decode(&p); err != nil {
		c.result(evt.Origin, false, err.Error())
		return
	}

	c.mu.Lock()
	current := c.current
	if current == nil || current.holder != player.ID || current.answered {
		c.mu.Unlock()
		c.result(evt.Origin, false, "not your turn")
		return
	}
	if err := quiz.Check(current.question, p.Tiles); err != nil {
		c.mu.Unlock()
		c.logger.Info("wrong answer",
			slog.String("player_id", string(player.ID)),
			slog.Int("turn", current.seq),
			slog.String("error", err.Error()))
		c.result(evt.Origin, false, err.Error())
		return
	}
	current.answered = true
	c.stopTimerLocked()
	seq := current.seq
	c.mu.Unlock()

	c.logger.Info("correct answer",
		slog.String("player_id", string(player.ID)),
		slog.Int("turn", seq))
	c.result(evt.Origin, true, "")

	winner := player.ID
	c.publish(model.InTurnResolved, model.TurnResolvedPayload{Turn: seq, WinnerID: &winner})
}

func (c *Conductor) result(conn model.ConnID, correct bool, reason string) {
	c.bus.PublishOutbound(model.OutAnswerResult, model.AnswerResultPayload{
		Correct: correct,
		Reason:  reason,
	}, conn)
}
