package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/iq180/internal/dependencies/clock"
	"github.com/mcoot/iq180/internal/model"
)

// SystemOrigin tags inbound events published by the server itself
// (timers, the conductor) rather than by a client connection
const SystemOrigin model.ConnID = ""

// Inbound is an event received from a connection or an internal publisher
type Inbound struct {
	Origin  model.ConnID
	Kind    model.InboundKind
	Payload json.RawMessage
	At      time.Time
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (e Inbound) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrMalformedPayload, e.Kind, err)
	}
	return nil
}

// Delivery is one outbound event addressed to exactly one connection
type Delivery struct {
	Target  model.ConnID
	Kind    model.OutboundKind
	Payload any
}

// Bus routes inbound events to subscribers and fans outbound events out to
// connections. It never inspects payloads.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	outbox *queue[Delivery]
	closed bool

	clock  clock.Clock
	logger *slog.Logger
}

// NewBus creates a new Bus
func NewBus(clk clock.Clock, logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		outbox: newQueue[Delivery](),
		clock:  clk,
		logger: logger.With(slog.String("component", "event-bus")),
	}
}

// Subscription is a live, non-restartable stream of inbound events of the
// requested kinds. Events published before Subscribe are not replayed.
type Subscription struct {
	bus   *Bus
	kinds map[model.InboundKind]struct{}
	q     *queue[Inbound]

	// C yields events in publish order and is closed when the subscription
	// or the bus is closed
	C <-chan Inbound
}

// Subscribe registers a new subscription filtered to kinds
func (b *Bus) Subscribe(kinds ...model.InboundKind) *Subscription {
	set := make(map[model.InboundKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	q := newQueue[Inbound]()
	sub := &Subscription{bus: b, kinds: set, q: q, C: q.out}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		q.close()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Close unsubscribes and closes C
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	s.q.close()
}

// Pending returns the number of events queued but not yet received
func (s *Subscription) Pending() int {
	return s.q.len()
}

// PublishInbound enqueues an event for every live subscriber of its kind
func (b *Bus) PublishInbound(origin model.ConnID, kind model.InboundKind, payload json.RawMessage) {
	evt := Inbound{
		Origin:  origin,
		Kind:    kind,
		Payload: payload,
		At:      b.clock.Now(),
	}

	// Held for the whole fan-out so every subscriber observes the same order
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.Debug("inbound event dropped - bus closed", slog.String("kind", string(kind)))
		return
	}
	for sub := range b.subs {
		if _, ok := sub.kinds[kind]; ok {
			sub.q.push(evt)
		}
	}
}

// PublishSystem marshals v and publishes it as an inbound event from SystemOrigin
func (b *Bus) PublishSystem(kind model.InboundKind, v any) error {
	var payload json.RawMessage
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		payload = data
	}
	b.PublishInbound(SystemOrigin, kind, payload)
	return nil
}

// PublishOutbound fans an event out to each target exactly once, in the order
// the targets were first given
func (b *Bus) PublishOutbound(kind model.OutboundKind, payload any, targets ...model.ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	seen := make(map[model.ConnID]struct{}, len(targets))
	for _, target := range targets {
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		b.outbox.push(Delivery{Target: target, Kind: kind, Payload: payload})
	}
}

// Deliveries is the stream of per-connection outbound deliveries consumed by
// the transport adapter. There must be a single consumer.
func (b *Bus) Deliveries() <-chan Delivery {
	return b.outbox.out
}

// Close shuts down every subscription and the outbound stream
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for sub := range subs {
		sub.q.close()
	}
	b.outbox.close()
	b.logger.Info("event bus closed", slog.Int("subscriptions", len(subs)))
}
