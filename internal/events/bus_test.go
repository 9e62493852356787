package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/iq180/internal/dependencies/mocks"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/testutil"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	bus := NewBus(clk, testutil.NopLogger())
	t.Cleanup(bus.Close)
	return bus
}

func receive(t *testing.T, sub *Subscription) Inbound {
	t.Helper()
	select {
	case evt, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Inbound{}
	}
}

func receiveDelivery(t *testing.T, bus *Bus) Delivery {
	t.Helper()
	select {
	case d := <-bus.Deliveries():
		return d
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return Delivery{}
	}
}

func assertNoDelivery(t *testing.T, bus *Bus) {
	t.Helper()
	select {
	case d := <-bus.Deliveries():
		t.Fatalf("unexpected delivery %+v", d)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubscribeFiltersByKind(t *testing.T) {
	bus := newTestBus(t)
	joins := bus.Subscribe(model.InJoin)
	starts := bus.Subscribe(model.InStart)

	bus.PublishInbound("c1", model.InJoin, json.RawMessage(`{"nickname":"a"}`))
	bus.PublishInbound("c2", model.InStart, nil)

	evt := receive(t, joins)
	assert.Equal(t, model.InJoin, evt.Kind)
	assert.Equal(t, model.ConnID("c1"), evt.Origin)

	evt = receive(t, starts)
	assert.Equal(t, model.InStart, evt.Kind)
	assert.Equal(t, 0, joins.Pending())
}

func TestSubscribePreservesPublishOrder(t *testing.T) {
	bus := newTestBus(t)
	sub := bus.Subscribe(model.InReady, model.InLeave)

	for i := 0; i < 100; i++ {
		kind := model.InReady
		if i%2 == 1 {
			kind = model.InLeave
		}
		payload, _ := json.Marshal(map[string]int{"seq": i})
		bus.PublishInbound("c1", kind, payload)
	}

	for i := 0; i < 100; i++ {
		var body struct{ Seq int }
		require.NoError(t, receive(t, sub).Decode(&body))
		assert.Equal(t, i, body.Seq)
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := newTestBus(t)
	sub := bus.Subscribe(model.InChatMessage)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			bus.PublishInbound("c1", model.InChatMessage, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on an idle subscriber")
	}
	assert.Positive(t, sub.Pending())
}

func TestLateSubscriberDoesNotSeeEarlierEvents(t *testing.T) {
	bus := newTestBus(t)
	bus.PublishInbound("c1", model.InJoin, nil)

	sub := bus.Subscribe(model.InJoin)
	bus.PublishInbound("c2", model.InJoin, nil)

	assert.Equal(t, model.ConnID("c2"), receive(t, sub).Origin)
}

func TestSubscriptionCloseClosesChannel(t *testing.T) {
	bus := newTestBus(t)
	sub := bus.Subscribe(model.InJoin)
	sub.Close()

	bus.PublishInbound("c1", model.InJoin, nil)

	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestBusCloseClosesSubscriptions(t *testing.T) {
	bus := newTestBus(t)
	sub := bus.Subscribe(model.InJoin)
	bus.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	// Publishing and subscribing after close are harmless
	bus.PublishInbound("c1", model.InJoin, nil)
	late := bus.Subscribe(model.InJoin)
	_, ok = <-late.C
	assert.False(t, ok)
}

func TestPublishSystemMarshalsPayload(t *testing.T) {
	bus := newTestBus(t)
	sub := bus.Subscribe(model.InAbort)

	require.NoError(t, bus.PublishSystem(model.InAbort, model.AbortPayload{Reason: model.EndReasonAborted}))

	evt := receive(t, sub)
	assert.Equal(t, SystemOrigin, evt.Origin)
	var body model.AbortPayload
	require.NoError(t, evt.Decode(&body))
	assert.Equal(t, model.EndReasonAborted, body.Reason)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	evt := Inbound{Kind: model.InReady, Payload: json.RawMessage(`{"value":`)}
	var body model.ReadyPayload
	assert.ErrorIs(t, evt.Decode(&body), model.ErrMalformedPayload)
}

func TestPublishOutboundUnicast(t *testing.T) {
	bus := newTestBus(t)
	bus.PublishOutbound(model.OutPlayerInfo, "payload", "c1")

	d := receiveDelivery(t, bus)
	assert.Equal(t, model.ConnID("c1"), d.Target)
	assert.Equal(t, model.OutPlayerInfo, d.Kind)
	assert.Equal(t, "payload", d.Payload)
	assertNoDelivery(t, bus)
}

func TestPublishOutboundDeduplicatesTargetsInOrder(t *testing.T) {
	bus := newTestBus(t)
	bus.PublishOutbound(model.OutPlayers, nil, "c2", "c1", "c2", "c3", "c1")

	var got []model.ConnID
	for i := 0; i < 3; i++ {
		got = append(got, receiveDelivery(t, bus).Target)
	}
	assert.Equal(t, []model.ConnID{"c2", "c1", "c3"}, got)
	assertNoDelivery(t, bus)
}

func TestPublishOutboundWithNoTargets(t *testing.T) {
	bus := newTestBus(t)
	bus.PublishOutbound(model.OutPlayers, nil)
	assertNoDelivery(t, bus)
}
