package ws

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/iq180/internal/dependencies/clock"
	"github.com/mcoot/iq180/internal/events"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/testutil"
)

type WebsocketSuite struct {
	suite.Suite
	bus     *events.Bus
	hub     *Hub
	server  *httptest.Server
	inbound *events.Subscription
	nextID  atomic.Int64
}

func TestWebsocketSuite(t *testing.T) {
	suite.Run(t, new(WebsocketSuite))
}

func (s *WebsocketSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.bus = events.NewBus(clock.New(), logger)
	s.inbound = s.bus.Subscribe(model.ClientInboundKinds...)
	s.hub = NewHub(s.bus.Deliveries(), logger)
	go s.hub.Run()

	s.nextID.Store(0)
	handler := NewHandler(s.hub, s.bus, logger, WithConnIDGenerator(func() model.ConnID {
		return model.ConnID(fmt.Sprintf("conn-%d", s.nextID.Add(1)))
	}))
	s.server = httptest.NewServer(handler)
}

func (s *WebsocketSuite) TearDownTest() {
	s.hub.Close()
	s.bus.Close()
	s.server.Close()
}

// dial connects a client and waits until the hub has registered it
func (s *WebsocketSuite) dial() *websocket.Conn {
	before := s.hub.ClientCount()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	s.Require().Eventually(func() bool {
		return s.hub.ClientCount() == before+1
	}, testutil.DefaultWait, time.Millisecond)
	return conn
}

func (s *WebsocketSuite) read(conn *websocket.Conn) Envelope {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(testutil.DefaultWait)))
	_, message, err := conn.ReadMessage()
	s.Require().NoError(err)
	env, err := Decode(message)
	s.Require().NoError(err)
	return env
}

func (s *WebsocketSuite) TestInboundEnvelopeIsPublished() {
	conn := s.dial()

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"JOIN","data":{"nickname":"alice"}}`)))

	evt := testutil.Receive(s.T(), s.inbound.C)
	s.Equal(model.ConnID("conn-1"), evt.Origin)
	s.Equal(model.InJoin, evt.Kind)
	var p model.JoinPayload
	s.Require().NoError(evt.Decode(&p))
	s.Equal("alice", p.Nickname)
}

func (s *WebsocketSuite) TestDeliveryReachesOnlyItsTarget() {
	first := s.dial()
	second := s.dial()

	s.bus.PublishOutbound(model.OutGameReady, model.GameReadyPayload{Ready: true}, "conn-2")

	env := s.read(second)
	s.Equal(string(model.OutGameReady), env.Event)
	var p model.GameReadyPayload
	s.Require().NoError(json.Unmarshal(env.Data, &p))
	s.True(p.Ready)

	s.Require().NoError(first.SetReadDeadline(time.Now().Add(50 * time.Millisecond)))
	_, _, err := first.ReadMessage()
	s.Error(err)
}

func (s *WebsocketSuite) TestDeliveriesKeepOrder() {
	conn := s.dial()

	for round := 1; round <= 5; round++ {
		s.bus.PublishOutbound(model.OutStartRound, model.StartRoundPayload{Round: round}, "conn-1")
	}

	for round := 1; round <= 5; round++ {
		var p model.StartRoundPayload
		s.Require().NoError(json.Unmarshal(s.read(conn).Data, &p))
		s.Equal(round, p.Round)
	}
}

func (s *WebsocketSuite) TestDisconnectPublishesLeave() {
	conn := s.dial()
	s.Require().NoError(conn.Close())

	evt := testutil.Receive(s.T(), s.inbound.C)
	s.Equal(model.InLeave, evt.Kind)
	s.Equal(model.ConnID("conn-1"), evt.Origin)
	s.Eventually(func() bool {
		return s.hub.ClientCount() == 0
	}, testutil.DefaultWait, time.Millisecond)
}

func (s *WebsocketSuite) TestInternalEventFromClientIsRejected() {
	conn := s.dial()

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"ABORT"}`)))

	env := s.read(conn)
	s.Equal(string(model.OutError), env.Event)
	var p model.ErrorPayload
	s.Require().NoError(json.Unmarshal(env.Data, &p))
	s.Equal(model.ErrorCodeMalformed, p.Code)
	s.Zero(s.inbound.Pending())
}

func (s *WebsocketSuite) TestMalformedEnvelopeIsRejected() {
	conn := s.dial()

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	s.Equal(string(model.OutError), s.read(conn).Event)

	// The connection stays usable
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"READY","data":{"value":true}}`)))
	evt := testutil.Receive(s.T(), s.inbound.C)
	s.Equal(model.InReady, evt.Kind)
}

func (s *WebsocketSuite) TestDeliveryToUnknownConnectionIsDropped() {
	conn := s.dial()

	s.bus.PublishOutbound(model.OutGameReady, model.GameReadyPayload{}, "conn-missing")
	s.bus.PublishOutbound(model.OutGameReady, model.GameReadyPayload{Ready: true}, "conn-1")

	var p model.GameReadyPayload
	s.Require().NoError(json.Unmarshal(s.read(conn).Data, &p))
	s.True(p.Ready)
}

func (s *WebsocketSuite) TestHubCloseDisconnectsClients() {
	conn := s.dial()
	s.hub.Close()

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(testutil.DefaultWait)))
	_, _, err := conn.ReadMessage()
	s.Error(err)
}

func TestEncodeDecodeEnvelope(t *testing.T) {
	data, err := Encode("START_ROUND", model.StartRoundPayload{Round: 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"event":"START_ROUND","data":{"round":2}}` {
		t.Errorf("unexpected envelope %s", data)
	}

	env, err := Decode([]byte(`{"event":"LEAVE"}`))
	if err != nil {
		t.Fatal(err)
	}
	if env.Event != "LEAVE" || env.Data != nil {
		t.Errorf("unexpected envelope %+v", env)
	}

	if _, err := Decode([]byte(`{"data":{}}`)); err == nil {
		t.Error("expected error for missing event")
	}
}
