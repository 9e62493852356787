package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/iq180/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Time between keepalive pings, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Publisher is the side of the event bus the transport talks to
type Publisher interface {
	PublishInbound(origin model.ConnID, kind model.InboundKind, payload json.RawMessage)
	PublishOutbound(kind model.OutboundKind, payload any, targets ...model.ConnID)
}

// Client is one websocket connection
type Client struct {
	hub         *Hub
	id          model.ConnID
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
	logger      *slog.Logger
}

// enqueue hands a message to the write pump without blocking. Called only
// by the hub loop, which owns closing send.
func (c *Client) enqueue(message []byte) {
	select {
	case c.send <- message:
	default:
		c.logger.Warn("ws message dropped - client buffer full")
	}
}

// Handler upgrades HTTP requests to websocket connections
type Handler struct {
	hub       *Hub
	publisher Publisher
	upgrader  websocket.Upgrader
	newConnID func() model.ConnID
	logger    *slog.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithConnIDGenerator overrides how connection ids are assigned
func WithConnIDGenerator(gen func() model.ConnID) Option {
	return func(h *Handler) {
		h.newConnID = gen
	}
}

// WithCheckOrigin overrides the upgrader's origin check
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = check
	}
}

// NewHandler creates a websocket Handler
func NewHandler(hub *Hub, publisher Publisher, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		hub:       hub,
		publisher: publisher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		newConnID: func() model.ConnID {
			return model.ConnID(uuid.NewString())
		},
		logger: logger.With(slog.String("component", "ws")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP handles the websocket connection for a client
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		h.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}

	id := h.newConnID()
	client := &Client{
		hub:         h.hub,
		id:          id,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
		logger:      h.logger.With(slog.String("conn_id", string(id))),
	}
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	h.readPump(client)
}

// readPump publishes inbound envelopes until the connection fails, then
// publishes a LEAVE for the connection
func (h *Handler) readPump(c *Client) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
		h.publisher.PublishInbound(c.id, model.InLeave, nil)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("ws read failed", slog.Any("error", err))
			}
			return
		}

		env, err := Decode(message)
		if err != nil {
			h.replyError(c, model.ErrorCodeMalformed, "invalid envelope: "+err.Error())
			continue
		}
		kind := model.InboundKind(env.Event)
		if !model.IsClientKind(kind) {
			h.replyError(c, model.ErrorCodeMalformed, "unknown event "+env.Event)
			continue
		}
		h.publisher.PublishInbound(c.id, kind, env.Data)
	}
}

// replyError answers a rejected message through the hub so it stays
// ordered with the connection's other deliveries
func (h *Handler) replyError(c *Client, code, message string) {
	c.logger.Debug("ws inbound rejected", slog.String("reason", message))
	h.publisher.PublishOutbound(model.OutError, model.ErrorPayload{Code: code, Message: message}, c.id)
}

// writePump writes queued messages and keepalive pings to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
