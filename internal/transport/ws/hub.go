package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/iq180/internal/events"
	"github.com/mcoot/iq180/internal/model"
)

// Hub routes outbound deliveries to connected websocket clients
type Hub struct {
	clients map[model.ConnID]*Client
	mu      sync.RWMutex
	logger  *slog.Logger

	deliveries <-chan events.Delivery

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a Hub consuming the given delivery stream
func NewHub(deliveries <-chan events.Delivery, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[model.ConnID]*Client),
		logger:     logger.With(slog.String("component", "ws-hub")),
		deliveries: deliveries,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when the hub is closed or
// the delivery stream ends.
func (h *Hub) Run() {
	h.logger.Info("ws hub started")
	defer h.shutdown()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered",
				slog.String("conn_id", string(client.id)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.id]; ok && current == client {
				delete(h.clients, client.id)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("ws client unregistered",
					slog.String("conn_id", string(client.id)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case d, ok := <-h.deliveries:
			if !ok {
				return
			}
			h.deliver(d)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) deliver(d events.Delivery) {
	h.mu.RLock()
	client, ok := h.clients[d.Target]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("ws delivery dropped - unknown connection",
			slog.String("conn_id", string(d.Target)),
			slog.String("event", string(d.Kind)))
		return
	}

	message, err := Encode(string(d.Kind), d.Payload)
	if err != nil {
		h.logger.Error("ws failed to encode delivery",
			slog.String("event", string(d.Kind)),
			slog.Any("error", err))
		return
	}
	client.enqueue(message)
}

func (h *Hub) shutdown() {
	h.Close()
	h.mu.Lock()
	clientCount := len(h.clients)
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	h.mu.Unlock()
	h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", clientCount))
}

// Register adds a client to the hub. It reports false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
