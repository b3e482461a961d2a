package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vsinha/stockroom/pkg/infrastructure/events"
	"go.uber.org/zap"
)

// Hub pushes domain events to connected websocket clients.
// It is an events.EventHandler, so subscribing it to the bus is all the wiring needed.
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *outbound

	logger *zap.Logger
	done   chan struct{}
}

// outbound is an encoded event and its type, used for per-client filtering
type outbound struct {
	eventType string
	data      []byte
}

// NewHub creates a hub; call Run to start delivering
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan *outbound, 1024),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop; it returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			h.logger.Debug("websocket client registered", zap.String("client_id", client.ID), zap.Int("total", h.ClientCount()))

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) remove(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) deliver(msg *outbound) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for client := range h.clients {
		if !client.wants(msg.eventType) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			h.logger.Warn("websocket client too slow, dropping event",
				zap.String("client_id", client.ID), zap.String("event", msg.eventType))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) CanHandle(string) bool {
	return true
}

// Handle queues event for every interested client
func (h *Hub) Handle(event events.Event) error {
	data, err := json.Marshal(events.Envelope(event))
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &outbound{eventType: event.Type(), data: data}:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event", zap.String("event", event.Type()))
	}
	return nil
}
