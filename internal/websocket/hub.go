package websocket

import (
	"sync"

	"flowchat-be/internal/pkg/logger"
)

// Hub tracks the live realtime connections on this instance.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	// done is closed by Stop and ends Run.
	done     chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run serves register and unregister requests until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.logger.Info("Hub", "Hub stopped", nil)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"connection_id": client.ID.String(), "connections": total})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"connection_id": client.ID.String(), "connections": total})
		}
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll sends every connection a close frame. Clients unregister themselves
// once their read side stops.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.Close()
	}
	h.logger.Info("Hub", "Closing all connections", map[string]interface{}{"connections": len(h.clients)})
}

// Stop ends Run. Connections that register or unregister afterwards do not block.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// add hands the client to Run. It reports false once the hub is stopped.
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
