package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"flowchat-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// ConnState is the lifecycle of one realtime connection. It only ever moves
// from Connected to Closed.
type ConnState int32

const (
	StateConnected ConnState = iota
	StateClosed
)

func (s ConnState) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "closed"
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	ID   uuid.UUID
	Hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound frames, one websocket message each.
	Send chan []byte

	state     atomic.Int32
	shutdown  chan struct{}
	closeOnce sync.Once
	logger    logger.ILogger
	now       func() time.Time
}

func newClient(hub *Hub, conn *websocket.Conn, log logger.ILogger) *Client {
	return &Client{
		ID:       uuid.New(),
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		shutdown: make(chan struct{}),
		logger:   log,
		now:      time.Now,
	}
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// markClosed moves the client to Closed. It reports whether this call did it.
func (c *Client) markClosed() bool {
	return c.state.CompareAndSwap(int32(StateConnected), int32(StateClosed))
}

// Close asks the write side to send a close frame and drop the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.shutdown) })
}

func (c *Client) enqueue(frame Frame) {
	if c.State() != StateConnected {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("WS", "Failed to encode frame", map[string]interface{}{"connection_id": c.ID.String(), "error": err.Error()})
		return
	}
	select {
	case c.Send <- data:
	default:
		c.logger.Warn("WS", "Send buffer full, dropping frame", map[string]interface{}{"connection_id": c.ID.String(), "type": frame.Type})
	}
}

// handleFrame applies the protocol to one inbound text frame.
func (c *Client) handleFrame(raw []byte) {
	frame, err := ParseFrame(raw)
	if err != nil {
		c.logger.Warn("WS", "Malformed frame", map[string]interface{}{"connection_id": c.ID.String(), "size": len(raw)})
		c.enqueue(ErrorFrame())
		return
	}

	switch frame.Type {
	case TypeMessage:
		c.enqueue(EchoFrame(frame, c.now()))
	case TypeStatus:
		c.logger.Info("WS", "Status frame received", map[string]interface{}{"connection_id": c.ID.String(), "data": frame.Data})
	default:
		c.logger.Debug("WS", "Ignoring frame", map[string]interface{}{"connection_id": c.ID.String(), "type": frame.Type})
	}
}

// readPump reads frames until the peer goes away, then unregisters the client.
func (c *Client) readPump() {
	defer func() {
		if c.markClosed() {
			c.logger.Info("WS", "Client disconnected", map[string]interface{}{"connection_id": c.ID.String()})
		}
		c.Close()
		c.Hub.remove(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("WS", "Unexpected close", map[string]interface{}{"connection_id": c.ID.String(), "error": err.Error()})
			}
			return
		}
		if msgType != websocket.TextMessage {
			c.enqueue(ErrorFrame())
			continue
		}
		c.handleFrame(payload)
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WS", "Write failed", map[string]interface{}{"connection_id": c.ID.String(), "error": err.Error()})
				return
			}
		case <-c.shutdown:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
