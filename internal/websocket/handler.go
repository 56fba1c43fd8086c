package websocket

import (
	"time"

	"flowchat-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one realtime connection until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, log logger.ILogger) {
	client := newClient(hub, c, log)
	if !hub.add(client) {
		log.Warn("WS", "Hub stopped, refusing connection", map[string]interface{}{"connection_id": client.ID.String()})
		c.Close()
		return
	}

	// The connected status is the first frame the peer sees.
	client.enqueue(ConnectedFrame(time.Now()))

	// The connection is released once this returns, so wait for the writer too.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		client.writePump()
	}()
	client.readPump()
	<-writerDone
}
