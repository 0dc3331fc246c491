package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
	"github.com/ronaldwang03/agent-os-sub001/pkg/events"
	"github.com/ronaldwang03/agent-os-sub001/pkg/log"
)

type (
	// Client represents a WebSocket client connection for event streaming
	Client struct {
		server    *Server
		conn      *websocket.Conn
		consumer  events.Consumer
		filter    events.EventFilter
		done      chan struct{}
		closeOnce sync.Once
	}

	// SubscribeRequest is sent by clients to select which events they
	// receive. An empty subscription streams everything
	SubscribeRequest struct {
		Type       string             `json:"type"`
		RunID      api.RunID          `json:"run_id,omitempty"`
		Workflow   string             `json:"workflow,omitempty"`
		EventTypes []events.EventType `json:"event_types,omitempty"`
	}
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	allEvents := func(*events.Event) bool { return true }
	client := &Client{
		server:   s,
		conn:     conn,
		consumer: s.eventHub.NewConsumer(),
		filter:   allEvents,
		done:     make(chan struct{}),
	}

	s.registerWebSocket(client)
	go client.run()
}

// Close terminates the client connection and its event subscription.
// Safe to call more than once
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) run() {
	defer func() {
		c.server.unregisterWebSocket(c)
		c.consumer.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message, ok := <-incoming:
			if !ok {
				return
			}
			if !c.handleSubscribe(message) {
				return
			}

		case event, ok := <-c.consumer.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendEventIfMatched(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

// handleSubscribe applies a client's subscription and acknowledges it
// over the socket
func (c *Client) handleSubscribe(message []byte) bool {
	var sub SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return true
	}

	if sub.Type != "subscribe" {
		return true
	}

	c.filter = buildFilter(&sub)

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(api.MessageResponse{
		Message: "subscription updated",
	}); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendEventIfMatched(event *events.Event) bool {
	if !c.filter(event) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

// buildFilter creates an event filter from a client subscription
func buildFilter(sub *SubscribeRequest) events.EventFilter {
	var filters []events.EventFilter
	if sub.RunID != "" {
		filters = append(filters, events.FilterRun(sub.RunID))
	}
	if sub.Workflow != "" {
		filters = append(filters, events.FilterWorkflow(sub.Workflow))
	}
	if len(sub.EventTypes) > 0 {
		filters = append(filters, events.FilterEvents(sub.EventTypes...))
	}

	if len(filters) == 0 {
		return func(*events.Event) bool { return true }
	}
	return events.AndFilters(filters...)
}
