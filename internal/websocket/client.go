package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/pkg/serverutils"
	"dental-triage-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	turnTimeout    = 90 * time.Second
)

// Frame types sent to the browser.
const (
	FrameSession = "session"
	FrameTurn    = "turn"
	FrameError   = "error"
)

type Frame struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	Data      *dto.ChatResponse `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Client is one socket bound to one chat session.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string
	Send      chan []byte

	triage service.ITriageService

	// guards Send against a send after close
	mu     sync.Mutex
	closed bool
}

// trySend queues data without blocking. It reports false when the buffer is
// full or the socket was already dropped.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// close ends writePump, which closes the connection and so stops readPump.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// readPump runs one chat turn per inbound text frame.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn(hubModule, "Socket closed unexpectedly", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var req dto.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.reply(Frame{Type: FrameError, SessionID: c.SessionID, Error: "invalid JSON frame"})
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		c.reply(Frame{Type: FrameError, SessionID: c.SessionID, Error: err.Error()})
		return
	}
	req.SessionId = c.SessionID

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	res, err := c.triage.Chat(ctx, &req)
	if err != nil {
		c.reply(Frame{Type: FrameError, SessionID: c.SessionID, Error: err.Error()})
		return
	}

	frame, _ := json.Marshal(Frame{Type: FrameTurn, SessionID: c.SessionID, Data: res})
	c.Hub.Send(c.SessionID, frame)
}

// reply goes to this socket only.
func (c *Client) reply(f Frame) {
	data, _ := json.Marshal(f)
	c.trySend(data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per websocket message
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
