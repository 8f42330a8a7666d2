package websocket

import (
	"encoding/json"
	"strings"

	"dental-triage-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type ChatSocketHandler struct {
	hub    *Hub
	triage service.ITriageService
}

func NewChatSocketHandler(hub *Hub, triage service.ITriageService) *ChatSocketHandler {
	return &ChatSocketHandler{hub: hub, triage: triage}
}

func (h *ChatSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/chat/v1/ws", h.Upgrade)
}

// Upgrade binds the socket to ?session_id=, or to a new session.
func (h *ChatSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return websocket.New(func(conn *websocket.Conn) {
		ServeWs(h.hub, h.triage, conn, sessionID)
	})(c)
}

func ServeWs(hub *Hub, triage service.ITriageService, conn *websocket.Conn, sessionID string) {
	client := &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
		triage:    triage,
	}
	if !hub.Register(client) {
		conn.Close()
		return
	}

	hello, _ := json.Marshal(Frame{Type: FrameSession, SessionID: sessionID})
	client.trySend(hello)

	go client.writePump()
	client.readPump()
}
