package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"cypher-service/internal/observability"
	"cypher-service/internal/repositories"
	"cypher-service/internal/security"
)

// ConversationWebSocketHandler upgrades members onto a conversation room and
// relays typing indicators from the read loop.
type ConversationWebSocketHandler struct {
	hub           *Hub
	conversations repositories.ConversationRepository
	tokens        *security.TokenManager
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(hub *Hub, conversations repositories.ConversationRepository, tokens *security.TokenManager) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, conversations: conversations, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type typingFrame struct {
	Type   string `json:"type"`
	Typing bool   `json:"typing"`
}

// Handle validates the token and membership, upgrades the connection and
// registers the client.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("cypher-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	userID, err := h.tokens.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	members, err := h.conversations.Members(ctx, conversationID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}
	isMember := false
	for _, m := range members {
		if m.UserID == userID {
			isMember = true
			break
		}
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    deviceIDFromRequest(c.Request),
		IP:          ipFromRequest(c.Request),
		RequestID:   requestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conversationID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")

	go h.readLoop(conversationID, userID, conn)
}

// readLoop drains the connection until it closes, relaying typing frames to
// the room.
func (h *ConversationWebSocketHandler) readLoop(conversationID, userID string, conn *websocket.Conn) {
	defer func() {
		h.hub.RemoveClient(conversationID, conn)
		h.hub.BroadcastTyping(conversationID, userID, false)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		conn.Close()
	}()

	for {
		var frame typingFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		if frame.Type == "typing" {
			h.hub.BroadcastTyping(conversationID, userID, frame.Typing)
		}
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
