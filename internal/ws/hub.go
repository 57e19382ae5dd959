package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"cypher-service/internal/models"
	"cypher-service/internal/observability"
)

// Hub maintains active websocket rooms, one per conversation.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection to a conversation room.
func (h *Hub) AddClient(conversationID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[conversationID][conn] = true
	if _, ok := h.connInfo[conversationID]; !ok {
		h.connInfo[conversationID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[conversationID][conn] = info
}

// RemoveClient removes a websocket connection from its room.
func (h *Hub) RemoveClient(conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	if infos, ok := h.connInfo[conversationID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, conversationID)
		}
	}
}

// BroadcastMessage sends a new or edited message to every client in the room.
func (h *Hub) BroadcastMessage(conversationID string, msg models.Message) {
	h.broadcast(conversationID, models.ConversationEvent{Type: "message", Message: &msg})
}

// BroadcastDeletion notifies clients that a message was soft-deleted.
func (h *Hub) BroadcastDeletion(conversationID, messageID string) {
	h.broadcast(conversationID, models.ConversationEvent{Type: "message_deleted", MessageID: messageID})
}

// BroadcastTyping relays a typing indicator.
func (h *Hub) BroadcastTyping(conversationID, userID string, typing bool) {
	h.broadcast(conversationID, models.ConversationEvent{Type: "typing", UserID: userID, Typing: typing})
}

func (h *Hub) broadcast(conversationID string, event models.ConversationEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[conversationID]))
	for conn := range h.rooms[conversationID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(conversationID, conn)
			observability.IncWSEvent("ws_error")
		}
	}
}
