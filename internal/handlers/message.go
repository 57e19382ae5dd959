package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cypher-service/internal/middleware"
	"cypher-service/internal/models"
	"cypher-service/internal/services"
	"cypher-service/internal/ws"
)

// MessageHandler serves message lifecycle endpoints.
type MessageHandler struct {
	messages *services.MessageService
	hub      *ws.Hub
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages *services.MessageService, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{messages: messages, hub: hub}
}

// Send posts a message, optionally armed with a self-destruct TTL.
func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		Body  string `json:"body" binding:"required"`
		Type  string `json:"type"`
		TTLMs int64  `json:"ttl_ms"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), services.SendInput{
		ConversationID: c.Param("conversation_id"),
		SenderID:       c.GetString(middleware.UserIDKey),
		Body:           req.Body,
		Type:           models.MessageType(req.Type),
		TTL:            time.Duration(req.TTLMs) * time.Millisecond,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastMessage(msg.ConversationID, msg)
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// List returns the conversation's messages with deleted bodies redacted.
func (h *MessageHandler) List(c *gin.Context) {
	msgs, err := h.messages.List(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Edit replaces the body of the caller's own message.
func (h *MessageHandler) Edit(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Edit(c.Request.Context(), c.Param("conversation_id"), c.Param("message_id"),
		c.GetString(middleware.UserIDKey), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastMessage(msg.ConversationID, msg)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Delete soft-deletes the caller's own message.
func (h *MessageHandler) Delete(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	messageID := c.Param("message_id")

	err := h.messages.SoftDelete(c.Request.Context(), conversationID, messageID, c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastDeletion(conversationID, messageID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
