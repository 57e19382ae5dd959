package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cypher-service/internal/middleware"
	"cypher-service/internal/models"
	"cypher-service/internal/services"
)

// ConversationHandler serves conversation and membership endpoints.
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// Create opens a new conversation with the caller as owner.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req struct {
		Type           string   `json:"type" binding:"required"`
		Name           string   `json:"name"`
		ParticipantIDs []string `json:"participant_ids"`
		Currency       string   `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.conversations.Create(c.Request.Context(), services.CreateInput{
		CreatorID:      c.GetString(middleware.UserIDKey),
		ParticipantIDs: req.ParticipantIDs,
		Type:           models.ConversationType(req.Type),
		Name:           req.Name,
		Currency:       req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// List returns the conversations visible to the authenticated user.
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversations.ListForUser(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// Get returns one conversation for a member.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.conversations.Get(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// Members returns the membership records for a member.
func (h *ConversationHandler) Members(c *gin.Context) {
	members, err := h.conversations.Members(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddParticipants invites users to the conversation.
func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.conversations.AddParticipants(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey), req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

// RemoveParticipants evicts users from the conversation.
func (h *ConversationHandler) RemoveParticipants(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.conversations.RemoveParticipants(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey), req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed", "conversation_deleted": deleted})
}

// Leave removes the caller from the conversation.
func (h *ConversationHandler) Leave(c *gin.Context) {
	deleted, err := h.conversations.Leave(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left", "conversation_deleted": deleted})
}

// Rename updates the conversation name.
func (h *ConversationHandler) Rename(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.conversations.Rename(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "renamed"})
}

// Pin adds or removes a message from the pinned set.
func (h *ConversationHandler) Pin(c *gin.Context) {
	var req struct {
		MessageID string `json:"message_id" binding:"required"`
		Pin       *bool  `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.conversations.Pin(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey), req.MessageID, *req.Pin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// SetMemberPermissions replaces a member's participant flags.
func (h *ConversationHandler) SetMemberPermissions(c *gin.Context) {
	var req struct {
		UserID               string `json:"user_id" binding:"required"`
		CanSendMessages      *bool  `json:"can_send_messages" binding:"required"`
		CanDeleteOwnMessages *bool  `json:"can_delete_own_messages" binding:"required"`
		CanLeaveConversation *bool  `json:"can_leave_conversation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.conversations.SetMemberPermissions(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey),
		req.UserID, *req.CanSendMessages, *req.CanDeleteOwnMessages, *req.CanLeaveConversation)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// PromoteAdmin raises a participant to admin with the given capabilities.
func (h *ConversationHandler) PromoteAdmin(c *gin.Context) {
	var req struct {
		UserID       string   `json:"user_id" binding:"required"`
		Capabilities []string `json:"capabilities"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.conversations.PromoteAdmin(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey), req.UserID, req.Capabilities)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "promoted"})
}

// Delete removes the conversation and everything under it.
func (h *ConversationHandler) Delete(c *gin.Context) {
	err := h.conversations.Delete(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Clear wipes the conversation's message history.
func (h *ConversationHandler) Clear(c *gin.Context) {
	removed, err := h.conversations.Clear(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "messages_removed": removed})
}

// MarkRead records a read receipt for the caller.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	err := h.conversations.MarkRead(c.Request.Context(), c.Param("conversation_id"), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
