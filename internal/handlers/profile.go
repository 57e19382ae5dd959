package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cypher-service/internal/middleware"
	"cypher-service/internal/services"
)

// ProfileHandler serves profile, search and notification endpoints.
type ProfileHandler struct {
	users *services.UserService
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// Me returns the authenticated user's record.
func (h *ProfileHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Update replaces the caller's mutable profile fields.
func (h *ProfileHandler) Update(c *gin.Context) {
	var req struct {
		Bio                  string `json:"bio"`
		Avatar               string `json:"avatar"`
		NotificationsEnabled *bool  `json:"notifications_enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), c.GetString(middleware.UserIDKey),
		req.Bio, req.Avatar, *req.NotificationsEnabled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Search performs incremental cypherTag prefix search.
func (h *ProfileHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	users, err := h.users.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Notifications returns the caller's notification feed.
func (h *ProfileHandler) Notifications(c *gin.Context) {
	items, err := h.users.Notifications(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// MarkNotificationRead flags one of the caller's notifications as read.
func (h *ProfileHandler) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("notification_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.users.MarkNotificationRead(c.Request.Context(), c.GetString(middleware.UserIDKey), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
