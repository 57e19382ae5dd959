package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cypher-service/internal/middleware"
	"cypher-service/internal/services"
)

// AuthHandler serves registration and session endpoints.
type AuthHandler struct {
	users *services.UserService
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register creates an account and returns a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		CypherTag string `json:"cypher_tag" binding:"required"`
		Password  string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.users.Register(c.Request.Context(), req.CypherTag, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		CypherTag string `json:"cypher_tag" binding:"required"`
		Password  string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.users.Login(c.Request.Context(), req.CypherTag, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Logout marks the authenticated user offline.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	if err := h.users.Logout(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
