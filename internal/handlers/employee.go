package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cypher-service/internal/services"
)

// EmployeeHandler serves platform-employee account operations. Routes using
// it must be guarded by the employee middleware.
type EmployeeHandler struct {
	users *services.UserService
}

// NewEmployeeHandler builds an EmployeeHandler.
func NewEmployeeHandler(users *services.UserService) *EmployeeHandler {
	return &EmployeeHandler{users: users}
}

// GrantFreeCreations sets a user's free channel and group counters.
func (h *EmployeeHandler) GrantFreeCreations(c *gin.Context) {
	var req struct {
		FreeChannels *int `json:"free_channels" binding:"required"`
		FreeGroups   *int `json:"free_groups" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.users.GrantFreeCreations(c.Request.Context(), c.Param("user_id"), *req.FreeChannels, *req.FreeGroups)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

// Promote raises a user's platform role to employee.
func (h *EmployeeHandler) Promote(c *gin.Context) {
	user, err := h.users.PromoteEmployee(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteAccount removes a user record.
func (h *EmployeeHandler) DeleteAccount(c *gin.Context) {
	if err := h.users.DeleteAccount(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
