package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cypher-service/internal/repositories"
)

// RegisterDebugRoutes wires debug-only endpoints onto the given route group.
// The stats counts are operator data, so callers must pass an employee-gated
// group.
func RegisterDebugRoutes(r gin.IRoutes, users repositories.UserRepository,
	conversations repositories.ConversationRepository, messages repositories.MessageRepository,
	publisherMode, syncMode string, enabled bool) {
	if !enabled {
		return
	}

	r.GET("/debug/stats", func(c *gin.Context) {
		ctx := c.Request.Context()
		userCount, err := users.Count(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		convCount, err := conversations.Count(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		msgCount, err := messages.Count(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":          userCount,
			"conversations":  convCount,
			"messages":       msgCount,
			"publisher_mode": publisherMode,
			"sync_mode":      syncMode,
		})
	})
}
