package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}

// GetSystemStatus reports which instance answered and for how long it has run.
func (h *Handler) GetSystemStatus(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"instanceId": h.InstanceID,
		"startedAt":  h.startedAt,
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
	})
}
