package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"geminiConfigured": h.Cfg.GeminiAPIKey != "",
	})
}
