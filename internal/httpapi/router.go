package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/config"
	"github.com/lawdesk/lawdesk-server/internal/httpapi/handlers"
	"github.com/lawdesk/lawdesk-server/internal/httpapi/middleware"
	"github.com/lawdesk/lawdesk-server/internal/logger"
)

func NewRouter(cfg config.Config, log *logger.Logger, h *handlers.Handler) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "method not allowed"})
	})

	api := r.Group("/api")

	// public
	api.GET("/health", h.Health)
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)

	authed := api.Group("/")
	authed.Use(middleware.AuthRequired(cfg.JWTSecret))

	// clients
	authed.POST("/clients", h.CreateClient)
	authed.GET("/clients", h.ListClients)
	authed.GET("/clients/:id", h.GetClient)
	authed.PUT("/clients/:id", h.UpdateClient)
	authed.DELETE("/clients/:id", h.DeleteClient)

	// cases
	authed.POST("/cases", h.CreateCase)
	authed.GET("/cases", h.ListCases)
	authed.GET("/cases/:id", h.GetCase)
	authed.PUT("/cases/:id", h.UpdateCase)
	authed.DELETE("/cases/:id", h.DeleteCase)
	authed.GET("/cases/:id/documents", h.ListCaseDocuments)

	// documents
	authed.POST("/documents", h.UploadDocument)
	authed.GET("/documents", h.ListDocuments)
	authed.GET("/documents/:id", h.GetDocument)
	authed.GET("/documents/:id/transcription", h.GetTranscription)
	authed.DELETE("/documents/:id", h.DeleteDocument)

	// synchronous OCR
	authed.POST("/ocr", h.ProcessOCR)

	// chat assistant
	authed.POST("/chat", h.SendChatMessage)
	authed.GET("/chat/history", h.ChatHistory)
	authed.DELETE("/chat/clear", h.ClearChat)

	// AI context
	authed.POST("/context/build", h.BuildContext)
	authed.DELETE("/context/cache/:entityId", h.ClearContextCache)
	authed.DELETE("/context/cache", h.ClearAllContextCache)

	return r
}
