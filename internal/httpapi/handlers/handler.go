package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/aicontext"
	"github.com/lawdesk/lawdesk-server/internal/chat"
	"github.com/lawdesk/lawdesk-server/internal/config"
	"github.com/lawdesk/lawdesk-server/internal/logger"
	"github.com/lawdesk/lawdesk-server/internal/ocr"
	"github.com/lawdesk/lawdesk-server/internal/practice"
)

type Handler struct {
	Cfg      config.Config
	Log      *logger.Logger
	Practice *practice.Service
	ChatSvc  *chat.Service
	OCR      *ocr.Gateway
	Builder  *aicontext.Builder
	Cache    *aicontext.Cache
}

func NewHandler(
	cfg config.Config,
	log *logger.Logger,
	practiceSvc *practice.Service,
	chatSvc *chat.Service,
	ocrGateway *ocr.Gateway,
	builder *aicontext.Builder,
	cache *aicontext.Cache,
) *Handler {
	return &Handler{
		Cfg:      cfg,
		Log:      log,
		Practice: practiceSvc,
		ChatSvc:  chatSvc,
		OCR:      ocrGateway,
		Builder:  builder,
		Cache:    cache,
	}
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

// failInternal hides the underlying error in production and logs it either way.
func (h *Handler) failInternal(c *gin.Context, err error, msg string) {
	h.Log.Error(msg, "error", err, "path", c.Request.URL.Path)
	if h.Cfg.IsProduction() {
		fail(c, http.StatusInternalServerError, msg)
		return
	}
	fail(c, http.StatusInternalServerError, msg+": "+err.Error())
}
