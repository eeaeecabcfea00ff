package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/chat"
)

type chatReq struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Context   string `json:"context"`
}

// SendChatMessage runs one assistant turn. The response shape is fixed:
// the assistant message, the session id (possibly freshly minted), and the
// estimated token total for the whole session.
func (h *Handler) SendChatMessage(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Message == "" {
		fail(c, http.StatusBadRequest, "message is required")
		return
	}

	reply, sessionID, totalTokens, err := h.ChatSvc.SendMessage(
		c.Request.Context(), req.SessionID, req.Message, req.Context)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrSessionLimit):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":   false,
				"error":     "session message limit reached, start a new session",
				"sessionId": sessionID,
			})
		case errors.Is(err, ai.ErrTimeout):
			fail(c, http.StatusGatewayTimeout, "assistant did not answer in time, try again")
		default:
			h.failInternal(c, err, "failed to process chat message")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     reply,
		"sessionId":   sessionID,
		"totalTokens": totalTokens,
	})
}

func (h *Handler) ChatHistory(c *gin.Context) {
	msgs, sessionID, totalTokens, err := h.ChatSvc.History(
		c.Request.Context(), c.Query("sessionId"))
	if err != nil {
		h.failInternal(c, err, "failed to load chat history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    msgs,
		"sessionId":   sessionID,
		"totalTokens": totalTokens,
	})
}

func (h *Handler) ClearChat(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		var req struct {
			SessionID string `json:"sessionId"`
		}
		_ = c.ShouldBindJSON(&req)
		sessionID = req.SessionID
	}
	if sessionID == "" {
		fail(c, http.StatusBadRequest, "sessionId is required")
		return
	}

	if err := h.ChatSvc.Clear(c.Request.Context(), sessionID); err != nil &&
		!errors.Is(err, chat.ErrSessionNotFound) {
		h.failInternal(c, err, "failed to clear chat session")
		return
	}

	ok(c, http.StatusOK, gin.H{"sessionId": sessionID})
}
