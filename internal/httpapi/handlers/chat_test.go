package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/chat"
	"github.com/lawdesk/lawdesk-server/internal/logger"
)

type scriptedProvider struct {
	reply string
	last  []ai.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	p.last = messages
	return p.reply, nil
}

func newChatTestRouter(t *testing.T, provider ai.Provider, maxMessages int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := chat.NewMemoryStore(maxMessages)
	svc := chat.NewService(store, provider, 20, 0, 0, logger.NewNop())
	h := &Handler{Log: logger.NewNop(), ChatSvc: svc}

	r := gin.New()
	r.POST("/api/chat", h.SendChatMessage)
	r.GET("/api/chat/history", h.ChatHistory)
	r.DELETE("/api/chat/clear", h.ClearChat)
	return r
}

func postChat(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type chatResp struct {
	Message struct {
		ID      uint64 `json:"id"`
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	SessionID   string `json:"sessionId"`
	TotalTokens int    `json:"totalTokens"`
}

func TestSendChatMessageMintsSession(t *testing.T) {
	provider := &scriptedProvider{reply: "hello there"}
	r := newChatTestRouter(t, provider, 100)

	rec := postChat(t, r, `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp chatResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("no session id minted")
	}
	if resp.Message.Role != chat.RoleAssistant || resp.Message.Content != "hello there" {
		t.Fatalf("unexpected message %+v", resp.Message)
	}
	if resp.TotalTokens <= 0 {
		t.Fatalf("totalTokens = %d", resp.TotalTokens)
	}
}

func TestSendChatMessageContextReachesProviderOnly(t *testing.T) {
	provider := &scriptedProvider{reply: "noted"}
	r := newChatTestRouter(t, provider, 100)

	rec := postChat(t, r, `{"message":"what is the deadline?","context":"Case 12: appeal due 2026-10-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	final := provider.last[len(provider.last)-1].Content
	if !strings.Contains(final, "Context: Case 12") || !strings.Contains(final, "Question: what is the deadline?") {
		t.Fatalf("provider prompt missing context fold: %q", final)
	}

	var resp chatResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// the stored history keeps the raw message, not the folded prompt
	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?sessionId="+resp.SessionID, nil)
	histRec := httptest.NewRecorder()
	r.ServeHTTP(histRec, req)

	var hist struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(histRec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(hist.Messages) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist.Messages))
	}
	if hist.Messages[0].Content != "what is the deadline?" {
		t.Fatalf("stored user message = %q", hist.Messages[0].Content)
	}
}

func TestSendChatMessageSessionLimit(t *testing.T) {
	provider := &scriptedProvider{reply: "ok"}
	r := newChatTestRouter(t, provider, 2)

	first := postChat(t, r, `{"message":"one"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first turn status = %d", first.Code)
	}
	var resp chatResp
	if err := json.Unmarshal(first.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second := postChat(t, r, `{"message":"two","sessionId":"`+resp.SessionID+`"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", second.Code)
	}
	if !strings.Contains(second.Body.String(), "start a new session") {
		t.Fatalf("limit error should tell the user to start a new session: %s", second.Body.String())
	}
}

func TestChatHistoryUnknownSessionMintsFresh(t *testing.T) {
	r := newChatTestRouter(t, &scriptedProvider{reply: "x"}, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?sessionId=bogus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Messages  []chat.Message `json:"messages"`
		SessionID string         `json:"sessionId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.SessionID == "" || resp.SessionID == "bogus" {
		t.Fatalf("sessionId = %q, want a fresh id", resp.SessionID)
	}
	if len(resp.Messages) != 0 {
		t.Fatalf("messages = %d, want empty", len(resp.Messages))
	}
}

func TestClearChatRequiresSessionID(t *testing.T) {
	r := newChatTestRouter(t, &scriptedProvider{}, 100)

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/clear", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
