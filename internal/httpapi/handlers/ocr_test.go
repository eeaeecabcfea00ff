package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/config"
	"github.com/lawdesk/lawdesk-server/internal/logger"
	"github.com/lawdesk/lawdesk-server/internal/ocr"
)

type recordingVision struct {
	calls int
	reply string
	err   error
}

func (r *recordingVision) AnalyzeDocument(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	r.calls++
	return r.reply, r.err
}

func newOCRTestRouter(t *testing.T, provider *recordingVision) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{MaxUploadSize: 10 << 20}
	log := logger.NewNop()
	h := &Handler{
		Cfg: cfg,
		Log: log,
		OCR: ocr.NewGateway(provider, cfg.MaxUploadSize, 0, log),
	}

	r := gin.New()
	r.POST("/api/ocr", h.ProcessOCR)
	return r
}

func multipartDocument(t *testing.T, name, mimeType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="document"; filename="`+name+`"`)
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestProcessOCROversizedRejectedBeforeUpstream(t *testing.T) {
	provider := &recordingVision{}
	r := newOCRTestRouter(t, provider)

	body, contentType := multipartDocument(t, "scan.png", "image/png", make([]byte, 11<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/ocr", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "10MB") {
		t.Fatalf("error should name the 10MB limit, got %s", rec.Body.String())
	}
	if provider.calls != 0 {
		t.Fatalf("provider called %d times for an oversized file", provider.calls)
	}
}

func TestProcessOCRUnsupportedTypeRejected(t *testing.T) {
	provider := &recordingVision{}
	r := newOCRTestRouter(t, provider)

	body, contentType := multipartDocument(t, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/ocr", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if provider.calls != 0 {
		t.Fatalf("provider called %d times for an unsupported type", provider.calls)
	}
}

func TestProcessOCRReturnsParsedResult(t *testing.T) {
	provider := &recordingVision{
		reply: `{"extractedText":"Contract text","documentType":"contract","confidence":0.93,"summary":"A contract.","keyEntities":["ACME"]}`,
	}
	r := newOCRTestRouter(t, provider)

	body, contentType := multipartDocument(t, "scan.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	req := httptest.NewRequest(http.MethodPost, "/api/ocr", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool       `json:"success"`
		Data    ocr.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success {
		t.Fatal("success = false")
	}
	if resp.Data.ExtractedText != "Contract text" {
		t.Fatalf("extractedText = %q", resp.Data.ExtractedText)
	}
	if resp.Data.Confidence != 0.93 {
		t.Fatalf("confidence = %v, want 0.93", resp.Data.Confidence)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}

func TestProcessOCRMissingFile(t *testing.T) {
	r := newOCRTestRouter(t, &recordingVision{})

	req := httptest.NewRequest(http.MethodPost, "/api/ocr", strings.NewReader(""))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
