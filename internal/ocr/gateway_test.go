package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lawdesk/lawdesk-server/internal/logger"
)

type recordingVision struct {
	calls int
	reply string
	err   error
}

func (v *recordingVision) AnalyzeDocument(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	_ = ctx
	_ = data
	_ = mimeType
	_ = prompt
	v.calls++
	return v.reply, v.err
}

func newTestGateway(v *recordingVision) *Gateway {
	return NewGateway(v, 10<<20, 5*time.Second, logger.NewNop())
}

func TestProcess_ParsesJSONWithDefaults(t *testing.T) {
	v := &recordingVision{reply: "Here is the result:\n{\"extractedText\": \"hello\", \"documentType\": \"contract\"}\nDone."}
	g := newTestGateway(v)

	res, err := g.Process(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.ExtractedText != "hello" {
		t.Fatalf("unexpected text: %q", res.ExtractedText)
	}
	if res.DocumentType != "contract" {
		t.Fatalf("unexpected type: %q", res.DocumentType)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("expected default confidence 0.8, got %v", res.Confidence)
	}
	if res.KeyEntities == nil || len(res.KeyEntities) != 0 {
		t.Fatalf("expected empty entity list, got %v", res.KeyEntities)
	}
}

func TestProcess_FallsBackToRawTextOnBadJSON(t *testing.T) {
	v := &recordingVision{reply: "this is { not valid json at all"}
	g := newTestGateway(v)

	res, err := g.Process(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("fallback must not surface an error, got %v", err)
	}
	if res.ExtractedText != v.reply {
		t.Fatalf("expected raw reply as extracted text, got %q", res.ExtractedText)
	}
	if res.Confidence != 0.7 {
		t.Fatalf("expected fallback confidence 0.7, got %v", res.Confidence)
	}
	if len(res.KeyEntities) != 0 {
		t.Fatalf("expected empty entities, got %v", res.KeyEntities)
	}
}

func TestProcess_RejectsOversizedWithoutUpstreamCall(t *testing.T) {
	v := &recordingVision{reply: "{}"}
	g := newTestGateway(v)

	big := make([]byte, 10<<20+1)
	_, err := g.Process(context.Background(), big, "application/pdf")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if v.calls != 0 {
		t.Fatalf("provider must not be called for an oversized file, got %d calls", v.calls)
	}
}

func TestProcess_RejectsUnsupportedMIME(t *testing.T) {
	v := &recordingVision{reply: "{}"}
	g := newTestGateway(v)

	_, err := g.Process(context.Background(), []byte("doc"), "text/plain")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if v.calls != 0 {
		t.Fatalf("provider must not be called for an unsupported type, got %d calls", v.calls)
	}
}

func TestExtractDatesAndNumbers(t *testing.T) {
	text := "Hearing on 12.03.2024, filed 2023-11-02, case A40-12345/2023, amount 150000."
	dates := ExtractDates(text)
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %v", dates)
	}
	nums := ExtractNumbers(text)
	if len(nums) == 0 {
		t.Fatalf("expected at least one number, got %v", nums)
	}
}
