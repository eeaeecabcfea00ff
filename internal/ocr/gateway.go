package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/logger"
)

var (
	ErrFileTooLarge    = errors.New("ocr: file exceeds the 10MB limit")
	ErrUnsupportedType = errors.New("ocr: unsupported file type, only images and PDF are accepted")
)

const extractionPrompt = `Analyze this document and extract its text. Return the result as JSON:

{
  "extractedText": "the full extracted text of the document",
  "documentType": "document type (contract, court decision, claim, certificate, etc.)",
  "confidence": recognition quality estimate from 0 to 1,
  "summary": "a short summary of the document contents (2-3 sentences)",
  "keyEntities": ["key persons, organizations, dates, amounts"],
  "legalCategory": "area of law (civil, criminal, labor, administrative)"
}

If this is a legal document, pay particular attention to:
- case numbers and court instances
- dates and deadlines
- parties to the proceedings
- amounts and penalties
- legal grounds
`

type Result struct {
	ExtractedText string   `json:"extractedText"`
	DocumentType  string   `json:"documentType"`
	Confidence    float64  `json:"confidence"`
	Summary       string   `json:"summary"`
	KeyEntities   []string `json:"keyEntities"`
	LegalCategory string   `json:"legalCategory,omitempty"`
}

// Gateway sends a document to the vision provider and normalizes the reply.
// A reply that cannot be parsed as JSON is not an error: the raw text is
// returned with a fixed low-confidence default.
type Gateway struct {
	provider    ai.VisionProvider
	maxFileSize int64
	timeout     time.Duration
	log         *logger.Logger
}

func NewGateway(provider ai.VisionProvider, maxFileSize int64, timeout time.Duration, log *logger.Logger) *Gateway {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{provider: provider, maxFileSize: maxFileSize, timeout: timeout, log: log}
}

// Validate rejects a file before any upstream call is made.
func (g *Gateway) Validate(size int64, mimeType string) error {
	if size > g.maxFileSize {
		return ErrFileTooLarge
	}
	if !SupportedMIME(mimeType) {
		return ErrUnsupportedType
	}
	return nil
}

func SupportedMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

func (g *Gateway) Process(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	if err := g.Validate(int64(len(data)), mimeType); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var raw string
	err := ai.Do(cctx, 3, time.Second, func() error {
		var callErr error
		raw, callErr = g.provider.AnalyzeDocument(cctx, data, mimeType, extractionPrompt)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return parseResponse(raw, g.log), nil
}

type rawResult struct {
	ExtractedText *string  `json:"extractedText"`
	DocumentType  *string  `json:"documentType"`
	Confidence    *float64 `json:"confidence"`
	Summary       *string  `json:"summary"`
	KeyEntities   []string `json:"keyEntities"`
	LegalCategory *string  `json:"legalCategory"`
}

// parseResponse locates a JSON object inside the model reply and applies
// per-field defaults. The model is not guaranteed to return pure JSON;
// when nothing parseable is found the whole reply becomes the extracted text.
func parseResponse(raw string, log *logger.Logger) *Result {
	if body, ok := locateJSON(raw); ok {
		var r rawResult
		if err := json.Unmarshal([]byte(body), &r); err == nil {
			res := &Result{
				ExtractedText: strDefault(r.ExtractedText, ""),
				DocumentType:  strDefault(r.DocumentType, "Unknown document"),
				Confidence:    0.8,
				Summary:       strDefault(r.Summary, "Summary could not be generated"),
				KeyEntities:   r.KeyEntities,
				LegalCategory: strDefault(r.LegalCategory, ""),
			}
			if r.Confidence != nil {
				res.Confidence = *r.Confidence
			}
			if res.KeyEntities == nil {
				res.KeyEntities = []string{}
			}
			return res
		}
		if log != nil {
			log.Warn("ocr response JSON did not parse, falling back to raw text")
		}
	}

	return &Result{
		ExtractedText: raw,
		DocumentType:  "Document",
		Confidence:    0.7,
		Summary:       "Text extracted, but detailed analysis was not possible",
		KeyEntities:   []string{},
	}
}

func locateJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func strDefault(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
