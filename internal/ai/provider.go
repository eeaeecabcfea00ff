package ai

import (
	"context"
	"errors"
)

type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Provider is a hosted or local completion backend for the chat assistant.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// VisionProvider accepts a binary document alongside an instructional prompt.
// The OCR gateway depends on this, not on a concrete client.
type VisionProvider interface {
	AnalyzeDocument(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
}

// ErrTimeout marks an upstream call that hit its deadline. Callers translate
// it separately from other upstream failures.
var ErrTimeout = errors.New("ai: upstream timeout")
