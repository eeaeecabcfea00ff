package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider talks to the hosted Gemini API. The chat model and the OCR
// model are configured separately: OCR wants near-deterministic output and a
// large output budget, chat does not.
type GeminiProvider struct {
	client       *genai.Client
	chatModel    string
	ocrModel     string
	systemPrompt string
}

func NewGeminiProvider(ctx context.Context, apiKey, chatModel, ocrModel, systemPrompt string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key not set")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	if chatModel == "" {
		chatModel = "gemini-1.5-flash"
	}
	if ocrModel == "" {
		ocrModel = "gemini-2.0-flash-exp"
	}
	return &GeminiProvider{
		client:       cl,
		chatModel:    chatModel,
		ocrModel:     ocrModel,
		systemPrompt: systemPrompt,
	}, nil
}

func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("gemini: empty message list")
	}

	m := g.client.GenerativeModel(g.chatModel)
	m.SetTemperature(0.7)
	m.SetTopP(0.9)
	m.SetTopK(40)
	m.SetMaxOutputTokens(2048)
	if g.systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(g.systemPrompt)},
		}
	}

	cs := m.StartChat()
	for _, msg := range messages[:len(messages)-1] {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(messages[len(messages)-1].Content))
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	return joinTextParts(resp), nil
}

func (g *GeminiProvider) AnalyzeDocument(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.ocrModel)
	m.SetTemperature(0.1)
	m.SetTopP(0.8)
	m.SetTopK(40)
	m.SetMaxOutputTokens(8192)

	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{MIMEType: mimeType, Data: data},
	)
	if err != nil {
		return "", fmt.Errorf("gemini analyze: %w", err)
	}
	return joinTextParts(resp), nil
}

func joinTextParts(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
