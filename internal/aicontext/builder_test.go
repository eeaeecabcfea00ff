package aicontext

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lawdesk/lawdesk-server/internal/models"
)

type fakeSource struct {
	client  *models.Client
	cse     *models.Case
	cases   []models.Case
	docs    []models.CaseDocument
	docsErr error
}

func (f *fakeSource) Client(ctx context.Context, id string) (*models.Client, error) {
	_ = ctx
	_ = id
	if f.client == nil {
		return nil, errors.New("client not found")
	}
	return f.client, nil
}

func (f *fakeSource) Case(ctx context.Context, id string) (*models.Case, error) {
	_ = ctx
	_ = id
	if f.cse == nil {
		return nil, errors.New("case not found")
	}
	return f.cse, nil
}

func (f *fakeSource) CasesByClient(ctx context.Context, clientID string) ([]models.Case, error) {
	_ = ctx
	_ = clientID
	return f.cases, nil
}

func (f *fakeSource) CompletedDocuments(ctx context.Context, owner models.DocumentOwner) ([]models.CaseDocument, error) {
	_ = ctx
	_ = owner
	if f.docsErr != nil {
		return nil, f.docsErr
	}
	return f.docs, nil
}

func strPtr(s string) *string { return &s }

func testSource() *fakeSource {
	return &fakeSource{
		client: &models.Client{
			ID:    "c1",
			Name:  "Ivan Petrov",
			Email: "ivan@example.com",
			Phone: "+7 900 000-00-00",
		},
		cases: []models.Case{
			{ID: "k1", CaseNumber: "A40-1/2024", Title: "Contract dispute",
				Status: models.CaseActive, Priority: models.PriorityHigh,
				InternalNotes: "settlement unlikely"},
		},
		docs: []models.CaseDocument{
			{ID: "d1", Transcription: strPtr("Supply contract dated 01.02.2024 between the parties"),
				TranscriptionStatus: models.TranscriptionCompleted},
		},
	}
}

func TestBuild_AllFlagsFixedOrder(t *testing.T) {
	b := NewBuilder(testSource())

	built, err := b.Build(context.Background(), ContextClient, "c1", BuildOptions{
		IncludeClientInfo:  true,
		IncludeDocuments:   true,
		IncludeLinkedCases: true,
		IncludeNotes:       true,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	labels := []string{"Client information:", "Document texts (OCR):", "Linked cases:", "Notes:"}
	prev := -1
	for _, l := range labels {
		idx := strings.Index(built.Text, l)
		if idx < 0 {
			t.Fatalf("section %q missing from:\n%s", l, built.Text)
		}
		if idx < prev {
			t.Fatalf("section %q out of order in:\n%s", l, built.Text)
		}
		prev = idx
	}
}

func TestBuild_OmitsDisabledSections(t *testing.T) {
	b := NewBuilder(testSource())

	built, err := b.Build(context.Background(), ContextClient, "c1", BuildOptions{
		IncludeClientInfo: true,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(built.Text, "Client information:") {
		t.Fatalf("expected client section, got:\n%s", built.Text)
	}
	for _, l := range []string{"Document texts (OCR):", "Linked cases:", "Notes:"} {
		if strings.Contains(built.Text, l) {
			t.Fatalf("unexpected section %q in:\n%s", l, built.Text)
		}
	}
}

func TestBuild_ReadFailureAbortsWhole(t *testing.T) {
	src := testSource()
	src.docsErr = errors.New("storage down")
	b := NewBuilder(src)

	_, err := b.Build(context.Background(), ContextClient, "c1", BuildOptions{
		IncludeClientInfo: true,
		IncludeDocuments:  true,
	})
	if err == nil {
		t.Fatalf("expected build to fail when a read fails")
	}
}

func TestBuild_TruncatesTranscriptionPreview(t *testing.T) {
	src := testSource()
	src.docs = []models.CaseDocument{
		{ID: "d1", Transcription: strPtr(strings.Repeat("x", 500)),
			TranscriptionStatus: models.TranscriptionCompleted},
	}
	b := NewBuilder(src)

	built, err := b.Build(context.Background(), ContextClient, "c1", BuildOptions{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(built.Text, strings.Repeat("x", transcriptionPreviewLen+1)) {
		t.Fatalf("transcription preview not truncated")
	}
}

func TestBuild_CyrillicPreviewStaysValidUTF8(t *testing.T) {
	src := testSource()
	long := strings.Repeat("Решение суда по делу о взыскании задолженности. ", 10)
	src.docs = []models.CaseDocument{
		{ID: "d1", Transcription: strPtr(long),
			TranscriptionStatus: models.TranscriptionCompleted},
	}
	b := NewBuilder(src)

	built, err := b.Build(context.Background(), ContextClient, "c1", BuildOptions{IncludeDocuments: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !utf8.ValidString(built.Text) {
		t.Fatalf("built text contains invalid UTF-8")
	}
	if !utf8.ValidString(built.Summary) {
		t.Fatalf("summary contains invalid UTF-8")
	}
	if n := utf8.RuneCountInString(built.Summary); n > summaryLen {
		t.Fatalf("summary is %d chars, want at most %d", n, summaryLen)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Fatalf("empty string: got %d", got)
	}
	if got := EstimateTokens("abcd"); got != 1 {
		t.Fatalf("4 chars: got %d", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Fatalf("5 chars must round up: got %d", got)
	}
	if got := EstimateTokens("иск подан"); got != 3 {
		t.Fatalf("9 Cyrillic chars: got %d, want 3", got)
	}
}

func TestOptionsHash_DistinguishesSets(t *testing.T) {
	a := BuildOptions{IncludeClientInfo: true}
	b := BuildOptions{IncludeDocuments: true}
	if a.Hash() == b.Hash() {
		t.Fatalf("different option sets must hash differently")
	}
	if a.Hash() != (BuildOptions{IncludeClientInfo: true}).Hash() {
		t.Fatalf("equal option sets must hash equally")
	}
}
