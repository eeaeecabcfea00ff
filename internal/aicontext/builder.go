package aicontext

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lawdesk/lawdesk-server/internal/models"
)

// transcription previews are bounded so one long document cannot crowd
// everything else out of the prompt
const transcriptionPreviewLen = 200

const summaryLen = 200

// DataSource is the read-only slice of storage the builder needs.
type DataSource interface {
	Client(ctx context.Context, id string) (*models.Client, error)
	Case(ctx context.Context, id string) (*models.Case, error)
	CasesByClient(ctx context.Context, clientID string) ([]models.Case, error)
	// CompletedDocuments returns completed-transcription documents for the
	// owner, most recent first.
	CompletedDocuments(ctx context.Context, owner models.DocumentOwner) ([]models.CaseDocument, error)
}

// Built is an assembled context.
type Built struct {
	Text       string `json:"text"`
	Summary    string `json:"summary"`
	TokenCount int    `json:"token_count"`
}

// Builder gathers entity data into a labeled prompt fragment. Sections appear
// in a fixed order: client info, documents, cases, notes. Any read failure
// aborts the whole build; no partial context is ever returned. The builder
// never mutates entity records.
type Builder struct {
	src DataSource
}

func NewBuilder(src DataSource) *Builder {
	return &Builder{src: src}
}

func (b *Builder) Build(ctx context.Context, ctype ContextType, entityID string, opts BuildOptions) (*Built, error) {
	if !ctype.Valid() {
		return nil, fmt.Errorf("aicontext: unknown context type %q", ctype)
	}

	var (
		cl *models.Client
		cs *models.Case
	)

	switch ctype {
	case ContextClient:
		c, err := b.src.Client(ctx, entityID)
		if err != nil {
			return nil, fmt.Errorf("aicontext: load client: %w", err)
		}
		cl = c
	case ContextCase, ContextCaseClient:
		c, err := b.src.Case(ctx, entityID)
		if err != nil {
			return nil, fmt.Errorf("aicontext: load case: %w", err)
		}
		cs = c
		if c.ClientID != nil {
			cc, err := b.src.Client(ctx, *c.ClientID)
			if err != nil {
				return nil, fmt.Errorf("aicontext: load case client: %w", err)
			}
			cl = cc
		}
	}

	var sections []string

	if opts.IncludeClientInfo && cl != nil {
		if s := clientSection(cl); s != "" {
			sections = append(sections, s)
		}
	}

	if opts.IncludeDocuments {
		s, err := b.documentsSection(ctx, ctype, entityID, cl)
		if err != nil {
			return nil, err
		}
		if s != "" {
			sections = append(sections, s)
		}
	}

	if opts.IncludeLinkedCases {
		s, err := b.casesSection(ctx, ctype, cs, cl)
		if err != nil {
			return nil, err
		}
		if s != "" {
			sections = append(sections, s)
		}
	}

	if opts.IncludeNotes {
		s, err := b.notesSection(ctx, ctype, cs, cl)
		if err != nil {
			return nil, err
		}
		if s != "" {
			sections = append(sections, s)
		}
	}

	text := strings.Join(sections, "\n\n")
	return &Built{
		Text:       text,
		Summary:    truncate(text, summaryLen),
		TokenCount: EstimateTokens(text),
	}, nil
}

func clientSection(cl *models.Client) string {
	lines := make([]string, 0, 5)
	if cl.Name != "" {
		lines = append(lines, "Name: "+cl.Name)
	}
	if cl.Email != "" {
		lines = append(lines, "Email: "+cl.Email)
	}
	if cl.Phone != "" {
		lines = append(lines, "Phone: "+cl.Phone)
	}
	if cl.Address != "" {
		lines = append(lines, "Address: "+cl.Address)
	}
	if cl.AdditionalInfo != "" {
		lines = append(lines, "Additional information: "+cl.AdditionalInfo)
	}
	if len(lines) == 0 {
		return ""
	}
	return "Client information:\n" + strings.Join(lines, "\n")
}

func (b *Builder) documentsSection(ctx context.Context, ctype ContextType, entityID string, cl *models.Client) (string, error) {
	var owners []models.DocumentOwner
	switch ctype {
	case ContextClient:
		owners = append(owners, models.DocumentOwner{Type: models.OwnerClient, ID: entityID})
	case ContextCase:
		owners = append(owners, models.DocumentOwner{Type: models.OwnerCase, ID: entityID})
	case ContextCaseClient:
		owners = append(owners, models.DocumentOwner{Type: models.OwnerCase, ID: entityID})
		if cl != nil {
			owners = append(owners, models.DocumentOwner{Type: models.OwnerClient, ID: cl.ID})
		}
	}

	var previews []string
	for _, owner := range owners {
		docs, err := b.src.CompletedDocuments(ctx, owner)
		if err != nil {
			return "", fmt.Errorf("aicontext: load documents: %w", err)
		}
		for _, d := range docs {
			if d.Transcription == nil || *d.Transcription == "" {
				continue
			}
			previews = append(previews, truncate(*d.Transcription, transcriptionPreviewLen))
		}
	}
	if len(previews) == 0 {
		return "", nil
	}
	return "Document texts (OCR):\n" + strings.Join(previews, "\n---\n"), nil
}

func (b *Builder) casesSection(ctx context.Context, ctype ContextType, cs *models.Case, cl *models.Client) (string, error) {
	var cases []models.Case
	switch {
	case ctype == ContextClient && cl != nil:
		list, err := b.src.CasesByClient(ctx, cl.ID)
		if err != nil {
			return "", fmt.Errorf("aicontext: load linked cases: %w", err)
		}
		cases = list
	case cs != nil:
		cases = []models.Case{*cs}
	}
	if len(cases) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(cases))
	for _, c := range cases {
		line := fmt.Sprintf("Case %s: %s [%s, priority %s]", c.CaseNumber, c.Title, c.Status, c.Priority)
		if c.CourtInstance != "" {
			line += ", court: " + c.CourtInstance
		}
		if c.OpposingParty != "" {
			line += ", opposing party: " + c.OpposingParty
		}
		lines = append(lines, line)
	}
	return "Linked cases:\n" + strings.Join(lines, "\n"), nil
}

func (b *Builder) notesSection(ctx context.Context, ctype ContextType, cs *models.Case, cl *models.Client) (string, error) {
	var notes []string
	switch {
	case ctype == ContextClient && cl != nil:
		list, err := b.src.CasesByClient(ctx, cl.ID)
		if err != nil {
			return "", fmt.Errorf("aicontext: load notes: %w", err)
		}
		for _, c := range list {
			if c.InternalNotes != "" {
				notes = append(notes, c.InternalNotes)
			}
		}
	case cs != nil:
		if cs.InternalNotes != "" {
			notes = append(notes, cs.InternalNotes)
		}
	}
	if len(notes) == 0 {
		return "", nil
	}
	return "Notes:\n" + strings.Join(notes, "\n"), nil
}

// truncate limits s to n characters. It cuts on rune boundaries: the
// transcriptions are mostly Cyrillic, and a byte slice would leave an
// invalid UTF-8 tail in the assembled prompt and in cache rows.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// TextHash identifies the assembled inputs; cache rows carry it so a caller
// can tell whether a cached context still matches what it saved.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
