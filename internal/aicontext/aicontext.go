// Package aicontext assembles the textual case/client context injected into
// AI prompts, and caches assembled contexts so a chat turn does not rebuild
// them from storage every time.
package aicontext

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"
)

type ContextType string

const (
	ContextClient     ContextType = "client"
	ContextCase       ContextType = "case"
	ContextCaseClient ContextType = "case_client"
)

func (t ContextType) Valid() bool {
	switch t {
	case ContextClient, ContextCase, ContextCaseClient:
		return true
	}
	return false
}

// BuildOptions selects which data slices go into a context.
type BuildOptions struct {
	IncludeClientInfo  bool `json:"includeClientInfo"`
	IncludeDocuments   bool `json:"includeDocuments"`
	IncludeLinkedCases bool `json:"includeLinkedCases"`
	IncludeNotes       bool `json:"includeNotes"`
}

// Hash returns a stable key for the option set. Cache rows store it
// explicitly so lookups are index-backed instead of comparing option
// objects at read time.
func (o BuildOptions) Hash() string {
	s := fmt.Sprintf("v1|%t|%t|%t|%t",
		o.IncludeClientInfo, o.IncludeDocuments, o.IncludeLinkedCases, o.IncludeNotes)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EstimateTokens approximates a token count as ceil(chars/4), counting
// characters rather than bytes so Cyrillic text is not billed double. It is
// a display heuristic, not a tokenizer; never use it for billing accounting.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// CacheEntry is one cached context. At most one valid row exists per
// (context_type, entity_id, options_hash); writes upsert on that key.
type CacheEntry struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement" json:"-"`
	ContextType ContextType `gorm:"type:varchar(16);not null;uniqueIndex:uniq_ctx_cache_key,priority:1" json:"context_type"`
	EntityID    string      `gorm:"type:varchar(36);not null;uniqueIndex:uniq_ctx_cache_key,priority:2;index" json:"entity_id"`
	OptionsHash string      `gorm:"type:varchar(64);not null;uniqueIndex:uniq_ctx_cache_key,priority:3" json:"-"`
	ContextHash string      `gorm:"type:varchar(64);not null" json:"context_hash"`
	Summary     string      `gorm:"type:varchar(255)" json:"summary"`
	FullContext string      `gorm:"type:text;not null" json:"full_context"`
	TokenCount  int         `gorm:"not null" json:"token_count"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `gorm:"index;not null" json:"expires_at"`
}

func (CacheEntry) TableName() string { return "ai_context_cache" }
