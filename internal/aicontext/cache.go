package aicontext

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cache persists built contexts keyed by (context_type, entity_id,
// options_hash). Writes are idempotent upserts on that key, so concurrent
// rebuilds for one entity converge on a single row instead of racing into
// duplicates. Expired rows count as misses and are purged opportunistically
// on the next write, not by a background job.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewCache(db *gorm.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Cache{db: db, ttl: ttl}
}

// Get returns the cached entry for the exact option set, or (nil, false) when
// there is none or it has expired.
func (c *Cache) Get(ctx context.Context, ctype ContextType, entityID string, opts BuildOptions) (*CacheEntry, bool, error) {
	var e CacheEntry
	err := c.db.WithContext(ctx).
		Where("context_type = ? AND entity_id = ? AND options_hash = ?", ctype, entityID, opts.Hash()).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if time.Now().After(e.ExpiresAt) {
		return nil, false, nil
	}
	return &e, true, nil
}

// Put stores a built context, replacing any previous row for the same key.
func (c *Cache) Put(ctx context.Context, ctype ContextType, entityID string, opts BuildOptions, built *Built) error {
	now := time.Now()

	// lazy purge: drop this entity's expired rows while we are writing anyway
	if err := c.db.WithContext(ctx).
		Where("entity_id = ? AND expires_at < ?", entityID, now).
		Delete(&CacheEntry{}).Error; err != nil {
		return err
	}

	entry := CacheEntry{
		ContextType: ctype,
		EntityID:    entityID,
		OptionsHash: opts.Hash(),
		ContextHash: TextHash(built.Text),
		Summary:     built.Summary,
		FullContext: built.Text,
		TokenCount:  built.TokenCount,
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.ttl),
	}

	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "context_type"}, {Name: "entity_id"}, {Name: "options_hash"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"context_hash", "summary", "full_context", "token_count", "created_at", "expires_at",
			}),
		}).
		Create(&entry).Error
}

// Clear removes every cache row for one entity, regardless of type or
// option set.
func (c *Cache) Clear(ctx context.Context, entityID string) error {
	return c.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Delete(&CacheEntry{}).Error
}

// ClearAll removes every cache row system-wide. Destructive and unscoped;
// the HTTP handler requires explicit confirmation before calling it.
func (c *Cache) ClearAll(ctx context.Context) error {
	return c.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&CacheEntry{}).Error
}
