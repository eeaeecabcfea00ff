package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/aicontext"
	"github.com/lawdesk/lawdesk-server/internal/practice"
)

type buildContextReq struct {
	ContextType string                 `json:"contextType"`
	EntityID    string                 `json:"entityId"`
	Options     aicontext.BuildOptions `json:"options"`
	// Refresh bypasses the cache and rebuilds from storage.
	Refresh bool `json:"refresh"`
}

// BuildContext returns the assembled context for an entity, serving a valid
// cached row when one exists for the exact option set.
func (h *Handler) BuildContext(c *gin.Context) {
	var req buildContextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctype := aicontext.ContextType(req.ContextType)
	if !ctype.Valid() {
		fail(c, http.StatusBadRequest, "contextType must be client, case or case_client")
		return
	}
	if req.EntityID == "" {
		fail(c, http.StatusBadRequest, "entityId is required")
		return
	}

	ctx := c.Request.Context()

	if !req.Refresh {
		entry, hit, err := h.Cache.Get(ctx, ctype, req.EntityID, req.Options)
		if err != nil {
			h.failInternal(c, err, "cache lookup failed")
			return
		}
		if hit {
			ok(c, http.StatusOK, gin.H{
				"context":    entry.FullContext,
				"summary":    entry.Summary,
				"tokenCount": entry.TokenCount,
				"cached":     true,
			})
			return
		}
	}

	built, err := h.Builder.Build(ctx, ctype, req.EntityID, req.Options)
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "entity not found")
			return
		}
		h.failInternal(c, err, "failed to build context")
		return
	}

	if err := h.Cache.Put(ctx, ctype, req.EntityID, req.Options, built); err != nil {
		// a failed cache write does not invalidate the built context
		h.Log.Warn("context cache write failed", "entity_id", req.EntityID, "error", err)
	}

	ok(c, http.StatusOK, gin.H{
		"context":    built.Text,
		"summary":    built.Summary,
		"tokenCount": built.TokenCount,
		"cached":     false,
	})
}

func (h *Handler) ClearContextCache(c *gin.Context) {
	entityID := c.Param("entityId")
	if entityID == "" {
		fail(c, http.StatusBadRequest, "entityId is required")
		return
	}
	if err := h.Cache.Clear(c.Request.Context(), entityID); err != nil {
		h.failInternal(c, err, "failed to clear context cache")
		return
	}
	ok(c, http.StatusOK, gin.H{"cleared": entityID})
}

// ClearAllContextCache wipes the whole cache. The body must carry an explicit
// confirmation; without it nothing is deleted.
func (h *Handler) ClearAllContextCache(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		fail(c, http.StatusBadRequest, `clearing the whole cache requires {"confirm": true}`)
		return
	}
	if err := h.Cache.ClearAll(c.Request.Context()); err != nil {
		h.failInternal(c, err, "failed to clear context cache")
		return
	}
	ok(c, http.StatusOK, gin.H{"cleared": "all"})
}
