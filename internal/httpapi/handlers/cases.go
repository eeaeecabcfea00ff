package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/models"
	"github.com/lawdesk/lawdesk-server/internal/practice"
)

type caseReq struct {
	CaseNumber    string   `json:"case_number"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	Priority      string   `json:"priority"`
	ClientID      *string  `json:"client_id"`
	CaseType      string   `json:"case_type"`
	CourtInstance string   `json:"court_instance"`
	OpposingParty string   `json:"opposing_party"`
	Tags          []string `json:"tags"`
	InternalNotes string   `json:"internal_notes"`
}

func (r caseReq) apply(cs *models.Case) {
	cs.CaseNumber = r.CaseNumber
	cs.Title = r.Title
	cs.Description = r.Description
	cs.Status = models.CaseStatus(r.Status)
	cs.Priority = models.CasePriority(r.Priority)
	cs.ClientID = r.ClientID
	cs.CaseType = r.CaseType
	cs.CourtInstance = r.CourtInstance
	cs.OpposingParty = r.OpposingParty
	cs.Tags = r.Tags
	cs.InternalNotes = r.InternalNotes
	if cs.Status == "" {
		cs.Status = models.CaseActive
	}
	if cs.Priority == "" {
		cs.Priority = models.PriorityMedium
	}
}

func (h *Handler) CreateCase(c *gin.Context) {
	var req caseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	var cs models.Case
	req.apply(&cs)

	if err := h.Practice.CreateCase(c.Request.Context(), &cs); err != nil {
		switch {
		case errors.Is(err, practice.ErrValidation):
			fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, practice.ErrNotFound):
			fail(c, http.StatusBadRequest, "client not found")
		default:
			h.failInternal(c, err, "failed to create case")
		}
		return
	}

	ok(c, http.StatusCreated, cs)
}

func (h *Handler) ListCases(c *gin.Context) {
	if clientID := c.Query("clientId"); clientID != "" {
		cases, err := h.Practice.Repo().CasesByClient(c.Request.Context(), clientID)
		if err != nil {
			h.failInternal(c, err, "failed to list cases")
			return
		}
		ok(c, http.StatusOK, cases)
		return
	}

	cases, err := h.Practice.Repo().ListCases(c.Request.Context())
	if err != nil {
		h.failInternal(c, err, "failed to list cases")
		return
	}
	ok(c, http.StatusOK, cases)
}

func (h *Handler) GetCase(c *gin.Context) {
	cs, err := h.Practice.Repo().Case(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "case not found")
			return
		}
		h.failInternal(c, err, "failed to load case")
		return
	}
	ok(c, http.StatusOK, cs)
}

func (h *Handler) UpdateCase(c *gin.Context) {
	cs, err := h.Practice.Repo().Case(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "case not found")
			return
		}
		h.failInternal(c, err, "failed to load case")
		return
	}

	var req caseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.apply(cs)
	cs.Client = nil // re-resolved on the next read

	if err := h.Practice.UpdateCase(c.Request.Context(), cs); err != nil {
		if errors.Is(err, practice.ErrValidation) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.failInternal(c, err, "failed to update case")
		return
	}

	ok(c, http.StatusOK, cs)
}

func (h *Handler) DeleteCase(c *gin.Context) {
	if err := h.Practice.Repo().DeleteCase(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "case not found")
			return
		}
		h.failInternal(c, err, "failed to delete case")
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}
