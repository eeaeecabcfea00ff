package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/models"
	"github.com/lawdesk/lawdesk-server/internal/practice"
)

// ownerFromRequest reads caseId/clientId form or query fields into a tagged
// owner. Exactly one must be set.
func ownerFromRequest(caseID, clientID string) (models.DocumentOwner, error) {
	switch {
	case caseID != "" && clientID != "":
		return models.DocumentOwner{}, errors.New("specify either caseId or clientId, not both")
	case caseID != "":
		return models.DocumentOwner{Type: models.OwnerCase, ID: caseID}, nil
	case clientID != "":
		return models.DocumentOwner{Type: models.OwnerClient, ID: clientID}, nil
	default:
		return models.DocumentOwner{}, errors.New("caseId or clientId is required")
	}
}

func (h *Handler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		fail(c, http.StatusBadRequest, "multipart field \"document\" is required")
		return
	}

	owner, err := ownerFromRequest(c.PostForm("caseId"), c.PostForm("clientId"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	// size is rejected from the multipart header, before the file is read
	if fileHeader.Size > h.Cfg.MaxUploadSize {
		fail(c, http.StatusBadRequest,
			fmt.Sprintf("file exceeds the %dMB limit", h.Cfg.MaxUploadSize>>20))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.failInternal(c, err, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.Cfg.MaxUploadSize+1))
	if err != nil {
		h.failInternal(c, err, "failed to read upload")
		return
	}
	if int64(len(data)) > h.Cfg.MaxUploadSize {
		fail(c, http.StatusBadRequest,
			fmt.Sprintf("file exceeds the %dMB limit", h.Cfg.MaxUploadSize>>20))
		return
	}

	doc, err := h.Practice.UploadDocument(c.Request.Context(), practice.UploadInput{
		Owner:       owner,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
		SkipOCR:     c.PostForm("skipOcr") == "true",
	})
	if err != nil {
		switch {
		case errors.Is(err, practice.ErrValidation):
			fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, practice.ErrNotFound):
			fail(c, http.StatusNotFound, "document owner not found")
		default:
			h.failInternal(c, err, "failed to store document")
		}
		return
	}

	ok(c, http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	owner, err := ownerFromRequest(c.Query("caseId"), c.Query("clientId"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := h.Practice.Repo().DocumentsByOwner(c.Request.Context(), owner)
	if err != nil {
		h.failInternal(c, err, "failed to list documents")
		return
	}
	ok(c, http.StatusOK, docs)
}

func (h *Handler) ListCaseDocuments(c *gin.Context) {
	owner := models.DocumentOwner{Type: models.OwnerCase, ID: c.Param("id")}
	docs, err := h.Practice.Repo().DocumentsByOwner(c.Request.Context(), owner)
	if err != nil {
		h.failInternal(c, err, "failed to list documents")
		return
	}
	ok(c, http.StatusOK, docs)
}

func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.Practice.Repo().Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "document not found")
			return
		}
		h.failInternal(c, err, "failed to load document")
		return
	}
	ok(c, http.StatusOK, doc)
}

// GetTranscription reports the OCR outcome for a document together with the
// latest job record, so a client can poll it after upload.
func (h *Handler) GetTranscription(c *gin.Context) {
	doc, err := h.Practice.Repo().Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "document not found")
			return
		}
		h.failInternal(c, err, "failed to load document")
		return
	}

	resp := gin.H{
		"document_id":          doc.ID,
		"transcription_status": doc.TranscriptionStatus,
		"transcription":        doc.Transcription,
		"document_type":        doc.DocumentType,
		"confidence":           doc.Confidence,
		"extracted_dates":      doc.ExtractedDates,
		"extracted_numbers":    doc.ExtractedNumbers,
	}

	job, err := h.Practice.Repo().LatestJobForDocument(c.Request.Context(), doc.ID)
	if err == nil {
		resp["job"] = job
	} else if !errors.Is(err, practice.ErrNotFound) {
		h.failInternal(c, err, "failed to load transcription job")
		return
	}

	ok(c, http.StatusOK, resp)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	if err := h.Practice.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "document not found")
			return
		}
		h.failInternal(c, err, "failed to delete document")
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}
