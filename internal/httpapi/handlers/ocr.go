package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/ai"
	"github.com/lawdesk/lawdesk-server/internal/ocr"
)

// ProcessOCR runs synchronous text extraction on an uploaded file without
// storing it. Size and MIME are rejected before anything goes upstream.
func (h *Handler) ProcessOCR(c *gin.Context) {
	if h.OCR == nil {
		fail(c, http.StatusServiceUnavailable, "document analysis is not configured")
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		fail(c, http.StatusBadRequest, "multipart field \"document\" is required")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if err := h.OCR.Validate(fileHeader.Size, mimeType); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.failInternal(c, err, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.failInternal(c, err, "failed to read upload")
		return
	}

	result, err := h.OCR.Process(c.Request.Context(), data, mimeType)
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrFileTooLarge), errors.Is(err, ocr.ErrUnsupportedType):
			fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ai.ErrTimeout):
			fail(c, http.StatusGatewayTimeout, "document analysis timed out, try again")
		default:
			h.failInternal(c, err, "document analysis failed")
		}
		return
	}

	ok(c, http.StatusOK, result)
}
