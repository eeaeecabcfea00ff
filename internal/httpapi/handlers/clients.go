package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/models"
	"github.com/lawdesk/lawdesk-server/internal/practice"
)

type clientReq struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	AdditionalInfo string `json:"additional_info"`
}

func (h *Handler) CreateClient(c *gin.Context) {
	var req clientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	client := models.Client{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		AdditionalInfo: req.AdditionalInfo,
	}
	if err := h.Practice.CreateClient(c.Request.Context(), &client); err != nil {
		if errors.Is(err, practice.ErrValidation) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.failInternal(c, err, "failed to create client")
		return
	}

	ok(c, http.StatusCreated, client)
}

func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.Practice.Repo().ListClients(c.Request.Context())
	if err != nil {
		h.failInternal(c, err, "failed to list clients")
		return
	}
	ok(c, http.StatusOK, clients)
}

func (h *Handler) GetClient(c *gin.Context) {
	client, err := h.Practice.Repo().Client(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "client not found")
			return
		}
		h.failInternal(c, err, "failed to load client")
		return
	}
	ok(c, http.StatusOK, client)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	client, err := h.Practice.Repo().Client(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusNotFound, "client not found")
			return
		}
		h.failInternal(c, err, "failed to load client")
		return
	}

	var req clientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	client.Name = req.Name
	client.Email = req.Email
	client.Phone = req.Phone
	client.Address = req.Address
	client.AdditionalInfo = req.AdditionalInfo

	if err := h.Practice.UpdateClient(c.Request.Context(), client); err != nil {
		if errors.Is(err, practice.ErrValidation) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.failInternal(c, err, "failed to update client")
		return
	}

	ok(c, http.StatusOK, client)
}

func (h *Handler) DeleteClient(c *gin.Context) {
	err := h.Practice.DeleteClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, practice.ErrNotFound):
			fail(c, http.StatusNotFound, "client not found")
		case errors.Is(err, practice.ErrClientHasCases):
			fail(c, http.StatusConflict, "client still has cases; reassign or delete them first")
		default:
			h.failInternal(c, err, "failed to delete client")
		}
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}
