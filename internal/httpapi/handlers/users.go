package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lawdesk/lawdesk-server/internal/auth"
	"github.com/lawdesk/lawdesk-server/internal/models"
	"github.com/lawdesk/lawdesk-server/internal/practice"
)

const tokenTTL = 24 * time.Hour

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		fail(c, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := h.Practice.Repo().UserByEmail(c.Request.Context(), req.Email); err == nil {
		fail(c, http.StatusConflict, "email is already registered")
		return
	} else if !errors.Is(err, practice.ErrNotFound) {
		h.failInternal(c, err, "failed to check email")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.failInternal(c, err, "failed to hash password")
		return
	}

	user := models.User{Email: req.Email, Name: req.Name, PasswordHash: hash}
	if err := h.Practice.Repo().CreateUser(c.Request.Context(), &user); err != nil {
		h.failInternal(c, err, "failed to create user")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		h.failInternal(c, err, "failed to sign token")
		return
	}

	ok(c, http.StatusCreated, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"token": token,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.Practice.Repo().UserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, practice.ErrNotFound) {
			fail(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.failInternal(c, err, "failed to load user")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		fail(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		h.failInternal(c, err, "failed to sign token")
		return
	}

	ok(c, http.StatusOK, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"token": token,
	})
}
