package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"car-rental-api/internal/auth"
	"car-rental-api/internal/model"
)

const refreshCookie = "refresh_token"

type registerRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email,max=120"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if taken, err := h.store.UsernameTaken(c.Request.Context(), req.Username, ""); err != nil {
		fail(c, err, "")
		return
	} else if taken {
		c.JSON(http.StatusConflict, gin.H{"detail": "Username already exists"})
		return
	}
	if taken, err := h.store.EmailTaken(c.Request.Context(), req.Email, ""); err != nil {
		fail(c, err, "")
		return
	} else if taken {
		c.JSON(http.StatusConflict, gin.H{"detail": "Email already exists"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err, "")
		return
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(c.Request.Context(), u); err != nil {
		// unique index caught a racing duplicate
		fail(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, toUserPrivate(u))
}

type loginRequest struct {
	Email    string `json:"email" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login accepts JSON {email,password} or an OAuth2-style form where the
// username field carries the email. Issues an access token in the body and a
// rotating refresh token as an HttpOnly cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil || req.Email == "" || req.Password == "" {
		badRequest(c, "email and password required")
		return
	}

	u, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.unauthorized(c)
		return
	}

	tok, err := auth.MakeToken(u.ID, h.cfg.JWTSecret, h.cfg.AccessTokenTTL)
	if err != nil {
		fail(c, err, "")
		return
	}

	rawRefresh, tokenHash, err := auth.GenerateRefreshToken()
	if err != nil {
		fail(c, err, "")
		return
	}
	if _, err := h.store.CreateRefreshToken(c.Request.Context(), u.ID, tokenHash, time.Now().Add(h.cfg.RefreshTokenTTL)); err != nil {
		fail(c, err, "")
		return
	}
	h.setRefreshCookie(c, rawRefresh)

	c.JSON(http.StatusOK, tokenResponse{AccessToken: tok, TokenType: "bearer"})
}

// Refresh rotates the refresh cookie and returns a fresh access token. A
// revoked token means the chain leaked somewhere, so every session for that
// user gets revoked.
func (h *Handler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		h.unauthorized(c)
		return
	}

	rt, err := h.store.RefreshTokenByHash(c.Request.Context(), auth.HashRefreshToken(raw))
	if err != nil {
		h.unauthorized(c)
		return
	}
	if rt.Revoked {
		_ = h.store.RevokeAllRefreshTokens(c.Request.Context(), rt.UserID)
		h.unauthorized(c)
		return
	}
	if time.Now().After(rt.ExpiresAt) {
		h.unauthorized(c)
		return
	}

	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		fail(c, err, "")
		return
	}
	newID := uuid.New().String()
	if err := h.store.RotateRefreshToken(c.Request.Context(), rt.ID, newID, rt.UserID, newHash, time.Now().Add(h.cfg.RefreshTokenTTL)); err != nil {
		fail(c, err, "")
		return
	}
	h.setRefreshCookie(c, newRaw)

	tok, err := auth.MakeToken(rt.UserID, h.cfg.JWTSecret, h.cfg.AccessTokenTTL)
	if err != nil {
		fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: tok, TokenType: "bearer"})
}

func (h *Handler) setRefreshCookie(c *gin.Context, raw string) {
	c.SetCookie(refreshCookie, raw, int(h.cfg.RefreshTokenTTL.Seconds()), "/api/auth", "", false, true)
}

func (h *Handler) unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect email or password"})
}
