package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"accommodation-portal/config"
	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/service"
	"accommodation-portal/pkg/response"
)

const refreshCookieName = "refresh_token"

// AuthHandler auth module HTTP handler
type AuthHandler struct {
	authSvc      service.AuthService
	cookiePath   string
	cookieMaxAge int
	cookieSecure bool
}

// NewAuthHandler creates an AuthHandler. cfg may be nil in tests.
func NewAuthHandler(authSvc service.AuthService, cfg *config.Config) *AuthHandler {
	h := &AuthHandler{
		authSvc:      authSvc,
		cookiePath:   "/api/v1/auth",
		cookieMaxAge: int((7 * 24 * time.Hour).Seconds()),
	}
	if cfg != nil {
		h.cookieMaxAge = int(cfg.Auth.RefreshTokenTTL.Seconds())
		h.cookieSecure = strings.HasPrefix(cfg.Server.BaseURL, "https://")
	}
	return h
}

// Login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.cookieMaxAge)
	response.OK(c, result)
}

// RefreshToken exchanges a refresh token taken from the cookie or the body
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie != "" {
		req.RefreshToken = cookie
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "refresh token is required")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			h.setRefreshCookie(c, "", -1)
		}
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.cookieMaxAge)
	response.OK(c, result)
}

// Logout revokes the current access token and clears the refresh cookie
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp := tokenIdentity(c)
	if err := h.authSvc.Logout(c.Request.Context(), c.GetString(CtxUserID), jti, exp); err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	response.OK(c, nil)
}

// GetCurrentUser
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ChangePassword
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, value, maxAge, h.cookiePath, "", h.cookieSecure, true)
}
