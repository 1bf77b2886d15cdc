package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docweave/backend/internal/domain"
	"github.com/docweave/backend/internal/service/token"
)

// AuthHandler exposes the credential exchange endpoints. Failure responses
// are deliberately generic: a 401 never reveals which verification step
// failed.
type AuthHandler struct {
	Tokens *token.Service
}

func NewAuthHandler(tokens *token.Service) *AuthHandler {
	return &AuthHandler{Tokens: tokens}
}

// Exchange converts an upstream (session, user) assertion into a signed
// access/refresh token pair.
func (h *AuthHandler) Exchange(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		UserID    string `json:"userId"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID and User ID are required"})
		return
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.SessionID == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID and User ID are required"})
		return
	}

	pair, err := h.Tokens.Exchange(c.Request.Context(), req.SessionID, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
			return
		}
		log.Printf("[AUTH] exchange failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    pair.ExpiresIn,
	})
}

// Refresh rotates a refresh token into a brand-new token pair.
// Note the camelCase response fields: this endpoint predates the snake_case
// exchange response and clients depend on both shapes as-is.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		return
	}

	pair, err := h.Tokens.Refresh(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
			return
		}
		log.Printf("[AUTH] refresh failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"expiresIn":    pair.ExpiresIn,
	})
}
