package handlers

import (
	"net/http"

	"github.com/fleetscale/fleetd/internal/auth"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService   *auth.Service
	operatorToken string
}

func NewAuthHandler(authService *auth.Service, operatorToken string) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		operatorToken: operatorToken,
	}
}

type LoginRequest struct {
	Token string `json:"token" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// Login exchanges the configured operator token for a short-lived JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !auth.CheckOperatorToken(req.Token, h.operatorToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken("operator")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int(h.authService.TokenDuration().Seconds()),
	})
}
