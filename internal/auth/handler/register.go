package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JHEJIAZHANG/Project-sub001/internal/credential"
	"github.com/JHEJIAZHANG/Project-sub001/internal/logger"
	"github.com/JHEJIAZHANG/Project-sub001/internal/register"
	"github.com/JHEJIAZHANG/Project-sub001/internal/token"
)

type lineRegisterRequest struct {
	IDToken     string `json:"id_token" binding:"required"`
	Role        string `json:"role" binding:"required"`
	DisplayName string `json:"display_name"`
}

// lineRegister verifies a LINE id_token, opens a pending registration
// and hands back the Google authorization URL the client should follow.
func (h *Handler) lineRegister(c *gin.Context) {
	var req lineRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	role, err := credential.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be teacher or student"})
		return
	}

	identity, err := h.line.VerifyIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id_token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = identity.DisplayName
	}

	state, err := h.correlator.CreatePending(
		c.Request.Context(),
		identity.Subject,
		role,
		displayName,
	)
	if err != nil {
		if errors.Is(err, register.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "registration already pending, try again later",
			})
			return
		}
		logger.Error("failed to create pending registration", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	p, err := h.providers.Get("google")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorization_url": p.AuthCodeURL(state),
		"state":             state,
	})
}
