package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JHEJIAZHANG/Project-sub001/internal/credential"
)

// googleToken hands the session's user a provider access token that is
// guaranteed usable for at least the refresh lookahead window.
func (h *Handler) googleToken(c *gin.Context) {
	subject := c.GetString("subject")
	if subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cred, err := h.refresh.EnsureFresh(c.Request.Context(), subject)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrReauthorizationRequired):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "reauthorization required",
			})
		case errors.Is(err, credential.ErrRefreshTransient):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "provider temporarily unavailable, retry later",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to refresh credential",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": cred.AccessToken,
		"expires_at":   cred.Expiry,
	})
}
