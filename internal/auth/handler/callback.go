package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JHEJIAZHANG/Project-sub001/internal/logger"
	"github.com/JHEJIAZHANG/Project-sub001/internal/register"
	"github.com/JHEJIAZHANG/Project-sub001/internal/session"
)

const sessionLifetime = 24 * time.Hour

// callback resolves the provider's authorization redirect: correlate
// the state, exchange the code, persist the credential, open a session.
func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown oauth provider"})
		return
	}

	// Provider-reported errors (denied consent etc.) are surfaced, not
	// swallowed.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errParam,
			"error_description": c.Query("error_description"),
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oauth callback missing code and error", nil)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	cred, err := h.correlator.Resolve(
		c.Request.Context(),
		c.Query("state"),
		code,
		p.Exchange,
	)
	if err != nil {
		if errors.Is(err, register.ErrUnknownState) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown or expired state"})
			return
		}
		logger.Error("callback resolution failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization failed"})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	now := time.Now()
	expiresAt := now.Add(sessionLifetime)

	sess := session.Session{
		SessionID: sessionID,
		Subject:   cred.Subject,
		Role:      string(cred.Role),
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist session"})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Info("registration resolved", map[string]any{
		"subject": cred.Subject,
		"role":    cred.Role,
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
		"role":   cred.Role,
	})
}
