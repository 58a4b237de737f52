package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JHEJIAZHANG/Project-sub001/internal/auth/provider"
	"github.com/JHEJIAZHANG/Project-sub001/internal/auth/provider/line"
	"github.com/JHEJIAZHANG/Project-sub001/internal/credential"
	"github.com/JHEJIAZHANG/Project-sub001/internal/middleware"
	"github.com/JHEJIAZHANG/Project-sub001/internal/register"
	"github.com/JHEJIAZHANG/Project-sub001/internal/session"
)

type Handler struct {
	providers    *provider.Registry
	line         *line.Provider
	correlator   *register.Correlator
	refresh      *credential.Manager
	sessionStore session.Store
}

func NewHandler(
	registry *provider.Registry,
	lineProvider *line.Provider,
	correlator *register.Correlator,
	refresh *credential.Manager,
	sessionStore session.Store,
) *Handler {
	return &Handler{
		providers:    registry,
		line:         lineProvider,
		correlator:   correlator,
		refresh:      refresh,
		sessionStore: sessionStore,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.AuthMiddleware) {
	r.POST("/auth/line/register", h.lineRegister)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/auth/logout", h.logout)

	api := r.Group("/api")
	api.Use(middleware.GinRequireAuth(auth))
	api.GET("/google/token", h.googleToken)
	api.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"subject": c.GetString("subject"),
	})
}

func (h *Handler) logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		// best-effort: an already-reaped session still logs out cleanly
		_ = h.sessionStore.Delete(c.Request.Context(), cookie.Value)
	}

	session.ClearCookie(c.Writer, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	c.Status(http.StatusNoContent)
}
