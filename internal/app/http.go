package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/JHEJIAZHANG/Project-sub001/internal/auth/handler"
	"github.com/JHEJIAZHANG/Project-sub001/internal/auth/provider"
	"github.com/JHEJIAZHANG/Project-sub001/internal/auth/provider/google"
	"github.com/JHEJIAZHANG/Project-sub001/internal/auth/provider/line"
	"github.com/JHEJIAZHANG/Project-sub001/internal/config"
	"github.com/JHEJIAZHANG/Project-sub001/internal/credential"
	"github.com/JHEJIAZHANG/Project-sub001/internal/middleware"
	"github.com/JHEJIAZHANG/Project-sub001/internal/register"
	"github.com/JHEJIAZHANG/Project-sub001/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	credentialStore := credential.NewPostgresStore(infra.DB)
	pendingStore := register.NewRedisPendingStore(infra.Redis.Client)

	lineProvider, err := line.New(
		cfg.LineChannelID,
		cfg.LineIssuer,
		cfg.LineJWKSURL,
		cfg.KeyCacheTTL,
		cfg.HTTPTimeout,
	)
	if err != nil {
		return nil, nil, err
	}

	googleProvider, err := google.New(
		ctx,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
	)
	if err != nil {
		return nil, nil, err
	}

	registry := provider.NewRegistry(googleProvider)

	correlator := register.NewCorrelator(
		pendingStore,
		credentialStore,
		cfg.RegistrationCooldown,
		cfg.PendingTTL,
	)

	refreshManager := credential.NewManager(
		credentialStore,
		googleProvider,
		cfg.RefreshLookahead,
	)

	authHandler := handler.NewHandler(
		registry,
		lineProvider,
		correlator,
		refreshManager,
		sessionStore,
	)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	authHandler.RegisterRoutes(router, authMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
