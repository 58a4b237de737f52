package app

import (
	"context"
	"net/http"

	"github.com/JHEJIAZHANG/Project-sub001/internal/config"
)

// App owns the HTTP server and the infrastructure it was wired with.
type App struct {
	httpServer *http.Server
	cleanup    func() error
}

// New builds the router and its dependencies. Infrastructure failures
// (postgres, redis, provider discovery) surface here, before listening.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	router, cleanup, err := setupHTTP(ctx, cfg)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	return &App{
		httpServer: server,
		cleanup:    cleanup,
	}, nil
}

// Run blocks serving requests until Shutdown closes the listener.
func (a *App) Run() error {
	return a.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then releases infrastructure.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
