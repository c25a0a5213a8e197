package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"roamfree/internal/config"
	"roamfree/internal/server"
)

// App struct holds the Wails application state
type App struct {
	ctx    context.Context
	server *server.Server
	url    string
	logger *slog.Logger
}

// NewApp loads configuration and starts the HTTP server on a random loopback port
func NewApp() (*App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	// 0 = random available port
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.OpenBrowser = false
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// Start the HTTP server immediately (before window opens)
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	addr, err := srv.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	app := &App{
		server: srv,
		url:    fmt.Sprintf("http://%s", addr),
		logger: logger,
	}
	logger.Info("internal HTTP server running", "url", app.url)
	return app, nil
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Navigate the WebView to the internal server immediately
	go func() {
		runtime.WindowExecJS(ctx, fmt.Sprintf(`window.location.href = "%s"`, a.url))
	}()
}

// shutdown is called when the app closes
func (a *App) shutdown(ctx context.Context) {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error shutting down server", "error", err)
		}
	}
}

// OpenExternal opens url in the system browser
func (a *App) OpenExternal(url string) {
	runtime.BrowserOpenURL(a.ctx, url)
}
