package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/fsandov/klipper-gotify/pkg/config"
	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dispatcher runs G-code scripts submitted over HTTP.
type Dispatcher interface {
	Run(ctx context.Context, script string) error
	Commands() map[string]string
}

type GinApp struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logs.Logger
	ginConfig  GinConfig
	dispatcher Dispatcher
	store      *gcode.Store
}

type GinConfig struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	EnablePprof       bool
	EnableMetrics     bool
	EnableRequestID   bool
	EnableRecovery    bool
	EnableCompression bool
	EnableCORS        bool
	EnableTracing     bool
	// APIKey, when set, is required in the X-Api-Key header of every request but /health.
	APIKey string
}

func DefaultGinConfig() *GinConfig {
	return &GinConfig{
		Addr:              ":7126",
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // script answers wait for every script queued ahead of them
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		MaxHeaderBytes:    1 << 20,
		EnableMetrics:     true,
		EnableRequestID:   true,
		EnableRecovery:    true,
		EnableCompression: true,
		EnableCORS:        true,
	}
}

func New(cfg *GinConfig, dispatcher Dispatcher, store *gcode.Store) *GinApp {
	if cfg == nil {
		cfg = DefaultGinConfig()
	}
	if store == nil {
		store = gcode.NewStore(gcode.DefaultStoreSize)
	}
	engine := gin.New()
	engine.ContextWithFallback = true

	app := &GinApp{
		engine:     engine,
		logger:     logs.GetLogger(),
		ginConfig:  *cfg,
		dispatcher: dispatcher,
		store:      store,
	}

	app.setupMiddleware()
	app.setupRoutes()
	return app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (app *GinApp) Run(ctx context.Context) error {
	app.httpServer = app.newServer(ctx)

	serverErr := make(chan error, 1)
	go func() {
		app.startupLog()
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		cfg := config.Get()
		app.logger.Warn(context.Background(), "Shutting down server...",
			zap.String("app", cfg.AppName),
			zap.String("host", cfg.Hostname),
			logs.WithNotifier(),
		)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ginConfig.ShutdownTimeout)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		app.logger.Info(context.Background(), "Server exited properly")
		return nil
	}
}

func (app *GinApp) newServer(ctx context.Context) *http.Server {
	return &http.Server{
		Addr:           app.ginConfig.Addr,
		Handler:        app.engine,
		ReadTimeout:    app.ginConfig.ReadTimeout,
		WriteTimeout:   app.ginConfig.WriteTimeout,
		IdleTimeout:    app.ginConfig.IdleTimeout,
		MaxHeaderBytes: app.ginConfig.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return ctx },
	}
}

func (app *GinApp) Shutdown(ctx context.Context) error {
	if app.httpServer != nil {
		return app.httpServer.Shutdown(ctx)
	}
	return nil
}

func (app *GinApp) GetEngine() *gin.Engine {
	return app.engine
}

func (app *GinApp) startupLog() {
	cfg := config.Get()
	app.logger.Info(context.Background(), "API started",
		zap.String("app", cfg.AppName),
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Environment),
		zap.String("addr", app.ginConfig.Addr),
		zap.String("os", cfg.OS),
		zap.String("arch", cfg.Architecture),
		zap.String("go_version", runtime.Version()),
	)
}
