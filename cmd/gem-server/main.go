// cmd/gem-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gem-finder/internal/api"
	"gem-finder/internal/app"
	"gem-finder/internal/common/config"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/common/observability"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting gem server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log, app.Options{
		Observability: observability.New(cfg.App.Name),
	})
	if err != nil {
		zapLog.Fatal("pipeline setup failed", zap.Error(err))
	}
	defer a.Close()

	sessions := api.NewSessionStore(a.Pipeline, config.GetDuration(cfg.Server.SessionTTL))
	go sessions.Run(ctx, sweepInterval)

	handler := api.NewHandler(a.Pipeline, sessions, api.ServiceInfo{
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
	}, log)
	if a.Redis != nil {
		handler.AddReadinessCheck("redis", a.Ready)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(handler, api.RouterConfig{
			CORSOrigins:       cfg.Server.CORSOrigins,
			RateLimitRequests: cfg.Server.RateLimitRequests,
			RateLimitWindow:   config.GetDuration(cfg.Server.RateLimitWindow),
			MetricsEnabled:    cfg.Metrics.Enabled,
			MetricsPath:       cfg.Metrics.Path,
		}),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  config.GetDuration(cfg.Server.IdleTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Gem server stopped")
}
