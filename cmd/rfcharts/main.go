package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"rfcharts/internal/cache"
	"rfcharts/internal/cli"
	"rfcharts/internal/dashboard"
	apphttp "rfcharts/internal/http"
	applog "rfcharts/internal/log"
	"rfcharts/internal/render"
	"rfcharts/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig()
	logger, logCloser := cli.SetupLogger(cfg)
	defer logCloser.Close()

	res := cli.InitBackend(context.Background(), logger.Logger, cfg)

	charts := cache.NewLRUCache[render.Chart](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger.Logger)
	caches.Register(charts)
	caches.StartCleanup(cfg.CacheTTL)

	// One theme for the whole process; charts only read it.
	theme := render.NewTheme(cfg.ChartFontColor)
	dash := dashboard.New(res.Backend, theme, charts, logger.Logger)

	var ready func(context.Context) error
	if p, ok := res.Backend.(interface{ Ping(context.Context) error }); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Dashboard:  dash,
		Plans:      res.Backend,
		ChartCache: charts,
		Ready:      ready,
		Logger:     logger.WithComponent(applog.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	if res.Events != nil {
		invalidator := worker.NewInvalidationWorker(dash, logger.Logger)
		go func() {
			if err := invalidator.Run(ctx, res.Events); err != nil {
				logger.Error("Forecast update consumer stopped", applog.FieldError, err)
			}
		}()
	}

	logger.Info("Starting rfcharts server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
