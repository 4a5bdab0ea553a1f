package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic-predictor/internal/api"
	"traffic-predictor/internal/artifact"
	"traffic-predictor/internal/cfg"
	"traffic-predictor/internal/metrics"
	"traffic-predictor/internal/storage"
	"traffic-predictor/internal/traffic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	deps := traffic.Deps{
		Resolver: artifact.NewResolver(c.RemoteBaseURL, c.DownloadTimeout),
		Recorder: m,
	}
	if store != nil {
		deps.Cache = store
	}

	state := traffic.Load(ctx, &c, deps)
	svc := traffic.NewService(state, metrics.NewPredictorMetrics(m))
	log.Info().Str("model", svc.ModelUsed()).Int("sensors", len(state.Sensors)).Msg("service ready")

	handler := api.NewRouter(svc, m, api.Options{
		AllowedOrigins: c.AllowedOrigins,
		StaticDir:      c.StaticDir,
		Gatherer:       prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Int("port", c.Port).Str("env", c.Env).Msgf("server running at http://localhost:%d", c.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, server)
}

// setupLogging uses a console writer in development and JSON otherwise.
func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.Debug() && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.Debug() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// initializeStorage opens the history cache if CACHE_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.CachePath == "" {
		return nil
	}
	if err := os.MkdirAll(c.CachePath, 0o755); err != nil {
		log.Warn().Err(err).Msg("cache directory not usable, continuing without cache")
		return nil
	}
	store, err := storage.New(c.CachePath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without cache")
		return nil
	}
	return store
}

// waitForShutdown blocks until a signal arrives or ctx ends, then drains the server.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
