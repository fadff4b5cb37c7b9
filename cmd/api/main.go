package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"runwayproxy/internal/http/handlers"
	"runwayproxy/internal/http/httpapi"
	"runwayproxy/internal/infra"
	"runwayproxy/internal/jobs"
	"runwayproxy/internal/providers/runway"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// Job metadata store is optional: without redis every task is reported
	// with the default kind, which keeps the response schema stable.
	var store jobs.Store = jobs.Disabled{}
	if cfg.RedisAddr != "" {
		redisStore, err := jobs.NewRedisStore(context.Background(), cfg.RedisAddr)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("job metadata store unavailable, degrading")
		} else {
			defer redisStore.Close()
			store = redisStore
		}
	}

	upstream := runway.NewClient(runway.Options{
		APIKey:         cfg.RunwayAPIKey,
		BaseURL:        cfg.RunwayBaseURL,
		APIVersion:     cfg.RunwayAPIVersion,
		Logger:         &logger,
		RequestTimeout: cfg.UpstreamTimeout,
	})

	app := handlers.NewApp(upstream, store, logger)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
