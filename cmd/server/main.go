// Command server is the entry point for the PoetPortal API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poetportal/internal/bootstrap"
	"poetportal/internal/config"
	"poetportal/internal/observability"
	"poetportal/internal/server"
	"poetportal/internal/storage"
)

// @title PoetPortal API
// @version 1.0
// @description Poetry sharing API with posts, threaded comments, likes and follows

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.L().Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Pretty:      cfg.LogPretty,
		ServiceName: "poetportal-api",
	})
	log := observability.L()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "poetportal-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize runtime")
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}
	app := srv.NewApp()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracer shutdown error")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
