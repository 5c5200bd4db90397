// Package main is the entry point for the football-api service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/footballdb/football-api/api"
	"github.com/footballdb/football-api/internal/config"
	"github.com/footballdb/football-api/internal/events"
	"github.com/footballdb/football-api/internal/metrics"
	"github.com/footballdb/football-api/internal/model"
	"github.com/footballdb/football-api/internal/server"
	"github.com/footballdb/football-api/internal/store"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DevMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "football-api").Str("version", version).Logger()
	}

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("version", version).Str("commit", commit).Str("build_date", buildDate).Msg("starting football-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := model.DefaultCatalog()
	if cfg.CatalogPath != "" {
		data, readErr := os.ReadFile(cfg.CatalogPath)
		if readErr != nil {
			logger.Fatal().Err(readErr).Str("path", cfg.CatalogPath).Msg("failed to read resource catalog")
		}
		catalog, err = model.LoadCatalog(data)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("invalid resource catalog")
		}
	}
	logger.Info().Str("catalog", catalog.Version).Int("resources", len(catalog.Resources)).Msg("resource catalog loaded")

	dialect, err := store.ParseDialect(cfg.DBDriver)
	if err != nil {
		logger.Fatal().Err(err).Msg("unsupported database driver")
	}
	db, err := store.Open(ctx, dialect, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}
	defer db.Close()
	logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	if cfg.AutoMigrate {
		result, migrateErr := store.Migrate(ctx, db, dialect)
		if migrateErr != nil {
			logger.Fatal().Err(migrateErr).Msg("failed to run database migrations")
		}
		logger.Info().Uint("version", result.Version).Bool("dirty", result.Dirty).Msg("database migration complete")
	}

	opts := []server.Option{
		server.WithOpenAPISpec(api.OpenAPISpec),
		server.WithCatalog(catalog),
	}
	if cfg.MetricsEnabled {
		opts = append(opts, server.WithMetrics(metrics.New("football_api")))
	}
	if cfg.NATSURL != "" {
		publisher, pubErr := events.NewNATSPublisher(events.Config{
			URL:           cfg.NATSURL,
			Name:          "football-api",
			SubjectPrefix: cfg.NATSSubjectPrefix,
			Stream:        cfg.NATSStream,
		})
		if pubErr != nil {
			logger.Fatal().Err(pubErr).Msg("failed to connect to NATS")
		}
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close NATS publisher")
			}
		}()
		opts = append(opts, server.WithPublisher(publisher))
		logger.Info().Str("prefix", cfg.NATSSubjectPrefix).Str("stream", cfg.NATSStream).Msg("publishing change events to NATS")
	}

	st := store.New(db, dialect)
	srv := server.New(st, cfg, version, commit, buildDate, opts...)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case serveErr := <-errCh:
		logger.Error().Err(serveErr).Msg("HTTP server error")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}
	logger.Info().Msg("server stopped gracefully")
}
