package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	notetaker "github.com/snarg/notetaker"
	"github.com/snarg/notetaker/internal/api"
	"github.com/snarg/notetaker/internal/archive"
	"github.com/snarg/notetaker/internal/config"
	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/ingest"
	"github.com/snarg/notetaker/internal/metrics"
	"github.com/snarg/notetaker/internal/summary"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var (
		envFile     = flag.String("env-file", "", "path to .env file (default: .env)")
		httpAddr    = flag.String("listen", "", "HTTP listen address (overrides HTTP_ADDR)")
		logLevel    = flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
		databaseURL = flag.String("database-url", "", "postgres:// or sqlite: URL (overrides DATABASE_URL)")
		archiveDir  = flag.String("archive-dir", "", "meeting notes directory (overrides ARCHIVE_DIR)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("notetaker", version)
		return
	}

	// Config
	cfg, err := config.Load(config.Overrides{
		EnvFile:     *envFile,
		HTTPAddr:    *httpAddr,
		LogLevel:    *logLevel,
		DatabaseURL: *databaseURL,
		ArchiveDir:  *archiveDir,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("notetaker starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	store, err := database.Open(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	if err := database.Prepare(ctx, store, database.Schemas{
		Postgres: notetaker.PostgresSchema,
		SQLite:   notetaker.SQLiteSchema,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare database schema")
	}

	// Archive
	notes, err := archive.New(cfg.S3, cfg.ArchiveDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize archive")
	}
	if notes != nil {
		log.Info().Str("backend", notes.Type()).Msg("meeting notes archive enabled")
	}

	bus := ingest.NewEventBus(cfg.EventRingSize)

	// Summaries
	var completer summary.Completer
	if cfg.SummariesEnabled() {
		c, err := summary.NewOpenAICompleter(summary.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure openai")
		}
		completer = c
		log.Info().Str("model", cfg.OpenAIModel).Dur("interval", cfg.SummaryInterval).Msg("automatic summaries enabled")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, summaries disabled")
	}
	generator := summary.NewGenerator(summary.GeneratorOptions{
		Store:     store,
		Completer: completer,
		Archive:   notes,
		Bus:       bus,
		Log:       log,
	})
	scheduler := summary.NewScheduler(summary.SchedulerOptions{
		Store:      store,
		Summarizer: generator,
		Interval:   cfg.SummaryInterval,
		Log:        log,
	})

	// Ingestion
	svcOpts := ingest.ServiceOptions{
		Store:       store,
		PruneWindow: cfg.PruneWindow,
		Workers:     cfg.PostWriteWorkers,
		QueueSize:   cfg.PostWriteQueue,
		Bus:         bus,
		Log:         log,
	}
	if cfg.SummariesEnabled() {
		svcOpts.Trigger = scheduler
	}
	svc := ingest.NewService(svcOpts)
	svc.Start()

	stats := &runtimeStats{svc: svc, bus: bus, scheduler: scheduler, summaries: cfg.SummariesEnabled()}

	// Metrics
	prometheus.MustRegister(metrics.NewCollector(pgPool(store), stats))

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(api.ServerOptions{
		Config:      cfg,
		Store:       store,
		Transcripts: svc,
		Summaries:   scheduler,
		Events:      bus,
		Stats:       stats,
		Version:     version,
		StartTime:   startTime,
		Log:         httpLog,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	svc.Stop()
	if err := scheduler.Wait(shutdownCtx); err != nil {
		log.Warn().Int("in_flight", scheduler.InFlight()).Msg("summaries still running at shutdown")
	}

	log.Info().Msg("notetaker stopped")
}
