package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/capture"
	"github.com/snarg/notetaker/internal/config"
	"github.com/snarg/notetaker/internal/mqttclient"
)

var version = "dev"

func main() {
	var (
		envFile     = flag.String("env-file", "", "path to .env file (default: .env)")
		backendURL  = flag.String("backend", "", "notetaker server URL (overrides BACKEND_URL)")
		meetingID   = flag.String("meeting", "", "meeting id to append to (overrides MEETING_ID)")
		source      = flag.String("source", "", "caption source: stdin, file, mqtt (overrides CAPTURE_SOURCE)")
		sourceFile  = flag.String("file", "", "JSONL file to tail (overrides CAPTURE_FILE)")
		logLevel    = flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("notetaker-capture", version)
		return
	}

	cfg, err := config.LoadCapture(config.CaptureOverrides{
		EnvFile:    *envFile,
		BackendURL: *backendURL,
		MeetingID:  *meetingID,
		Source:     *source,
		SourceFile: *sourceFile,
		LogLevel:   *logLevel,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	// stderr: the stdin source may be fed by a pipeline that also reads stdout.
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("source", cfg.Source).Msg("capture agent starting")

	src, err := newSource(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid caption source")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent := capture.NewAgent(cfg, src, nil, log)
	if err := agent.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("capture agent failed")
	}
	log.Info().Msg("capture agent stopped")
}

func newSource(cfg *config.CaptureConfig, log zerolog.Logger) (capture.Source, error) {
	switch cfg.Source {
	case "stdin", "":
		return capture.NewReaderSource(os.Stdin, log), nil
	case "file":
		if cfg.SourceFile == "" {
			return nil, fmt.Errorf("CAPTURE_FILE is required for the file source")
		}
		return capture.NewFileSource(cfg.SourceFile, log), nil
	case "mqtt":
		if cfg.MQTTBrokerURL == "" {
			return nil, fmt.Errorf("MQTT_BROKER_URL is required for the mqtt source")
		}
		return capture.NewMQTTSource(mqttclient.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topics:    cfg.MQTTTopic,
			QoS:       1,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       log,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown caption source %q", cfg.Source)
	}
}
