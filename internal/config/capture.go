package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// CaptureConfig holds settings for the capture agent.
type CaptureConfig struct {
	BackendURL   string `env:"BACKEND_URL" envDefault:"http://localhost:8080"`
	BackendToken string `env:"BACKEND_TOKEN"`
	MeetingID    string `env:"MEETING_ID"`
	MeetURL      string `env:"MEET_URL"`

	Source     string `env:"CAPTURE_SOURCE" envDefault:"stdin"` // stdin, file, mqtt
	SourceFile string `env:"CAPTURE_FILE"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTTopic     string `env:"MQTT_TOPIC" envDefault:"notetaker/captions"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"notetaker-capture"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	// Reconciliation tuning. The defaults were picked empirically against
	// live caption rendering and rarely need changing.
	FlushDelay       time.Duration `env:"FLUSH_DELAY" envDefault:"1600ms"`
	DispatchDebounce time.Duration `env:"DISPATCH_DEBOUNCE" envDefault:"500ms"`
	OverlapRatio     float64       `env:"OVERLAP_RATIO" envDefault:"0.6"`
	TransportTimeout time.Duration `env:"TRANSPORT_TIMEOUT" envDefault:"10s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// CaptureOverrides holds capture agent CLI flag values.
type CaptureOverrides struct {
	EnvFile    string
	BackendURL string
	MeetingID  string
	Source     string
	SourceFile string
	LogLevel   string
}

// LoadCapture reads capture agent configuration with the same precedence as Load.
func LoadCapture(overrides CaptureOverrides) (*CaptureConfig, error) {
	loadEnvFile(overrides.EnvFile)

	cfg := &CaptureConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.BackendURL != "" {
		cfg.BackendURL = overrides.BackendURL
	}
	if overrides.MeetingID != "" {
		cfg.MeetingID = overrides.MeetingID
	}
	if overrides.Source != "" {
		cfg.Source = overrides.Source
	}
	if overrides.SourceFile != "" {
		cfg.SourceFile = overrides.SourceFile
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	return cfg, nil
}
