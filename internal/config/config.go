package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds settings for the ingestion server.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	CORSOrigins  string        `env:"CORS_ORIGINS"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Post-write side paths
	PruneWindow      time.Duration `env:"PRUNE_WINDOW" envDefault:"60s"`
	SummaryInterval  time.Duration `env:"SUMMARY_INTERVAL" envDefault:"5m"`
	PostWriteWorkers int           `env:"POST_WRITE_WORKERS" envDefault:"4"`
	PostWriteQueue   int           `env:"POST_WRITE_QUEUE" envDefault:"1024"`
	EventRingSize    int           `env:"EVENT_RING_SIZE" envDefault:"512"`

	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"0s"`

	ArchiveDir string `env:"ARCHIVE_DIR"`
	S3         S3Config
}

// S3Config configures the optional S3 archive backend.
type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX"`
}

// Enabled reports whether an S3 bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// SummariesEnabled reports whether an LLM backend is configured.
func (c *Config) SummariesEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// CORSOriginList splits CORS_ORIGINS into a list. Empty means allow all.
func (c *Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	ArchiveDir  string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	loadEnvFile(overrides.EnvFile)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.ArchiveDir != "" {
		cfg.ArchiveDir = overrides.ArchiveDir
	}

	return cfg, nil
}

// loadEnvFile loads a .env file if present. A missing file is not an error.
func loadEnvFile(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}
