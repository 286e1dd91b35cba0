// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Completion modes.
const (
	CompletionDirect = "direct"
	CompletionProxy  = "proxy"
)

// Job description fetch modes.
const (
	JobFetchStrip = "strip"
	JobFetchDOM   = "dom"
)

// Config holds all application configuration parsed from environment variables.
// Both binaries read the same struct; fields a binary does not use are ignored.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// GroqAPIKey is the server-held credential used when a request carries none.
	GroqAPIKey  string `env:"GROQ_API_KEY"`
	GroqBaseURL string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	Model       string `env:"MODEL" envDefault:"llama3-70b-8192"`
	// CompletionMode selects direct provider calls or the server's /v1/complete proxy.
	CompletionMode string `env:"COMPLETION_MODE" envDefault:"direct"`
	ProxyURL       string `env:"PROXY_URL" envDefault:"http://localhost:8080"`

	JobFetchEnabled  bool   `env:"JOB_FETCH_ENABLED" envDefault:"true"`
	JobFetchMode     string `env:"JOB_FETCH_MODE" envDefault:"strip"`
	JobFetchMaxBytes int64  `env:"JOB_FETCH_MAX_BYTES" envDefault:"2097152"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ats-cv-optimizer"`

	MaxUploadMB      int64  `env:"MAX_UPLOAD_MB" envDefault:"10"`
	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin  int    `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`

	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// HTTPWriteTimeout must exceed HTTPRequestTimeout so slow completions can still be answered.
	HTTPWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"150s"`
	HTTPIdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"120s"`

	// StateDir holds the CLI's local session database. Empty means ~/.cvopt.
	StateDir string `env:"CVOPT_STATE_DIR"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch strings.ToLower(c.CompletionMode) {
	case CompletionDirect, CompletionProxy:
	default:
		return fmt.Errorf("COMPLETION_MODE must be %q or %q, got %q", CompletionDirect, CompletionProxy, c.CompletionMode)
	}
	switch strings.ToLower(c.JobFetchMode) {
	case JobFetchStrip, JobFetchDOM:
	default:
		return fmt.Errorf("JOB_FETCH_MODE must be %q or %q, got %q", JobFetchStrip, JobFetchDOM, c.JobFetchMode)
	}
	if c.JobFetchMaxBytes <= 0 {
		return fmt.Errorf("JOB_FETCH_MAX_BYTES must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// IsProxyMode reports whether completions go through the backend proxy.
func (c Config) IsProxyMode() bool { return strings.ToLower(c.CompletionMode) == CompletionProxy }

// UseDOMFetch reports whether job pages are reduced with the HTML parser.
func (c Config) UseDOMFetch() bool { return strings.ToLower(c.JobFetchMode) == JobFetchDOM }

// MaxUploadBytes is MaxUploadMB in bytes.
func (c Config) MaxUploadBytes() int64 { return c.MaxUploadMB * 1024 * 1024 }

// StatePath returns the directory for CLI state, resolving the default
// under the user's home directory.
func (c Config) StatePath() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("op=config.StatePath: %w", err)
	}
	return filepath.Join(home, ".cvopt"), nil
}
