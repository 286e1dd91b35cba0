package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields.
func SetupLogger(cfg config.Config) *slog.Logger {
	return NewLogger(os.Stdout, cfg)
}

// NewLogger is SetupLogger writing to w. The CLI logs to stderr so stdout
// stays reserved for rendered results.
func NewLogger(w io.Writer, cfg config.Config) *slog.Logger {
	// In dev, show debug level; in prod, default to info
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	return NewLeveledLogger(w, cfg, level)
}

// NewLeveledLogger is NewLogger with an explicit minimum level.
func NewLeveledLogger(w io.Writer, cfg config.Config, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}

// CredentialAttr logs whether a credential was supplied, never its value.
func CredentialAttr(credential string) slog.Attr {
	return slog.Bool("credential_present", credential != "")
}
