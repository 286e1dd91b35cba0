package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/jobfetch"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/repo/sqlite"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/config"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/usecase"
)

// LogFileName is the diagnostics log kept in the state directory. Raw model
// output from failed parses ends up here, never on the terminal.
const LogFileName = "cvopt.log"

// session is the wiring one command invocation needs.
type session struct {
	cfg     config.Config
	store   *sqlite.Store
	logFile *os.File
	service usecase.SessionService
}

// openSession loads config, opens the local store and builds the services.
// The returned context carries the command's logger. Callers must Close.
func openSession(cmd *cobra.Command, opts *rootOptions) (context.Context, *session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if opts.stateDir != "" {
		cfg.StateDir = opts.stateDir
	}
	dir, err := cfg.StatePath()
	if err != nil {
		return nil, nil, err
	}

	s := &session{cfg: cfg}
	var lg *slog.Logger
	if opts.verbose {
		lg = observability.NewLeveledLogger(cmd.ErrOrStderr(), cfg, slog.LevelDebug)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create state directory: %w", err)
		}
		s.logFile, err = os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		lg = observability.NewLogger(s.logFile, cfg)
	}
	ctx := obsctx.ContextWithLogger(cmd.Context(), lg)

	s.store, err = sqlite.Open(ctx, dir)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}

	client, err := ai.NewClient(cfg)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	opt := usecase.NewOptimizeService(client, jobfetch.FromConfig(cfg), cfg.Model)
	opt.ServerHeldKey = cfg.IsProxyMode()
	s.service = usecase.NewSessionService(s.store, opt)

	lg.Debug("session opened",
		slog.String("state", s.store.Path()),
		slog.String("completion_mode", cfg.CompletionMode),
		slog.String("model", cfg.Model))
	return ctx, s, nil
}

func (s *session) Close() error {
	var err error
	if s.store != nil {
		err = s.store.Close()
	}
	if s.logFile != nil {
		if cerr := s.logFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// readTextFlag returns value, or the contents of path when path is set.
func readTextFlag(value, path, name string) (string, error) {
	if path == "" {
		return value, nil
	}
	if value != "" {
		return "", fmt.Errorf("--%s and --%s-file are mutually exclusive", name, name)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s file: %w", name, err)
	}
	return string(b), nil
}
