// Command server starts the ATS CV Optimizer HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai/groq"
	httpserver "github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/jobfetch"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/textextractor"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/app"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/config"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/usecase"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// The server is the backend the proxy mode talks to, so it always calls
	// the provider directly.
	client := groq.New(cfg.GroqBaseURL)
	fetcher := jobfetch.FromConfig(cfg)
	optimizer := usecase.NewOptimizeService(client, fetcher, cfg.Model)
	slog.Info("completion provider configured",
		slog.String("base_url", cfg.GroqBaseURL),
		slog.String("model", cfg.Model),
		observability.CredentialAttr(cfg.GroqAPIKey),
		slog.Bool("job_fetch_enabled", cfg.JobFetchEnabled),
		slog.String("job_fetch_mode", cfg.JobFetchMode))

	srv := httpserver.NewServer(cfg, optimizer, textextractor.New(), app.BuildReadinessChecks(cfg, nil)...)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
