package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	httpserver "github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/config"
)

// BuildReadinessChecks returns the probes for /readyz: the configuration
// itself and reachability of the completion provider. Any HTTP answer below
// 500 counts as reachable since the probe carries no credential.
func BuildReadinessChecks(cfg config.Config, hc *http.Client) []httpserver.ReadinessCheck {
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Second}
	}
	provider := strings.TrimRight(cfg.GroqBaseURL, "/")
	return []httpserver.ReadinessCheck{
		{Name: "config", Check: func(context.Context) error { return cfg.Validate() }},
		{Name: "provider", Check: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider+"/models", nil)
			if err != nil {
				return err
			}
			resp, err := hc.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("provider status %d", resp.StatusCode)
			}
			return nil
		}},
	}
}
