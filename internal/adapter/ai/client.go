package ai

import (
	"fmt"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai/groq"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai/proxy"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/config"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

// NewClient selects the completion client for cfg.CompletionMode.
func NewClient(cfg config.Config) (domain.CompletionClient, error) {
	switch {
	case cfg.IsProxyMode():
		if cfg.ProxyURL == "" {
			return nil, fmt.Errorf("op=ai.NewClient: %w: PROXY_URL is required in proxy mode", domain.ErrInvalidArgument)
		}
		return proxy.New(cfg.ProxyURL, nil), nil
	case cfg.GroqBaseURL == "":
		return nil, fmt.Errorf("op=ai.NewClient: %w: GROQ_BASE_URL is required", domain.ErrInvalidArgument)
	default:
		return groq.New(cfg.GroqBaseURL), nil
	}
}
