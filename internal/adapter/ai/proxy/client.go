// Package proxy implements domain.CompletionClient by forwarding prompts to
// the backend's /v1/complete endpoint, which holds or passes through the key.
package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
)

const maxResponseBytes = 4 << 20

// CompleteRequest is the body of POST /v1/complete.
type CompleteRequest struct {
	Model       string   `json:"model,omitempty" validate:"omitempty,max=128"`
	Prompt      string   `json:"prompt" validate:"required"`
	MaxTokens   int      `json:"max_tokens" validate:"gte=1,lte=8192"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
}

// CompleteResponse is the success body of POST /v1/complete.
type CompleteResponse struct {
	Text string `json:"text"`
}

type errorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// Client forwards completion requests to a backend server.
type Client struct {
	serverURL string
	hc        *http.Client
}

// New constructs a proxy client for serverURL, e.g. http://localhost:8080.
// A nil hc selects the traced default client.
func New(serverURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = observability.NewTracedClient("Proxy")
	}
	return &Client{serverURL: strings.TrimRight(serverURL, "/"), hc: hc}
}

// Complete posts req to /v1/complete. An empty credential is allowed: the
// server then uses its own key. Error envelopes are mapped back onto the
// domain taxonomy.
func (c *Client) Complete(ctx domain.Context, credential string, req domain.CompletionRequest) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	body, err := json.Marshal(CompleteRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("op=proxy.Complete: marshal: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", domain.ErrTransport, err)
	}
	r.Header.Set("Content-Type", "application/json")
	if credential != "" {
		r.Header.Set("Authorization", "Bearer "+credential)
	}
	if rid := obsctx.RequestIDFromContext(ctx); rid != "" {
		r.Header.Set("X-Request-Id", rid)
	}

	start := time.Now()
	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveAICall("proxy", "complete", "transport_error", time.Since(start))
		return "", fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		var env errorEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
			observability.ObserveAICall("proxy", "complete", "transport_error", time.Since(start))
			return "", fmt.Errorf("%w: proxy status %d", domain.ErrTransport, resp.StatusCode)
		}
		observability.ObserveAICall("proxy", "complete", strings.ToLower(env.Error.Code), time.Since(start))
		lg.Warn("proxy completion failed",
			slog.Int("status", resp.StatusCode),
			slog.String("code", env.Error.Code))
		return "", domain.ErrorFromCode(env.Error.Code, env.Error.Message, providerStatus(env.Error.Details))
	}

	var out CompleteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode proxy response: %w", domain.ErrTransport, err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("%w: proxy returned no text", domain.ErrEmptyResponse)
	}
	observability.ObserveAICall("proxy", "complete", "ok", time.Since(start))
	return out.Text, nil
}

// providerStatus reads details.provider_status when details is an object.
func providerStatus(details json.RawMessage) int {
	var d struct {
		ProviderStatus int `json:"provider_status"`
	}
	if len(details) == 0 || json.Unmarshal(details, &d) != nil {
		return 0
	}
	return d.ProviderStatus
}
