// Package groq implements domain.CompletionClient against Groq's
// OpenAI-compatible chat completions API.
package groq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
)

const (
	provider = "groq"
	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 4 << 20
	snippetBytes     = 512
)

// Client calls POST {baseURL}/chat/completions with a bearer credential.
// Every call is a single attempt.
type Client struct {
	baseURL string
	hc      *http.Client
	counter *tokencount.Counter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// New constructs a Groq client for baseURL, e.g. https://api.groq.com/openai/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      observability.NewTracedClient("Groq"),
		counter: tokencount.DefaultCounter,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorPayload struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends req as a single user turn and returns the first choice's content.
func (c *Client) Complete(ctx domain.Context, credential string, req domain.CompletionRequest) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	if strings.TrimSpace(credential) == "" {
		return "", fmt.Errorf("%w: API key is required", domain.ErrCredential)
	}
	if req.Model == "" {
		req.Model = domain.DefaultModel
	}

	usage := c.counter.Estimate(req)
	observability.ObservePromptTokens(provider, usage.PromptTokens)
	if !usage.FitsWindow() {
		lg.Warn("completion may exceed provider token window",
			slog.String("provider", provider),
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("max_tokens", req.MaxTokens))
	}

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("op=groq.Complete: marshal: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", domain.ErrTransport, err)
	}
	r.Header.Set("Authorization", "Bearer "+credential)
	r.Header.Set("Content-Type", "application/json")

	lg.Info("calling completion provider",
		slog.String("provider", provider),
		slog.String("model", req.Model),
		slog.Int("max_tokens", req.MaxTokens),
		slog.Int("prompt_tokens", usage.PromptTokens),
		observability.CredentialAttr(credential))

	start := time.Now()
	resp, err := c.hc.Do(r)
	if err != nil {
		observability.ObserveAICall(provider, "chat", "transport_error", time.Since(start))
		lg.Error("completion provider unreachable", slog.String("provider", provider), slog.Any("error", err))
		return "", fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observability.ObserveAICall(provider, "chat", "transport_error", time.Since(start))
		return "", fmt.Errorf("%w: read response: %w", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := providerError(resp.StatusCode, raw)
		outcome := "provider_error"
		if perr.Rejected() {
			outcome = "credential_rejected"
		}
		observability.ObserveAICall(provider, "chat", outcome, time.Since(start))
		lg.Warn("completion provider non-2xx",
			slog.String("provider", provider),
			slog.Int("status", resp.StatusCode),
			slog.String("model", req.Model),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet(raw)))
		return "", perr
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		observability.ObserveAICall(provider, "chat", "decode_error", time.Since(start))
		lg.Error("completion provider decode error", slog.String("provider", provider), slog.Any("error", err))
		return "", fmt.Errorf("%w: decode completion envelope: %w", domain.ErrTransport, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		observability.ObserveAICall(provider, "chat", "empty", time.Since(start))
		return "", fmt.Errorf("%w: no content from %s", domain.ErrEmptyResponse, req.Model)
	}

	observability.ObserveAICall(provider, "chat", "ok", time.Since(start))
	if out.Model != "" && out.Model != req.Model {
		lg.Warn("model substitution detected",
			slog.String("requested_model", req.Model),
			slog.String("actual_model", out.Model))
	}
	lg.Info("completion provider call successful",
		slog.String("provider", provider),
		slog.Int("choices_count", len(out.Choices)),
		slog.Duration("elapsed", time.Since(start)))
	return out.Choices[0].Message.Content, nil
}

// providerError builds a ProviderError keeping the provider's message verbatim
// when the body carries the usual {"error":{"message":...}} payload.
func providerError(status int, body []byte) *domain.ProviderError {
	var p errorPayload
	if err := json.Unmarshal(body, &p); err == nil && p.Error.Message != "" {
		return &domain.ProviderError{Status: status, Message: p.Error.Message}
	}
	return &domain.ProviderError{Status: status, Message: http.StatusText(status)}
}

func snippet(b []byte) string {
	if len(b) > snippetBytes {
		b = b[:snippetBytes]
	}
	return string(b)
}

