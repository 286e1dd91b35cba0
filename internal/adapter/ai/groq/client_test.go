package groq_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai/groq"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

func temp(v float64) *float64 { return &v }

func TestComplete_Success(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3-70b-8192","choices":[{"message":{"role":"assistant","content":"{\"atsScore\":72}"}}]}`))
	}))
	defer srv.Close()

	c := groq.New(srv.URL+"/openai/v1/", groq.WithHTTPClient(srv.Client()))
	text, err := c.Complete(context.Background(), "gsk_test", domain.CompletionRequest{
		Model:       "llama3-70b-8192",
		Prompt:      "analyse this",
		MaxTokens:   1800,
		Temperature: temp(0.7),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"atsScore":72}`, text)

	assert.Equal(t, "llama3-70b-8192", got["model"])
	assert.Equal(t, float64(1800), got["max_tokens"])
	assert.Equal(t, 0.7, got["temperature"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "analyse this"}, msgs[0])
}

func TestComplete_OmitsUnsetTemperatureAndDefaultsModel(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	_, err := groq.New(srv.URL).Complete(context.Background(), "k", domain.CompletionRequest{Prompt: "p", MaxTokens: 1500})
	require.NoError(t, err)
	_, hasTemp := got["temperature"]
	assert.False(t, hasTemp)
	assert.Equal(t, domain.DefaultModel, got["model"])
}

func TestComplete_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		sentinel   error
		credential bool
		message    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`, domain.ErrProvider, true, "Invalid API Key"},
		{"forbidden", http.StatusForbidden, `{}`, domain.ErrProvider, true, "Forbidden"},
		{"rate_limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached for model"}}`, domain.ErrProvider, false, "Rate limit reached for model"},
		{"server_error", http.StatusInternalServerError, `upstream exploded`, domain.ErrProvider, false, "Internal Server Error"},
		{"no_choices", http.StatusOK, `{"choices":[]}`, domain.ErrEmptyResponse, false, ""},
		{"empty_content", http.StatusOK, `{"choices":[{"message":{"content":""}}]}`, domain.ErrEmptyResponse, false, ""},
		{"bad_envelope", http.StatusOK, `<html>`, domain.ErrTransport, false, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := groq.New(srv.URL).Complete(context.Background(), "k", domain.CompletionRequest{Prompt: "p"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "err=%v", err)
			assert.Equal(t, tt.credential, errors.Is(err, domain.ErrCredential))

			if tt.message != "" {
				var perr *domain.ProviderError
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.status, perr.Status)
				assert.Equal(t, tt.message, perr.Message)
			}
		})
	}
}

func TestComplete_EmptyCredentialSkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	_, err := groq.New(srv.URL).Complete(context.Background(), "  ", domain.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCredential))
	assert.Equal(t, int32(0), calls.Load())
}

func TestComplete_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := groq.New(url).Complete(context.Background(), "k", domain.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.False(t, errors.Is(err, domain.ErrProvider))
}

func TestComplete_SingleAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := groq.New(srv.URL).Complete(context.Background(), "k", domain.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
