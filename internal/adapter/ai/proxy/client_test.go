package proxy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai/proxy"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
)

func TestComplete_ForwardsRequest(t *testing.T) {
	t.Parallel()

	var got proxy.CompleteRequest
	var auth, rid string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/complete", r.URL.Path)
		auth = r.Header.Get("Authorization")
		rid = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(proxy.CompleteResponse{Text: `{"atsScore":80}`})
	}))
	defer srv.Close()

	temp := 0.7
	ctx := obsctx.ContextWithRequestID(context.Background(), "01HREQ")
	text, err := proxy.New(srv.URL+"/", srv.Client()).Complete(ctx, "gsk_user", domain.CompletionRequest{
		Model: "llama3-70b-8192", Prompt: "prompt", MaxTokens: 1800, Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"atsScore":80}`, text)
	assert.Equal(t, "Bearer gsk_user", auth)
	assert.Equal(t, "01HREQ", rid)
	assert.Equal(t, "prompt", got.Prompt)
	assert.Equal(t, 1800, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.7, *got.Temperature)
}

func TestComplete_NoCredentialOmitsHeader(t *testing.T) {
	t.Parallel()

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"text":"hi"}`))
	}))
	defer srv.Close()

	_, err := proxy.New(srv.URL, nil).Complete(context.Background(), "", domain.CompletionRequest{Prompt: "p", MaxTokens: 5})
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestComplete_MapsEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"credential", 401, `{"error":{"code":"CREDENTIAL_INVALID","message":"Invalid API Key"}}`, domain.ErrCredential},
		{"provider", 502, `{"error":{"code":"PROVIDER_ERROR","message":"Rate limit reached","details":{"provider_status":429}}}`, domain.ErrProvider},
		{"transport", 502, `{"error":{"code":"TRANSPORT_ERROR","message":"dial tcp"}}`, domain.ErrTransport},
		{"empty", 502, `{"error":{"code":"EMPTY_RESPONSE","message":"no content"}}`, domain.ErrEmptyResponse},
		{"invalid", 400, `{"error":{"code":"INVALID_ARGUMENT","message":"prompt is required"}}`, domain.ErrInvalidArgument},
		{"not_an_envelope", 504, `gateway timeout`, domain.ErrTransport},
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

			_, err := proxy.New(srv.URL, nil).Complete(context.Background(), "k", domain.CompletionRequest{Prompt: "p", MaxTokens: 5})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "err=%v", err)
		})
	}
}

func TestComplete_ProviderStatusPreserved(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"code":"PROVIDER_ERROR","message":"Rate limit reached","details":{"provider_status":429}}}`))
	}))
	defer srv.Close()

	_, err := proxy.New(srv.URL, nil).Complete(context.Background(), "", domain.CompletionRequest{Prompt: "p", MaxTokens: 5})
	var perr *domain.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 429, perr.Status)
	assert.Equal(t, "Rate limit reached", perr.Message)
	assert.False(t, errors.Is(err, domain.ErrCredential))
}
