package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrInvalidArgument", ErrInvalidArgument, "invalid argument"},
		{"ErrCredential", ErrCredential, "credential missing or rejected"},
		{"ErrFetch", ErrFetch, "job description fetch failed"},
		{"ErrTransport", ErrTransport, "transport failure"},
		{"ErrProvider", ErrProvider, "provider error"},
		{"ErrEmptyResponse", ErrEmptyResponse, "empty completion response"},
		{"ErrNoJSONFound", ErrNoJSONFound, "no json object found"},
		{"ErrMalformedJSON", ErrMalformedJSON, "malformed json"},
		{"ErrSchemaInvalid", ErrSchemaInvalid, "schema invalid"},
		{"ErrInternal", ErrInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestProviderError_Is(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		credential bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"bad_request", http.StatusBadRequest, false},
		{"rate_limited", http.StatusTooManyRequests, false},
		{"server_error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("op=complete: %w", &ProviderError{Status: tt.status, Message: "boom"})
			assert.True(t, errors.Is(err, ErrProvider))
			assert.Equal(t, tt.credential, errors.Is(err, ErrCredential))
			assert.False(t, errors.Is(err, ErrTransport))
		})
	}
}

func TestProviderError_Error(t *testing.T) {
	assert.Equal(t, "provider status 400: Invalid model", (&ProviderError{Status: 400, Message: "Invalid model"}).Error())
	assert.Equal(t, "provider status 502", (&ProviderError{Status: 502}).Error())
}

func TestParseFailure(t *testing.T) {
	inner := fmt.Errorf("%w: unexpected end", ErrMalformedJSON)
	err := fmt.Errorf("op=run: %w", &ParseFailure{Raw: "{oops", Diagnostic: "unexpected end", Err: inner})

	pf, ok := AsParseFailure(err)
	assert.True(t, ok)
	assert.Equal(t, "{oops", pf.Raw)
	assert.True(t, errors.Is(err, ErrMalformedJSON))
	assert.True(t, IsParseError(err))
	assert.False(t, IsParseError(ErrTransport))

	_, ok = AsParseFailure(ErrProvider)
	assert.False(t, ok)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"invalid", fmt.Errorf("%w: cv is required", ErrInvalidArgument), CodeInvalidArgument, http.StatusBadRequest},
		{"missing_key", fmt.Errorf("%w: API key is required", ErrCredential), CodeCredentialInvalid, http.StatusUnauthorized},
		{"rejected_key", &ProviderError{Status: 401, Message: "Invalid API Key"}, CodeCredentialInvalid, http.StatusUnauthorized},
		{"fetch", fmt.Errorf("%w: status 404", ErrFetch), CodeFetchFailed, http.StatusBadRequest},
		{"provider", &ProviderError{Status: 429, Message: "slow down"}, CodeProviderError, http.StatusBadGateway},
		{"transport", fmt.Errorf("%w: dial", ErrTransport), CodeTransportError, http.StatusBadGateway},
		{"empty", ErrEmptyResponse, CodeEmptyResponse, http.StatusBadGateway},
		{"parse", &ParseFailure{Raw: "x", Diagnostic: "d", Err: ErrNoJSONFound}, CodeResponseParseFailed, http.StatusInternalServerError},
		{"schema", fmt.Errorf("%w: atsScore", ErrSchemaInvalid), CodeResponseParseFailed, http.StatusInternalServerError},
		{"other", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, status := ErrorCode(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestErrorFromCode_RoundTrip(t *testing.T) {
	codes := []string{
		CodeInvalidArgument, CodeCredentialInvalid, CodeFetchFailed, CodeProviderError,
		CodeTransportError, CodeEmptyResponse, CodeResponseParseFailed, CodeInternal,
	}
	for _, c := range codes {
		got, _ := ErrorCode(ErrorFromCode(c, "msg", 0))
		assert.Equal(t, c, got, c)
	}

	err := ErrorFromCode(CodeProviderError, "Rate limit reached", 429)
	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, 429, perr.Status)
	assert.Equal(t, "Rate limit reached", perr.Message)
	assert.True(t, errors.Is(ErrorFromCode(CodeCredentialInvalid, "no", 0), ErrCredential))
	assert.True(t, errors.Is(ErrorFromCode("SOMETHING_NEW", "?", 0), ErrInternal))
}
