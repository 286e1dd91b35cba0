package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a well-formed error payload returned by the completion
// provider. Message is the provider's own text and is shown to users verbatim.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider status %d", e.Status)
	}
	return fmt.Sprintf("provider status %d: %s", e.Status, e.Message)
}

// Rejected reports whether the provider refused the credential.
func (e *ProviderError) Rejected() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Is matches ErrProvider always and ErrCredential for rejected credentials.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProvider:
		return true
	case ErrCredential:
		return e.Rejected()
	}
	return false
}

// ParseFailure is the failure arm of a model call outcome: the provider answered
// but its text could not be turned into an OptimizationResult. Raw is kept for
// diagnostics and must not be shown to end users.
type ParseFailure struct {
	Raw        string
	Diagnostic string
	Err        error
}

// UserMessage is the only text end users see for a parse failure.
const UserMessage = "AI response parsing failed. Please retry."

func (e *ParseFailure) Error() string {
	return "parse failure: " + e.Diagnostic
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// AsParseFailure extracts a *ParseFailure from err.
func AsParseFailure(err error) (*ParseFailure, bool) {
	var pf *ParseFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}

// IsParseError reports whether err came from extracting or validating model output.
func IsParseError(err error) bool {
	return errors.Is(err, ErrNoJSONFound) || errors.Is(err, ErrMalformedJSON) || errors.Is(err, ErrSchemaInvalid)
}

// Wire error codes shared by the HTTP server envelope and the proxy client.
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeCredentialInvalid   = "CREDENTIAL_INVALID"
	CodeFetchFailed         = "FETCH_FAILED"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeTransportError      = "TRANSPORT_ERROR"
	CodeEmptyResponse       = "EMPTY_RESPONSE"
	CodeResponseParseFailed = "RESPONSE_PARSE_FAILED"
	CodeInternal            = "INTERNAL"
)

// ErrorCode classifies err into a wire code and HTTP status. Order matters:
// a rejected credential is also a provider error.
func ErrorCode(err error) (code string, status int) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument, http.StatusBadRequest
	case errors.Is(err, ErrCredential):
		return CodeCredentialInvalid, http.StatusUnauthorized
	case errors.Is(err, ErrFetch):
		return CodeFetchFailed, http.StatusBadRequest
	case errors.Is(err, ErrProvider):
		return CodeProviderError, http.StatusBadGateway
	case errors.Is(err, ErrTransport):
		return CodeTransportError, http.StatusBadGateway
	case errors.Is(err, ErrEmptyResponse):
		return CodeEmptyResponse, http.StatusBadGateway
	case IsParseError(err):
		return CodeResponseParseFailed, http.StatusInternalServerError
	}
	var pf *ParseFailure
	if errors.As(err, &pf) {
		return CodeResponseParseFailed, http.StatusInternalServerError
	}
	return CodeInternal, http.StatusInternalServerError
}

// ErrorFromCode rebuilds a taxonomy error from a wire code. providerStatus is
// the upstream status reported alongside PROVIDER_ERROR, zero if unknown.
func ErrorFromCode(code, message string, providerStatus int) error {
	switch code {
	case CodeInvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, message)
	case CodeCredentialInvalid:
		return &ProviderError{Status: http.StatusUnauthorized, Message: message}
	case CodeFetchFailed:
		return fmt.Errorf("%w: %s", ErrFetch, message)
	case CodeProviderError:
		if providerStatus == 0 {
			providerStatus = http.StatusBadGateway
		}
		return &ProviderError{Status: providerStatus, Message: message}
	case CodeTransportError:
		return fmt.Errorf("%w: %s", ErrTransport, message)
	case CodeEmptyResponse:
		return fmt.Errorf("%w: %s", ErrEmptyResponse, message)
	case CodeResponseParseFailed:
		return &ParseFailure{Diagnostic: message, Err: ErrMalformedJSON}
	}
	return fmt.Errorf("%w: %s", ErrInternal, message)
}
