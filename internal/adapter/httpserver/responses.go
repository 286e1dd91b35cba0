// Package httpserver contains HTTP handlers and middleware.
//
// Every failure is answered with the envelope
// {"error":{"code","message","details"}}; codes come from domain.ErrorCode so
// the proxy completion client can map them back.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/jobfetch"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message, Details: details}})
}

// writeError maps err onto the envelope. Provider messages are passed through
// verbatim; parse failures and internal errors only ever show a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error, details any) {
	code, status := domain.ErrorCode(err)
	message := err.Error()

	var perr *domain.ProviderError
	switch {
	case errors.As(err, &perr):
		message = perr.Message
		if details == nil {
			details = map[string]any{"provider_status": perr.Status}
		}
	case code == domain.CodeFetchFailed:
		if details == nil {
			details = map[string]any{"fallback": jobfetch.FallbackHint}
		}
	case code == domain.CodeResponseParseFailed:
		message = domain.UserMessage
	case code == domain.CodeInternal:
		message = "internal error"
	}

	if status >= http.StatusInternalServerError {
		obsctx.LoggerFromContext(r.Context()).Error("request failed",
			"code", code, "status", status, "error", err.Error())
	}
	writeEnvelope(w, status, code, message, details)
}
