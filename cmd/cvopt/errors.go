package main

import (
	"errors"
	"fmt"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

// userMessage turns a command error into the line shown on stderr.
// Raw model output never reaches it.
func userMessage(err error) string {
	if _, ok := domain.AsParseFailure(err); ok || domain.IsParseError(err) {
		return domain.UserMessage
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		msg := fmt.Sprintf("provider returned %d: %s", perr.Status, perr.Message)
		if perr.Rejected() {
			msg += " (run `cvopt key set` with a valid key)"
		}
		return msg
	}
	switch {
	case errors.Is(err, domain.ErrCredential):
		return err.Error() + " (run `cvopt key set` or pass --api-key)"
	case errors.Is(err, domain.ErrFetch):
		return err.Error() + " (paste the description with --job or --job-file instead)"
	}
	return err.Error()
}
