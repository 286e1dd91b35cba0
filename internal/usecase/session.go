package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
)

// SessionService owns the client-local session: the stored credential and
// the last successful analysis.
type SessionService struct {
	Store     domain.SessionStore
	Optimizer OptimizeService
}

// NewSessionService constructs a SessionService.
func NewSessionService(store domain.SessionStore, opt OptimizeService) SessionService {
	return SessionService{Store: store, Optimizer: opt}
}

// SaveCredential validates credential and stores it only when the ping succeeds.
func (s SessionService) SaveCredential(ctx domain.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if err := s.Optimizer.ValidateCredential(ctx, credential); err != nil {
		return err
	}
	if err := s.Store.SaveCredential(ctx, credential); err != nil {
		return fmt.Errorf("op=session.SaveCredential: %w", err)
	}
	return nil
}

// ClearCredential forgets the stored credential.
func (s SessionService) ClearCredential(ctx domain.Context) error {
	return s.Store.ClearCredential(ctx)
}

// StoredCredential returns the stored credential or domain.ErrNotFound.
func (s SessionService) StoredCredential(ctx domain.Context) (string, error) {
	return s.Store.Credential(ctx)
}

// Analyze runs flow with credential, or with the stored one when credential
// is empty. The stored credential is cleared only when it was the one the
// provider rejected. Only a successful run replaces the last analysis.
func (s SessionService) Analyze(ctx domain.Context, credential string, in domain.RawInput, flow domain.Flow) (domain.Analysis, error) {
	lg := obsctx.LoggerFromContext(ctx)
	credential = strings.TrimSpace(credential)
	usedStored := credential == ""
	if usedStored {
		stored, err := s.Store.Credential(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound) && s.Optimizer.ServerHeldKey:
			// the backend supplies its own key
		case errors.Is(err, domain.ErrNotFound):
			return domain.Analysis{}, fmt.Errorf("%w: no API key configured", domain.ErrCredential)
		case err != nil:
			return domain.Analysis{}, fmt.Errorf("op=session.Analyze: %w", err)
		}
		credential = stored
	}

	a, err := s.Optimizer.Run(ctx, credential, in, flow)
	if err != nil {
		if usedStored && credential != "" && errors.Is(err, domain.ErrCredential) {
			if cerr := s.Store.ClearCredential(ctx); cerr != nil {
				lg.Warn("failed to clear rejected credential", slog.Any("error", cerr))
			} else {
				lg.Info("stored credential cleared after rejection")
			}
		}
		return domain.Analysis{}, err
	}

	if err := s.Store.SaveLastAnalysis(ctx, a); err != nil {
		lg.Warn("failed to store last analysis", slog.String("analysis_id", a.ID), slog.Any("error", err))
	}
	return a, nil
}

// LastResult returns the last successful analysis or domain.ErrNotFound.
func (s SessionService) LastResult(ctx domain.Context) (domain.Analysis, error) {
	return s.Store.LastAnalysis(ctx)
}
