// Package usecase contains application business logic services.
package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/prompt"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/schema"
	"github.com/fairyhunter13/ats-cv-optimizer/pkg/textx"
)

// OptimizeService runs one analysis: validate, resolve the job description,
// normalize, prompt, complete once, extract and validate. It holds no
// per-run state and is safe for concurrent use.
type OptimizeService struct {
	Client  domain.CompletionClient
	Fetcher domain.JobFetcher
	Model   string
	// ServerHeldKey lets an empty credential through because the proxied
	// backend supplies its own key.
	ServerHeldKey bool
}

// NewOptimizeService constructs an OptimizeService. fetcher may be nil when
// job descriptions are always pasted.
func NewOptimizeService(c domain.CompletionClient, fetcher domain.JobFetcher, model string) OptimizeService {
	return OptimizeService{Client: c, Fetcher: fetcher, Model: model}
}

// ValidateInput checks the required fields for flow without touching the network.
func ValidateInput(in domain.RawInput, flow domain.Flow) error {
	if !flow.Valid() {
		return fmt.Errorf("%w: unknown flow %q", domain.ErrInvalidArgument, flow)
	}
	if strings.TrimSpace(in.CVText) == "" {
		return fmt.Errorf("%w: CV text is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.JobDescription) == "" && strings.TrimSpace(in.JobURL) == "" {
		return fmt.Errorf("%w: job description or job URL is required", domain.ErrInvalidArgument)
	}
	if flow == domain.FlowSections && strings.TrimSpace(in.ExperienceSummary) == "" {
		return fmt.Errorf("%w: experience summary is required", domain.ErrInvalidArgument)
	}
	return nil
}

// Run executes the pipeline for flow. Parse failures come back as
// *domain.ParseFailure; every other error keeps its domain sentinel.
func (s OptimizeService) Run(ctx domain.Context, credential string, in domain.RawInput, flow domain.Flow) (domain.Analysis, error) {
	ctx, span := observability.StartSpan(ctx, "usecase.Optimize")
	defer span.End()
	ctx = obsctx.ContextWithAttrs(ctx, slog.String("flow", string(flow)))
	lg := obsctx.LoggerFromContext(ctx)

	if err := ValidateInput(in, flow); err != nil {
		return domain.Analysis{}, err
	}
	if strings.TrimSpace(credential) == "" && !s.ServerHeldKey {
		return domain.Analysis{}, fmt.Errorf("%w: API key is required", domain.ErrCredential)
	}
	if s.Client == nil {
		return domain.Analysis{}, fmt.Errorf("op=usecase.Optimize: %w: no completion client", domain.ErrInternal)
	}

	jd, err := s.resolveJobDescription(ctx, in)
	if err != nil {
		return domain.Analysis{}, err
	}

	norm := domain.NormalizedInput{
		CVText:            textx.Normalize(in.CVText, domain.MaxCVChars),
		ExperienceSummary: textx.Normalize(in.ExperienceSummary, domain.MaxExperienceChars),
		JobDescription:    textx.Normalize(jd, domain.MaxJobDescChars),
	}
	req, err := prompt.Request(flow, norm, s.Model)
	if err != nil {
		return domain.Analysis{}, err
	}

	start := time.Now()
	raw, err := s.Client.Complete(ctx, credential, req)
	if err != nil {
		lg.Warn("completion failed", slog.Any("error", err), slog.Duration("elapsed", time.Since(start)))
		return domain.Analysis{}, err
	}

	res, err := decodeResult(raw, flow)
	if err != nil {
		reason := failureReason(raw, err)
		observability.CountParseFailure(string(flow), reason)
		lg.Error("model response could not be parsed",
			slog.String("reason", reason),
			slog.Any("error", err),
			slog.String("raw_response", raw))
		return domain.Analysis{}, &domain.ParseFailure{Raw: raw, Diagnostic: err.Error(), Err: err}
	}

	observability.ObserveATSScore(string(flow), res.ATSScore)
	a := domain.Analysis{ID: uuid.NewString(), Flow: flow, Model: req.Model, Result: res}
	lg.Info("analysis completed",
		slog.String("analysis_id", a.ID),
		slog.Bool("has_ats_score", res.ATSScore != nil),
		slog.Duration("elapsed", time.Since(start)))
	return a, nil
}

// ValidateCredential spends one tiny completion to check credential.
func (s OptimizeService) ValidateCredential(ctx domain.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return fmt.Errorf("%w: API key is required", domain.ErrCredential)
	}
	if _, err := s.Client.Complete(ctx, credential, prompt.CredentialPing(s.Model)); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("credential validation failed",
			slog.Any("error", err), observability.CredentialAttr(credential))
		return err
	}
	return nil
}

// resolveJobDescription prefers the pasted text and fetches only when it is empty.
func (s OptimizeService) resolveJobDescription(ctx domain.Context, in domain.RawInput) (string, error) {
	if strings.TrimSpace(in.JobDescription) != "" {
		return in.JobDescription, nil
	}
	if s.Fetcher == nil {
		return "", fmt.Errorf("%w: job URL fetching is not available, paste the description instead", domain.ErrFetch)
	}
	text, err := s.Fetcher.Fetch(ctx, strings.TrimSpace(in.JobURL))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s returned no text, paste the description instead", domain.ErrFetch, in.JobURL)
	}
	return text, nil
}

func decodeResult(raw string, flow domain.Flow) (domain.OptimizationResult, error) {
	doc, err := ai.ExtractJSON(raw, ai.ModeForFlow(flow))
	if err != nil {
		return domain.OptimizationResult{}, err
	}
	if err := schema.ValidateResult(doc); err != nil {
		return domain.OptimizationResult{}, err
	}
	// The document already passed the schema, so re-encoding cannot lose fields.
	b, err := json.Marshal(doc)
	if err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("%w: %w", domain.ErrMalformedJSON, err)
	}
	var res domain.OptimizationResult
	if err := json.Unmarshal(b, &res); err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("%w: %w", domain.ErrSchemaInvalid, err)
	}
	return res, nil
}

func failureReason(raw string, err error) string {
	switch {
	case errors.Is(err, domain.ErrNoJSONFound) && ai.LooksLikeRefusal(raw):
		return "refusal"
	case errors.Is(err, domain.ErrNoJSONFound):
		return "no_json"
	case errors.Is(err, domain.ErrMalformedJSON):
		return "malformed_json"
	case errors.Is(err, domain.ErrSchemaInvalid):
		return "schema_invalid"
	}
	return "unknown"
}
