package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCredential      = errors.New("credential missing or rejected")
	ErrFetch           = errors.New("job description fetch failed")
	ErrTransport       = errors.New("transport failure")
	ErrProvider        = errors.New("provider error")
	ErrEmptyResponse   = errors.New("empty completion response")
	ErrNoJSONFound     = errors.New("no json object found")
	ErrMalformedJSON   = errors.New("malformed json")
	ErrSchemaInvalid   = errors.New("schema invalid")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
)

// Character budgets applied to each free-text input before prompting.
// Roughly 4 characters per token: 1500 / 250 / 750 tokens.
const (
	MaxCVChars         = 6000
	MaxExperienceChars = 1000
	MaxJobDescChars    = 3000
)

// Completion constants. The analysis ceiling keeps request plus response under the
// provider's 6000 tokens-per-minute window for the default model.
const (
	DefaultModel           = "llama3-70b-8192"
	AnalysisMaxTokens      = 1500
	SectionsMaxTokens      = 1800
	SectionsTemperature    = 0.7
	CredentialPingMaxToken = 5
	CredentialPingPrompt   = "Hello"
)

// Flow selects the prompt template, token ceiling and extractor variant.
type Flow string

const (
	// FlowAnalysis produces an ATS report plus one fully rewritten CV.
	FlowAnalysis Flow = "analysis"
	// FlowSections produces rewritten CV sections aimed at a 90-100 ATS score.
	FlowSections Flow = "sections"
)

// Valid reports whether f names a known flow.
func (f Flow) Valid() bool { return f == FlowAnalysis || f == FlowSections }

// RawInput is what the user handed in, before normalization.
// JobDescription takes precedence over JobURL when both are present.
type RawInput struct {
	CVText            string
	ExperienceSummary string
	JobDescription    string
	JobURL            string
}

// NormalizedInput holds the three text blocks after whitespace collapse and
// truncation. Invariant: each field has no whitespace runs, no leading or
// trailing space, and fits its Max*Chars budget.
type NormalizedInput struct {
	CVText            string
	ExperienceSummary string
	JobDescription    string
}

// CompletionRequest is one non-streaming, single-turn model call.
// Prompt is fully rendered before dispatch.
type CompletionRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Achievement is one rewritten, quantified achievement line.
type Achievement struct {
	Role        string   `json:"role,omitempty" yaml:"role,omitempty"`
	Achievement string   `json:"achievement,omitempty" yaml:"achievement,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// OptimizationResult is the parsed model output. Field names follow the output
// contract agreed with the prompt templates; every field is optional because
// the two flows populate different subsets.
type OptimizationResult struct {
	ATSScore    *float64 `json:"atsScore,omitempty" yaml:"atsScore,omitempty"`
	MatchScore  *float64 `json:"matchScore,omitempty" yaml:"matchScore,omitempty"`
	TargetScore *float64 `json:"targetScore,omitempty" yaml:"targetScore,omitempty"`

	MissingKeywords []string           `json:"missingKeywords,omitempty" yaml:"missingKeywords,omitempty"`
	KeywordDensity  map[string]float64 `json:"keywordDensity,omitempty" yaml:"keywordDensity,omitempty"`
	Suggestions     []string           `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	ATSImprovements []string           `json:"atsImprovements,omitempty" yaml:"atsImprovements,omitempty"`

	OptimizedCV              string        `json:"optimizedCV,omitempty" yaml:"optimizedCV,omitempty"`
	OptimizedSummary         string        `json:"optimizedSummary,omitempty" yaml:"optimizedSummary,omitempty"`
	CoreSkills               []string      `json:"coreSkills,omitempty" yaml:"coreSkills,omitempty"`
	PersonalizedAchievements []Achievement `json:"personalizedAchievements,omitempty" yaml:"personalizedAchievements,omitempty"`
}

// Improvements returns the improvement list regardless of which flow produced it.
func (r OptimizationResult) Improvements() []string {
	out := make([]string, 0, len(r.Suggestions)+len(r.ATSImprovements))
	out = append(out, r.Suggestions...)
	out = append(out, r.ATSImprovements...)
	return out
}

// HasSections reports whether the result carries structured section rewrites.
func (r OptimizationResult) HasSections() bool {
	return r.OptimizedSummary != "" || len(r.CoreSkills) > 0 || len(r.PersonalizedAchievements) > 0
}

// Analysis wraps a result with the metadata of the run that produced it.
type Analysis struct {
	ID     string             `json:"id" yaml:"id"`
	Flow   Flow               `json:"flow" yaml:"flow"`
	Model  string             `json:"model" yaml:"model"`
	Result OptimizationResult `json:"result" yaml:"result"`
}

// Ports

// CompletionClient issues one completion call. Implementations return
// *ProviderError for provider error payloads (matching ErrCredential on 401/403),
// ErrTransport for network failures and ErrEmptyResponse for empty content.
type CompletionClient interface {
	Complete(ctx Context, credential string, req CompletionRequest) (string, error)
}

// JobFetcher retrieves a job posting and reduces it to approximate plain text.
// Failures wrap ErrFetch.
type JobFetcher interface {
	Fetch(ctx Context, url string) (string, error)
}

// TextExtractor turns an uploaded CV document into text.
type TextExtractor interface {
	Extract(ctx Context, fileName string, data []byte) (string, error)
}

// SessionStore keeps the credential and the last successful analysis in
// client-local storage. Missing entries return ErrNotFound.
type SessionStore interface {
	Credential(ctx Context) (string, error)
	SaveCredential(ctx Context, credential string) error
	ClearCredential(ctx Context) error
	LastAnalysis(ctx Context) (Analysis, error)
	SaveLastAnalysis(ctx Context, a Analysis) error
}

// Context is an alias to context.Context so ports read uniformly.
type Context = context.Context
