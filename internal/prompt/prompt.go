// Package prompt renders the instruction text sent to the model for each flow.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// templates is parsed once at package init and keyed by the file's base name.
var templates = template.Must(
	template.New("prompts").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"),
)

var templateNames = map[domain.Flow]string{
	domain.FlowAnalysis: "analysis.tmpl",
	domain.FlowSections: "sections.tmpl",
}

// Build renders the prompt for flow with the normalized input blocks.
func Build(flow domain.Flow, in domain.NormalizedInput) (string, error) {
	name, ok := templateNames[flow]
	if !ok {
		return "", fmt.Errorf("%w: unknown flow %q", domain.ErrInvalidArgument, flow)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, in); err != nil {
		return "", fmt.Errorf("op=prompt.Build: %w", err)
	}
	return buf.String(), nil
}

// Request builds the completion request for flow, including its token ceiling
// and sampling settings. An empty model selects domain.DefaultModel.
func Request(flow domain.Flow, in domain.NormalizedInput, model string) (domain.CompletionRequest, error) {
	text, err := Build(flow, in)
	if err != nil {
		return domain.CompletionRequest{}, err
	}
	if model == "" {
		model = domain.DefaultModel
	}
	req := domain.CompletionRequest{Model: model, Prompt: text}
	switch flow {
	case domain.FlowSections:
		t := domain.SectionsTemperature
		req.MaxTokens = domain.SectionsMaxTokens
		req.Temperature = &t
	default:
		req.MaxTokens = domain.AnalysisMaxTokens
	}
	return req, nil
}

// CredentialPing is the minimal request used to check that a key is accepted.
func CredentialPing(model string) domain.CompletionRequest {
	if model == "" {
		model = domain.DefaultModel
	}
	t := domain.SectionsTemperature
	return domain.CompletionRequest{
		Model:       model,
		Prompt:      domain.CredentialPingPrompt,
		MaxTokens:   domain.CredentialPingMaxToken,
		Temperature: &t,
	}
}
