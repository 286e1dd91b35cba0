// Package ai provides completion client selection and recovery of JSON
// documents from free-text model responses.
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

// ExtractMode selects how much repair is attempted before parsing.
type ExtractMode int

const (
	// ModePlain strips fences and slices the outermost braces.
	ModePlain ExtractMode = iota
	// ModeRepairNewlines additionally escapes raw CR/LF inside string literals.
	ModeRepairNewlines
)

// ModeForFlow returns the extractor variant each call site uses.
func ModeForFlow(f domain.Flow) ExtractMode {
	if f == domain.FlowSections {
		return ModeRepairNewlines
	}
	return ModePlain
}

// fencePattern matches ``` optionally followed by a json tag, anywhere.
var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// NoJSONFoundError reports text without a plausible {...} span.
type NoJSONFoundError struct {
	Raw string
}

func (e *NoJSONFoundError) Error() string { return "no JSON object found" }

func (e *NoJSONFoundError) Unwrap() error { return domain.ErrNoJSONFound }

// MalformedJSONError reports a {...} span that does not parse after repair.
type MalformedJSONError struct {
	Raw       string
	Candidate string
	Cause     error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON: %v", e.Cause)
}

// Unwrap exposes both the sentinel and the parser error.
func (e *MalformedJSONError) Unwrap() []error { return []error{domain.ErrMalformedJSON, e.Cause} }

// Candidate returns the repaired {...} slice of raw without parsing it.
func Candidate(raw string, mode ExtractMode) (string, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))

	// Greedy outermost span. Braces outside the object make the slice invalid,
	// which then fails as malformed rather than being guessed around.
	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first == -1 || last == -1 || last <= first {
		return "", &NoJSONFoundError{Raw: raw}
	}
	candidate := cleaned[first : last+1]

	if mode == ModeRepairNewlines {
		candidate = escapeNewlinesInStrings(candidate)
	}
	return candidate, nil
}

// ExtractJSON recovers the JSON object embedded in raw.
func ExtractJSON(raw string, mode ExtractMode) (map[string]any, error) {
	var out map[string]any
	if err := ExtractInto(raw, mode, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractInto recovers the JSON object embedded in raw and decodes it into v.
func ExtractInto(raw string, mode ExtractMode, v any) error {
	candidate, err := Candidate(raw, mode)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return &MalformedJSONError{Raw: raw, Candidate: candidate, Cause: err}
	}
	return nil
}

// escapeNewlinesInStrings rewrites literal \n and \r inside double-quoted
// strings as the two-character escape \n. A quote toggles string state unless
// the character before it in the input is a backslash.
func escapeNewlinesInStrings(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inString := false
	var prev rune
	for _, ch := range src {
		if ch == '"' && prev != '\\' {
			inString = !inString
		}
		if inString && (ch == '\n' || ch == '\r') {
			b.WriteString(`\n`)
		} else {
			b.WriteRune(ch)
		}
		prev = ch
	}
	return b.String()
}
