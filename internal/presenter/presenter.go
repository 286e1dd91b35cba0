// Package presenter renders an OptimizationResult for people (text, markdown)
// and for tools (json, yaml).
package presenter

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// EmptyLine stands in for a section the model left out.
const EmptyLine = "None reported."

const exportBase = "ats-optimized-cv-sections"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("presenter").Funcs(template.FuncMap{
	"score":        formatScore,
	"orNone":       orNone,
	"join":         joinOrNone,
	"list":         listOrNone,
	"achievements": achievementsOrNone,
	"density":      densityOrNone,
}).ParseFS(templateFS, "templates/*.tmpl"))

// ParseFormat accepts the format names and their usual file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q (text, markdown, json, yaml)", domain.ErrInvalidArgument, s)
}

// Filename suggests an export file name for f.
func Filename(f Format) string {
	switch f {
	case FormatMarkdown:
		return exportBase + ".md"
	case FormatJSON:
		return exportBase + ".json"
	case FormatYAML:
		return exportBase + ".yaml"
	}
	return exportBase + ".txt"
}

// Render writes r to w in format f. Absent fields render as EmptyLine in the
// human formats and are omitted in json and yaml.
func Render(w io.Writer, r domain.OptimizationResult, f Format) error {
	switch f {
	case FormatText:
		return execute(w, "text.tmpl", r)
	case FormatMarkdown:
		return execute(w, "markdown.tmpl", r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("op=presenter.Render: json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("op=presenter.Render: yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidArgument, f)
}

func execute(w io.Writer, name string, r domain.OptimizationResult) error {
	if err := templates.ExecuteTemplate(w, name, r); err != nil {
		return fmt.Errorf("op=presenter.Render: %s: %w", name, err)
	}
	return nil
}

func formatScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return EmptyLine
	}
	return s
}

func joinOrNone(items []string, sep string) string {
	if len(items) == 0 {
		return EmptyLine
	}
	return strings.Join(items, sep)
}

func listOrNone(items []string, numbered bool) string {
	if len(items) == 0 {
		return EmptyLine
	}
	lines := make([]string, len(items))
	for i, it := range items {
		if numbered {
			lines[i] = fmt.Sprintf("%d. %s", i+1, it)
		} else {
			lines[i] = "- " + it
		}
	}
	return strings.Join(lines, "\n")
}

// achievementsOrNone renders one line per achievement. The markdown form
// bolds the role and appends the keyword tags as code spans.
func achievementsOrNone(items []domain.Achievement, prefix string, markdown bool) string {
	if len(items) == 0 {
		return EmptyLine
	}
	lines := make([]string, len(items))
	for i, a := range items {
		role := a.Role
		if markdown && role != "" {
			role = "**" + role + "**"
		}
		line := prefix + role + ": " + a.Achievement
		if markdown && len(a.Keywords) > 0 {
			tags := make([]string, len(a.Keywords))
			for j, k := range a.Keywords {
				tags[j] = "`" + k + "`"
			}
			line += " " + strings.Join(tags, " ")
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// densityOrNone lists keywords by descending density, ties by name.
func densityOrNone(d map[string]float64, prefix string) string {
	if len(d) == 0 {
		return EmptyLine
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if d[keys[i]] != d[keys[j]] {
			return d[keys[i]] > d[keys[j]]
		}
		return keys[i] < keys[j]
	})
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = prefix + k + ": " + strconv.FormatFloat(d[k], 'f', -1, 64) + "%"
	}
	return strings.Join(lines, "\n")
}
