// Package jobfetch retrieves job postings by URL and reduces them to plain text.
package jobfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/config"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
)

// DefaultUserAgent is sent with every job page request.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ATSCVOptimizer/1.0)"

// DefaultMaxBytes caps the response body that is read.
const DefaultMaxBytes int64 = 2 << 20

// Mode selects how HTML is reduced to text.
type Mode int

const (
	// ModeStrip replaces every <...> tag with a space. Entities are left as is.
	ModeStrip Mode = iota
	// ModeDOM parses the page, drops noise elements and prefers job-description
	// containers. Entities are decoded.
	ModeDOM
)

// FallbackHint tells callers the user should paste the description instead.
const FallbackHint = "paste"

// Error is a failed fetch. It always matches domain.ErrFetch.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

// Unwrap exposes domain.ErrFetch and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{domain.ErrFetch}
	}
	return []error{domain.ErrFetch, e.Cause}
}

// Fetcher implements domain.JobFetcher over HTTP.
type Fetcher struct {
	hc        *http.Client
	mode      Mode
	maxBytes  int64
	userAgent string
}

// New constructs a Fetcher. A nil hc selects the traced default client.
func New(hc *http.Client, mode Mode, maxBytes int64) *Fetcher {
	if hc == nil {
		hc = observability.NewTracedClient("JobFetch")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{hc: hc, mode: mode, maxBytes: maxBytes, userAgent: DefaultUserAgent}
}

// FromConfig builds the fetcher configured for the deployment, or Disabled.
func FromConfig(cfg config.Config) domain.JobFetcher {
	if !cfg.JobFetchEnabled {
		return Disabled{}
	}
	mode := ModeStrip
	if cfg.UseDOMFetch() {
		mode = ModeDOM
	}
	return New(nil, mode, cfg.JobFetchMaxBytes)
}

// Fetch downloads rawURL and returns its approximate text. The text is not
// normalized; the pipeline does that with the job description budget.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.hc.Do(req)
	if err != nil {
		lg.Warn("job page request failed", slog.String("url", u.Redacted()), slog.Any("error", err))
		return "", &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		lg.Warn("job page non-2xx", slog.String("url", u.Redacted()), slog.Int("status", resp.StatusCode))
		return "", &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}

	var text string
	switch f.mode {
	case ModeDOM:
		text, err = ExtractMainText(string(body))
		if err != nil {
			return "", &Error{URL: rawURL, Message: "failed to parse HTML", Cause: err}
		}
	default:
		text = StripTags(string(body))
	}
	lg.Debug("job page fetched",
		slog.String("url", u.Redacted()),
		slog.Int("bytes", len(body)),
		slog.Int("text_len", len(text)))
	return text, nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags replaces every tag with a single space. Script and style bodies
// and HTML entities survive; normalization collapses the spacing afterwards.
func StripTags(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}

// jobPostingSelectors are tried in order; the first match wins.
var jobPostingSelectors = []string{
	".job-description",
	".job-content",
	"#job-description",
	"#job-content",
	".posting-content",
	".job-details",
	"[data-testid='job-description']",
	"main",
	"article",
	".content",
	"#content",
}

// ExtractMainText parses html, removes navigation and script noise and returns
// the text of the best job-description container, falling back to body.
func ExtractMainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("op=jobfetch.ExtractMainText: %w", err)
	}
	doc.Find("nav, footer, header, script, style, noscript, svg, form, .cookie-banner, .popup, .sidebar").Remove()

	var main *goquery.Selection
	for _, sel := range jobPostingSelectors {
		if s := doc.Find(sel); s.Length() > 0 {
			main = s.First()
			break
		}
	}
	if main == nil {
		main = doc.Find("body")
	}

	// Block elements would otherwise glue adjacent words together.
	main.Find("p, li, br, h1, h2, h3, h4, h5, h6, div, tr").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	return strings.Join(strings.Fields(main.Text()), " "), nil
}

// Disabled is used where outbound fetches are not allowed; every Fetch fails
// so the user falls back to pasting the description.
type Disabled struct{}

// Fetch always returns an Error matching domain.ErrFetch.
func (Disabled) Fetch(_ context.Context, rawURL string) (string, error) {
	return "", &Error{URL: rawURL, Message: "fetching job descriptions is disabled"}
}
