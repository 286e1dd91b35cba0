package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/ai/proxy"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/adapter/textextractor"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/config"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	"github.com/fairyhunter13/ats-cv-optimizer/internal/usecase"
)

// formFieldsBytes is the allowance for the text fields of a multipart request.
const formFieldsBytes = 1 << 20

// ReadinessCheck is one named dependency probe for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg       config.Config
	Optimizer usecase.OptimizeService
	Extractor domain.TextExtractor
	Checks    []ReadinessCheck
}

// NewServer constructs a Server. The completion client and job fetcher are
// taken from opt.
func NewServer(cfg config.Config, opt usecase.OptimizeService, extractor domain.TextExtractor, checks ...ReadinessCheck) *Server {
	return &Server{Cfg: cfg, Optimizer: opt, Extractor: extractor, Checks: checks}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// acceptsJSON reports whether the client accepts a JSON response.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code: domain.CodeInvalidArgument, Message: "not acceptable", Details: map[string]any{"accept": a},
	}})
	return false
}

// credentialFrom picks the per-request key: the explicit value, then a bearer
// header, then the server-held key.
func (s *Server) credentialFrom(r *http.Request, explicit string) string {
	if k := strings.TrimSpace(explicit); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if k := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); k != "" {
			return k
		}
	}
	return s.Cfg.GroqAPIKey
}

// decodeJSON caps, decodes and validates a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, formFieldsBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(v); err != nil {
		verrs := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// AnalyzeHandler runs the analysis flow on a multipart form.
func (s *Server) AnalyzeHandler() http.HandlerFunc { return s.flowHandler(domain.FlowAnalysis) }

// OptimizeHandler runs the sections flow on a multipart form.
func (s *Server) OptimizeHandler() http.HandlerFunc { return s.flowHandler(domain.FlowSections) }

type analysisResponse struct {
	ID     string                    `json:"id"`
	Flow   domain.Flow               `json:"flow"`
	Model  string                    `json:"model"`
	Result domain.OptimizationResult `json:"result"`
}

func (s *Server) flowHandler(flow domain.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadBytes()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formFieldsBytes)
		if err := r.ParseMultipartForm(maxBytes + formFieldsBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) || strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeEnvelope(w, http.StatusRequestEntityTooLarge, domain.CodeInvalidArgument, "payload too large",
					map[string]any{"max_mb": s.Cfg.MaxUploadMB})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		cvText, ok := s.readCV(w, r)
		if !ok {
			return
		}
		in := domain.RawInput{
			CVText:            cvText,
			ExperienceSummary: r.FormValue("experienceSummary"),
			JobDescription:    r.FormValue("jobDescription"),
			JobURL:            r.FormValue("jobUrl"),
		}
		a, err := s.Optimizer.Run(r.Context(), s.credentialFrom(r, r.FormValue("apiKey")), in, flow)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, analysisResponse{ID: a.ID, Flow: a.Flow, Model: a.Model, Result: a.Result})
	}
}

// readCV returns the CV text from the "cv" file, or from the "cvText" field
// when no file was sent. Media type problems answer 415.
func (s *Server) readCV(w http.ResponseWriter, r *http.Request) (string, bool) {
	f, h, err := r.FormFile("cv")
	if err != nil {
		if text := r.FormValue("cvText"); strings.TrimSpace(text) != "" {
			return text, true
		}
		writeError(w, r, fmt.Errorf("%w: cv file required", domain.ErrInvalidArgument), map[string]string{"field": "cv"})
		return "", false
	}
	defer func() { _ = f.Close() }()

	if h.Size > s.Cfg.MaxUploadBytes() {
		writeEnvelope(w, http.StatusRequestEntityTooLarge, domain.CodeInvalidArgument, "payload too large",
			map[string]any{"max_mb": s.Cfg.MaxUploadMB})
		return "", false
	}
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: cv read: %v", domain.ErrInvalidArgument, err), nil)
		return "", false
	}
	if !textextractor.AllowedExt(h.Filename) {
		writeEnvelope(w, http.StatusUnsupportedMediaType, domain.CodeInvalidArgument,
			"unsupported media type for cv (extension)", map[string]any{"filename": h.Filename})
		return "", false
	}
	if m := mimetype.Detect(data); !textextractor.AllowedMIMEFor(m.String(), h.Filename) {
		writeEnvelope(w, http.StatusUnsupportedMediaType, domain.CodeInvalidArgument,
			"unsupported media type for cv (content)", map[string]any{"mime": m.String(), "filename": h.Filename})
		return "", false
	}
	text, err := s.Extractor.Extract(r.Context(), h.Filename, data)
	if err != nil {
		writeError(w, r, err, map[string]string{"field": "cv"})
		return "", false
	}
	return text, true
}

// CompleteHandler is the raw completion proxy used by clients that run the
// pipeline themselves.
func (s *Server) CompleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req proxy.CompleteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		model := req.Model
		if model == "" {
			model = s.Cfg.Model
		}
		text, err := s.Optimizer.Client.Complete(r.Context(), s.credentialFrom(r, ""), domain.CompletionRequest{
			Model:       model,
			Prompt:      req.Prompt,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, proxy.CompleteResponse{Text: text})
	}
}

// ValidateCredentialHandler pings the provider with the given key.
func (s *Server) ValidateCredentialHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			APIKey string `json:"api_key" validate:"max=512"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		key := strings.TrimSpace(req.APIKey)
		if key == "" {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				key = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if err := s.Optimizer.ValidateCredential(r.Context(), key); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

// FetchJobDescriptionHandler fetches a job posting and returns its text.
func (s *Server) FetchJobDescriptionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			URL string `json:"url" validate:"required,url,max=2048"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if s.Optimizer.Fetcher == nil {
			writeError(w, r, fmt.Errorf("%w: job URL fetching is disabled", domain.ErrFetch), nil)
			return
		}
		text, err := s.Optimizer.Fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"text": text, "chars": len([]rune(text))})
	}
}

// ReadyzHandler runs every readiness check with a short deadline.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		st := http.StatusOK
		for _, c := range s.Checks {
			if err := c.Check(ctx); err != nil {
				checks = append(checks, check{Name: c.Name, Details: err.Error()})
				st = http.StatusServiceUnavailable
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
