// Package textextractor turns uploaded CV documents (.txt, .pdf, .docx) into
// plain text in-process.
package textextractor

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
	obsctx "github.com/fairyhunter13/ats-cv-optimizer/internal/observability"
	"github.com/fairyhunter13/ats-cv-optimizer/pkg/textx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZIP  = "application/zip"
)

// Extractor implements domain.TextExtractor without external services.
type Extractor struct{}

// New constructs an Extractor.
func New() *Extractor { return &Extractor{} }

// AllowedExt enforces the upload allowlist: .txt, .pdf, .docx.
func AllowedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".pdf", ".docx":
		return true
	}
	return false
}

// AllowedMIMEFor reports whether sniffed content type m is acceptable for filename.
func AllowedMIMEFor(m, filename string) bool {
	m = strings.ToLower(m)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		// Detectors misclassify rich text, so any text/* is accepted.
		return strings.HasPrefix(m, "text/")
	case ".pdf":
		return m == mimePDF
	case ".docx":
		// Some generators write archives the detector only recognises as zip.
		return m == mimeDOCX || m == mimeZIP
	}
	return false
}

// Extract returns sanitized text for the document. Unsupported or empty
// documents fail with domain.ErrInvalidArgument.
func (e *Extractor) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrInvalidArgument, fileName)
	}
	if !AllowedExt(fileName) {
		return "", fmt.Errorf("%w: unsupported file type %q (use .txt, .pdf or .docx)", domain.ErrInvalidArgument, filepath.Ext(fileName))
	}
	detected := mimetype.Detect(data)
	if !AllowedMIMEFor(detected.String(), fileName) {
		return "", fmt.Errorf("%w: content of %s looks like %s", domain.ErrInvalidArgument, fileName, detected.String())
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	default:
		text = string(data)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, fileName, err)
	}

	text = textx.SanitizeText(text)
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text in %s", domain.ErrInvalidArgument, fileName)
	}
	obsctx.LoggerFromContext(ctx).Debug("cv text extracted",
		slog.String("file", fileName),
		slog.String("mime", detected.String()),
		slog.Int("text_len", len(text)))
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:cr\s*/>`)
	docxTab          = regexp.MustCompile(`<w:tab\s*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	content := doc.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}
