package textextractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}
	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`</Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildPDF writes a single-page PDF with a correct xref table.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestAllowedExt(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"cv.txt": true, "CV.PDF": true, "resume.docx": true,
		"cv.doc": false, "cv.rtf": false, "cv": false, "cv.txt.exe": false,
	} {
		assert.Equal(t, want, AllowedExt(name), name)
	}
}

func TestAllowedMIMEFor(t *testing.T) {
	t.Parallel()

	assert.True(t, AllowedMIMEFor("text/plain; charset=utf-8", "a.txt"))
	assert.True(t, AllowedMIMEFor("text/html; charset=utf-8", "a.txt"))
	assert.True(t, AllowedMIMEFor("application/pdf", "a.pdf"))
	assert.True(t, AllowedMIMEFor(mimeDOCX, "a.docx"))
	assert.True(t, AllowedMIMEFor(mimeZIP, "a.docx"))
	assert.False(t, AllowedMIMEFor("application/pdf", "a.txt"))
	assert.False(t, AllowedMIMEFor("text/plain", "a.pdf"))
	assert.False(t, AllowedMIMEFor("application/pdf", "a.docx"))
}

func TestExtract_Text(t *testing.T) {
	t.Parallel()

	got, err := New().Extract(context.Background(), "cv.txt", []byte("Jane Doe\n\nGo engineer\x00 since 2016"))
	require.NoError(t, err)
	assert.Contains(t, got, "Jane Doe")
	assert.Contains(t, got, "Go engineer")
	assert.NotContains(t, got, "\x00")
}

func TestExtract_DOCX(t *testing.T) {
	t.Parallel()

	data := buildDOCX(t, "Jane Doe", "Platform Engineer &amp; SRE", "Kubernetes, Terraform")
	got, err := New().Extract(context.Background(), "resume.docx", data)
	require.NoError(t, err)
	assert.Contains(t, got, "Jane Doe")
	assert.Contains(t, got, "Platform Engineer & SRE")
	assert.Contains(t, got, "Kubernetes, Terraform")
	assert.NotContains(t, got, "<w:")
}

func TestExtract_PDF(t *testing.T) {
	t.Parallel()

	data := buildPDF(t, "Jane Doe Go Engineer")
	got, err := New().Extract(context.Background(), "cv.pdf", data)
	require.NoError(t, err)
	assert.Contains(t, got, "Jane Doe Go Engineer")
}

func TestExtract_Rejections(t *testing.T) {
	t.Parallel()

	pdfData := buildPDF(t, "x")
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"empty", "cv.txt", nil},
		{"unsupported_ext", "cv.doc", []byte("hello")},
		{"pdf_named_txt", "cv.txt", pdfData},
		{"text_named_pdf", "cv.pdf", []byte("plain words only")},
		{"whitespace_only", "cv.txt", []byte("   \n\t ")},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New().Extract(context.Background(), tt.file, tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "err=%v", err)
		})
	}
}
