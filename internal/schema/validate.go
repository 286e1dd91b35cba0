// Package schema validates extracted model output against the result contract.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

//go:embed optimization_result.schema.json
var resultSchemaJSON string

var (
	compileOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func resultSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchemaJSON))
	})
	return compiledSchema, compileErr
}

// FieldError is a single violation at a JSON path.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "result schema violated: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return domain.ErrSchemaInvalid }

// ValidateResult checks a decoded JSON object against the OptimizationResult
// contract: value types, 0-100 score ranges and achievement sub-fields.
// Absent fields are allowed.
func ValidateResult(doc map[string]any) error {
	s, err := resultSchema()
	if err != nil {
		return fmt.Errorf("op=schema.ValidateResult: load: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("op=schema.ValidateResult: %w", err)
	}
	if res.Valid() {
		return nil
	}
	verr := &ValidationError{Errors: make([]FieldError, 0, len(res.Errors()))}
	for _, desc := range res.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}
