package report

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is returned when a document does not match the schema.
var ErrInvalidDocument = errors.New("result document does not match schema")

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON schema of the result document.
func Schema() []byte {
	return schemaJSON
}

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(e.Violations, "; "))
}

// Unwrap makes ValidationError match ErrInvalidDocument.
func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// ValidateDocument checks raw JSON against the schema. Violations are
// returned as a *ValidationError.
func ValidateDocument(data []byte) error {
	return validate(gojsonschema.NewBytesLoader(data))
}

// Validate checks an in-memory document against the schema.
func (d Document) Validate() error {
	return validate(gojsonschema.NewGoLoader(d))
}

func validate(doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), doc)
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, verr.String())
	}

	return &ValidationError{Violations: violations}
}
