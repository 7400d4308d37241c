package evaluator

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/teranos/chrono/errors"
)

// Category classifies an evaluation failure as reported by the evaluator
type Category string

const (
	CategoryLexer         Category = "lexer_error"
	CategoryParser        Category = "parser_error"
	CategoryValidation    Category = "validation_error"
	CategoryRuntime       Category = "runtime_error"
	CategoryExportMissing Category = "export_missing"
	CategoryUnknown       Category = "unknown"
)

// ParseCategory maps a wire error_type to a Category. Unrecognised values
// (including the empty string) become CategoryUnknown.
func ParseCategory(s string) Category {
	switch c := Category(s); c {
	case CategoryLexer, CategoryParser, CategoryValidation, CategoryRuntime, CategoryExportMissing:
		return c
	default:
		return CategoryUnknown
	}
}

// ExportMissingMessage is returned when a program never exports a timeline
const ExportMissingMessage = "No export statement found. Add an export command in the main block to visualize the timeline."

// ErrorDetail is one located problem within an evaluation failure
type ErrorDetail struct {
	Message string `json:"message"`
	Line    *int   `json:"line,omitempty"`
	Column  *int   `json:"column,omitempty"`
}

func (d ErrorDetail) String() string {
	switch {
	case d.Line != nil && d.Column != nil:
		return fmt.Sprintf("line %d, column %d: %s", *d.Line, *d.Column, d.Message)
	case d.Line != nil:
		return fmt.Sprintf("line %d: %s", *d.Line, d.Message)
	default:
		return d.Message
	}
}

// EvaluationError is a failure the evaluator reported about the program.
// It is not a transport error: the evaluator was reached and answered.
type EvaluationError struct {
	Category   Category      `json:"error_type"`
	Message    string        `json:"error"`
	Errors     []ErrorDetail `json:"errors,omitempty"`
	StatusCode int           `json:"-"`
}

func (e *EvaluationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}
	details := make([]string, len(e.Errors))
	for i, d := range e.Errors {
		details[i] = d.String()
	}
	return fmt.Sprintf("%s: %s %s", e.Category, e.Message, strings.Join(details, "; "))
}

// AsEvaluationError extracts an EvaluationError from an error chain
func AsEvaluationError(err error) (*EvaluationError, bool) {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr, true
	}
	return nil, false
}

// ErrInvalidResponse indicates the evaluator answered with a payload chrono cannot read
var ErrInvalidResponse = errors.New("invalid evaluator response")

// Component is one renderable result of an evaluation
type Component struct {
	ID    string `json:"id" yaml:"id"`
	Type  string `json:"type" yaml:"type"` // timeline, event, period, ...
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	JSON  string `json:"json" yaml:"json"`
	Image string `json:"image,omitempty" yaml:"-"` // base64 PNG
}

// HasImage reports whether the component carries a rendered image
func (c Component) HasImage() bool {
	return c.Image != ""
}

// ImageBytes decodes the base64 image
func (c Component) ImageBytes() ([]byte, error) {
	if !c.HasImage() {
		return nil, errors.NewNotFoundError("component %s has no image", c.ID)
	}
	b, err := base64.StdEncoding.DecodeString(c.Image)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image of component %s", c.ID)
	}
	return b, nil
}

// Result is a successful evaluation
type Result struct {
	Components []Component   `json:"components"`
	Duration   time.Duration `json:"-"`
}

// Component looks up a component by id
func (r *Result) Component(id string) (Component, bool) {
	for _, c := range r.Components {
		if c.ID == id {
			return c, true
		}
	}
	return Component{}, false
}

// Health is the evaluator's health report
type Health struct {
	Version    string `json:"version"`
	Compatible bool   `json:"compatible"`
}
