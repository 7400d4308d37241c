package evaluator

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/teranos/chrono/errors"
)

// response is the union of every payload the evaluator sends. Older
// evaluators answer with a single result at the top level (type, json,
// image) and report validation problems as bare strings.
type response struct {
	Success    bool            `json:"success"`
	Components []wireComponent `json:"components"`

	Type  string          `json:"type"`
	JSON  json.RawMessage `json:"json"`
	Image string          `json:"image"`

	Error            string        `json:"error"`
	ErrorType        string        `json:"error_type"`
	Errors           []ErrorDetail `json:"errors"`
	ValidationErrors []string      `json:"validation_errors"`
}

type wireComponent struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Title string          `json:"title"`
	JSON  json.RawMessage `json:"json"`
	Image string          `json:"image"`
}

// decodeResponse parses an evaluator payload into components or an
// *EvaluationError
func decodeResponse(body []byte, status int) ([]Component, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(errors.Mark(err, ErrInvalidResponse), "failed to decode evaluator response")
	}
	if !resp.Success {
		return nil, resp.evaluationError(status)
	}

	wire := resp.Components
	if len(wire) == 0 && resp.Type != "" {
		wire = []wireComponent{{Type: resp.Type, JSON: resp.JSON, Image: resp.Image}}
	}
	if len(wire) == 0 {
		return nil, errors.Wrap(ErrInvalidResponse, "successful evaluation without components")
	}

	components := make([]Component, 0, len(wire))
	seen := make(map[string]int, len(wire))
	for i, w := range wire {
		c, err := w.normalize(i)
		if err != nil {
			return nil, err
		}
		seen[c.ID]++
		if n := seen[c.ID]; n > 1 {
			c.ID = fmt.Sprintf("%s-%d", c.ID, n)
		}
		components = append(components, c)
	}
	return components, nil
}

func (r *response) evaluationError(status int) *EvaluationError {
	e := &EvaluationError{
		Category:   ParseCategory(r.ErrorType),
		Message:    r.Error,
		Errors:     r.Errors,
		StatusCode: status,
	}
	for _, msg := range r.ValidationErrors {
		e.Errors = append(e.Errors, ErrorDetail{Message: msg})
	}
	if len(r.ValidationErrors) > 0 && r.ErrorType == "" {
		e.Category = CategoryValidation
	}
	if e.Message == "" {
		e.Message = "evaluation failed"
	}
	return e
}

// document describes the fields of a result document used for naming
type document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (w wireComponent) normalize(position int) (Component, error) {
	text, err := documentText(w.JSON)
	if err != nil {
		return Component{}, errors.Wrapf(err, "component %d", position)
	}
	c := Component{ID: w.ID, Type: w.Type, Title: w.Title, JSON: text, Image: w.Image}

	if c.ID == "" || c.Title == "" {
		var doc document
		if json.Unmarshal([]byte(text), &doc) == nil {
			if c.ID == "" {
				c.ID = doc.ID
			}
			if c.Title == "" {
				c.Title = doc.Title
			}
		}
	}
	if c.ID == "" {
		c.ID = c.Type
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("component-%d", position+1)
	}

	if c.HasImage() {
		if _, err := base64.StdEncoding.DecodeString(c.Image); err != nil {
			return Component{}, errors.Wrapf(errors.Mark(err, ErrInvalidResponse), "component %s has an invalid image", c.ID)
		}
	}
	return c, nil
}

// documentText returns the JSON document as text. The evaluator sends it
// either as an embedded object or as a string holding serialized JSON.
func documentText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] != '"' {
		return string(raw), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Mark(err, ErrInvalidResponse)
	}
	return s, nil
}
