package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("evaluator unreachable"), "start the evaluator")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "start the evaluator", hints[0])
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WrapUnavailable(nil, "context"))
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NewNotFoundError("evaluation %s", "abc"), IsNotFoundError},
		{"invalid request", NewInvalidRequestError("missing %s", "code"), IsInvalidRequestError},
		{"unavailable", WrapUnavailable(New("connection refused"), "evaluate"), IsServiceUnavailableError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(nil))
		})
	}
}

func TestWrapUnavailable_PreservesCause(t *testing.T) {
	cause := New("dial tcp: connection refused")
	err := WrapUnavailable(cause, "evaluate")

	assert.True(t, Is(err, cause))
	assert.True(t, Is(err, ErrServiceUnavailable))
	assert.Contains(t, err.Error(), "evaluate")
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
}

func ExampleWrap() {
	err := Wrap(New("connection failed"), "failed to reach evaluator")
	fmt.Println(err)
	// Output: failed to reach evaluator: connection failed
}
