// pkg/n8nctl_err/errors_test.go

package n8nctl_err

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedError(t *testing.T) {
	base := errors.New("docker daemon not running")

	wrapped := NewExpectedError(base)
	assert.True(t, IsExpectedUserError(wrapped))
	assert.Equal(t, base.Error(), wrapped.Error())
	assert.ErrorIs(t, wrapped, base)

	// Survives further wrapping.
	outer := fmt.Errorf("preflight: %w", wrapped)
	assert.True(t, IsExpectedUserError(outer))

	assert.False(t, IsExpectedUserError(base))
	assert.False(t, IsExpectedUserError(nil))
	assert.Nil(t, NewExpectedError(nil))
}

func TestExtractSummary(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		max      int
		expected string
	}{
		{
			name:     "empty output",
			output:   "",
			max:      3,
			expected: "No output provided.",
		},
		{
			name:     "whitespace only",
			output:   "   \n\t\n  ",
			max:      3,
			expected: "No output provided.",
		},
		{
			name:     "picks error lines",
			output:   "starting up\nError: no such image\nall done",
			max:      3,
			expected: "Error: no such image",
		},
		{
			name:     "joins multiple candidates",
			output:   "pull failed: timeout\nError response from daemon",
			max:      3,
			expected: "pull failed: timeout - Error response from daemon",
		},
		{
			name:     "caps at max candidates",
			output:   "error one\nerror two\nerror three",
			max:      2,
			expected: "error one - error two",
		},
		{
			name:     "falls back to first non-empty line",
			output:   "\n\nsome harmless output\nmore output",
			max:      3,
			expected: "some harmless output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractSummary(tt.output, tt.max))
		})
	}
}

func TestClassifiedErrorFormat(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Classify(CategoryDependency, "preflight", "docker daemon unreachable", cause,
		"systemctl status docker",
		"docker info")

	msg := err.Error()
	assert.Contains(t, msg, "[preflight] docker daemon unreachable")
	assert.Contains(t, msg, "Cause: dial tcp: connection refused")
	assert.Contains(t, msg, "Diagnostics to run:")
	assert.Contains(t, msg, "1. systemctl status docker")
	assert.Contains(t, msg, "2. docker info")

	require.ErrorIs(t, err, cause)
}

func TestClassifiedErrorOmitsRedundantCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Classify(CategorySystem, "persist", "disk full", cause)

	assert.Equal(t, "[persist] disk full", err.Error())
}

func TestClassifiedErrorExitCodes(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		code     int
	}{
		{CategorySystem, 1},
		{CategoryNetwork, 1},
		{CategoryDependency, 1},
		{CategoryValidation, 2},
		{CategoryInternal, 3},
	}

	for _, tt := range tests {
		err := Classify(tt.category, "step", "message", nil)
		assert.Equal(t, tt.code, err.ExitCode())
	}
}
