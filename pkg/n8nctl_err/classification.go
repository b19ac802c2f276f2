// pkg/n8nctl_err/classification.go
//
// Error classification with remediation steps so every terminal failure can
// tell the operator which step broke and what to run next.

package n8nctl_err

import (
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for exit-code handling.
type ErrorCategory int

const (
	// CategorySystem - OS/filesystem issues (exit 1)
	CategorySystem ErrorCategory = iota
	// CategoryValidation - input validation failures (exit 2)
	CategoryValidation
	// CategoryNetwork - network/connectivity issues (exit 1)
	CategoryNetwork
	// CategoryDependency - missing dependencies such as docker (exit 1)
	CategoryDependency
	// CategoryInternal - bugs in n8nctl itself (exit 3)
	CategoryInternal
)

// ClassifiedError wraps an error with the failed step, its category, and the
// diagnostic commands an operator can run next.
type ClassifiedError struct {
	Category    ErrorCategory
	Step        string
	Message     string
	Cause       error
	Remediation []string
}

func (e *ClassifiedError) Error() string {
	var sb strings.Builder

	if e.Step != "" {
		sb.WriteString(fmt.Sprintf("[%s] ", e.Step))
	}
	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf("\n\nCause: %v", e.Cause))
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nDiagnostics to run:")
		for i, step := range e.Remediation {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	return sb.String()
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// ExitCode returns the appropriate exit code for this error category.
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryInternal:
		return 3
	default:
		return 1
	}
}

// Classify builds a ClassifiedError for a failed step.
func Classify(category ErrorCategory, step, message string, cause error, remediation ...string) *ClassifiedError {
	return &ClassifiedError{
		Category:    category,
		Step:        step,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}
