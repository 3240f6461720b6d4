package model

import (
	"errors"
	"fmt"
	"regexp"
)

// FailureType is the closed public error taxonomy. Every internal failure
// is mapped to exactly one of these at the HTTP boundary.
type FailureType string

const (
	FailInvariantViolation FailureType = "INVARIANT_VIOLATION"
	FailValidation         FailureType = "VALIDATION_FAIL"
	FailBudgetExhausted    FailureType = "BUDGET_EXHAUSTED"
	FailTimeout            FailureType = "TIMEOUT"
	FailBreakerTripped     FailureType = "BREAKER_TRIPPED"
	FailEntitlementCap     FailureType = "ENTITLEMENT_CAP"
	FailAbuse              FailureType = "ABUSE"
	FailProviderError      FailureType = "PROVIDER_ERROR"
	FailNonJSON            FailureType = "NON_JSON"
	FailSchemaMismatch     FailureType = "SCHEMA_MISMATCH"
	FailForbiddenContent   FailureType = "FORBIDDEN_CONTENT"
	FailContractViolation  FailureType = "CONTRACT_VIOLATION"
	FailInternal           FailureType = "INTERNAL_INCONSISTENCY"
)

// AssemblyError is a fatal invariant violation raised while constructing
// one of the immutable records. The component names which stage failed.
type AssemblyError struct {
	Component string // "decision_state", "control_plan", "output_plan"
	Reason    string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("%s assembly: %s", e.Component, e.Reason)
}

// NewAssemblyError builds an AssemblyError for the given component.
func NewAssemblyError(component, format string, args ...any) error {
	return &AssemblyError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// IsAssemblyError reports whether err is (or wraps) an AssemblyError.
func IsAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}

// PatchError rejects a single patch operation.
type PatchError struct {
	Path   string
	Reason string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch %s: %s", e.Path, e.Reason)
}

// Secret-shaped substrings are redacted from every outward-facing failure
// reason. Internal error text never reaches HTTP responses verbatim anyway;
// this is the second fence.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{8,}`),
	regexp.MustCompile(`(?i)authorization:\s*bearer\s+\S+`),
	regexp.MustCompile(`(?i)api[_-]?key\s*[=:]\s*\S+`),
}

// RedactSecrets replaces secret-shaped substrings with a fixed marker.
func RedactSecrets(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, "[redacted]")
	}
	return s
}

// SanitizeReason redacts secrets and truncates to the public bound. Use it
// on every string destined for a failure_reason field.
func SanitizeReason(s string) string {
	return TruncateReason(RedactSecrets(s))
}
