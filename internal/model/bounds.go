package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field length limits for patched decision fields. These are the hard
// numbers the patch applier, validator and fallback renderer all honor.
const (
	MaxAnswerChars          = 1200
	MaxRationaleChars       = 600
	MaxClarifyQuestionChars = 300
	MaxAlternativeChars     = 200
	MaxAlternativesCount    = 3

	// MaxUserTextBytes bounds the /api/chat request body field.
	MaxUserTextBytes = 16 * 1024

	// MaxFailureReasonBytes bounds the failure_reason in error responses
	// and telemetry.
	MaxFailureReasonBytes = 200
)

// Patch paths that a DecisionDelta may target. Anything else is forbidden.
const (
	PathAction          = "decision.action"
	PathAnswer          = "decision.answer"
	PathRationale       = "decision.rationale"
	PathClarifyQuestion = "decision.clarify_question"
	PathAlternatives    = "decision.alternatives"
)

// PatchAllowlist is the full set of patchable paths.
var PatchAllowlist = map[string]bool{
	PathAction:          true,
	PathAnswer:          true,
	PathRationale:       true,
	PathClarifyQuestion: true,
	PathAlternatives:    true,
}

// forbiddenPathPatterns are substrings that must never appear in a patch
// path, even if an allowlist bug would otherwise let one through.
var forbiddenPathPatterns = []string{
	"entitlement", "tier", "cap", "routing", "pass_count", "breaker",
	"budget", "clamp", "safety", "security", "header", "cookie", "auth",
	"token", "policy",
}

// ForbiddenPathPattern returns the first forbidden substring found in path,
// or "" when the path is clean.
func ForbiddenPathPattern(path string) string {
	lower := strings.ToLower(path)
	for _, p := range forbiddenPathPatterns {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

// PatchOp is a single set-only patch operation inside a DecisionDelta.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// DecisionDelta is an ordered sequence of patch operations produced by one
// deep-think pass and discarded after application.
type DecisionDelta struct {
	Ops []PatchOp `json:"ops"`
}

// CheckPatchValue validates a patch value against the per-path spec:
// type, enum membership, and length/count bounds. Returns nil when valid.
func CheckPatchValue(path string, value any) error {
	switch path {
	case PathAction:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("path %s: value must be a string", path)
		}
		if !DraftAction(s).Valid() {
			return fmt.Errorf("path %s: %q is not a valid action", path, s)
		}
	case PathAnswer:
		return checkBoundedString(path, value, MaxAnswerChars)
	case PathRationale:
		return checkBoundedString(path, value, MaxRationaleChars)
	case PathClarifyQuestion:
		return checkBoundedString(path, value, MaxClarifyQuestionChars)
	case PathAlternatives:
		items, ok := value.([]string)
		if !ok {
			return fmt.Errorf("path %s: value must be a string list", path)
		}
		if len(items) < 2 || len(items) > MaxAlternativesCount {
			return fmt.Errorf("path %s: list must have 2 to %d items", path, MaxAlternativesCount)
		}
		for i, item := range items {
			if utf8.RuneCountInString(item) > MaxAlternativeChars {
				return fmt.Errorf("path %s: item %d exceeds %d characters", path, i, MaxAlternativeChars)
			}
		}
	default:
		return fmt.Errorf("path %s: not in allowlist", path)
	}
	return nil
}

func checkBoundedString(path string, value any, maxChars int) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("path %s: value must be a string", path)
	}
	if utf8.RuneCountInString(s) > maxChars {
		return fmt.Errorf("path %s: value exceeds %d characters", path, maxChars)
	}
	return nil
}

// TruncateReason bounds a failure reason to MaxFailureReasonBytes, backing
// off to the previous rune boundary so multi-byte text is never split.
func TruncateReason(s string) string {
	if len(s) <= MaxFailureReasonBytes {
		return s
	}
	cut := MaxFailureReasonBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
