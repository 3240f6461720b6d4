package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tillerhq/tiller/internal/model"
)

// VerifyError carries the public failure class for a rejected model output
// alongside a bounded, content-free reason.
type VerifyError struct {
	Type   model.FailureType
	Reason string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify: %s: %s", e.Type, e.Reason)
}

func rejected(t model.FailureType, reason string) *VerifyError {
	return &VerifyError{Type: t, Reason: reason}
}

// absoluteClaims are certainty markers the renderer may only use when the
// plan asks for explicit confidence signaling.
var absoluteClaims = []string{
	"definitely", "guaranteed", "100%", "certainly", "always works",
	"without a doubt", "never fails", "cannot fail",
}

// authorityClaims are capabilities the renderer does not have and must never
// assert.
var authorityClaims = []string{
	"i remember", "i recall", "i accessed", "i executed", "i ran",
	"i checked your", "i looked up", "as an ai model", "our policy",
	"internal policy", "i have saved", "i will remember",
}

// unknownMarkers satisfy an explicit unknown-disclosure requirement.
var unknownMarkers = []string{
	"not know", "unknown", "uncertain", "unclear", "can't be sure", "cannot be sure",
}

// multiQuestionHints catch a second question smuggled into one sentence.
// The single-word conjunctions match whole words only, so "surplus" never
// trips "plus".
var multiQuestionHints = []*regexp.Regexp{
	regexp.MustCompile(`\balso\b`),
	regexp.MustCompile(`\bplus\b`),
	regexp.MustCompile(`\banother question\b`),
	regexp.MustCompile(`\bsecond question\b`),
	regexp.MustCompile(`one more thing:`),
}

// AskPayload is the required JSON shape for ASK_ONE_QUESTION output.
type AskPayload struct {
	Question       string `json:"question"`
	QuestionClass  string `json:"question_class"`
	PriorityReason string `json:"priority_reason"`
}

// RefusePayload is the required JSON shape for REFUSE output.
type RefusePayload struct {
	RefusalCategory string `json:"refusal_category"`
	RefusalText     string `json:"refusal_text"`
}

// Verified is the accepted rendering after all checks passed.
type Verified struct {
	Text   string
	Ask    *AskPayload
	Refuse *RefusePayload
}

// Verify checks sanitized model output against the OutputPlan's contract.
// Any violation returns a VerifyError; the caller then falls back to
// deterministic templates. The plan is authoritative: output that disagrees
// with it is discarded, never repaired.
func Verify(plan model.OutputPlan, sanitized string) (Verified, error) {
	if sanitized == "" {
		return Verified{}, rejected(model.FailProviderError, "empty output")
	}
	lower := strings.ToLower(sanitized)

	for _, claim := range authorityClaims {
		if strings.Contains(lower, claim) {
			return Verified{}, rejected(model.FailForbiddenContent, "authority or memory claim")
		}
	}

	switch plan.Action {
	case model.ActionAskOneQuestion:
		return verifyAsk(plan, sanitized)
	case model.ActionRefuse:
		return verifyRefuse(plan, sanitized)
	case model.ActionClose:
		return verifyClose(plan, sanitized)
	default:
		return verifyAnswer(plan, sanitized, lower)
	}
}

func decodeStrict(raw string, into any) error {
	if strings.HasPrefix(raw, "```") {
		return rejected(model.FailNonJSON, "fenced output where bare JSON was required")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return rejected(model.FailNonJSON, "output is not the required JSON object")
	}
	// Anything after the object is also a violation.
	if dec.More() {
		return rejected(model.FailNonJSON, "trailing content after JSON object")
	}
	return nil
}

func verifyAsk(plan model.OutputPlan, raw string) (Verified, error) {
	var p AskPayload
	if err := decodeStrict(raw, &p); err != nil {
		return Verified{}, err
	}
	if p.Question == "" {
		return Verified{}, rejected(model.FailSchemaMismatch, "question is empty")
	}
	if strings.Count(p.Question, "?") != 1 || !strings.HasSuffix(strings.TrimSpace(p.Question), "?") {
		return Verified{}, rejected(model.FailContractViolation, "question must contain exactly one question mark, at the end")
	}
	lowerQ := strings.ToLower(p.Question)
	for _, hint := range multiQuestionHints {
		if hint.MatchString(lowerQ) {
			return Verified{}, rejected(model.FailContractViolation, "more than one question detected")
		}
	}
	if plan.QuestionSpec != nil && p.QuestionClass != "" && p.QuestionClass != string(plan.QuestionSpec.Class) {
		return Verified{}, rejected(model.FailContractViolation, "question_class disagrees with the plan")
	}
	if utf8.RuneCountInString(p.Question) > model.MaxClarifyQuestionChars {
		return Verified{}, rejected(model.FailContractViolation, "question exceeds the length bound")
	}
	return Verified{Text: p.Question, Ask: &p}, nil
}

func verifyRefuse(plan model.OutputPlan, raw string) (Verified, error) {
	var p RefusePayload
	if err := decodeStrict(raw, &p); err != nil {
		return Verified{}, err
	}
	if plan.RefusalSpec == nil || p.RefusalCategory != string(plan.RefusalSpec.Category) {
		return Verified{}, rejected(model.FailContractViolation, "refusal_category disagrees with the plan")
	}
	if p.RefusalText == "" {
		return Verified{}, rejected(model.FailSchemaMismatch, "refusal_text is empty")
	}
	if strings.Contains(p.RefusalText, "?") {
		return Verified{}, rejected(model.FailContractViolation, "refusal must not ask a question")
	}
	if len(p.RefusalText) > plan.VerbosityCap.Chars() {
		return Verified{}, rejected(model.FailContractViolation, "refusal exceeds the verbosity cap")
	}
	return Verified{Text: p.RefusalText, Refuse: &p}, nil
}

func verifyClose(plan model.OutputPlan, raw string) (Verified, error) {
	if plan.ClosureSpec != nil && plan.ClosureSpec.Mode == model.ClosureRenderSilent && raw != "" {
		return Verified{}, rejected(model.FailContractViolation, "silent closure must render nothing")
	}
	if strings.Contains(raw, "?") {
		return Verified{}, rejected(model.FailContractViolation, "closure must not ask a question")
	}
	if len(raw) > plan.VerbosityCap.Chars() {
		return Verified{}, rejected(model.FailContractViolation, "closure exceeds the verbosity cap")
	}
	return Verified{Text: raw}, nil
}

func verifyAnswer(plan model.OutputPlan, raw, lower string) (Verified, error) {
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "```") {
		return Verified{}, rejected(model.FailContractViolation, "plain text was required")
	}
	if len(raw) > plan.VerbosityCap.Chars() {
		return Verified{}, rejected(model.FailContractViolation, "answer exceeds the verbosity cap")
	}
	if plan.ConfidenceSignaling != model.SignalExplicit {
		for _, claim := range absoluteClaims {
			if strings.Contains(lower, claim) {
				return Verified{}, rejected(model.FailContractViolation, "absolute claim without explicit confidence signaling")
			}
		}
	}
	if plan.UnknownDisclosure != model.DisclosureNone {
		found := false
		for _, m := range unknownMarkers {
			if strings.Contains(lower, m) {
				found = true
				break
			}
		}
		if !found {
			return Verified{}, rejected(model.FailContractViolation, "required unknown disclosure is missing")
		}
	}
	return Verified{Text: raw}, nil
}
