package deepthink

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tillerhq/tiller/internal/model"
)

// PassOutput is what one pass run reports back to the engine. CostUnits is
// charged against the budget even when the delta is later rejected.
type PassOutput struct {
	Delta      model.DecisionDelta
	CostUnits  int
	DurationMS int
	Err        error
}

// PassFunc is a pure rule-based rewriter. No external calls, no randomness,
// no clock reads beyond the injected one.
type PassFunc func(s State, ctx EngineContext) PassOutput

// passRegistry maps each pass type to its implementation. A tagged lookup
// table, not reflection.
var passRegistry = map[model.PassType]PassFunc{
	model.PassRefine:       runRefine,
	model.PassCounterarg:   runCounterarg,
	model.PassStressTest:   runStressTest,
	model.PassAlternatives: runAlternatives,
	model.PassRegret:       runRegret,
}

// absoluteMarkers flag overconfident language in requests and drafts.
var absoluteMarkers = []string{
	"definitely", "guaranteed", "100%", "certainly", "always works",
	"without a doubt", "never fails", "cannot fail", "cure you",
}

func countAbsolutes(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, m := range absoluteMarkers {
		n += strings.Count(lower, m)
	}
	return n
}

// clarifyBlacklist: a generated clarifying question containing any of these
// tokens is replaced with the generic safe question. The runtime never asks
// users to run things or hand over artifacts. Matching is whole-word so
// "runtime" does not trip on "run".
var clarifyBlacklist = []*regexp.Regexp{
	regexp.MustCompile(`\bupload\b`), regexp.MustCompile(`\battach\b`),
	regexp.MustCompile(`\brun\b`), regexp.MustCompile(`\bcommand\b`),
	regexp.MustCompile(`\bterminal\b`), regexp.MustCompile(`\blogs?\b`),
	regexp.MustCompile(`\bcredentials\b`), regexp.MustCompile(`\btokens?\b`),
	regexp.MustCompile(`\bapi keys?\b`), regexp.MustCompile(`\bscreenshots?\b`),
	regexp.MustCompile(`\bexecute\b`), regexp.MustCompile(`\bshell\b`),
	regexp.MustCompile(`\bscripts?\b`), regexp.MustCompile(`\binstall\b`),
}

// genericSafeQuestion is the fallback clarifying question. It must contain
// exactly one question mark and no blacklisted token.
const genericSafeQuestion = "Could you tell me a bit more about what you want to achieve and the situation around it?"

// sanitizeClarifyQuestion enforces the blacklist and the single-question
// rule on a generated clarifying question.
func sanitizeClarifyQuestion(q string) string {
	lower := strings.ToLower(q)
	for _, b := range clarifyBlacklist {
		if b.MatchString(lower) {
			return genericSafeQuestion
		}
	}
	if strings.Count(q, "?") != 1 {
		return genericSafeQuestion
	}
	if len(q) > model.MaxClarifyQuestionChars {
		return genericSafeQuestion
	}
	return q
}

// clampChars cuts s to at most max characters, never splitting a rune.
func clampChars(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// tighten collapses whitespace so repeated refinement converges instead of
// growing the draft.
func tighten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func setOp(path string, value any) model.PatchOp {
	return model.PatchOp{Op: "set", Path: path, Value: value}
}

// caveat appended by counterarg when absolutes are detected but the answer
// can stand.
const counterargCaveat = "This may not hold in every case; treat it as a starting point, not a certainty."

// runRefine mildly tightens the rationale and answer. It changes no action
// and invents no content: an empty rationale is seeded from the answer's
// first clause only.
func runRefine(s State, ctx EngineContext) PassOutput {
	rationale := tighten(s.Decision.Rationale)
	if rationale == "" && s.Decision.Answer != "" {
		first := tighten(s.Decision.Answer)
		if idx := strings.IndexAny(first, ".;"); idx > 0 {
			first = first[:idx]
		}
		rationale = clampChars("Based on: "+first, model.MaxRationaleChars)
	}

	ops := []model.PatchOp{setOp(model.PathRationale, clampChars(rationale, model.MaxRationaleChars))}
	if ans := tighten(s.Decision.Answer); ans != s.Decision.Answer {
		ops = append(ops, setOp(model.PathAnswer, clampChars(ans, model.MaxAnswerChars)))
	}

	delta := model.DecisionDelta{Ops: ops}
	cost, dur := passCost(s, len(ops))
	return PassOutput{Delta: delta, CostUnits: cost, DurationMS: dur}
}

// runCounterarg pushes back on overconfident absolute language. With
// critical inputs missing it converts the answer into a single safe
// clarifying question; otherwise it tightens the rationale with a bounded
// caveat.
func runCounterarg(s State, ctx EngineContext) PassOutput {
	absolutes := countAbsolutes(s.Request) + countAbsolutes(s.Decision.Answer)

	if absolutes == 0 {
		// Nothing overconfident: keep the rationale, normalized.
		delta := model.DecisionDelta{Ops: []model.PatchOp{
			setOp(model.PathRationale, clampChars(tighten(s.Decision.Rationale), model.MaxRationaleChars)),
		}}
		cost, dur := passCost(s, 1)
		return PassOutput{Delta: delta, CostUnits: cost, DurationMS: dur}
	}

	domain := classifyDomain(s.Request)
	missing := missingCriticalInputs(domain, s.Request)

	var ops []model.PatchOp
	if len(missing) > 0 && s.Decision.Action == model.DraftAnswer {
		ops = []model.PatchOp{
			setOp(model.PathAction, string(model.DraftAskOneQuestion)),
			setOp(model.PathClarifyQuestion, sanitizeClarifyQuestion(genericSafeQuestion)),
			setOp(model.PathRationale, clampChars(
				"The request states conclusions with more certainty than the available inputs support.",
				model.MaxRationaleChars)),
		}
	} else {
		rationale := tighten(s.Decision.Rationale)
		if rationale != "" {
			rationale += " "
		}
		rationale += counterargCaveat
		ops = []model.PatchOp{
			setOp(model.PathRationale, clampChars(rationale, model.MaxRationaleChars)),
		}
	}

	delta := model.DecisionDelta{Ops: ops}
	cost, dur := passCost(s, len(ops))
	return PassOutput{Delta: delta, CostUnits: cost, DurationMS: dur}
}

// passCost is the deterministic cost/duration model: a function of input
// sizes and patch count, capped per pass.
func passCost(s State, opCount int) (costUnits, durationMS int) {
	size := len(s.Request) + len(s.Decision.Answer) + len(s.Decision.Rationale)
	costUnits = 10 + size/200 + 5*opCount
	if costUnits > 80 {
		costUnits = 80
	}
	durationMS = 5 + size/500 + 3*opCount
	if durationMS > MinPassTimeoutMS {
		durationMS = MinPassTimeoutMS
	}
	return costUnits, durationMS
}

// runnerFor returns the registered pass function or an error output for an
// unknown type (which the engine treats as an internal inconsistency).
func runnerFor(p model.PassType) (PassFunc, error) {
	fn, ok := passRegistry[p]
	if !ok {
		return nil, fmt.Errorf("no runner registered for pass %q", p)
	}
	return fn, nil
}
