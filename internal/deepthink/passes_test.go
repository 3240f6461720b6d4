package deepthink

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tillerhq/tiller/internal/model"
)

func testCtx(budget int) EngineContext {
	return EngineContext{
		BudgetUnitsRemaining: budget,
		NowMS:                func() int64 { return 0 },
	}
}

func opValue(t *testing.T, delta model.DecisionDelta, path string) any {
	t.Helper()
	for _, op := range delta.Ops {
		if op.Path == path {
			return op.Value
		}
	}
	t.Fatalf("no op for %s in %+v", path, delta.Ops)
	return nil
}

func hasOp(delta model.DecisionDelta, path string) bool {
	for _, op := range delta.Ops {
		if op.Path == path {
			return true
		}
	}
	return false
}

func TestClassifyDomain(t *testing.T) {
	tests := []struct {
		text string
		want RequestDomain
	}{
		{"I have a headache, should I take aspirin", DomainMedicalHealth},
		{"my password may have leaked in a breach", DomainSecurityPriv},
		{"reviewing the contract before the lawsuit", DomainLegalPolicy},
		{"rolling out the kubernetes deploy to production", DomainDeployDevops},
		{"my code throws a typeerror on startup", DomainCodeTech},
		{"should I invest my savings or pay the mortgage", DomainFinanceTax},
		{"booking a flight and hotel for the trip", DomainTravelLocal},
		{"which should i buy, recommend a laptop", DomainPurchaseRec},
		{"what's a good name for a cat", DomainGeneric},
	}
	for _, tt := range tests {
		if got := classifyDomain(tt.text); got != tt.want {
			t.Errorf("classifyDomain(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestStressTestForcesQuestionOnMissingInputs(t *testing.T) {
	s := State{
		Request:  "my code keeps crashing with an error",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Just reinstall everything."},
	}
	out := runStressTest(s, testCtx(100))
	if out.Err != nil {
		t.Fatal(out.Err)
	}
	if got := opValue(t, out.Delta, model.PathAction); got != string(model.DraftAskOneQuestion) {
		t.Errorf("action = %v, want ASK_ONE_QUESTION", got)
	}
	q, _ := opValue(t, out.Delta, model.PathClarifyQuestion).(string)
	if !strings.Contains(q, "language or runtime") {
		t.Errorf("question %q does not name the missing input", q)
	}
	if strings.Count(q, "?") != 1 {
		t.Errorf("question %q must contain exactly one question mark", q)
	}
}

func TestStressTestPassesWithCompleteInputs(t *testing.T) {
	s := State{
		Request:  "my python code crashes on line 5 with an error",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Check the index bounds.", Rationale: "stack trace points there"},
	}
	out := runStressTest(s, testCtx(100))
	if hasOp(out.Delta, model.PathAction) {
		t.Error("complete inputs still forced an action change")
	}
	if !hasOp(out.Delta, model.PathRationale) {
		t.Error("no rationale op emitted")
	}
}

func TestCounterargWithoutAbsolutesOnlyTightens(t *testing.T) {
	s := State{
		Request:  "how do I structure this module",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Group by responsibility.", Rationale: "keeps  coupling  low"},
	}
	out := runCounterarg(s, testCtx(100))
	if len(out.Delta.Ops) != 1 || out.Delta.Ops[0].Path != model.PathRationale {
		t.Fatalf("ops = %+v, want single rationale op", out.Delta.Ops)
	}
	if got := out.Delta.Ops[0].Value.(string); strings.Contains(got, "  ") {
		t.Errorf("rationale not tightened: %q", got)
	}
}

func TestCounterargConvertsOverconfidentAnswer(t *testing.T) {
	s := State{
		Request:  "my code is crashing and this fix definitely works, right",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Yes, guaranteed."},
	}
	out := runCounterarg(s, testCtx(100))
	if got := opValue(t, out.Delta, model.PathAction); got != string(model.DraftAskOneQuestion) {
		t.Errorf("action = %v, want ASK_ONE_QUESTION for absolutes with missing inputs", got)
	}
	q, _ := opValue(t, out.Delta, model.PathClarifyQuestion).(string)
	if strings.Count(q, "?") != 1 {
		t.Errorf("question %q must contain exactly one question mark", q)
	}
}

func TestCounterargCaveatsWhenInputsComplete(t *testing.T) {
	s := State{
		Request:  "my python code fails on line 3; this fix definitely works, right",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Likely the loop bound.", Rationale: "off by one"},
	}
	out := runCounterarg(s, testCtx(100))
	if hasOp(out.Delta, model.PathAction) {
		t.Error("complete inputs still converted the answer")
	}
	r, _ := opValue(t, out.Delta, model.PathRationale).(string)
	if !strings.Contains(r, counterargCaveat) {
		t.Errorf("rationale %q missing the caveat", r)
	}
}

func TestRefineSeedsEmptyRationale(t *testing.T) {
	s := State{
		Request:  "explain this",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Indexes speed up reads; they cost writes."},
	}
	out := runRefine(s, testCtx(100))
	r, _ := opValue(t, out.Delta, model.PathRationale).(string)
	if !strings.HasPrefix(r, "Based on: ") {
		t.Errorf("seeded rationale = %q", r)
	}
	if strings.Contains(r, "they cost writes") {
		t.Errorf("seed took more than the first clause: %q", r)
	}
}

func TestRefineTightensWhitespace(t *testing.T) {
	s := State{
		Request:  "explain",
		Decision: Decision{Action: model.DraftAnswer, Answer: "too   many    spaces", Rationale: "fine"},
	}
	out := runRefine(s, testCtx(100))
	a, _ := opValue(t, out.Delta, model.PathAnswer).(string)
	if a != "too many spaces" {
		t.Errorf("answer = %q", a)
	}
}

func TestSanitizeClarifyQuestion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		safe bool
	}{
		{"clean single question", "What language are you using?", true},
		{"blacklisted upload", "Could you upload the file?", false},
		{"blacklisted run", "Can you run the command?", false},
		{"runtime is not run", "Which runtime version is this?", true},
		{"two questions", "What? Why?", false},
		{"no question mark", "Tell me more.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeClarifyQuestion(tt.in)
			if tt.safe && got != tt.in {
				t.Errorf("safe question replaced: %q -> %q", tt.in, got)
			}
			if !tt.safe && got != genericSafeQuestion {
				t.Errorf("unsafe question kept: %q", got)
			}
		})
	}
}

func TestRegretHardSafetyForcesFallback(t *testing.T) {
	s := State{
		Request:  "I have a headache, should I take aspirin",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Take it, it definitely works."},
	}
	out := runRegret(s, testCtx(100))
	if got := opValue(t, out.Delta, model.PathAction); got != string(model.DraftFallback) {
		t.Errorf("action = %v, want FALLBACK for hard safety score", got)
	}
	a, _ := opValue(t, out.Delta, model.PathAnswer).(string)
	if a == "" {
		t.Error("fallback left no safe answer text")
	}
}

func TestRegretLowStakesOnlyAnnotates(t *testing.T) {
	s := State{
		Request:  "what's a nice color for a kitchen",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Warm white.", Rationale: "neutral and bright"},
	}
	out := runRegret(s, testCtx(100))
	if hasOp(out.Delta, model.PathAction) {
		t.Error("low-stakes draft still rewritten")
	}
	r, _ := opValue(t, out.Delta, model.PathRationale).(string)
	if !strings.Contains(r, "anticipated-regret") {
		t.Errorf("rationale %q missing the regret note", r)
	}
}

func TestAlternativesPrefersFallbackForCriticalAbsolutes(t *testing.T) {
	s := State{
		Request:  "this cure is guaranteed and definitely works",
		Decision: Decision{Action: model.DraftAnswer, Answer: "Go ahead."},
	}
	out := runAlternatives(s, testCtx(100))
	if got := opValue(t, out.Delta, model.PathAction); got != string(model.DraftFallback) {
		t.Errorf("action = %v, want FALLBACK", got)
	}
	alts, _ := opValue(t, out.Delta, model.PathAlternatives).([]string)
	if len(alts) != 2 {
		t.Errorf("alternatives = %v, want the two rejected options", alts)
	}
}

func TestAlternativesDeterministic(t *testing.T) {
	s := State{
		Request:  "which laptop should i buy for work",
		Decision: Decision{Action: model.DraftAnswer, Answer: "A mid-range one."},
	}
	a := runAlternatives(s, testCtx(100))
	b := runAlternatives(s, testCtx(100))
	if !reflect.DeepEqual(a.Delta, b.Delta) {
		t.Errorf("identical inputs produced different deltas:\n%+v\n%+v", a.Delta, b.Delta)
	}
}

func TestPassCostBounded(t *testing.T) {
	big := State{Request: strings.Repeat("x", 100000)}
	cost, dur := passCost(big, 5)
	if cost > 80 {
		t.Errorf("cost = %d, cap is 80", cost)
	}
	if dur > MinPassTimeoutMS {
		t.Errorf("duration = %d, cap is %d", dur, MinPassTimeoutMS)
	}
}

func TestRunnerRegistryComplete(t *testing.T) {
	for _, p := range []model.PassType{
		model.PassRefine, model.PassCounterarg, model.PassStressTest,
		model.PassAlternatives, model.PassRegret,
	} {
		if _, err := runnerFor(p); err != nil {
			t.Errorf("no runner for %s: %v", p, err)
		}
	}
	if _, err := runnerFor(model.PassType("DREAM")); err == nil {
		t.Error("unknown pass type resolved")
	}
}

func TestPassDeltasValidateCleanly(t *testing.T) {
	// Every pass's output must survive its own validator.
	states := []State{
		{Request: "my code keeps crashing with an error", Decision: Decision{Action: model.DraftAnswer, Answer: "Reinstall."}},
		{Request: "I have a headache, should I take aspirin", Decision: Decision{Action: model.DraftAnswer, Answer: "It definitely works."}},
		{Request: "pick a kitchen color", Decision: Decision{Action: model.DraftAnswer, Answer: "Warm white.", Rationale: "bright"}},
	}
	for pass, fn := range passRegistry {
		for _, s := range states {
			out := fn(s, testCtx(100))
			if out.Err != nil {
				t.Errorf("%s returned error: %v", pass, out.Err)
				continue
			}
			if res := ValidateDelta(out.Delta, 0); !res.OK {
				t.Errorf("%s produced invalid delta: %v", pass, res.Errors)
			}
		}
	}
}
