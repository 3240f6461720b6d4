package provider

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tillerhq/tiller/internal/deepthink"
	"github.com/tillerhq/tiller/internal/model"
)

// Every fallback rendering has to survive the same contract Verify enforces
// on model output. Silent closures are the one exception: they render
// nothing and never reach Verify.
func TestFallbackSatisfiesVerify(t *testing.T) {
	plans := []model.OutputPlan{
		answerPlan(),
		askPlan(),
		refusePlan(),
		{
			Action:       model.ActionClose,
			VerbosityCap: model.VerbosityTerse,
			ClosureSpec:  &model.ClosureSpec{State: model.ClosureClosing, Mode: model.ClosureRenderAckBrief},
		},
		{
			Action:       model.ActionClose,
			VerbosityCap: model.VerbosityTerse,
			ClosureSpec:  &model.ClosureSpec{State: model.ClosureClosed, Mode: model.ClosureRenderAckFinal},
		},
	}
	// Stress the answer contract variants too.
	guarded := answerPlan()
	guarded.ConfidenceSignaling = model.SignalHedged
	guarded.UnknownDisclosure = model.DisclosureExplicit
	guarded.VerbosityCap = model.VerbosityTerse
	plans = append(plans, guarded)

	for _, plan := range plans {
		v := Fallback(RenderInput{Plan: plan})
		if v.Text == "" {
			t.Errorf("%s fallback rendered nothing", plan.Action)
			continue
		}
		// ASK and REFUSE verify the wire JSON; the others verify plain text.
		raw := v.Text
		switch {
		case v.Ask != nil:
			b, err := json.Marshal(v.Ask)
			if err != nil {
				t.Fatal(err)
			}
			raw = string(b)
		case v.Refuse != nil:
			b, err := json.Marshal(v.Refuse)
			if err != nil {
				t.Fatal(err)
			}
			raw = string(b)
		}
		if _, err := Verify(plan, raw); err != nil {
			t.Errorf("%s fallback fails its own contract: %v", plan.Action, err)
		}
	}
}

func TestFallbackAskPerClass(t *testing.T) {
	for _, class := range []model.QuestionClass{
		model.QuestionSafetyLegal, model.QuestionIrreversibility,
		model.QuestionResponsibility, model.QuestionConstraints,
		model.QuestionIntent, model.QuestionInformational,
	} {
		plan := askPlan()
		plan.QuestionSpec = &model.QuestionSpec{Class: class, PriorityReason: "x"}
		v := Fallback(RenderInput{Plan: plan})
		if v.Ask == nil {
			t.Fatalf("%s: no ask payload", class)
		}
		if strings.Count(v.Ask.Question, "?") != 1 {
			t.Errorf("%s: question %q", class, v.Ask.Question)
		}
		if v.Ask.QuestionClass != string(class) {
			t.Errorf("%s: payload class %q", class, v.Ask.QuestionClass)
		}
	}
}

func TestFallbackAskReusesCleanDraftQuestion(t *testing.T) {
	v := Fallback(RenderInput{
		Plan:  askPlan(),
		Draft: deepthink.Decision{ClarifyQuestion: "What language are you using?"},
	})
	if v.Text != "What language are you using?" {
		t.Errorf("draft question discarded: %q", v.Text)
	}

	// A malformed draft question falls through to the template.
	v = Fallback(RenderInput{
		Plan:  askPlan(),
		Draft: deepthink.Decision{ClarifyQuestion: "What? Why?"},
	})
	if strings.Count(v.Text, "?") != 1 {
		t.Errorf("malformed draft question kept: %q", v.Text)
	}
}

func TestFallbackRefuseMatchesPlanCategory(t *testing.T) {
	v := Fallback(RenderInput{Plan: refusePlan()})
	if v.Refuse == nil || v.Refuse.RefusalCategory != "RISK_REFUSAL" {
		t.Fatalf("payload = %+v", v.Refuse)
	}
	if strings.Contains(v.Text, "?") {
		t.Errorf("refusal text asks a question: %q", v.Text)
	}
}

func TestFallbackAnswerDropsForbiddenCertainty(t *testing.T) {
	v := Fallback(RenderInput{
		Plan:  answerPlan(),
		Draft: deepthink.Decision{Answer: "This definitely fixes it."},
	})
	if strings.Contains(strings.ToLower(v.Text), "definitely") {
		t.Errorf("absolute claim survived: %q", v.Text)
	}

	explicit := answerPlan()
	explicit.ConfidenceSignaling = model.SignalExplicit
	v = Fallback(RenderInput{
		Plan:  explicit,
		Draft: deepthink.Decision{Answer: "This definitely fixes it."},
	})
	if v.Text != "This definitely fixes it." {
		t.Errorf("explicit signaling still rewrote the draft: %q", v.Text)
	}
}

func TestFallbackAnswerAddsUnknownDisclosure(t *testing.T) {
	plan := answerPlan()
	plan.UnknownDisclosure = model.DisclosureExplicit
	v := Fallback(RenderInput{Plan: plan, Draft: deepthink.Decision{Answer: "Try the obvious fix."}})
	if !strings.Contains(strings.ToLower(v.Text), "unknown") {
		t.Errorf("no unknown disclosure added: %q", v.Text)
	}
}

func TestFallbackAnswerBriefDisclosure(t *testing.T) {
	plan := answerPlan()
	plan.UnknownDisclosure = model.DisclosureBrief
	v := Fallback(RenderInput{Plan: plan, Draft: deepthink.Decision{Answer: "Try the obvious fix."}})
	if !hasUnknownMarker(v.Text) {
		t.Errorf("no disclosure under BRIEF: %q", v.Text)
	}
	if _, err := Verify(plan, v.Text); err != nil {
		t.Errorf("BRIEF fallback fails its own contract: %v", err)
	}
}

func TestFallbackAnswerDisclosureSurvivesCap(t *testing.T) {
	// A draft long enough to be truncated must still end up disclosed.
	plan := answerPlan()
	plan.UnknownDisclosure = model.DisclosureExplicit
	plan.VerbosityCap = model.VerbosityTerse
	long := strings.Repeat("Take the slow path and measure each stage. ", 20)
	v := Fallback(RenderInput{Plan: plan, Draft: deepthink.Decision{Answer: long}})
	if len(v.Text) > plan.VerbosityCap.Chars() {
		t.Errorf("len = %d over the %d cap", len(v.Text), plan.VerbosityCap.Chars())
	}
	if !hasUnknownMarker(v.Text) {
		t.Errorf("truncation removed the disclosure: %q", v.Text)
	}
	if _, err := Verify(plan, v.Text); err != nil {
		t.Errorf("capped disclosure fails verification: %v", err)
	}
}

func TestFallbackSilentClosureRendersNothing(t *testing.T) {
	v := Fallback(RenderInput{Plan: model.OutputPlan{
		Action:       model.ActionClose,
		VerbosityCap: model.VerbosityTerse,
		ClosureSpec:  &model.ClosureSpec{State: model.ClosureUserTerminated, Mode: model.ClosureRenderSilent},
	}})
	if v.Text != "" {
		t.Errorf("silent closure rendered %q", v.Text)
	}
}

func TestCapBytesKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes each
	got := capBytes(s, 5)
	if len(got) > 5 {
		t.Errorf("len = %d", len(got))
	}
	if !strings.HasSuffix(got, "é") {
		t.Errorf("rune split: %q", got)
	}
}
