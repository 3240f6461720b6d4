package stakes

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tillerhq/tiller/internal/model"
)

func assemble(t *testing.T, text string, prior Prior) model.DecisionState {
	t.Helper()
	s, err := Assemble(uuid.New(), "trace-1", ExtractFeatures(text), prior)
	if err != nil {
		t.Fatalf("Assemble(%q): %v", text, err)
	}
	return s
}

func TestProximityLadder(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.ProximityState
	}{
		{"immediate", "I just ran the migration script against the database", model.ProximityImminent},
		{"commitment", "I've decided to quit my job tomorrow and sell everything", model.ProximityHigh},
		{"validation", "Should I take out a loan to cover the mortgage payment?", model.ProximityMedium},
		{"exploratory", "What if someone invested all their savings in crypto?", model.ProximityLow},
		{"no signal", "Tell me about database indexes and their error modes", model.ProximityVeryLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := assemble(t, tt.text, Prior{})
			if s.ProximityState != tt.want {
				t.Errorf("proximity = %s, want %s", s.ProximityState, tt.want)
			}
		})
	}
}

func TestProximityUncertaintyMarked(t *testing.T) {
	s := assemble(t, "Just wondering how compilers report a compile error", Prior{})
	if !s.ProximityUncertainty {
		t.Error("exploratory text without uncertainty flag")
	}
	if !s.HasUnknownSource(model.UnknownProximity) {
		t.Error("uncertain proximity missing its unknown marker")
	}
}

func TestProximityNeverRegresses(t *testing.T) {
	// A prior HIGH floor holds even when the new turn reads exploratory.
	s := assemble(t, "Just curious, what does that error code mean?", Prior{Proximity: model.ProximityHigh})
	if s.ProximityState != model.ProximityHigh {
		t.Errorf("proximity regressed to %s with a HIGH prior", s.ProximityState)
	}

	// A new, higher signal still wins over a lower prior.
	s = assemble(t, "I just ran the deploy, the server is throwing an exception", Prior{Proximity: model.ProximityLow})
	if s.ProximityState != model.ProximityImminent {
		t.Errorf("proximity = %s, want IMMINENT over a LOW prior", s.ProximityState)
	}

	// An UNKNOWN prior never pins anything.
	s = assemble(t, "Just curious about that bug in the code", Prior{Proximity: model.ProximityUnknown})
	if s.ProximityState != model.ProximityLow {
		t.Errorf("UNKNOWN prior pinned proximity to %s", s.ProximityState)
	}
}

func TestDomainConfidenceGrading(t *testing.T) {
	// One hit: LOW.
	s := assemble(t, "My code is misbehaving", Prior{})
	if got := confidenceFor(t, s, model.DomainTechnical); got != model.ConfidenceLow {
		t.Errorf("one hit graded %s, want LOW", got)
	}

	// Two hits: MEDIUM.
	s = assemble(t, "My code has a bug", Prior{})
	if got := confidenceFor(t, s, model.DomainTechnical); got != model.ConfidenceMedium {
		t.Errorf("two hits graded %s, want MEDIUM", got)
	}

	// Three or more hits: HIGH.
	s = assemble(t, "My code has a bug, the compile fails with an error", Prior{})
	if got := confidenceFor(t, s, model.DomainTechnical); got != model.ConfidenceHigh {
		t.Errorf("three hits graded %s, want HIGH", got)
	}
}

func confidenceFor(t *testing.T, s model.DecisionState, d model.RiskDomain) model.Confidence {
	t.Helper()
	for _, a := range s.RiskDomains {
		if a.Domain == d {
			return a.Confidence
		}
	}
	t.Fatalf("domain %s not assessed; got %v", d, s.RiskDomains)
	return ""
}

func TestNoDomainHitsMeansUnknown(t *testing.T) {
	s := assemble(t, "Tell me something interesting about clouds", Prior{})
	if len(s.RiskDomains) != 1 || s.RiskDomains[0].Domain != model.DomainUnknown {
		t.Fatalf("risk domains = %v, want single UNKNOWN", s.RiskDomains)
	}
	if s.RiskDomains[0].Confidence != model.ConfidenceUnknown {
		t.Errorf("confidence = %s, want UNKNOWN", s.RiskDomains[0].Confidence)
	}
	if !s.HasUnknownSource(model.UnknownDomain) {
		t.Error("UNKNOWN domain missing its marker")
	}
}

func TestMultipleDomainsCoexist(t *testing.T) {
	s := assemble(t, "Is it safe to take this medication while my lawsuit over the contract is pending?", Prior{})
	seen := map[model.RiskDomain]bool{}
	for _, d := range s.RiskDomains {
		seen[d.Domain] = true
	}
	if !seen[model.DomainMedical] || !seen[model.DomainLegal] {
		t.Errorf("expected medical and legal assessments, got %v", s.RiskDomains)
	}
}

func TestIrreversibilityDetection(t *testing.T) {
	s := assemble(t, "I'm about to drop the table, this is permanent", Prior{})
	if s.ReversibilityClass != model.Irreversible {
		t.Errorf("reversibility = %s, want IRREVERSIBLE", s.ReversibilityClass)
	}
	if !s.HasUnknownSource(model.UnknownReversibility) {
		t.Error("irreversible stakes missing the uncertainty marker")
	}

	s = assemble(t, "This is just a draft I can revert any time", Prior{})
	if s.ReversibilityClass != model.Reversible {
		t.Errorf("reversibility = %s, want REVERSIBLE", s.ReversibilityClass)
	}
}

func TestScopeAndHorizon(t *testing.T) {
	s := assemble(t, "Should I push this to production today for all users?", Prior{})
	if s.ResponsibilityScope != model.SystemicPublic {
		t.Errorf("scope = %s, want SYSTEMIC_PUBLIC", s.ResponsibilityScope)
	}
	if s.ConsequenceHorizon != model.ShortHorizon {
		t.Errorf("horizon = %s, want SHORT_HORIZON", s.ConsequenceHorizon)
	}
	// Systemic exposure on a short horizon carries the horizon marker.
	if !s.HasUnknownSource(model.UnknownHorizon) {
		t.Error("systemic short-horizon missing its marker")
	}

	s = assemble(t, "Planning my team's long term savings strategy", Prior{})
	if s.ResponsibilityScope != model.OthersLimited {
		t.Errorf("scope = %s, want OTHERS_LIMITED", s.ResponsibilityScope)
	}
	if s.ConsequenceHorizon != model.LongHorizon {
		t.Errorf("horizon = %s, want LONG_HORIZON", s.ConsequenceHorizon)
	}
}

func TestEmptyTextIsIntentAmbiguous(t *testing.T) {
	s := assemble(t, "   ", Prior{})
	if !s.HasUnknownSource(model.UnknownIntent) {
		t.Error("blank request without INTENT_UNCLEAR marker")
	}
}

func TestContradictorySignalsAreAmbiguous(t *testing.T) {
	f := ExtractFeatures("Just wondering, hypothetically, but I'm about to do it right now")
	if !f.IntentAmbiguous {
		t.Error("exploratory plus immediate signals not flagged ambiguous")
	}
}

func TestUnknownOrderIsFixed(t *testing.T) {
	// All-unknown input: every marker present, in declaration order.
	s := assemble(t, "hm", Prior{})
	want := []model.UnknownSource{
		model.UnknownProximity, model.UnknownDomain, model.UnknownReversibility,
		model.UnknownHorizon, model.UnknownOutcome,
	}
	if len(s.ExplicitUnknownZone) != len(want) {
		t.Fatalf("unknown zone = %v, want %v", s.ExplicitUnknownZone, want)
	}
	for i, u := range want {
		if s.ExplicitUnknownZone[i] != u {
			t.Errorf("unknown[%d] = %s, want %s", i, s.ExplicitUnknownZone[i], u)
		}
	}
}

func TestAssembleRequiresIdentity(t *testing.T) {
	if _, err := Assemble(uuid.Nil, "trace", Features{}, Prior{}); err == nil {
		t.Error("nil decision id accepted")
	}
	if _, err := Assemble(uuid.New(), "", Features{}, Prior{}); err == nil {
		t.Error("empty trace id accepted")
	}
}

func TestAssembleDeterministic(t *testing.T) {
	id := uuid.New()
	text := "Should I take aspirin for this headache before my flight today?"
	a, err := Assemble(id, "t", ExtractFeatures(text), Prior{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Assemble(id, "t", ExtractFeatures(text), Prior{})
	if err != nil {
		t.Fatal(err)
	}
	if a.ProximityState != b.ProximityState || len(a.RiskDomains) != len(b.RiskDomains) ||
		len(a.ExplicitUnknownZone) != len(b.ExplicitUnknownZone) {
		t.Error("identical inputs produced different states")
	}
}
