package deepthink

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/tillerhq/tiller/internal/model"
)

// candidate is one of the fixed triple the alternatives pass weighs.
type candidate struct {
	label    string
	action   model.DraftAction
	risk     int // lower is better
	clarity  int // higher is better
	cost     int // lower is better
	tieBreak string
}

// tieBreakPrefix derives a stable ordering key from the candidate label and
// the request: a SHA-256 hex prefix, never content echoed back.
func tieBreakPrefix(label, request string) string {
	sum := sha256.Sum256([]byte(label + "|" + request))
	return hex.EncodeToString(sum[:])[:8]
}

// runAlternatives scores the fixed triple (stay-the-course-tightened,
// clarify-first, fallback-safe) and rewrites the decision to the winner.
func runAlternatives(s State, ctx EngineContext) PassOutput {
	absolutes := countAbsolutes(s.Request) + countAbsolutes(s.Decision.Answer)
	domain := classifyDomain(s.Request)
	critical := domain == DomainMedicalHealth || domain == DomainLegalPolicy || domain == DomainSecurityPriv
	missing := len(missingCriticalInputs(domain, s.Request))

	stayClarity := 1
	if s.Decision.Answer != "" {
		stayClarity = 3
	}
	stayRisk := 1 + absolutes
	if critical {
		stayRisk += 2
	}
	if stayRisk > 5 {
		stayRisk = 5
	}

	fallbackRisk := 2
	if critical && absolutes >= 2 {
		fallbackRisk = 0
	}

	cands := []candidate{
		{
			label:   "stay the course with tightened caveats",
			action:  s.Decision.Action,
			risk:    stayRisk,
			clarity: stayClarity,
			cost:    1,
		},
		{
			label:   "ask one clarifying question first",
			action:  model.DraftAskOneQuestion,
			risk:    1 + missing/3,
			clarity: 2,
			cost:    2,
		},
		{
			label:   "fall back to a safe minimal response",
			action:  model.DraftFallback,
			risk:    fallbackRisk,
			clarity: 1,
			cost:    3,
		},
	}
	for i := range cands {
		cands[i].tieBreak = tieBreakPrefix(cands[i].label, s.Request)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.risk != b.risk {
			return a.risk < b.risk
		}
		if a.clarity != b.clarity {
			return a.clarity > b.clarity
		}
		if a.cost != b.cost {
			return a.cost < b.cost
		}
		return a.tieBreak < b.tieBreak
	})
	top := cands[0]

	ops := []model.PatchOp{setOp(model.PathAction, string(top.action))}
	switch top.action {
	case model.DraftAskOneQuestion:
		q := genericSafeQuestion
		if m := missingCriticalInputs(domain, s.Request); len(m) > 0 {
			q = buildClarifyQuestion(m)
		}
		ops = append(ops, setOp(model.PathClarifyQuestion, q))
	case model.DraftFallback:
		ops = append(ops, setOp(model.PathAnswer, clampChars(
			"A direct recommendation would not be dependable here; a safe minimal response is the better option.",
			model.MaxAnswerChars)))
	default:
		if s.Decision.Answer != "" {
			ops = append(ops, setOp(model.PathAnswer, clampChars(tighten(s.Decision.Answer), model.MaxAnswerChars)))
		}
	}
	ops = append(ops, setOp(model.PathRationale, clampChars(
		"Weighed staying the course, clarifying first, and a safe fallback; chose: "+top.label+".",
		model.MaxRationaleChars)))

	// Surface the rejected options, bounded.
	alts := make([]string, 0, 2)
	for _, c := range cands[1:] {
		alts = append(alts, clampChars(c.label, model.MaxAlternativeChars))
	}
	if len(alts) >= 2 {
		ops = append(ops, setOp(model.PathAlternatives, alts))
	}

	delta := model.DecisionDelta{Ops: ops}
	cost, dur := passCost(s, len(ops))
	return PassOutput{Delta: delta, CostUnits: cost, DurationMS: dur}
}
