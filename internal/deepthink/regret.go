package deepthink

import (
	"strings"

	"github.com/tillerhq/tiller/internal/model"
)

// RegretModelVersion tags the scorer so recorded scores stay comparable
// across rule changes.
const RegretModelVersion = "2025-06"

// Regret weights and thresholds. The weighted total is on a 0-100 scale.
const (
	regretWeightSafety    = 0.40
	regretWeightMisinfo   = 0.30
	regretWeightConfusion = 0.20
	regretWeightUserCost  = 0.10

	regretSafetyHard   = 70 // safety_risk at or above forces FALLBACK
	regretForceClarify = 60 // weighted total at or above forces a question
)

// regretScores are the four rule-based sub-scores, each 0-100.
type regretScores struct {
	safetyRisk int
	misinfo    int
	confusion  int
	userCost   int
}

func (r regretScores) total() float64 {
	return regretWeightSafety*float64(r.safetyRisk) +
		regretWeightMisinfo*float64(r.misinfo) +
		regretWeightConfusion*float64(r.confusion) +
		regretWeightUserCost*float64(r.userCost)
}

func clampScore(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// scoreRegret computes the sub-scores from closed keyword features only.
func scoreRegret(s State) regretScores {
	combined := strings.ToLower(s.Request + " " + s.Decision.Answer)
	absolutes := countAbsolutes(combined)
	domain := classifyDomain(s.Request)

	safety := 0
	if domain == DomainMedicalHealth || domain == DomainSecurityPriv {
		safety += 50
	}
	if absolutes > 0 {
		safety += 30
	}
	if strings.Contains(combined, "severe") || strings.Contains(combined, "emergency") {
		safety += 10
	}

	misinfo := absolutes * 25

	confusion := 0
	if s.Decision.Rationale == "" {
		confusion += 40
	}
	if strings.Count(s.Decision.Answer, "?") > 0 {
		confusion += 20
	}

	userCost := len(s.Decision.Answer) / 50 * 5

	return regretScores{
		safetyRisk: clampScore(safety),
		misinfo:    clampScore(misinfo),
		confusion:  clampScore(confusion),
		userCost:   clampScore(userCost),
	}
}

const regretSafetyRationale = "Following this as stated could cause harm; a safe fallback is required instead of a confident answer."

// runRegret scores the draft for anticipated regret. A hard safety score
// forces FALLBACK with a safety rationale; a high weighted total forces a
// clarifying question; otherwise the rationale is tightened.
func runRegret(s State, ctx EngineContext) PassOutput {
	scores := scoreRegret(s)

	var ops []model.PatchOp
	switch {
	case scores.safetyRisk >= regretSafetyHard:
		ops = []model.PatchOp{
			setOp(model.PathAction, string(model.DraftFallback)),
			setOp(model.PathAnswer, clampChars(regretSafetyRationale, model.MaxAnswerChars)),
			setOp(model.PathRationale, clampChars(regretSafetyRationale, model.MaxRationaleChars)),
		}
	case scores.total() >= regretForceClarify:
		domain := classifyDomain(s.Request)
		q := genericSafeQuestion
		if m := missingCriticalInputs(domain, s.Request); len(m) > 0 {
			q = buildClarifyQuestion(m)
		}
		ops = []model.PatchOp{
			setOp(model.PathAction, string(model.DraftAskOneQuestion)),
			setOp(model.PathClarifyQuestion, q),
			setOp(model.PathRationale, clampChars(
				"Anticipated regret is high enough that clarifying beats answering.",
				model.MaxRationaleChars)),
		}
	default:
		rationale := tighten(s.Decision.Rationale)
		if rationale != "" {
			rationale += " "
		}
		rationale += "Checked against anticipated-regret thresholds."
		ops = []model.PatchOp{
			setOp(model.PathRationale, clampChars(rationale, model.MaxRationaleChars)),
		}
	}

	delta := model.DecisionDelta{Ops: ops}
	cost, dur := passCost(s, len(ops))
	return PassOutput{Delta: delta, CostUnits: cost, DurationMS: dur}
}
