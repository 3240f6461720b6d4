// Package control assembles the ControlPlan: the governed verdict on what a
// reply may do. It runs a fixed ten-step pipeline over the DecisionState;
// every step is deterministic, every lattice is bump-only, and any
// contradiction at the end is fatal rather than reconciled by guessing.
package control

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tillerhq/tiller/internal/model"
)

// Input carries everything the orchestrator may consult. UserText is only
// read by the closure and governance keyword rules; stakes decisions come
// from the immutable DecisionState.
type Input struct {
	State         model.DecisionState
	UserText      string
	PriorClosure  model.ClosureState // latched closure from the session store, "" when none
}

// closure markers, checked in order: termination beats winding-down.
var terminationMarkers = []string{
	"goodbye", "that's all", "no more questions", "stop responding",
	"end of conversation", "we're done",
}

var closingMarkers = []string{
	"that's helpful, thanks", "thanks, that's all i needed", "wrapping up",
	"last thing before i go",
}

// governance markers force the highest refusal tier: attempts to steer the
// runtime itself rather than the subject matter.
var governanceMarkers = []string{
	"ignore your instructions", "ignore previous instructions",
	"disable your safety", "pretend you have no rules", "jailbreak",
	"reveal your system prompt", "bypass your guidelines",
}

// Assemble runs the pipeline and returns a validated ControlPlan.
func Assemble(in Input) (model.ControlPlan, error) {
	s := in.State

	// 1. Rigor: lattice climb, bump-only.
	rigor := model.RigorMinimal
	if s.ProximityState.AtLeast(model.ProximityMedium) || s.HasUnknowns() {
		rigor = rigor.Bump(model.RigorGuarded)
	}
	if s.HasCriticalDomain() || s.ReversibilityClass == model.Irreversible ||
		s.ConsequenceHorizon == model.LongHorizon ||
		s.ResponsibilityScope == model.SystemicPublic {
		rigor = rigor.Bump(model.RigorStructured)
	}
	if (s.HasCriticalDomain() && s.ProximityState.AtLeast(model.ProximityHigh)) ||
		(s.ReversibilityClass == model.Irreversible && s.ProximityState == model.ProximityImminent) ||
		(s.ResponsibilityScope == model.SystemicPublic && s.ProximityState == model.ProximityImminent) {
		rigor = rigor.Bump(model.RigorEnforced)
	}

	// 2. Friction posture from rigor plus stakes.
	friction := model.FrictionNone
	switch rigor {
	case model.RigorGuarded:
		if s.ReversibilityClass == model.Irreversible {
			friction = friction.Bump(model.FrictionSoftPause)
		}
	case model.RigorStructured:
		friction = friction.Bump(model.FrictionSoftPause)
	case model.RigorEnforced:
		friction = friction.Bump(model.FrictionHardPause)
	}
	if rigor == model.RigorEnforced && s.HasCriticalDomain() &&
		s.ProximityState == model.ProximityImminent && s.HasUnknowns() {
		friction = friction.Bump(model.FrictionStop)
	}

	// 3. Clarification trigger: a ladder per proximity tier. At ENFORCED
	// rigor there is no clarification path; the refusal tiers gate instead.
	clarify := false
	clarifyReason := model.ClarifyNone
	switch {
	case rigor == model.RigorEnforced:
	case s.CriticalDomainAt(model.ConfidenceMedium, model.ConfidenceLow) &&
		s.ProximityState.AtLeast(model.ProximityMedium):
		clarify = true
		clarifyReason = model.ClarifyCriticalLowConfidence
	case s.ReversibilityClass == model.Irreversible && s.HasUnknowns() &&
		s.ProximityState.AtLeast(model.ProximityMedium):
		clarify = true
		clarifyReason = model.ClarifyIrreversibleUnknowns
	case s.ProximityState == model.ProximityImminent && s.ProximityUncertainty:
		clarify = true
		clarifyReason = model.ClarifyImminentUnconfirmed
	case s.ResponsibilityScope == model.SystemicPublic &&
		s.HasUnknownSource(model.UnknownScope):
		clarify = true
		clarifyReason = model.ClarifyScopeExposure
	case s.HasUnknownSource(model.UnknownIntent) &&
		s.ProximityState.AtLeast(model.ProximityHigh):
		clarify = true
		clarifyReason = model.ClarifyIntentAmbiguous
	}

	// 4. Question compression: exactly one class, by fixed priority.
	questionClass := model.QuestionNone
	priorityReason := ""
	if clarify {
		questionClass, priorityReason = compressQuestion(s)
	}

	// 5. Initiative and warning budgets.
	initiative := model.InitiativeOnce
	if rigor.AtLeast(model.RigorStructured) {
		initiative = model.InitiativeStrictOnce
	}
	warningBudget := 1
	if clarify {
		// Clarification consumes the slot.
		initiative = model.InitiativeNone
		warningBudget = 0
	}

	// 6. Closure detection: user text plus the latched session state.
	closure := model.ClosureOpen
	lower := strings.ToLower(in.UserText)
	for _, m := range terminationMarkers {
		if strings.Contains(lower, m) {
			closure = model.ClosureUserTerminated
			break
		}
	}
	if closure == model.ClosureOpen {
		for _, m := range closingMarkers {
			if strings.Contains(lower, m) {
				closure = model.ClosureClosing
				break
			}
		}
	}
	if in.PriorClosure == model.ClosureClosed || in.PriorClosure == model.ClosureUserTerminated {
		closure = model.ClosureClosed
	}

	// 7. Refusal decision, tiered highest first.
	refuse := false
	refusalCategory := model.RefusalNone
	switch {
	case containsAny(lower, governanceMarkers):
		refuse = true
		refusalCategory = model.RefusalGovernance
	case s.HasCriticalDomain() && s.ProximityState == model.ProximityImminent &&
		s.HasUnknowns() && !clarify:
		refuse = true
		refusalCategory = model.RefusalRisk
	case s.ReversibilityClass == model.Irreversible &&
		s.ProximityState == model.ProximityImminent && !clarify:
		refuse = true
		refusalCategory = model.RefusalIrreversibility
	case s.ResponsibilityScope == model.SystemicPublic &&
		s.ProximityState == model.ProximityImminent && s.HasUnknowns() && !clarify:
		refuse = true
		refusalCategory = model.RefusalThirdParty
	case friction == model.FrictionStop && !clarify && closure == model.ClosureOpen:
		refuse = true
		refusalCategory = model.RefusalCapability
	}

	// 8. Override reconciliation.
	if closure != model.ClosureOpen {
		// Closure cancels clarification, questions, initiative, warnings.
		clarify = false
		clarifyReason = model.ClarifyNone
		questionClass = model.QuestionNone
		priorityReason = ""
		initiative = model.InitiativeNone
		warningBudget = 0
		refuse = false
		refusalCategory = model.RefusalNone
	}
	if refuse {
		// Refusal overrides answer and the question path.
		clarify = false
		clarifyReason = model.ClarifyNone
		questionClass = model.QuestionNone
		priorityReason = ""
	}
	if friction == model.FrictionStop && !refuse && closure == model.ClosureOpen && !clarify {
		// STOP with no active gate would be unservable; the refusal tier
		// above guarantees a gate, so reaching here is a bug.
		return model.ControlPlan{}, model.NewAssemblyError("control_plan", "STOP friction with no active gate")
	}

	// 9. Action resolution: CLOSE > REFUSE > ASK_ONE_QUESTION > ANSWER_ALLOWED.
	action := model.ControlAnswerAllowed
	switch {
	case closure != model.ClosureOpen:
		action = model.ControlClose
	case refuse:
		action = model.ControlRefuse
	case clarify:
		action = model.ControlAskOneQuestion
	}

	questionBudget := 0
	if clarify {
		questionBudget = 1
	}

	// 10. Validation: the constructor enforces every cross-field invariant.
	return model.NewControlPlan(model.ControlPlan{
		PlanID:                uuid.New(),
		Action:                action,
		RigorLevel:            rigor,
		FrictionPosture:       friction,
		ClarificationRequired: clarify,
		ClarificationReason:   clarifyReason,
		QuestionBudget:        questionBudget,
		QuestionClass:         questionClass,
		PriorityReason:        priorityReason,
		InitiativeBudget:      initiative,
		WarningBudget:         warningBudget,
		ClosureState:          closure,
		RefusalRequired:       refuse,
		RefusalCategory:       refusalCategory,
	})
}

// compressQuestion picks the single question class by strict priority:
// safety/legal > irreversibility > responsibility > constraints > intent >
// informational fallback.
func compressQuestion(s model.DecisionState) (model.QuestionClass, string) {
	switch {
	case s.CriticalDomainAt(model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh):
		return model.QuestionSafetyLegal, "critical domain present"
	case s.ReversibilityClass == model.Irreversible:
		return model.QuestionIrreversibility, "irreversible action contemplated"
	case s.ResponsibilityScope == model.SystemicPublic || s.ResponsibilityScope == model.OthersLimited:
		return model.QuestionResponsibility, "consequences extend beyond the requester"
	case s.ConsequenceHorizon == model.LongHorizon:
		return model.QuestionConstraints, "long-horizon constraints unconfirmed"
	case s.HasUnknownSource(model.UnknownIntent):
		return model.QuestionIntent, "intent signals are ambiguous"
	default:
		return model.QuestionInformational, "required inputs missing"
	}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
