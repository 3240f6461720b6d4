// Package output turns a DecisionState and ControlPlan into the OutputPlan
// the renderer must obey. Eight selectors run in a fixed order; each is a
// pure function of upstream outputs, each lattice is bump-only, and the
// baseline level is permitted only when the full safe conjunction holds.
package output

import (
	"github.com/tillerhq/tiller/internal/model"
)

// Assemble runs the selector chain and returns a validated OutputPlan.
func Assemble(state model.DecisionState, plan model.ControlPlan) (model.OutputPlan, error) {
	// Cross-stage invariants that involve both upstream records.
	if plan.Action == model.ControlAskOneQuestion && plan.RigorLevel == model.RigorEnforced {
		return model.OutputPlan{}, model.NewAssemblyError("output_plan", "ASK_ONE_QUESTION forbids ENFORCED rigor")
	}
	if plan.Action == model.ControlAnswerAllowed && plan.FrictionPosture == model.FrictionStop {
		return model.OutputPlan{}, model.NewAssemblyError("output_plan", "ANSWER forbids STOP friction")
	}

	posture := selectPosture(state, plan)
	rigorDisclosure := selectRigorDisclosure(state, plan)
	confidence := selectConfidenceSignaling(state, plan)
	unknownDisclosure := selectUnknownDisclosure(state, plan)
	assumptions := selectAssumptionSurfacing(state, plan)

	action := actionFor(plan)

	var refusalSpec *model.RefusalSpec
	if action == model.ActionRefuse {
		refusalSpec = &model.RefusalSpec{
			Category:        plan.RefusalCategory,
			ExplanationMode: selectRefusalExplanation(plan),
		}
	}

	var closureSpec *model.ClosureSpec
	if action == model.ActionClose {
		closureSpec = &model.ClosureSpec{
			State: plan.ClosureState,
			Mode:  selectClosureRendering(plan),
		}
	}

	var questionSpec *model.QuestionSpec
	if action == model.ActionAskOneQuestion {
		questionSpec = &model.QuestionSpec{
			Class:          plan.QuestionClass,
			PriorityReason: plan.PriorityReason,
		}
	}

	verbosity := selectVerbosity(action, posture, plan)

	id := model.OutputPlanID(state.TraceID, state.DecisionID, plan.PlanID, action, state.SchemaVersion)

	return model.NewOutputPlan(model.OutputPlan{
		ID:                  id,
		TraceID:             state.TraceID,
		SchemaVersion:       state.SchemaVersion,
		Action:              action,
		Posture:             posture,
		RigorDisclosure:     rigorDisclosure,
		ConfidenceSignaling: confidence,
		AssumptionSurfacing: assumptions,
		UnknownDisclosure:   unknownDisclosure,
		VerbosityCap:        verbosity,
		QuestionSpec:        questionSpec,
		RefusalSpec:         refusalSpec,
		ClosureSpec:         closureSpec,
	})
}

func actionFor(plan model.ControlPlan) model.OutputAction {
	switch plan.Action {
	case model.ControlClose:
		return model.ActionClose
	case model.ControlRefuse:
		return model.ActionRefuse
	case model.ControlAskOneQuestion:
		return model.ActionAskOneQuestion
	default:
		return model.ActionAnswer
	}
}

// baselineSafe is the comprehensive conjunction under which the minimum
// lattice level is allowed at all.
func baselineSafe(state model.DecisionState, plan model.ControlPlan) bool {
	return plan.RigorLevel == model.RigorMinimal &&
		plan.FrictionPosture == model.FrictionNone &&
		!plan.RefusalRequired &&
		!state.HasCriticalDomain() &&
		!state.HasUnknowns() &&
		state.ReversibilityClass != model.Irreversible &&
		state.ResponsibilityScope != model.SystemicPublic &&
		!state.ProximityState.AtLeast(model.ProximityHigh)
}

func selectPosture(state model.DecisionState, plan model.ControlPlan) model.Posture {
	p := model.PostureBaseline
	if !baselineSafe(state, plan) {
		p = p.Bump(model.PostureGuarded)
	}
	// Hard overrides.
	if plan.RefusalRequired || plan.FrictionPosture == model.FrictionStop ||
		plan.FrictionPosture == model.FrictionHardPause ||
		plan.RigorLevel == model.RigorEnforced {
		p = p.Bump(model.PostureConstrained)
	}
	return p
}

func selectRigorDisclosure(state model.DecisionState, plan model.ControlPlan) model.DisclosureLevel {
	d := model.DisclosureNone
	if plan.RigorLevel.AtLeast(model.RigorStructured) {
		d = d.Bump(model.DisclosureBrief)
	}
	if plan.RigorLevel == model.RigorEnforced || plan.FrictionPosture == model.FrictionStop {
		d = d.Bump(model.DisclosureExplicit)
	}
	return d
}

func selectConfidenceSignaling(state model.DecisionState, plan model.ControlPlan) model.ConfidenceSignaling {
	c := model.SignalNone
	if !baselineSafe(state, plan) {
		c = c.Bump(model.SignalHedged)
	}
	// Hard overrides: critical domains assessed below HIGH confidence,
	// irreversibility, and systemic exposure all demand explicit signaling.
	if state.CriticalDomainAt(model.ConfidenceMedium, model.ConfidenceLow) ||
		state.ReversibilityClass == model.Irreversible ||
		state.ResponsibilityScope == model.SystemicPublic {
		c = c.Bump(model.SignalExplicit)
	}
	return c
}

func selectUnknownDisclosure(state model.DecisionState, plan model.ControlPlan) model.DisclosureLevel {
	d := model.DisclosureNone
	if state.HasUnknowns() {
		d = d.Bump(model.DisclosureBrief)
	}
	if state.HasUnknowns() && state.ProximityState.AtLeast(model.ProximityHigh) {
		d = d.Bump(model.DisclosureExplicit)
	}
	return d
}

func selectAssumptionSurfacing(state model.DecisionState, plan model.ControlPlan) model.DisclosureLevel {
	d := model.DisclosureNone
	if !baselineSafe(state, plan) {
		d = d.Bump(model.DisclosureBrief)
	}
	if state.ReversibilityClass == model.Irreversible ||
		state.ResponsibilityScope == model.SystemicPublic ||
		state.HasUnknownSource(model.UnknownIntent) {
		d = d.Bump(model.DisclosureExplicit)
	}
	return d
}

func selectRefusalExplanation(plan model.ControlPlan) model.RefusalExplanationMode {
	switch plan.RefusalCategory {
	case model.RefusalGovernance:
		// Governance refusals never explain the mechanism being probed.
		return model.RefusalExplainCategoryOnly
	case model.RefusalRisk, model.RefusalIrreversibility, model.RefusalThirdParty:
		return model.RefusalExplainBrief
	default:
		return model.RefusalExplainFull
	}
}

func selectClosureRendering(plan model.ControlPlan) model.ClosureRenderingMode {
	switch plan.ClosureState {
	case model.ClosureUserTerminated:
		return model.ClosureRenderSilent
	case model.ClosureClosing:
		return model.ClosureRenderAckBrief
	default:
		return model.ClosureRenderAckFinal
	}
}

func selectVerbosity(action model.OutputAction, posture model.Posture, plan model.ControlPlan) model.VerbosityCap {
	switch action {
	case model.ActionClose, model.ActionRefuse:
		return model.VerbosityTerse
	case model.ActionAskOneQuestion:
		// One question never needs more than NORMAL; DETAILED is forbidden.
		return model.VerbosityNormal
	default:
		if posture == model.PostureBaseline && plan.RigorLevel == model.RigorMinimal {
			return model.VerbosityDetailed
		}
		if posture == model.PostureConstrained {
			return model.VerbosityTerse
		}
		return model.VerbosityNormal
	}
}
