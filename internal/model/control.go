package model

import "github.com/google/uuid"

// ControlPlan is the orchestrator's verdict: what the reply may do and how
// tightly it is governed. Construct it with NewControlPlan; ambiguity at
// construction is fatal, never resolved by guessing.
type ControlPlan struct {
	PlanID                uuid.UUID           `json:"plan_id"`
	Action                ControlAction       `json:"action"`
	RigorLevel            RigorLevel          `json:"rigor_level"`
	FrictionPosture       FrictionPosture     `json:"friction_posture"`
	ClarificationRequired bool                `json:"clarification_required"`
	ClarificationReason   ClarificationReason `json:"clarification_reason"`
	QuestionBudget        int                 `json:"question_budget"`
	QuestionClass         QuestionClass       `json:"question_class"`
	PriorityReason        string              `json:"priority_reason"`
	InitiativeBudget      InitiativeBudget    `json:"initiative_budget"`
	WarningBudget         int                 `json:"warning_budget"`
	ClosureState          ClosureState        `json:"closure_state"`
	RefusalRequired       bool                `json:"refusal_required"`
	RefusalCategory       RefusalCategory     `json:"refusal_category"`
}

// NewControlPlan enforces every cross-field invariant and returns the
// immutable record.
func NewControlPlan(p ControlPlan) (ControlPlan, error) {
	const component = "control_plan"

	if p.PlanID == uuid.Nil {
		return ControlPlan{}, NewAssemblyError(component, "plan_id is required")
	}
	if !p.Action.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "action %q is not a valid value", p.Action)
	}
	if !p.RigorLevel.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "rigor_level %q is not a valid value", p.RigorLevel)
	}
	if !p.FrictionPosture.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "friction_posture %q is not a valid value", p.FrictionPosture)
	}
	if !p.ClarificationReason.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "clarification_reason %q is not a valid value", p.ClarificationReason)
	}
	if !p.QuestionClass.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "question_class %q is not a valid value", p.QuestionClass)
	}
	if !p.InitiativeBudget.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "initiative_budget %q is not a valid value", p.InitiativeBudget)
	}
	if !p.ClosureState.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "closure_state %q is not a valid value", p.ClosureState)
	}
	if !p.RefusalCategory.Valid() {
		return ControlPlan{}, NewAssemblyError(component, "refusal_category %q is not a valid value", p.RefusalCategory)
	}
	if p.QuestionBudget < 0 || p.QuestionBudget > 1 {
		return ControlPlan{}, NewAssemblyError(component, "question_budget must be 0 or 1, got %d", p.QuestionBudget)
	}
	if p.WarningBudget < 0 || p.WarningBudget > 1 {
		return ControlPlan{}, NewAssemblyError(component, "warning_budget must be 0 or 1, got %d", p.WarningBudget)
	}

	// Clarification fields travel together.
	if p.ClarificationRequired {
		if p.QuestionBudget != 1 {
			return ControlPlan{}, NewAssemblyError(component, "clarification requires question_budget=1")
		}
		if p.ClarificationReason == ClarifyNone {
			return ControlPlan{}, NewAssemblyError(component, "clarification requires a non-NONE reason")
		}
		if p.QuestionClass == QuestionNone {
			return ControlPlan{}, NewAssemblyError(component, "clarification requires a question class")
		}
		if p.PriorityReason == "" {
			return ControlPlan{}, NewAssemblyError(component, "clarification requires a priority_reason")
		}
		if p.WarningBudget != 0 {
			return ControlPlan{}, NewAssemblyError(component, "clarification consumes the warning budget")
		}
	} else {
		if p.QuestionBudget != 0 || p.QuestionClass != QuestionNone || p.ClarificationReason != ClarifyNone {
			return ControlPlan{}, NewAssemblyError(component, "question fields set without clarification")
		}
	}

	// Refusal fields travel together.
	if p.RefusalRequired && p.RefusalCategory == RefusalNone {
		return ControlPlan{}, NewAssemblyError(component, "refusal requires a non-NONE category")
	}
	if !p.RefusalRequired && p.RefusalCategory != RefusalNone {
		return ControlPlan{}, NewAssemblyError(component, "refusal_category set without refusal_required")
	}

	// Closure turns questions and warnings off.
	if p.ClosureState != ClosureOpen {
		if p.ClarificationRequired || p.QuestionBudget != 0 {
			return ControlPlan{}, NewAssemblyError(component, "closure forbids clarification questions")
		}
		if p.WarningBudget != 0 {
			return ControlPlan{}, NewAssemblyError(component, "closure forbids warnings")
		}
		if p.InitiativeBudget != InitiativeNone {
			return ControlPlan{}, NewAssemblyError(component, "closure forbids initiative")
		}
	}

	// STOP friction requires an active gate.
	if p.FrictionPosture == FrictionStop {
		if !p.RefusalRequired && p.ClosureState == ClosureOpen && !p.ClarificationRequired {
			return ControlPlan{}, NewAssemblyError(component, "STOP friction requires refusal, closure, or clarification")
		}
	}

	// Action resolution consistency: CLOSE > REFUSE > ASK_ONE_QUESTION > ANSWER_ALLOWED.
	switch {
	case p.ClosureState != ClosureOpen:
		if p.Action != ControlClose {
			return ControlPlan{}, NewAssemblyError(component, "closure state %s requires CLOSE action", p.ClosureState)
		}
	case p.RefusalRequired:
		if p.Action != ControlRefuse {
			return ControlPlan{}, NewAssemblyError(component, "refusal_required requires REFUSE action")
		}
	case p.ClarificationRequired:
		if p.Action != ControlAskOneQuestion {
			return ControlPlan{}, NewAssemblyError(component, "clarification_required requires ASK_ONE_QUESTION action")
		}
	default:
		if p.Action != ControlAnswerAllowed {
			return ControlPlan{}, NewAssemblyError(component, "no gate active, action must be ANSWER_ALLOWED")
		}
	}

	return p, nil
}
