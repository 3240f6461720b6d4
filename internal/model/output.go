package model

import (
	"fmt"

	"github.com/google/uuid"
)

// outputPlanNamespace is the fixed UUIDv5 namespace for OutputPlan ids.
var outputPlanNamespace = uuid.MustParse("7d6ad2b4-0c3e-5a1f-9e8b-2f4c6d8e0a1b")

// QuestionSpec carries the single-question rendering contract.
type QuestionSpec struct {
	Class          QuestionClass `json:"class"`
	PriorityReason string        `json:"priority_reason"`
}

// RefusalSpec carries the refusal rendering contract.
type RefusalSpec struct {
	Category        RefusalCategory        `json:"category"`
	ExplanationMode RefusalExplanationMode `json:"explanation_mode"`
}

// ClosureSpec carries the closure rendering contract.
type ClosureSpec struct {
	State ClosureState         `json:"state"`
	Mode  ClosureRenderingMode `json:"mode"`
}

// OutputPlan is the expression-layer contract handed to the renderer. The
// renderer may phrase; it may never change anything recorded here.
type OutputPlan struct {
	ID                  uuid.UUID           `json:"id"`
	TraceID             string              `json:"trace_id"`
	SchemaVersion       string              `json:"schema_version"`
	Action              OutputAction        `json:"action"`
	Posture             Posture             `json:"posture"`
	RigorDisclosure     DisclosureLevel     `json:"rigor_disclosure"`
	ConfidenceSignaling ConfidenceSignaling `json:"confidence_signaling"`
	AssumptionSurfacing DisclosureLevel     `json:"assumption_surfacing"`
	UnknownDisclosure   DisclosureLevel     `json:"unknown_disclosure"`
	VerbosityCap        VerbosityCap        `json:"verbosity_cap"`
	QuestionSpec        *QuestionSpec       `json:"question_spec,omitempty"`
	RefusalSpec         *RefusalSpec        `json:"refusal_spec,omitempty"`
	ClosureSpec         *ClosureSpec        `json:"closure_spec,omitempty"`
}

// OutputPlanID derives the deterministic UUIDv5 for an OutputPlan from its
// upstream identities. Identical inputs always produce the identical id.
func OutputPlanID(traceID string, decisionStateID, controlPlanID uuid.UUID, action OutputAction, schemaVersion string) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%s|%s|%s", traceID, decisionStateID, controlPlanID, action, schemaVersion)
	return uuid.NewSHA1(outputPlanNamespace, []byte(name))
}

// NewOutputPlan enforces the action-specific assembly invariants and returns
// the immutable record.
func NewOutputPlan(p OutputPlan) (OutputPlan, error) {
	const component = "output_plan"

	if p.ID == uuid.Nil {
		return OutputPlan{}, NewAssemblyError(component, "id is required")
	}
	if p.TraceID == "" {
		return OutputPlan{}, NewAssemblyError(component, "trace_id is required")
	}
	if !p.Action.Valid() {
		return OutputPlan{}, NewAssemblyError(component, "action %q is not a valid value", p.Action)
	}
	if !p.Posture.Valid() {
		return OutputPlan{}, NewAssemblyError(component, "posture %q is not a valid value", p.Posture)
	}
	if !p.RigorDisclosure.Valid() {
		return OutputPlan{}, NewAssemblyError(component, "rigor_disclosure %q is not a valid value", p.RigorDisclosure)
	}
	if !p.ConfidenceSignaling.Valid() {
		return OutputPlan{}, NewAssemblyError(component, "confidence_signaling %q is not a valid value", p.ConfidenceSignaling)
	}
	if !p.AssumptionSurfacing.Valid() {
		return OutputPlan{}, NewAssemblyError(component, "assumption_surfacing %q is not a valid value", p.AssumptionSurfacing)
	}
	if !p.UnknownDisclosure.Valid() {
		return OutputPlan{}, NewAssemblyError(component, "unknown_disclosure %q is not a valid value", p.UnknownDisclosure)
	}
	if !p.VerbosityCap.Valid() {
		return OutputPlan{}, NewAssemblyError(component, "verbosity_cap %q is not a valid value", p.VerbosityCap)
	}

	switch p.Action {
	case ActionClose:
		if p.QuestionSpec != nil {
			return OutputPlan{}, NewAssemblyError(component, "CLOSE forbids a question spec")
		}
		if p.RefusalSpec != nil {
			return OutputPlan{}, NewAssemblyError(component, "CLOSE forbids a refusal spec")
		}
		if p.ClosureSpec == nil {
			return OutputPlan{}, NewAssemblyError(component, "CLOSE requires a closure spec")
		}
		if p.ClosureSpec.State == ClosureOpen {
			return OutputPlan{}, NewAssemblyError(component, "CLOSE with OPEN closure state")
		}
		if !p.ClosureSpec.Mode.Valid() {
			return OutputPlan{}, NewAssemblyError(component, "closure mode %q is not a valid value", p.ClosureSpec.Mode)
		}
	case ActionRefuse:
		if p.RefusalSpec == nil {
			return OutputPlan{}, NewAssemblyError(component, "REFUSE requires a refusal spec")
		}
		if p.RefusalSpec.Category == RefusalNone {
			return OutputPlan{}, NewAssemblyError(component, "REFUSE requires a non-NONE category")
		}
		if !p.RefusalSpec.ExplanationMode.Valid() {
			return OutputPlan{}, NewAssemblyError(component, "refusal explanation mode %q is not a valid value", p.RefusalSpec.ExplanationMode)
		}
		if p.Posture != PostureConstrained {
			return OutputPlan{}, NewAssemblyError(component, "REFUSE requires CONSTRAINED posture")
		}
	case ActionAskOneQuestion:
		if p.QuestionSpec == nil {
			return OutputPlan{}, NewAssemblyError(component, "ASK_ONE_QUESTION requires a question spec")
		}
		if p.QuestionSpec.Class == QuestionNone || !p.QuestionSpec.Class.Valid() {
			return OutputPlan{}, NewAssemblyError(component, "question class %q is not a valid value", p.QuestionSpec.Class)
		}
		if p.QuestionSpec.PriorityReason == "" {
			return OutputPlan{}, NewAssemblyError(component, "question spec requires a priority_reason")
		}
		if p.VerbosityCap == VerbosityDetailed {
			return OutputPlan{}, NewAssemblyError(component, "ASK_ONE_QUESTION forbids DETAILED verbosity")
		}
	case ActionAnswer:
		if p.RefusalSpec != nil || p.QuestionSpec != nil || p.ClosureSpec != nil {
			return OutputPlan{}, NewAssemblyError(component, "ANSWER forbids action sub-specs")
		}
	}

	return p, nil
}
