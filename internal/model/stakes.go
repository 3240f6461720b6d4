package model

import (
	"github.com/google/uuid"
)

// SchemaVersion tags every record constructed by this build of the pipeline.
const SchemaVersion = "1"

// DomainAssessment pairs a risk domain with the classifier's confidence.
type DomainAssessment struct {
	Domain     RiskDomain `json:"domain"`
	Confidence Confidence `json:"confidence"`
}

// DecisionState is the immutable stakes snapshot for one request.
// Construct it with NewDecisionState; never mutate it afterwards.
type DecisionState struct {
	DecisionID           uuid.UUID           `json:"decision_id"`
	TraceID              string              `json:"trace_id"`
	PhaseMarker          string              `json:"phase_marker"`
	SchemaVersion        string              `json:"schema_version"`
	ProximityState       ProximityState      `json:"proximity_state"`
	ProximityUncertainty bool                `json:"proximity_uncertainty"`
	RiskDomains          []DomainAssessment  `json:"risk_domains"`
	ReversibilityClass   ReversibilityClass  `json:"reversibility_class"`
	ConsequenceHorizon   ConsequenceHorizon  `json:"consequence_horizon"`
	ResponsibilityScope  ResponsibilityScope `json:"responsibility_scope"`
	OutcomeClasses       []OutcomeClass      `json:"outcome_classes"`
	ExplicitUnknownZone  []UnknownSource     `json:"explicit_unknown_zone"`
}

// HasUnknownSource reports whether the given source is in the unknown zone.
func (s DecisionState) HasUnknownSource(src UnknownSource) bool {
	for _, u := range s.ExplicitUnknownZone {
		if u == src {
			return true
		}
	}
	return false
}

// HasCriticalDomain reports whether any assessed domain forces elevated rigor.
func (s DecisionState) HasCriticalDomain() bool {
	for _, d := range s.RiskDomains {
		if d.Domain.Critical() {
			return true
		}
	}
	return false
}

// CriticalDomainAt reports whether a critical domain was assessed at one of
// the given confidence levels.
func (s DecisionState) CriticalDomainAt(levels ...Confidence) bool {
	for _, d := range s.RiskDomains {
		if !d.Domain.Critical() {
			continue
		}
		for _, lvl := range levels {
			if d.Confidence == lvl {
				return true
			}
		}
	}
	return false
}

// HasUnknowns reports whether any unknown source was recorded.
func (s DecisionState) HasUnknowns() bool { return len(s.ExplicitUnknownZone) > 0 }

// NewDecisionState validates all cross-field invariants and returns the
// immutable record. Every violation is fatal; the request fails closed.
func NewDecisionState(s DecisionState) (DecisionState, error) {
	const component = "decision_state"

	if s.DecisionID == uuid.Nil {
		return DecisionState{}, NewAssemblyError(component, "decision_id is required")
	}
	if s.TraceID == "" {
		return DecisionState{}, NewAssemblyError(component, "trace_id is required")
	}
	if s.SchemaVersion == "" {
		return DecisionState{}, NewAssemblyError(component, "schema_version is required")
	}
	if !s.ProximityState.Valid() {
		return DecisionState{}, NewAssemblyError(component, "proximity_state %q is not a valid value", s.ProximityState)
	}
	if !s.ReversibilityClass.Valid() {
		return DecisionState{}, NewAssemblyError(component, "reversibility_class %q is not a valid value", s.ReversibilityClass)
	}
	if !s.ConsequenceHorizon.Valid() {
		return DecisionState{}, NewAssemblyError(component, "consequence_horizon %q is not a valid value", s.ConsequenceHorizon)
	}
	if !s.ResponsibilityScope.Valid() {
		return DecisionState{}, NewAssemblyError(component, "responsibility_scope %q is not a valid value", s.ResponsibilityScope)
	}
	if len(s.RiskDomains) == 0 {
		return DecisionState{}, NewAssemblyError(component, "risk_domains must be non-empty")
	}
	seen := make(map[RiskDomain]bool, len(s.RiskDomains))
	for _, d := range s.RiskDomains {
		if !d.Domain.Valid() {
			return DecisionState{}, NewAssemblyError(component, "risk domain %q is not a valid value", d.Domain)
		}
		if !d.Confidence.Valid() {
			return DecisionState{}, NewAssemblyError(component, "risk domain %s: confidence %q is not a valid value", d.Domain, d.Confidence)
		}
		if seen[d.Domain] {
			return DecisionState{}, NewAssemblyError(component, "duplicate risk domain %s", d.Domain)
		}
		seen[d.Domain] = true
	}
	if len(s.OutcomeClasses) == 0 {
		return DecisionState{}, NewAssemblyError(component, "outcome_classes must be non-empty")
	}
	for _, o := range s.OutcomeClasses {
		if !o.Valid() {
			return DecisionState{}, NewAssemblyError(component, "outcome class %q is not a valid value", o)
		}
	}
	for _, u := range s.ExplicitUnknownZone {
		if !u.Valid() {
			return DecisionState{}, NewAssemblyError(component, "unknown source %q is not a valid value", u)
		}
	}

	// Every UNKNOWN selector must be mirrored in the unknown zone.
	if s.ProximityState == ProximityUnknown && !s.HasUnknownSource(UnknownProximity) {
		return DecisionState{}, NewAssemblyError(component, "proximity UNKNOWN without %s marker", UnknownProximity)
	}
	if s.ReversibilityClass == ReversibilityUnknown && !s.HasUnknownSource(UnknownReversibility) {
		return DecisionState{}, NewAssemblyError(component, "reversibility UNKNOWN without %s marker", UnknownReversibility)
	}
	if s.ConsequenceHorizon == HorizonUnknown && !s.HasUnknownSource(UnknownHorizon) {
		return DecisionState{}, NewAssemblyError(component, "horizon UNKNOWN without %s marker", UnknownHorizon)
	}
	if s.ResponsibilityScope == ScopeUnknown && !s.HasUnknownSource(UnknownScope) {
		return DecisionState{}, NewAssemblyError(component, "responsibility UNKNOWN without %s marker", UnknownScope)
	}
	for _, d := range s.RiskDomains {
		if (d.Domain == DomainUnknown || d.Confidence == ConfidenceUnknown) && !s.HasUnknownSource(UnknownDomain) {
			return DecisionState{}, NewAssemblyError(component, "UNKNOWN risk domain without %s marker", UnknownDomain)
		}
	}
	for _, o := range s.OutcomeClasses {
		if o == OutcomeUnknown && !s.HasUnknownSource(UnknownOutcome) {
			return DecisionState{}, NewAssemblyError(component, "UNKNOWN outcome class without %s marker", UnknownOutcome)
		}
	}

	// Irreversibility and long-horizon stakes always acknowledge what is
	// not known about them.
	if s.ReversibilityClass == Irreversible && !s.HasUnknownSource(UnknownReversibility) {
		return DecisionState{}, NewAssemblyError(component, "IRREVERSIBLE requires %s marker", UnknownReversibility)
	}
	if s.ConsequenceHorizon == LongHorizon && !s.HasUnknownSource(UnknownHorizon) {
		return DecisionState{}, NewAssemblyError(component, "LONG_HORIZON requires %s marker", UnknownHorizon)
	}
	if s.ResponsibilityScope == SystemicPublic && s.ConsequenceHorizon == ShortHorizon && !s.HasUnknownSource(UnknownHorizon) {
		return DecisionState{}, NewAssemblyError(component, "SYSTEMIC_PUBLIC with SHORT_HORIZON requires %s marker", UnknownHorizon)
	}

	return s, nil
}
