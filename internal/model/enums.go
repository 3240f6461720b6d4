// Package model defines the closed vocabularies and immutable records the
// decision pipeline operates on. Every enum is a closed set; anything outside
// a set is an invariant violation, never a default.
package model

// ProximityState places a request on the execution-proximity ladder.
type ProximityState string

const (
	ProximityVeryLow  ProximityState = "VERY_LOW"
	ProximityLow      ProximityState = "LOW"
	ProximityMedium   ProximityState = "MEDIUM"
	ProximityHigh     ProximityState = "HIGH"
	ProximityImminent ProximityState = "IMMINENT"
	ProximityUnknown  ProximityState = "UNKNOWN"
)

// proximityRank orders the ladder for monotonicity checks. UNKNOWN has no rank.
var proximityRank = map[ProximityState]int{
	ProximityVeryLow:  0,
	ProximityLow:      1,
	ProximityMedium:   2,
	ProximityHigh:     3,
	ProximityImminent: 4,
}

// Valid reports whether p is a member of the closed set.
func (p ProximityState) Valid() bool {
	_, ok := proximityRank[p]
	return ok || p == ProximityUnknown
}

// AtLeast reports whether p is at or above other on the ladder.
// UNKNOWN is never at or above anything.
func (p ProximityState) AtLeast(other ProximityState) bool {
	pr, ok1 := proximityRank[p]
	or, ok2 := proximityRank[other]
	return ok1 && ok2 && pr >= or
}

// RiskDomain labels the area of consequence a request touches.
type RiskDomain string

const (
	DomainSafety     RiskDomain = "SAFETY"
	DomainMedical    RiskDomain = "MEDICAL"
	DomainLegal      RiskDomain = "LEGAL"
	DomainFinancial  RiskDomain = "FINANCIAL"
	DomainSecurity   RiskDomain = "SECURITY"
	DomainReputation RiskDomain = "REPUTATION"
	DomainTechnical  RiskDomain = "TECHNICAL"
	DomainGeneral    RiskDomain = "GENERAL"
	DomainUnknown    RiskDomain = "UNKNOWN"
)

var riskDomains = map[RiskDomain]bool{
	DomainSafety: true, DomainMedical: true, DomainLegal: true,
	DomainFinancial: true, DomainSecurity: true, DomainReputation: true,
	DomainTechnical: true, DomainGeneral: true, DomainUnknown: true,
}

// Valid reports whether d is a member of the closed set.
func (d RiskDomain) Valid() bool { return riskDomains[d] }

// Critical reports whether d is one of the domains that force elevated rigor.
func (d RiskDomain) Critical() bool {
	return d == DomainSafety || d == DomainMedical || d == DomainLegal
}

// Confidence grades how well the classifier supported a label.
type Confidence string

const (
	ConfidenceLow     Confidence = "LOW"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceUnknown Confidence = "UNKNOWN"
)

// Valid reports whether c is a member of the closed set.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh, ConfidenceUnknown:
		return true
	}
	return false
}

// ReversibilityClass grades how recoverable the contemplated action is.
type ReversibilityClass string

const (
	Reversible            ReversibilityClass = "REVERSIBLE"
	PartiallyReversible   ReversibilityClass = "PARTIALLY_REVERSIBLE"
	Irreversible          ReversibilityClass = "IRREVERSIBLE"
	ReversibilityUnknown  ReversibilityClass = "UNKNOWN"
)

// Valid reports whether r is a member of the closed set.
func (r ReversibilityClass) Valid() bool {
	switch r {
	case Reversible, PartiallyReversible, Irreversible, ReversibilityUnknown:
		return true
	}
	return false
}

// ConsequenceHorizon grades how long consequences persist.
type ConsequenceHorizon string

const (
	ShortHorizon   ConsequenceHorizon = "SHORT_HORIZON"
	MediumHorizon  ConsequenceHorizon = "MEDIUM_HORIZON"
	LongHorizon    ConsequenceHorizon = "LONG_HORIZON"
	HorizonUnknown ConsequenceHorizon = "UNKNOWN"
)

// Valid reports whether h is a member of the closed set.
func (h ConsequenceHorizon) Valid() bool {
	switch h {
	case ShortHorizon, MediumHorizon, LongHorizon, HorizonUnknown:
		return true
	}
	return false
}

// ResponsibilityScope grades who bears the consequences.
type ResponsibilityScope string

const (
	SelfOnly         ResponsibilityScope = "SELF_ONLY"
	OthersLimited    ResponsibilityScope = "OTHERS_LIMITED"
	SystemicPublic   ResponsibilityScope = "SYSTEMIC_PUBLIC"
	ScopeUnknown     ResponsibilityScope = "UNKNOWN"
)

// Valid reports whether s is a member of the closed set.
func (s ResponsibilityScope) Valid() bool {
	switch s {
	case SelfOnly, OthersLimited, SystemicPublic, ScopeUnknown:
		return true
	}
	return false
}

// OutcomeClass names a category of consequence the request could produce.
type OutcomeClass string

const (
	OutcomeMaterial      OutcomeClass = "MATERIAL"
	OutcomeHealth        OutcomeClass = "HEALTH"
	OutcomeLegalStanding OutcomeClass = "LEGAL_STANDING"
	OutcomeRelational    OutcomeClass = "RELATIONAL"
	OutcomeInformational OutcomeClass = "INFORMATIONAL"
	OutcomeUnknown       OutcomeClass = "UNKNOWN"
)

// Valid reports whether o is a member of the closed set.
func (o OutcomeClass) Valid() bool {
	switch o {
	case OutcomeMaterial, OutcomeHealth, OutcomeLegalStanding,
		OutcomeRelational, OutcomeInformational, OutcomeUnknown:
		return true
	}
	return false
}

// UnknownSource names which stakes dimension could not be classified.
// Any UNKNOWN selector in a DecisionState must be mirrored here.
type UnknownSource string

const (
	UnknownProximity     UnknownSource = "PROXIMITY_UNCLEAR"
	UnknownDomain        UnknownSource = "DOMAIN_UNCLEAR"
	UnknownReversibility UnknownSource = "REVERSIBILITY_UNCLEAR"
	UnknownHorizon       UnknownSource = "HORIZON_UNCLEAR"
	UnknownScope         UnknownSource = "SCOPE_UNCLEAR"
	UnknownOutcome       UnknownSource = "OUTCOME_UNCLEAR"
	UnknownIntent        UnknownSource = "INTENT_UNCLEAR"
)

// Valid reports whether u is a member of the closed set.
func (u UnknownSource) Valid() bool {
	switch u {
	case UnknownProximity, UnknownDomain, UnknownReversibility,
		UnknownHorizon, UnknownScope, UnknownOutcome, UnknownIntent:
		return true
	}
	return false
}

// ControlAction is the orchestrator's verdict on what the response may do.
type ControlAction string

const (
	ControlAnswerAllowed  ControlAction = "ANSWER_ALLOWED"
	ControlAskOneQuestion ControlAction = "ASK_ONE_QUESTION"
	ControlRefuse         ControlAction = "REFUSE"
	ControlClose          ControlAction = "CLOSE"
)

// Valid reports whether a is a member of the closed set.
func (a ControlAction) Valid() bool {
	switch a {
	case ControlAnswerAllowed, ControlAskOneQuestion, ControlRefuse, ControlClose:
		return true
	}
	return false
}

// RigorLevel is the orchestrator's reasoning-discipline lattice. Bump-only.
type RigorLevel string

const (
	RigorMinimal    RigorLevel = "MINIMAL"
	RigorGuarded    RigorLevel = "GUARDED"
	RigorStructured RigorLevel = "STRUCTURED"
	RigorEnforced   RigorLevel = "ENFORCED"
)

var rigorRank = map[RigorLevel]int{
	RigorMinimal: 0, RigorGuarded: 1, RigorStructured: 2, RigorEnforced: 3,
}

// Valid reports whether r is a member of the closed set.
func (r RigorLevel) Valid() bool { _, ok := rigorRank[r]; return ok }

// AtLeast reports whether r is at or above other on the lattice.
func (r RigorLevel) AtLeast(other RigorLevel) bool {
	return rigorRank[r] >= rigorRank[other]
}

// Bump returns the higher of r and other. Never demotes.
func (r RigorLevel) Bump(other RigorLevel) RigorLevel {
	if rigorRank[other] > rigorRank[r] {
		return other
	}
	return r
}

// FrictionPosture is how much deliberate slowdown the reply carries.
type FrictionPosture string

const (
	FrictionNone      FrictionPosture = "NONE"
	FrictionSoftPause FrictionPosture = "SOFT_PAUSE"
	FrictionHardPause FrictionPosture = "HARD_PAUSE"
	FrictionStop      FrictionPosture = "STOP"
)

var frictionRank = map[FrictionPosture]int{
	FrictionNone: 0, FrictionSoftPause: 1, FrictionHardPause: 2, FrictionStop: 3,
}

// Valid reports whether f is a member of the closed set.
func (f FrictionPosture) Valid() bool { _, ok := frictionRank[f]; return ok }

// Bump returns the higher of f and other.
func (f FrictionPosture) Bump(other FrictionPosture) FrictionPosture {
	if frictionRank[other] > frictionRank[f] {
		return other
	}
	return f
}

// ClarificationReason records why exactly one question is being asked.
type ClarificationReason string

const (
	ClarifyNone                    ClarificationReason = "NONE"
	ClarifyCriticalLowConfidence   ClarificationReason = "CRITICAL_DOMAIN_LOW_CONFIDENCE"
	ClarifyIrreversibleUnknowns    ClarificationReason = "IRREVERSIBLE_WITH_UNKNOWNS"
	ClarifyImminentUnconfirmed     ClarificationReason = "IMMINENT_UNCONFIRMED"
	ClarifyScopeExposure           ClarificationReason = "THIRD_PARTY_EXPOSURE"
	ClarifyIntentAmbiguous         ClarificationReason = "INTENT_AMBIGUOUS"
)

// Valid reports whether c is a member of the closed set.
func (c ClarificationReason) Valid() bool {
	switch c {
	case ClarifyNone, ClarifyCriticalLowConfidence, ClarifyIrreversibleUnknowns,
		ClarifyImminentUnconfirmed, ClarifyScopeExposure, ClarifyIntentAmbiguous:
		return true
	}
	return false
}

// QuestionClass is the single compressed question's category, in strict
// priority order: safety/legal > irreversibility > responsibility >
// constraints > intent ambiguity > informational fallback.
type QuestionClass string

const (
	QuestionNone            QuestionClass = "NONE"
	QuestionSafetyLegal     QuestionClass = "SAFETY_LEGAL_GATE"
	QuestionIrreversibility QuestionClass = "IRREVERSIBILITY_GATE"
	QuestionResponsibility  QuestionClass = "RESPONSIBILITY_GATE"
	QuestionConstraints     QuestionClass = "CONSTRAINTS_GATE"
	QuestionIntent          QuestionClass = "INTENT_DISAMBIGUATION"
	QuestionInformational   QuestionClass = "INFORMATIONAL_GAP"
)

// Valid reports whether q is a member of the closed set.
func (q QuestionClass) Valid() bool {
	switch q {
	case QuestionNone, QuestionSafetyLegal, QuestionIrreversibility,
		QuestionResponsibility, QuestionConstraints, QuestionIntent,
		QuestionInformational:
		return true
	}
	return false
}

// InitiativeBudget bounds unsolicited additions to the reply.
type InitiativeBudget string

const (
	InitiativeNone       InitiativeBudget = "NONE"
	InitiativeOnce       InitiativeBudget = "ONCE"
	InitiativeStrictOnce InitiativeBudget = "STRICT_ONCE"
)

// Valid reports whether i is a member of the closed set.
func (i InitiativeBudget) Valid() bool {
	switch i {
	case InitiativeNone, InitiativeOnce, InitiativeStrictOnce:
		return true
	}
	return false
}

// ClosureState tracks whether the exchange is winding down.
type ClosureState string

const (
	ClosureOpen           ClosureState = "OPEN"
	ClosureClosing        ClosureState = "CLOSING"
	ClosureClosed         ClosureState = "CLOSED"
	ClosureUserTerminated ClosureState = "USER_TERMINATED"
)

// Valid reports whether c is a member of the closed set.
func (c ClosureState) Valid() bool {
	switch c {
	case ClosureOpen, ClosureClosing, ClosureClosed, ClosureUserTerminated:
		return true
	}
	return false
}

// RefusalCategory labels why a refusal is required.
type RefusalCategory string

const (
	RefusalNone            RefusalCategory = "NONE"
	RefusalGovernance      RefusalCategory = "GOVERNANCE_REFUSAL"
	RefusalRisk            RefusalCategory = "RISK_REFUSAL"
	RefusalIrreversibility RefusalCategory = "IRREVERSIBILITY_REFUSAL"
	RefusalThirdParty      RefusalCategory = "THIRD_PARTY_REFUSAL"
	RefusalCapability      RefusalCategory = "CAPABILITY_REFUSAL"
)

// Valid reports whether r is a member of the closed set.
func (r RefusalCategory) Valid() bool {
	switch r {
	case RefusalNone, RefusalGovernance, RefusalRisk, RefusalIrreversibility,
		RefusalThirdParty, RefusalCapability:
		return true
	}
	return false
}

// OutputAction is the structural form of the final user-visible reply.
type OutputAction string

const (
	ActionAnswer         OutputAction = "ANSWER"
	ActionAskOneQuestion OutputAction = "ASK_ONE_QUESTION"
	ActionRefuse         OutputAction = "REFUSE"
	ActionClose          OutputAction = "CLOSE"
)

// Valid reports whether a is a member of the closed set.
func (a OutputAction) Valid() bool {
	switch a {
	case ActionAnswer, ActionAskOneQuestion, ActionRefuse, ActionClose:
		return true
	}
	return false
}

// Posture is the overall expressive stance of the reply.
type Posture string

const (
	PostureBaseline    Posture = "BASELINE"
	PostureGuarded     Posture = "GUARDED"
	PostureConstrained Posture = "CONSTRAINED"
)

var postureRank = map[Posture]int{
	PostureBaseline: 0, PostureGuarded: 1, PostureConstrained: 2,
}

// Valid reports whether p is a member of the closed set.
func (p Posture) Valid() bool { _, ok := postureRank[p]; return ok }

// Bump returns the higher of p and other.
func (p Posture) Bump(other Posture) Posture {
	if postureRank[other] > postureRank[p] {
		return other
	}
	return p
}

// DisclosureLevel is a shared three-step lattice used by the rigor,
// unknown and assumption disclosure selectors.
type DisclosureLevel string

const (
	DisclosureNone     DisclosureLevel = "NONE"
	DisclosureBrief    DisclosureLevel = "BRIEF"
	DisclosureExplicit DisclosureLevel = "EXPLICIT"
)

var disclosureRank = map[DisclosureLevel]int{
	DisclosureNone: 0, DisclosureBrief: 1, DisclosureExplicit: 2,
}

// Valid reports whether d is a member of the closed set.
func (d DisclosureLevel) Valid() bool { _, ok := disclosureRank[d]; return ok }

// Bump returns the higher of d and other.
func (d DisclosureLevel) Bump(other DisclosureLevel) DisclosureLevel {
	if disclosureRank[other] > disclosureRank[d] {
		return other
	}
	return d
}

// ConfidenceSignaling is how explicitly the reply marks its own certainty.
type ConfidenceSignaling string

const (
	SignalNone     ConfidenceSignaling = "NONE"
	SignalHedged   ConfidenceSignaling = "HEDGED"
	SignalExplicit ConfidenceSignaling = "EXPLICIT"
)

var signalRank = map[ConfidenceSignaling]int{
	SignalNone: 0, SignalHedged: 1, SignalExplicit: 2,
}

// Valid reports whether c is a member of the closed set.
func (c ConfidenceSignaling) Valid() bool { _, ok := signalRank[c]; return ok }

// Bump returns the higher of c and other.
func (c ConfidenceSignaling) Bump(other ConfidenceSignaling) ConfidenceSignaling {
	if signalRank[other] > signalRank[c] {
		return other
	}
	return c
}

// VerbosityCap bounds the rendered reply's length class.
type VerbosityCap string

const (
	VerbosityTerse    VerbosityCap = "TERSE"
	VerbosityNormal   VerbosityCap = "NORMAL"
	VerbosityDetailed VerbosityCap = "DETAILED"
)

// Valid reports whether v is a member of the closed set.
func (v VerbosityCap) Valid() bool {
	switch v {
	case VerbosityTerse, VerbosityNormal, VerbosityDetailed:
		return true
	}
	return false
}

// Chars returns the character budget for the cap.
func (v VerbosityCap) Chars() int {
	switch v {
	case VerbosityTerse:
		return 220
	case VerbosityDetailed:
		return 1200
	default:
		return 600
	}
}

// RefusalExplanationMode is how much of the refusal's reasoning is shown.
type RefusalExplanationMode string

const (
	RefusalExplainCategoryOnly RefusalExplanationMode = "CATEGORY_ONLY"
	RefusalExplainBrief        RefusalExplanationMode = "BRIEF_REASON"
	RefusalExplainFull         RefusalExplanationMode = "FULL_REASON"
)

// Valid reports whether m is a member of the closed set.
func (m RefusalExplanationMode) Valid() bool {
	switch m {
	case RefusalExplainCategoryOnly, RefusalExplainBrief, RefusalExplainFull:
		return true
	}
	return false
}

// ClosureRenderingMode is how a non-OPEN closure is rendered.
type ClosureRenderingMode string

const (
	ClosureRenderSilent   ClosureRenderingMode = "SILENT"
	ClosureRenderAckBrief ClosureRenderingMode = "ACK_BRIEF"
	ClosureRenderAckFinal ClosureRenderingMode = "ACK_FINAL"
)

// Valid reports whether m is a member of the closed set.
func (m ClosureRenderingMode) Valid() bool {
	switch m {
	case ClosureRenderSilent, ClosureRenderAckBrief, ClosureRenderAckFinal:
		return true
	}
	return false
}

// StopReason ends a deep-think run. Priority order is fixed: when several
// trigger simultaneously the highest wins.
type StopReason string

const (
	StopInternalInconsistency StopReason = "INTERNAL_INCONSISTENCY"
	StopAbuse                 StopReason = "ABUSE"
	StopEntitlementCap        StopReason = "ENTITLEMENT_CAP"
	StopBreakerTripped        StopReason = "BREAKER_TRIPPED"
	StopBudgetExhausted       StopReason = "BUDGET_EXHAUSTED"
	StopTimeout               StopReason = "TIMEOUT"
	StopValidationFail        StopReason = "VALIDATION_FAIL"
	StopPassLimitReached      StopReason = "PASS_LIMIT_REACHED"
	StopSuccessCompleted      StopReason = "SUCCESS_COMPLETED"
)

// stopPriority: lower value = higher priority.
var stopPriority = map[StopReason]int{
	StopInternalInconsistency: 0,
	StopAbuse:                 1,
	StopEntitlementCap:        2,
	StopBreakerTripped:        3,
	StopBudgetExhausted:       4,
	StopTimeout:               5,
	StopValidationFail:        6,
	StopPassLimitReached:      7,
	StopSuccessCompleted:      8,
}

// Valid reports whether s is a member of the closed set.
func (s StopReason) Valid() bool { _, ok := stopPriority[s]; return ok }

// HighestPriority returns the highest-priority reason among the given
// candidates, or "" when none are set.
func HighestPriority(reasons ...StopReason) StopReason {
	best := StopReason("")
	bestRank := len(stopPriority)
	for _, r := range reasons {
		if r == "" {
			continue
		}
		if rank, ok := stopPriority[r]; ok && rank < bestRank {
			best, bestRank = r, rank
		}
	}
	return best
}

// PassType names one deep-think refinement pass.
type PassType string

const (
	PassRefine       PassType = "REFINE"
	PassCounterarg   PassType = "COUNTERARG"
	PassStressTest   PassType = "STRESS_TEST"
	PassAlternatives PassType = "ALTERNATIVES"
	PassRegret       PassType = "REGRET"
)

// Valid reports whether p is a member of the closed set.
func (p PassType) Valid() bool {
	switch p {
	case PassRefine, PassCounterarg, PassStressTest, PassAlternatives, PassRegret:
		return true
	}
	return false
}

// EntitlementTier gates deep-think capacity.
type EntitlementTier string

const (
	TierFree EntitlementTier = "FREE"
	TierPro  EntitlementTier = "PRO"
	TierMax  EntitlementTier = "MAX"
)

// Valid reports whether t is a member of the closed set.
func (t EntitlementTier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierMax:
		return true
	}
	return false
}

// PassCap returns the maximum deep-think passes for the tier.
func (t EntitlementTier) PassCap() int {
	switch t {
	case TierPro:
		return 3
	case TierMax:
		return 5
	default:
		return 0
	}
}

// DraftAction is the working decision's action inside the deep-think loop.
// Patches may only move it within this set.
type DraftAction string

const (
	DraftAnswer         DraftAction = "ANSWER"
	DraftAskOneQuestion DraftAction = "ASK_ONE_QUESTION"
	DraftFallback       DraftAction = "FALLBACK"
)

// Valid reports whether a is a member of the closed set.
func (a DraftAction) Valid() bool {
	switch a {
	case DraftAnswer, DraftAskOneQuestion, DraftFallback:
		return true
	}
	return false
}

// UXState is the coarse conversational state surfaced to clients.
type UXState string

const (
	UXOpen           UXState = "open"
	UXAwaitingAnswer UXState = "awaiting_answer"
	UXRefused        UXState = "refused"
	UXClosed         UXState = "closed"
	UXCooldown       UXState = "cooldown"
)

// Valid reports whether u is a member of the closed set.
func (u UXState) Valid() bool {
	switch u {
	case UXOpen, UXAwaitingAnswer, UXRefused, UXClosed, UXCooldown:
		return true
	}
	return false
}
