// Package stakes classifies a raw request into an immutable DecisionState.
// Classification is deterministic keyword matching over closed vocabularies;
// a dimension the rules cannot support becomes UNKNOWN plus an explicit
// unknown-zone marker, never a guess.
package stakes

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tillerhq/tiller/internal/model"
)

// Features are the raw request signals the assembler classifies. They are
// derived once from the user text and carried as booleans so the assembly
// step itself never re-reads free text.
type Features struct {
	ImmediateExecution bool // "i just ran", "doing this now", "about to"
	Commitment         bool // "i will", "i've decided", "going to"
	ValidationOfOption bool // "should i", "is it ok to", "would it be right"
	Exploratory        bool // "what if", "curious", "wondering"

	DomainHits map[model.RiskDomain]int

	IrreversibleMarkers bool // "permanent", "delete", "can't undo"
	ReversibleMarkers   bool // "draft", "trial", "can revert"
	LongHorizonMarkers  bool // "for years", "long term", "rest of my life"
	ShortHorizonMarkers bool // "today", "this week", "right now"
	OthersAffected      bool // "my team", "my family", "our users"
	PublicAffected      bool // "production", "everyone", "the public"
	IntentAmbiguous     bool // contradictory or empty intent signals
}

type keywordRule struct {
	tag      string
	keywords []string
}

// Ordered keyword tables. Linear scan, first match wins where a single tag
// is needed; counts where multiple domains may co-exist.
var proximityImmediate = []string{
	"right now", "just ran", "already started", "about to", "doing this now",
	"as we speak", "in the next hour",
}

var proximityCommitment = []string{
	"i will", "i've decided", "i have decided", "going to", "i'm planning to",
	"tomorrow i", "scheduled",
}

var proximityValidation = []string{
	"should i", "is it ok", "is it okay", "would it be right", "is it safe to",
	"good idea to", "definitely take", "definitely do",
}

var proximityExploratory = []string{
	"what if", "curious", "wondering", "hypothetically", "someday",
	"in theory", "just asking",
}

var domainKeywords = []struct {
	domain   model.RiskDomain
	keywords []string
}{
	{model.DomainMedical, []string{"headache", "aspirin", "medication", "dose", "symptom", "doctor", "diagnos", "pain", "cure", "treatment", "pill"}},
	{model.DomainLegal, []string{"contract", "lawsuit", "legal", "sue", "visa", "custody", "court", "lawyer", "liab"}},
	{model.DomainSafety, []string{"danger", "unsafe", "injury", "fire", "electric", "gas leak", "weapon", "crash"}},
	{model.DomainFinancial, []string{"invest", "loan", "mortgage", "tax", "savings", "crypto", "portfolio", "debt"}},
	{model.DomainSecurity, []string{"password", "vulnerab", "exploit", "breach", "phishing", "encrypt", "firewall"}},
	{model.DomainReputation, []string{"post publicly", "tweet", "announce", "press release", "reputation"}},
	{model.DomainTechnical, []string{"code", "bug", "deploy", "server", "database", "compile", "error", "exception", "typeerror", "migration"}},
}

var irreversibleKeywords = []string{
	"permanent", "irreversib", "delete all", "can't undo", "cannot undo",
	"wipe", "burn", "quit my job", "resign", "sell my house", "drop the table",
}

var reversibleKeywords = []string{
	"draft", "trial", "can revert", "rollback", "undo later", "temporary",
}

var longHorizonKeywords = []string{
	"for years", "long term", "long-term", "rest of my life", "retirement",
	"decade", "forever",
}

var shortHorizonKeywords = []string{
	"today", "tonight", "this week", "right now", "immediately",
}

var othersKeywords = []string{
	"my team", "my family", "my kids", "our users", "my partner",
	"coworker", "my company", "employees",
}

var publicKeywords = []string{
	"production", "everyone", "the public", "all users", "customers",
	"at scale", "nationwide",
}

// ExtractFeatures runs the keyword rules over the user text once.
func ExtractFeatures(userText string) Features {
	lower := strings.ToLower(userText)

	f := Features{DomainHits: make(map[model.RiskDomain]int)}

	containsAny := func(keys []string) bool {
		for _, k := range keys {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}

	f.ImmediateExecution = containsAny(proximityImmediate)
	f.Commitment = containsAny(proximityCommitment)
	f.ValidationOfOption = containsAny(proximityValidation)
	f.Exploratory = containsAny(proximityExploratory)

	for _, d := range domainKeywords {
		count := 0
		for _, k := range d.keywords {
			if strings.Contains(lower, k) {
				count++
			}
		}
		if count > 0 {
			f.DomainHits[d.domain] = count
		}
	}

	f.IrreversibleMarkers = containsAny(irreversibleKeywords)
	f.ReversibleMarkers = containsAny(reversibleKeywords)
	f.LongHorizonMarkers = containsAny(longHorizonKeywords)
	f.ShortHorizonMarkers = containsAny(shortHorizonKeywords)
	f.OthersAffected = containsAny(othersKeywords)
	f.PublicAffected = containsAny(publicKeywords)

	f.IntentAmbiguous = strings.TrimSpace(userText) == "" ||
		(f.Exploratory && f.ImmediateExecution)

	return f
}

// Prior is the last known stakes snapshot for the session, used to keep
// proximity monotonic within an exchange. Zero value means no prior turn.
type Prior struct {
	Proximity model.ProximityState
}

// Assemble classifies the features into a validated DecisionState.
// Missing required inputs or invariant violations fail the request closed.
func Assemble(decisionID uuid.UUID, traceID string, f Features, prior Prior) (model.DecisionState, error) {
	if decisionID == uuid.Nil || traceID == "" {
		return model.DecisionState{}, model.NewAssemblyError("decision_state", "missing decision_id or trace_id")
	}

	unknownSet := make(map[model.UnknownSource]bool)

	// Proximity ladder: immediate > commitment > validation > exploratory.
	proximity := model.ProximityVeryLow
	uncertainty := false
	switch {
	case f.ImmediateExecution:
		proximity = model.ProximityImminent
	case f.Commitment:
		proximity = model.ProximityHigh
	case f.ValidationOfOption:
		proximity = model.ProximityMedium
	case f.Exploratory:
		proximity = model.ProximityLow
		uncertainty = true
	default:
		proximity = model.ProximityVeryLow
		uncertainty = true
	}
	if uncertainty {
		unknownSet[model.UnknownProximity] = true
	}

	// Proximity never regresses within a session once a known level is set.
	if prior.Proximity != "" && prior.Proximity != model.ProximityUnknown && prior.Proximity.AtLeast(proximity) {
		proximity = prior.Proximity
	}

	// Risk domains: every hit becomes an assessment; hit count grades
	// confidence. No hits at all is an UNKNOWN domain.
	var domains []model.DomainAssessment
	for _, d := range domainKeywords {
		hits := f.DomainHits[d.domain]
		if hits == 0 {
			continue
		}
		conf := model.ConfidenceLow
		if hits >= 3 {
			conf = model.ConfidenceHigh
		} else if hits == 2 {
			conf = model.ConfidenceMedium
		}
		domains = append(domains, model.DomainAssessment{Domain: d.domain, Confidence: conf})
	}
	if len(domains) == 0 {
		domains = []model.DomainAssessment{{Domain: model.DomainUnknown, Confidence: model.ConfidenceUnknown}}
		unknownSet[model.UnknownDomain] = true
	}

	// Reversibility.
	reversibility := model.ReversibilityUnknown
	switch {
	case f.IrreversibleMarkers:
		reversibility = model.Irreversible
		// Irreversibility always carries its own uncertainty marker: the
		// rules can detect the claim, not verify it.
		unknownSet[model.UnknownReversibility] = true
	case f.ReversibleMarkers:
		reversibility = model.Reversible
	default:
		unknownSet[model.UnknownReversibility] = true
	}

	// Horizon.
	horizon := model.HorizonUnknown
	switch {
	case f.LongHorizonMarkers:
		horizon = model.LongHorizon
		unknownSet[model.UnknownHorizon] = true
	case f.ShortHorizonMarkers:
		horizon = model.ShortHorizon
	default:
		unknownSet[model.UnknownHorizon] = true
	}

	// Responsibility scope.
	scope := model.SelfOnly
	switch {
	case f.PublicAffected:
		scope = model.SystemicPublic
		if horizon == model.ShortHorizon {
			unknownSet[model.UnknownHorizon] = true
		}
	case f.OthersAffected:
		scope = model.OthersLimited
	}

	// Outcome classes follow the assessed domains.
	outcomeSet := make(map[model.OutcomeClass]bool)
	var outcomes []model.OutcomeClass
	addOutcome := func(o model.OutcomeClass) {
		if !outcomeSet[o] {
			outcomeSet[o] = true
			outcomes = append(outcomes, o)
		}
	}
	for _, d := range domains {
		switch d.Domain {
		case model.DomainMedical, model.DomainSafety:
			addOutcome(model.OutcomeHealth)
		case model.DomainLegal:
			addOutcome(model.OutcomeLegalStanding)
		case model.DomainFinancial:
			addOutcome(model.OutcomeMaterial)
		case model.DomainReputation:
			addOutcome(model.OutcomeRelational)
		case model.DomainTechnical, model.DomainSecurity:
			addOutcome(model.OutcomeInformational)
		default:
			addOutcome(model.OutcomeUnknown)
		}
	}
	if outcomeSet[model.OutcomeUnknown] {
		unknownSet[model.UnknownOutcome] = true
	}

	if f.IntentAmbiguous {
		unknownSet[model.UnknownIntent] = true
	}

	// Emit unknown sources in a fixed order for determinism.
	var unknowns []model.UnknownSource
	for _, u := range []model.UnknownSource{
		model.UnknownProximity, model.UnknownDomain, model.UnknownReversibility,
		model.UnknownHorizon, model.UnknownScope, model.UnknownOutcome,
		model.UnknownIntent,
	} {
		if unknownSet[u] {
			unknowns = append(unknowns, u)
		}
	}

	return model.NewDecisionState(model.DecisionState{
		DecisionID:           decisionID,
		TraceID:              traceID,
		PhaseMarker:          "assembled",
		SchemaVersion:        model.SchemaVersion,
		ProximityState:       proximity,
		ProximityUncertainty: uncertainty,
		RiskDomains:          domains,
		ReversibilityClass:   reversibility,
		ConsequenceHorizon:   horizon,
		ResponsibilityScope:  scope,
		OutcomeClasses:       outcomes,
		ExplicitUnknownZone:  unknowns,
	})
}
