package deepthink

import (
	"strings"

	"github.com/tillerhq/tiller/internal/model"
)

// RequestDomain is the stress-test pass's closed domain set.
type RequestDomain string

const (
	DomainGeneric        RequestDomain = "GENERIC"
	DomainCodeTech       RequestDomain = "CODE_TECH"
	DomainDeployDevops   RequestDomain = "DEPLOY_DEVOPS"
	DomainSecurityPriv   RequestDomain = "SECURITY_PRIVACY"
	DomainLegalPolicy    RequestDomain = "LEGAL_POLICY"
	DomainMedicalHealth  RequestDomain = "MEDICAL_HEALTH"
	DomainFinanceTax     RequestDomain = "FINANCE_TAX"
	DomainTravelLocal    RequestDomain = "TRAVEL_LOCAL"
	DomainPurchaseRec    RequestDomain = "PURCHASE_RECOMMENDATION"
)

// criticalInput is one input class a domain needs before an answer is
// reliable. The presence keywords detect it in the request; the humanized
// phrase goes into the clarifying question.
type criticalInput struct {
	class    string
	phrase   string
	presence []string
}

// domainRules is an ordered table: the first domain whose keywords match
// wins. Order encodes specificity, deploy before generic tech, health and
// legal before purchase.
var domainRules = []struct {
	domain   RequestDomain
	keywords []string
	inputs   []criticalInput
}{
	{
		domain:   DomainMedicalHealth,
		keywords: []string{"headache", "aspirin", "medication", "symptom", "dose", "doctor", "pain", "fever", "cure"},
		inputs: []criticalInput{
			{class: "symptom_duration", phrase: "how long the symptoms have lasted", presence: []string{"for a day", "for days", "since", "hours", "weeks"}},
			{class: "existing_conditions", phrase: "any existing conditions or medications", presence: []string{"condition", "allerg", "taking", "prescrib"}},
		},
	},
	{
		domain:   DomainSecurityPriv,
		keywords: []string{"password", "breach", "vulnerab", "encrypt", "privacy", "phishing", "leak"},
		inputs: []criticalInput{
			{class: "data_sensitivity", phrase: "what kind of data is involved", presence: []string{"personal data", "pii", "customer data", "internal data"}},
			{class: "exposure_scope", phrase: "who may have been exposed", presence: []string{"exposed", "affected users", "only me", "nobody else"}},
		},
	},
	{
		domain:   DomainLegalPolicy,
		keywords: []string{"contract", "lawsuit", "legal", "visa", "custody", "court", "regulation"},
		inputs: []criticalInput{
			{class: "jurisdiction", phrase: "which country or state applies", presence: []string{"in the us", "in germany", "in the uk", "jurisdiction", "state of"}},
			{class: "deadline_pressure", phrase: "whether a deadline is involved", presence: []string{"deadline", "due", "by the end of"}},
		},
	},
	{
		domain:   DomainDeployDevops,
		keywords: []string{"deploy", "rollout", "kubernetes", "docker", "production", "migration", "infrastructure"},
		inputs: []criticalInput{
			{class: "target_environment", phrase: "which environment this targets", presence: []string{"staging", "production env", "dev environment", "cluster name"}},
			{class: "rollback_plan", phrase: "whether you can roll back", presence: []string{"rollback", "revert", "backup"}},
		},
	},
	{
		domain:   DomainCodeTech,
		keywords: []string{"code", "bug", "error", "exception", "compile", "typeerror", "stack trace", "function", "crash"},
		inputs: []criticalInput{
			{class: "language_runtime", phrase: "which language or runtime you are using", presence: []string{"python", "go ", "golang", "javascript", "typescript", "java ", "rust", "ruby", "node", "c++", "c#"}},
			{class: "error_context", phrase: "where exactly the failure happens", presence: []string{"on line", "in the function", "when i call", "during startup"}},
		},
	},
	{
		domain:   DomainFinanceTax,
		keywords: []string{"invest", "tax", "loan", "mortgage", "portfolio", "savings", "crypto"},
		inputs: []criticalInput{
			{class: "time_horizon", phrase: "your intended time horizon", presence: []string{"short term", "long term", "years", "months"}},
			{class: "risk_tolerance", phrase: "how much loss you can tolerate", presence: []string{"risk tolerance", "afford to lose", "conservative", "aggressive"}},
		},
	},
	{
		domain:   DomainTravelLocal,
		keywords: []string{"flight", "hotel", "itinerary", "travel", "trip to", "visit"},
		inputs: []criticalInput{
			{class: "travel_dates", phrase: "your travel dates", presence: []string{"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december", "next week", "on the"}},
			{class: "origin_destination", phrase: "where you are starting from", presence: []string{"from ", "leaving", "departing"}},
		},
	},
	{
		domain:   DomainPurchaseRec,
		keywords: []string{"which should i buy", "recommend a", "best laptop", "best phone", "worth buying", "purchase"},
		inputs: []criticalInput{
			{class: "budget_range", phrase: "your budget range", presence: []string{"$", "budget", "under ", "up to"}},
			{class: "primary_use", phrase: "what you will mainly use it for", presence: []string{"for gaming", "for work", "for school", "mainly for"}},
		},
	},
}

// classifyDomain runs the ordered keyword scan; first match wins.
func classifyDomain(request string) RequestDomain {
	lower := strings.ToLower(request)
	for _, rule := range domainRules {
		for _, k := range rule.keywords {
			if strings.Contains(lower, k) {
				return rule.domain
			}
		}
	}
	return DomainGeneric
}

// missingCriticalInputs returns the humanized phrases of the domain's
// critical input classes not detected in the request, capped at three.
func missingCriticalInputs(domain RequestDomain, request string) []string {
	lower := strings.ToLower(request)
	var missing []string
	for _, rule := range domainRules {
		if rule.domain != domain {
			continue
		}
		for _, in := range rule.inputs {
			found := false
			for _, p := range in.presence {
				if strings.Contains(lower, p) {
					found = true
					break
				}
			}
			if !found {
				missing = append(missing, in.phrase)
			}
			if len(missing) == 3 {
				return missing
			}
		}
	}
	return missing
}

// buildClarifyQuestion joins the missing input phrases into one question
// with exactly one question mark, then sanitizes it.
func buildClarifyQuestion(missing []string) string {
	var q string
	switch len(missing) {
	case 1:
		q = "To give a reliable answer, could you share " + missing[0] + "?"
	case 2:
		q = "To give a reliable answer, could you share " + missing[0] + " and " + missing[1] + "?"
	default:
		q = "To give a reliable answer, could you share " + missing[0] + ", " + missing[1] + ", and " + missing[2] + "?"
	}
	return sanitizeClarifyQuestion(clampChars(q, model.MaxClarifyQuestionChars))
}

// runStressTest classifies the request and forces a clarifying question
// whenever a critical input class is missing for the matched domain.
func runStressTest(s State, ctx EngineContext) PassOutput {
	domain := classifyDomain(s.Request)
	missing := missingCriticalInputs(domain, s.Request)

	var ops []model.PatchOp
	if len(missing) > 0 {
		ops = []model.PatchOp{
			setOp(model.PathAction, string(model.DraftAskOneQuestion)),
			setOp(model.PathClarifyQuestion, buildClarifyQuestion(missing)),
			setOp(model.PathRationale, clampChars(
				"Required inputs for a dependable answer are missing from the request.",
				model.MaxRationaleChars)),
		}
	} else {
		// Domain held up under stress: record that and move on.
		ops = []model.PatchOp{
			setOp(model.PathRationale, clampChars(tighten(s.Decision.Rationale), model.MaxRationaleChars)),
		}
	}

	delta := model.DecisionDelta{Ops: ops}
	cost, dur := passCost(s, len(ops))
	return PassOutput{Delta: delta, CostUnits: cost, DurationMS: dur}
}
