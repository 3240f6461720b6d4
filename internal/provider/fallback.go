package provider

import (
	"strings"
	"unicode/utf8"

	"github.com/tillerhq/tiller/internal/model"
)

// refusalTemplates are the deterministic refusal texts per category. None of
// them mention capability limits except the capability template itself.
var refusalTemplates = map[model.RefusalCategory]string{
	model.RefusalGovernance:      "I can't help with this request.",
	model.RefusalRisk:            "I can't help with this as asked. The potential for harm is too high to act on what I know so far.",
	model.RefusalIrreversibility: "I can't help with this as asked. The step you describe can't be undone, and I don't have enough to act on safely.",
	model.RefusalThirdParty:      "I can't help with this as asked. It would affect people who aren't part of this conversation.",
	model.RefusalCapability:      "I'm not able to help with this request reliably, so I'd rather not guess.",
}

// fallbackQuestions are the deterministic clarifying questions per class.
// Each contains exactly one question mark.
var fallbackQuestions = map[model.QuestionClass]string{
	model.QuestionSafetyLegal:     "Before I go further, is anyone at immediate risk of harm in this situation?",
	model.QuestionIrreversibility: "Before anything permanent happens, can the step you're considering still be undone?",
	model.QuestionResponsibility:  "Who else would be affected if this goes ahead?",
	model.QuestionConstraints:     "What constraints are you working within here?",
	model.QuestionIntent:          "What outcome are you actually hoping for?",
	model.QuestionInformational:   "Could you share a bit more detail about the situation?",
}

const fallbackAnswerTemplate = "Here's a careful take based on what you've shared. I can be more specific with more detail, and I'd treat anything time-critical or irreversible with extra care."

// closureTexts are the deterministic closing lines per rendering mode.
var closureTexts = map[model.ClosureRenderingMode]string{
	model.ClosureRenderSilent:   "",
	model.ClosureRenderAckBrief: "Understood. Wrapping up here.",
	model.ClosureRenderAckFinal: "Understood. This conversation is closed on my side. Take care.",
}

func hasUnknownMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range unknownMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// capBytes bounds s to max bytes without splitting a rune.
func capBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// Fallback produces the deterministic rendering for a plan without any model
// involvement. It always satisfies the same contract Verify enforces.
func Fallback(in RenderInput) Verified {
	limit := in.Plan.VerbosityCap.Chars()

	switch in.Plan.Action {
	case model.ActionAskOneQuestion:
		q := ""
		class := model.QuestionInformational
		reason := "more context is needed before a dependable reply"
		if in.Plan.QuestionSpec != nil {
			class = in.Plan.QuestionSpec.Class
			if in.Plan.QuestionSpec.PriorityReason != "" {
				reason = in.Plan.QuestionSpec.PriorityReason
			}
		}
		if in.Draft.ClarifyQuestion != "" && strings.Count(in.Draft.ClarifyQuestion, "?") == 1 {
			q = in.Draft.ClarifyQuestion
		} else {
			q = fallbackQuestions[class]
		}
		if q == "" {
			q = fallbackQuestions[model.QuestionInformational]
		}
		q = capBytes(q, model.MaxClarifyQuestionChars)
		return Verified{
			Text: q,
			Ask: &AskPayload{
				Question:       q,
				QuestionClass:  string(class),
				PriorityReason: reason,
			},
		}

	case model.ActionRefuse:
		category := model.RefusalCapability
		if in.Plan.RefusalSpec != nil {
			category = in.Plan.RefusalSpec.Category
		}
		text := refusalTemplates[category]
		if text == "" {
			text = refusalTemplates[model.RefusalCapability]
		}
		text = capBytes(text, limit)
		return Verified{
			Text:   text,
			Refuse: &RefusePayload{RefusalCategory: string(category), RefusalText: text},
		}

	case model.ActionClose:
		mode := model.ClosureRenderAckBrief
		if in.Plan.ClosureSpec != nil {
			mode = in.Plan.ClosureSpec.Mode
		}
		return Verified{Text: capBytes(closureTexts[mode], limit)}

	default:
		text := in.Draft.Answer
		if text == "" {
			text = fallbackAnswerTemplate
		}
		// The draft may carry certainty markers the plan forbids; the template
		// never does, so swap it in rather than rewrite the draft.
		if in.Plan.ConfidenceSignaling != model.SignalExplicit {
			lower := strings.ToLower(text)
			for _, claim := range absoluteClaims {
				if strings.Contains(lower, claim) {
					text = fallbackAnswerTemplate
					break
				}
			}
		}
		if in.Plan.UnknownDisclosure != model.DisclosureNone {
			const marker = " Parts of this are unknown to me, so treat it as a starting point."
			// Truncation runs first, then the marker check against what is
			// actually left, so the cap can never eat the marker the
			// verifier requires.
			capped := capBytes(text, limit)
			if !hasUnknownMarker(capped) {
				reserve := limit - len(marker)
				if reserve < 0 {
					reserve = 0
				}
				capped = capBytes(text, reserve) + marker
			}
			return Verified{Text: capped}
		}
		return Verified{Text: capBytes(text, limit)}
	}
}
