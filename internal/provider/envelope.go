// Package provider renders the final user-visible text. It wraps a single
// bounded model call in a strict pipeline: envelope build, call, schema
// verification, sanitization, and a deterministic fallback. The model has no
// authority here; anything that deviates from the OutputPlan is discarded
// and replaced by template content.
package provider

import (
	"fmt"
	"strings"

	"github.com/tillerhq/tiller/internal/deepthink"
	"github.com/tillerhq/tiller/internal/model"
)

// forbiddenEnvelopeTokens must never appear in an outbound prompt. The
// envelope carries constraints and content, never internal identifiers.
var forbiddenEnvelopeTokens = []string{
	"DecisionState", "ControlPlan", "trace_id", "audit", "governance", "memory",
}

// RenderInput is everything the pipeline may use: the final OutputPlan, the
// refined draft, and the user text the reply responds to.
type RenderInput struct {
	Plan     model.OutputPlan
	Draft    deepthink.Decision
	UserText string
}

// BuildEnvelope produces the outbound prompt. It enumerates the constraint
// tags, the content basis, and the required output format, then rejects
// itself if any forbidden token leaked in.
func BuildEnvelope(in RenderInput) (string, error) {
	var b strings.Builder

	b.WriteString("CONSTRAINT_TAGS\n")
	fmt.Fprintf(&b, "action=%s\n", in.Plan.Action)
	fmt.Fprintf(&b, "posture=%s\n", in.Plan.Posture)
	fmt.Fprintf(&b, "rigor_disclosure=%s\n", in.Plan.RigorDisclosure)
	fmt.Fprintf(&b, "confidence_signaling=%s\n", in.Plan.ConfidenceSignaling)
	fmt.Fprintf(&b, "unknown_disclosure=%s\n", in.Plan.UnknownDisclosure)
	fmt.Fprintf(&b, "assumption_surfacing=%s\n", in.Plan.AssumptionSurfacing)
	fmt.Fprintf(&b, "verbosity_cap=%s\n", in.Plan.VerbosityCap)

	b.WriteString("\nREQUEST\n")
	b.WriteString(in.UserText)
	b.WriteString("\n")

	switch in.Plan.Action {
	case model.ActionAnswer:
		b.WriteString("\nCONTENT BASIS\n")
		b.WriteString(in.Draft.Answer)
		if in.Draft.Rationale != "" {
			b.WriteString("\nReasoning to reflect: ")
			b.WriteString(in.Draft.Rationale)
		}
		b.WriteString("\n\nOUTPUT FORMAT\nPlain text. One reply, no preamble.\n")
	case model.ActionAskOneQuestion:
		b.WriteString("\nQUESTION BASIS\n")
		b.WriteString(in.Draft.ClarifyQuestion)
		b.WriteString("\n\nOUTPUT FORMAT\n")
		b.WriteString(`JSON object: {"question": string, "question_class": string, "priority_reason": string}. No other keys, no fences.` + "\n")
	case model.ActionRefuse:
		b.WriteString("\nOUTPUT FORMAT\n")
		fmt.Fprintf(&b, `JSON object: {"refusal_category": %q, "refusal_text": string}. No other keys, no fences.`+"\n", in.Plan.RefusalSpec.Category)
	case model.ActionClose:
		b.WriteString("\nOUTPUT FORMAT\nPlain text closing acknowledgement. No questions.\n")
	}

	env := b.String()
	for _, tok := range forbiddenEnvelopeTokens {
		if strings.Contains(env, tok) {
			return "", fmt.Errorf("envelope: forbidden token %q", tok)
		}
	}
	return env, nil
}
