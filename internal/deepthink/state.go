package deepthink

import "github.com/tillerhq/tiller/internal/model"

// Decision is the bounded working draft the passes refine. Its fields map
// one-to-one onto the patch allowlist.
type Decision struct {
	Action          model.DraftAction `json:"action"`
	Answer          string            `json:"answer"`
	Rationale       string            `json:"rationale"`
	ClarifyQuestion string            `json:"clarify_question"`
	Alternatives    []string          `json:"alternatives"`
}

// State is what a pass sees: the read-only request text plus the current
// draft. Passes express changes as DecisionDeltas, never by mutation.
type State struct {
	Request  string
	Decision Decision
}

// Clone returns a structurally independent copy.
func (s State) Clone() State {
	out := s
	if s.Decision.Alternatives != nil {
		out.Decision.Alternatives = append([]string(nil), s.Decision.Alternatives...)
	}
	return out
}
