package deepthink

import (
	"sort"

	"github.com/tillerhq/tiller/internal/model"
)

// ApplyDelta applies a validated delta to a deep copy of the state and
// returns the new state; the input state is never touched. Operations are
// applied in ascending path order. Every operation is re-checked here even
// though the validator ran first: the applier is the last fence.
func ApplyDelta(s State, delta model.DecisionDelta) (State, error) {
	out := s.Clone()

	ops := append([]model.PatchOp(nil), delta.Ops...)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })

	for _, op := range ops {
		if op.Op != "set" {
			return s, &model.PatchError{Path: op.Path, Reason: "only set operations are allowed"}
		}
		if !model.PatchAllowlist[op.Path] {
			return s, &model.PatchError{Path: op.Path, Reason: "path not in allowlist"}
		}
		if pat := model.ForbiddenPathPattern(op.Path); pat != "" {
			return s, &model.PatchError{Path: op.Path, Reason: "path matches forbidden pattern " + pat}
		}
		if err := model.CheckPatchValue(op.Path, op.Value); err != nil {
			return s, &model.PatchError{Path: op.Path, Reason: err.Error()}
		}

		switch op.Path {
		case model.PathAction:
			out.Decision.Action = model.DraftAction(op.Value.(string))
		case model.PathAnswer:
			out.Decision.Answer = op.Value.(string)
		case model.PathRationale:
			out.Decision.Rationale = op.Value.(string)
		case model.PathClarifyQuestion:
			out.Decision.ClarifyQuestion = op.Value.(string)
		case model.PathAlternatives:
			out.Decision.Alternatives = append([]string(nil), op.Value.([]string)...)
		}
	}

	return out, nil
}
