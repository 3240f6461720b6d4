// Package signature computes the structural decision signature: a SHA-256
// digest over canonical JSON of stable inputs, the pass plan, and the shape
// of every delta. Text content never enters the digest; each patched value
// contributes only its type and length or count.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/gowebpki/jcs"

	"github.com/tillerhq/tiller/internal/model"
)

// ValueMeta describes a patched value without its content.
type ValueMeta struct {
	Type   string `json:"type"`
	Length int    `json:"length,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// OpShape is one patch operation's structure.
type OpShape struct {
	Op        string    `json:"op"`
	Path      string    `json:"path"`
	ValueMeta ValueMeta `json:"value_meta"`
}

// StableInputs are the identity and verdict fields the signature binds.
// All values are ids or closed-enum labels.
type StableInputs struct {
	TraceID       string `json:"trace_id"`
	DecisionID    string `json:"decision_id"`
	ControlAction string `json:"control_action"`
	OutputAction  string `json:"output_action"`
	SchemaVersion string `json:"schema_version"`
}

type payload struct {
	StableInputs      StableInputs     `json:"stable_inputs"`
	PassPlan          []model.PassType `json:"pass_plan"`
	DeltasStructure   [][]OpShape      `json:"deltas_structure"`
	ValidatorFailures int              `json:"validator_failures,omitempty"`
	StopReason        model.StopReason `json:"stop_reason,omitempty"`
}

func metaFor(value any) ValueMeta {
	switch v := value.(type) {
	case string:
		return ValueMeta{Type: "string", Length: utf8.RuneCountInString(v)}
	case []string:
		return ValueMeta{Type: "string_list", Count: len(v)}
	case bool:
		return ValueMeta{Type: "bool"}
	case int, int32, int64, float32, float64:
		return ValueMeta{Type: "number"}
	default:
		return ValueMeta{Type: fmt.Sprintf("%T", value)}
	}
}

// DeltaShapes reduces deltas to their structure.
func DeltaShapes(deltas []model.DecisionDelta) [][]OpShape {
	shapes := make([][]OpShape, 0, len(deltas))
	for _, d := range deltas {
		ops := make([]OpShape, 0, len(d.Ops))
		for _, op := range d.Ops {
			ops = append(ops, OpShape{Op: op.Op, Path: op.Path, ValueMeta: metaFor(op.Value)})
		}
		shapes = append(shapes, ops)
	}
	return shapes
}

// Compute returns the SHA-256 hex signature over the RFC 8785 canonical
// form of the payload. Identical inputs produce identical bytes on any
// platform.
func Compute(in StableInputs, passPlan []model.PassType, deltas []model.DecisionDelta, validatorFailures int, stopReason model.StopReason) (string, error) {
	p := payload{
		StableInputs:      in,
		PassPlan:          passPlan,
		DeltasStructure:   DeltaShapes(deltas),
		ValidatorFailures: validatorFailures,
		StopReason:        stopReason,
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("signature: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("signature: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
