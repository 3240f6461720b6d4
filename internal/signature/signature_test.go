package signature

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tillerhq/tiller/internal/model"
)

func stableInputs() StableInputs {
	return StableInputs{
		TraceID:       "trace-1",
		DecisionID:    "decision-1",
		ControlAction: "ANSWER",
		OutputAction:  "ANSWER",
		SchemaVersion: "1",
	}
}

func sampleDeltas() []model.DecisionDelta {
	return []model.DecisionDelta{
		{Ops: []model.PatchOp{
			{Op: "set", Path: model.PathAnswer, Value: "take the smaller batch"},
			{Op: "set", Path: model.PathAlternatives, Value: []string{"a", "b"}},
		}},
		{Ops: []model.PatchOp{
			{Op: "set", Path: model.PathRationale, Value: "memory pressure"},
		}},
	}
}

func TestComputeDeterministic(t *testing.T) {
	plan := []model.PassType{model.PassRefine, model.PassStressTest}
	a, err := Compute(stableInputs(), plan, sampleDeltas(), 0, model.StopSuccessCompleted)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compute(stableInputs(), plan, sampleDeltas(), 0, model.StopSuccessCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("identical inputs produced %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(a))
	}
}

func TestComputeSensitivity(t *testing.T) {
	plan := []model.PassType{model.PassRefine}
	base, err := Compute(stableInputs(), plan, sampleDeltas(), 0, model.StopSuccessCompleted)
	if err != nil {
		t.Fatal(err)
	}

	in := stableInputs()
	in.OutputAction = "REFUSE"
	changed, _ := Compute(in, plan, sampleDeltas(), 0, model.StopSuccessCompleted)
	if changed == base {
		t.Error("output action change not reflected")
	}

	if got, _ := Compute(stableInputs(), plan, sampleDeltas(), 1, model.StopSuccessCompleted); got == base {
		t.Error("validator failure count not reflected")
	}

	if got, _ := Compute(stableInputs(), plan, sampleDeltas(), 0, model.StopTimeout); got == base {
		t.Error("stop reason not reflected")
	}

	if got, _ := Compute(stableInputs(), []model.PassType{model.PassRegret}, sampleDeltas(), 0, model.StopSuccessCompleted); got == base {
		t.Error("pass plan not reflected")
	}
}

func TestComputeBindsShapeNotContent(t *testing.T) {
	plan := []model.PassType{model.PassRefine}
	a, err := Compute(stableInputs(), plan, []model.DecisionDelta{
		{Ops: []model.PatchOp{{Op: "set", Path: model.PathAnswer, Value: "same length A"}}},
	}, 0, model.StopSuccessCompleted)
	if err != nil {
		t.Fatal(err)
	}

	// Same rune length, different text: same signature.
	b, _ := Compute(stableInputs(), plan, []model.DecisionDelta{
		{Ops: []model.PatchOp{{Op: "set", Path: model.PathAnswer, Value: "same length B"}}},
	}, 0, model.StopSuccessCompleted)
	if a != b {
		t.Error("signature depends on text content")
	}

	// Different length: different signature.
	c, _ := Compute(stableInputs(), plan, []model.DecisionDelta{
		{Ops: []model.PatchOp{{Op: "set", Path: model.PathAnswer, Value: "a longer answer text"}}},
	}, 0, model.StopSuccessCompleted)
	if a == c {
		t.Error("value length not reflected")
	}
}

func TestDeltaShapesCarryNoContent(t *testing.T) {
	shapes := DeltaShapes(sampleDeltas())
	raw, err := json.Marshal(shapes)
	if err != nil {
		t.Fatal(err)
	}
	for _, leaked := range []string{"smaller batch", "memory pressure"} {
		if strings.Contains(string(raw), leaked) {
			t.Errorf("shape serialization leaks %q", leaked)
		}
	}
	if len(shapes) != 2 || len(shapes[0]) != 2 {
		t.Fatalf("shapes = %+v", shapes)
	}
	if shapes[0][1].ValueMeta.Count != 2 {
		t.Errorf("list count = %d, want 2", shapes[0][1].ValueMeta.Count)
	}
}

func TestMetaFor(t *testing.T) {
	tests := []struct {
		value any
		want  ValueMeta
	}{
		{"héllo", ValueMeta{Type: "string", Length: 5}},
		{[]string{"a", "b", "c"}, ValueMeta{Type: "string_list", Count: 3}},
		{true, ValueMeta{Type: "bool"}},
		{42, ValueMeta{Type: "number"}},
		{3.14, ValueMeta{Type: "number"}},
	}
	for _, tt := range tests {
		if got := metaFor(tt.value); got != tt.want {
			t.Errorf("metaFor(%v) = %+v, want %+v", tt.value, got, tt.want)
		}
	}
}
