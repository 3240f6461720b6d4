package model

import (
	"strings"
	"testing"
)

func TestCheckPatchValue(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		value   any
		wantErr bool
	}{
		{"valid action", PathAction, "ANSWER", false},
		{"fallback action", PathAction, "FALLBACK", false},
		{"unknown action", PathAction, "ESCALATE", true},
		{"action not a string", PathAction, 7, true},
		{"answer within bound", PathAnswer, strings.Repeat("a", MaxAnswerChars), false},
		{"answer over bound", PathAnswer, strings.Repeat("a", MaxAnswerChars+1), true},
		{"rationale over bound", PathRationale, strings.Repeat("r", MaxRationaleChars+1), true},
		{"question within bound", PathClarifyQuestion, "Is this reversible?", false},
		{"question over bound", PathClarifyQuestion, strings.Repeat("q", MaxClarifyQuestionChars+1), true},
		{"alternatives pair", PathAlternatives, []string{"one", "two"}, false},
		{"alternatives triple", PathAlternatives, []string{"one", "two", "three"}, false},
		{"alternatives single", PathAlternatives, []string{"one"}, true},
		{"alternatives too many", PathAlternatives, []string{"a", "b", "c", "d"}, true},
		{"alternative item too long", PathAlternatives, []string{strings.Repeat("x", MaxAlternativeChars+1), "ok"}, true},
		{"alternatives wrong type", PathAlternatives, "not a list", true},
		{"path off allowlist", "routing.pass_count", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPatchValue(tt.path, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPatchValue(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestCheckPatchValueCountsRunesNotBytes(t *testing.T) {
	// Multi-byte text at exactly the rune bound must pass.
	s := strings.Repeat("ü", MaxRationaleChars)
	if err := CheckPatchValue(PathRationale, s); err != nil {
		t.Errorf("rune-bounded value rejected: %v", err)
	}
}

func TestForbiddenPathPattern(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"decision.answer", ""},
		{"entitlement.tier", "entitlement"},
		{"decision.pass_count", "pass_count"},
		{"session.auth_token", "auth"},
		{"Routing.Plan", "routing"},
		{"safety_override", "safety"},
	}
	for _, tt := range tests {
		if got := ForbiddenPathPattern(tt.path); got != tt.want {
			t.Errorf("ForbiddenPathPattern(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestPatchAllowlistIsExact(t *testing.T) {
	want := []string{PathAction, PathAnswer, PathRationale, PathClarifyQuestion, PathAlternatives}
	if len(PatchAllowlist) != len(want) {
		t.Fatalf("allowlist has %d entries, want %d", len(PatchAllowlist), len(want))
	}
	for _, p := range want {
		if !PatchAllowlist[p] {
			t.Errorf("allowlist missing %s", p)
		}
	}
}

func TestTruncateReason(t *testing.T) {
	short := "fits"
	if got := TruncateReason(short); got != short {
		t.Errorf("short reason changed: %q", got)
	}

	long := strings.Repeat("x", MaxFailureReasonBytes+50)
	got := TruncateReason(long)
	if len(got) != MaxFailureReasonBytes {
		t.Errorf("truncated length = %d, want %d", len(got), MaxFailureReasonBytes)
	}

	// A multi-byte rune straddling the bound backs off, never splits.
	multi := strings.Repeat("é", MaxFailureReasonBytes)
	got = TruncateReason(multi)
	if len(got) > MaxFailureReasonBytes {
		t.Errorf("truncated length = %d, exceeds bound", len(got))
	}
	if !strings.HasSuffix(got, "é") {
		t.Error("truncation split a rune")
	}
}
