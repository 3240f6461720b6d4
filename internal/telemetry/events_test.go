package telemetry

import (
	"strings"
	"testing"

	"github.com/tillerhq/tiller/internal/model"
)

func TestHashSubject(t *testing.T) {
	a := HashSubject("user-1")
	b := HashSubject("user-1")
	c := HashSubject("user-2")

	if a != b {
		t.Error("same id hashes differently")
	}
	if a == c {
		t.Error("different ids collide")
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
	if strings.Contains(a, "user") {
		t.Error("hash leaks the id")
	}
	if HashSubject("") != "" {
		t.Error("empty id should hash to empty")
	}
}

func TestNewChatSummaryStampsEvent(t *testing.T) {
	s := NewChatSummary(ChatSummary{RequestID: "r1", StatusCode: 200})
	if s.Event != EventChatSummary {
		t.Errorf("event = %q", s.Event)
	}
}

func TestNewChatSummaryBoundsFailureReason(t *testing.T) {
	long := strings.Repeat("x", 500)
	s := NewChatSummary(ChatSummary{FailureReason: long})
	if len(s.FailureReason) > model.MaxFailureReasonBytes {
		t.Errorf("reason length = %d, cap %d", len(s.FailureReason), model.MaxFailureReasonBytes)
	}

	s = NewChatSummary(ChatSummary{FailureReason: "call failed: Bearer abc123token"})
	if strings.Contains(s.FailureReason, "abc123token") {
		t.Errorf("secret survived redaction: %q", s.FailureReason)
	}
}

func TestLogAttrsOmitsEmptyOptionals(t *testing.T) {
	s := NewChatSummary(ChatSummary{RequestID: "r1", StatusCode: 200, LatencyMS: 5})
	attrs := s.LogAttrs()
	for i := 0; i < len(attrs); i += 2 {
		key := attrs[i].(string)
		switch key {
		case "action", "failure_type", "failure_reason", "stop_reason", "passes_planned", "used_fallback", "signature":
			t.Errorf("empty optional %q present", key)
		}
	}
}

func TestLogAttrsIncludesDeepThinkBlock(t *testing.T) {
	s := NewChatSummary(ChatSummary{
		RequestID:      "r1",
		StatusCode:     200,
		Action:         "ANSWER",
		StopReason:     model.StopSuccessCompleted,
		PassesPlanned:  5,
		PassesExecuted: 5,
		UsedFallback:   true,
		Signature:      "abc",
	})
	attrs := s.LogAttrs()
	keys := map[string]bool{}
	for i := 0; i < len(attrs); i += 2 {
		keys[attrs[i].(string)] = true
	}
	for _, want := range []string{
		"event", "action", "stop_reason", "passes_planned", "passes_executed",
		"validator_failures", "downgraded", "used_fallback", "signature",
	} {
		if !keys[want] {
			t.Errorf("missing attr %q", want)
		}
	}
}

func TestLogAttrsKeysAreAllowed(t *testing.T) {
	s := NewChatSummary(ChatSummary{
		RequestID:     "r1",
		Action:        "ANSWER",
		FailureType:   "PROVIDER_ERROR",
		FailureReason: "upstream status 502",
		PassesPlanned: 3,
		UsedFallback:  true,
		Signature:     "abc",
	})
	attrs := s.LogAttrs()
	keys := make([]string, 0, len(attrs)/2)
	for i := 0; i < len(attrs); i += 2 {
		keys = append(keys, attrs[i].(string))
	}
	if err := CheckEventKeys(keys); err != nil {
		t.Error(err)
	}
}

func TestCheckEventKeys(t *testing.T) {
	if err := CheckEventKeys([]string{"request_id", "latency_ms"}); err != nil {
		t.Errorf("clean keys rejected: %v", err)
	}
	for _, bad := range []string{"user_text", "prompt", "answer", "clarify_question"} {
		if err := CheckEventKeys([]string{"request_id", bad}); err == nil {
			t.Errorf("forbidden key %q accepted", bad)
		}
	}
}
