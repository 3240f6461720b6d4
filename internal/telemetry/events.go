package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tillerhq/tiller/internal/model"
)

// forbiddenEventKeys are attribute names that must never appear on a summary
// event. Their presence means free text is about to leak into telemetry.
var forbiddenEventKeys = map[string]bool{
	"user_text":        true,
	"prompt":           true,
	"message":          true,
	"content":          true,
	"rendered_text":    true,
	"answer":           true,
	"rationale":        true,
	"clarify_question": true,
	"alternatives":     true,
	"request_text":     true,
	"user_input":       true,
	"assistant_output": true,
}

// EventChatSummary is the event name of the one record emitted per request.
const EventChatSummary = "chat.summary"

// ChatSummary is the single sanitized event recorded per request. Every
// field is an id, enum label, hash, count, or duration.
type ChatSummary struct {
	Event             string           `json:"event"`
	RequestID         string           `json:"request_id"`
	StatusCode        int              `json:"status_code"`
	LatencyMS         int64            `json:"latency_ms"`
	Action            string           `json:"action,omitempty"`
	FailureType       string           `json:"failure_type,omitempty"`
	FailureReason     string           `json:"failure_reason,omitempty"`
	SubjectIDHash     string           `json:"subject_id_hash"`
	Sampled           bool             `json:"sampled"`
	StopReason        model.StopReason `json:"stop_reason,omitempty"`
	PassesPlanned     int              `json:"passes_planned,omitempty"`
	PassesExecuted    int              `json:"passes_executed,omitempty"`
	ValidatorFailures int              `json:"validator_failures,omitempty"`
	Downgraded        bool             `json:"downgraded,omitempty"`
	UsedFallback      bool             `json:"used_fallback,omitempty"`
	Signature         string           `json:"signature,omitempty"`
}

// HashSubject derives the stable pseudonymous id recorded in place of any
// caller identity.
func HashSubject(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("subject|" + id))
	return hex.EncodeToString(sum[:])[:16]
}

// NewChatSummary stamps the event name and bounds the free-text-adjacent
// fields. FailureReason passes through the same redaction and truncation
// applied to error responses.
func NewChatSummary(s ChatSummary) ChatSummary {
	s.Event = EventChatSummary
	s.FailureReason = model.TruncateReason(model.SanitizeReason(s.FailureReason))
	return s
}

// LogAttrs flattens the summary into slog attributes for the structured log
// record that carries the event.
func (s ChatSummary) LogAttrs() []any {
	attrs := []any{
		"event", s.Event,
		"request_id", s.RequestID,
		"status_code", s.StatusCode,
		"latency_ms", s.LatencyMS,
		"subject_id_hash", s.SubjectIDHash,
		"sampled", s.Sampled,
	}
	if s.Action != "" {
		attrs = append(attrs, "action", s.Action)
	}
	if s.FailureType != "" {
		attrs = append(attrs, "failure_type", s.FailureType)
	}
	if s.FailureReason != "" {
		attrs = append(attrs, "failure_reason", s.FailureReason)
	}
	if s.StopReason != "" {
		attrs = append(attrs, "stop_reason", string(s.StopReason))
	}
	if s.PassesPlanned > 0 {
		attrs = append(attrs,
			"passes_planned", s.PassesPlanned,
			"passes_executed", s.PassesExecuted,
			"validator_failures", s.ValidatorFailures,
			"downgraded", s.Downgraded,
		)
	}
	if s.UsedFallback {
		attrs = append(attrs, "used_fallback", true)
	}
	if s.Signature != "" {
		attrs = append(attrs, "signature", s.Signature)
	}
	return attrs
}

// CheckEventKeys guards dynamically assembled attribute sets. It returns an
// error naming the first forbidden key found.
func CheckEventKeys(keys []string) error {
	for _, k := range keys {
		if forbiddenEventKeys[k] {
			return fmt.Errorf("telemetry: forbidden event key %q", k)
		}
	}
	return nil
}
