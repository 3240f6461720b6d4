package model

import "regexp"

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	UserText string `json:"user_text"`
}

// ChatResponse is the success body for POST /api/chat. RenderedText may be
// empty when the closure rendering mode is silent.
type ChatResponse struct {
	Action       OutputAction `json:"action"`
	RenderedText string       `json:"rendered_text"`
	UXState      UXState      `json:"ux_state"`
	RequestID    string       `json:"request_id"`
}

// ErrorResponse is the sanitized failure body. FailureReason is bounded and
// secret-stripped; internal error text never appears here.
type ErrorResponse struct {
	OK            bool        `json:"ok"`
	FailureType   FailureType `json:"failure_type"`
	FailureReason string      `json:"failure_reason"`
	RequestID     string      `json:"request_id"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ReadyResponse is the body for GET /ready.
type ReadyResponse struct {
	Status     string   `json:"status"`
	MissingEnv []string `json:"missing_env,omitempty"`
}

// requestIDPattern accepts client-supplied request ids. Anything else is
// discarded and replaced with a fresh UUIDv4.
var requestIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{1,64}$`)

// ValidRequestID reports whether a client-supplied request id is safe to echo.
func ValidRequestID(id string) bool {
	return requestIDPattern.MatchString(id)
}
