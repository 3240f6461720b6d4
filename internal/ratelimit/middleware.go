package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/tillerhq/tiller/internal/model"
)

// KeyFunc extracts the rate limit key from a request.
// Returns empty string to skip rate limiting for this request.
type KeyFunc func(r *http.Request) string

// RequestIDFunc extracts the request ID from the request context.
// Injected by the caller to avoid a dependency on the server package.
type RequestIDFunc func(r *http.Request) string

// Middleware returns HTTP middleware that enforces the limiter. Denied
// requests get the standard error envelope plus cooldown headers; the
// caller's ux state is cooldown until the window resets.
func Middleware(limiter Limiter, keyFunc KeyFunc, reqIDFunc RequestIDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Limiter errors fail open.
			decision, err := limiter.Allow(r.Context(), key)
			if err != nil || decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			cooldown := strconv.Itoa(decision.CooldownSeconds())
			w.Header().Set("Retry-After", cooldown)
			w.Header().Set("X-Cooldown-Seconds", cooldown)
			w.Header().Set("X-UX-State", string(model.UXCooldown))

			var requestID string
			if reqIDFunc != nil {
				requestID = reqIDFunc(r)
			}
			writeRateLimitError(w, requestID)
		})
	}
}

func writeRateLimitError(w http.ResponseWriter, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		OK:            false,
		FailureType:   model.FailAbuse,
		FailureReason: "too many requests",
		RequestID:     requestID,
	})
}

// IPKeyFunc extracts the client IP from the request for rate limiting.
// Uses RemoteAddr only. X-Forwarded-For is not trusted because the server
// may not be behind a reverse proxy that sanitizes the header, and any
// client can set an arbitrary value to bypass rate limiting.
func IPKeyFunc(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
