package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tillerhq/tiller/internal/config"
	"github.com/tillerhq/tiller/internal/model"
	"github.com/tillerhq/tiller/internal/service/chat"
	"github.com/tillerhq/tiller/internal/telemetry"
)

// Handlers holds the route implementations and their dependencies.
type Handlers struct {
	chatSvc *chat.Service
	cfg     config.Config
	logger  *slog.Logger
	version string
	started time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(chatSvc *chat.Service, cfg config.Config, logger *slog.Logger, version string) *Handlers {
	return &Handlers{
		chatSvc: chatSvc,
		cfg:     cfg,
		logger:  logger,
		version: version,
		started: time.Now(),
	}
}

// HandleChat is POST /api/chat: the full governed pipeline for one turn.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := RequestIDFromContext(r.Context())

	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		h.finishChatError(w, r, started, http.StatusUnsupportedMediaType,
			model.FailValidation, "content type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxRequestBodyBytes)
	var req model.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.finishChatError(w, r, started, http.StatusBadRequest,
			model.FailValidation, "malformed request body")
		return
	}
	if strings.TrimSpace(req.UserText) == "" {
		h.finishChatError(w, r, started, http.StatusBadRequest,
			model.FailValidation, "user_text is required")
		return
	}
	if len(req.UserText) > model.MaxUserTextBytes {
		h.finishChatError(w, r, started, http.StatusBadRequest,
			model.FailValidation, "user_text exceeds the length bound")
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if !model.ValidRequestID(sessionID) {
		sessionID = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ChatTotalTimeout)
	defer cancel()

	result, err := h.chatSvc.Handle(ctx, chat.Input{
		UserText:      req.UserText,
		RequestID:     requestID,
		SessionID:     sessionID,
		Tier:          tierFromHeader(r),
		RequestedMode: r.Header.Get("X-Requested-Mode"),
	})
	if err != nil {
		status := http.StatusInternalServerError
		failureType := model.FailInternal
		switch {
		case model.IsAssemblyError(err):
			failureType = model.FailInvariantViolation
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
			failureType = model.FailTimeout
		}
		h.finishChatError(w, r, started, status, failureType, err.Error())
		return
	}

	w.Header().Set("X-UX-State", string(result.UXState))
	writeJSON(w, http.StatusOK, model.ChatResponse{
		Action:       result.Action,
		RenderedText: result.RenderedText,
		UXState:      result.UXState,
		RequestID:    requestID,
	})

	h.emitSummary(r, telemetry.ChatSummary{
		RequestID:         requestID,
		StatusCode:        http.StatusOK,
		LatencyMS:         time.Since(started).Milliseconds(),
		Action:            string(result.Action),
		SubjectIDHash:     telemetry.HashSubject(sessionID),
		Sampled:           true,
		StopReason:        result.StopReason,
		PassesPlanned:     result.PassesPlanned,
		PassesExecuted:    result.PassesExecuted,
		ValidatorFailures: result.ValidatorFailures,
		Downgraded:        result.Downgraded,
		UsedFallback:      result.UsedFallback,
		Signature:         result.Signature,
	})
}

// finishChatError writes the error envelope and emits the summary for a
// failed request.
func (h *Handlers) finishChatError(w http.ResponseWriter, r *http.Request, started time.Time, status int, failureType model.FailureType, reason string) {
	if h.cfg.AppEnv == "production" || !h.cfg.DebugErrors {
		// Internal detail stays in logs; the envelope carries a generic reason.
		if status >= 500 {
			reason = "internal failure"
		}
	}
	writeFailure(w, r, status, failureType, reason)

	h.emitSummary(r, telemetry.ChatSummary{
		RequestID:     RequestIDFromContext(r.Context()),
		StatusCode:    status,
		LatencyMS:     time.Since(started).Milliseconds(),
		FailureType:   string(failureType),
		FailureReason: reason,
		Sampled:       true,
	})
}

func (h *Handlers) emitSummary(r *http.Request, s telemetry.ChatSummary) {
	summary := telemetry.NewChatSummary(s)
	h.logger.Log(r.Context(), slog.LevelInfo, telemetry.EventChatSummary, summary.LogAttrs()...)
}

// tierFromHeader resolves the entitlement tier. Unknown or missing values
// default to FREE, which disables deep-think.
func tierFromHeader(r *http.Request) model.EntitlementTier {
	tier := model.EntitlementTier(strings.ToUpper(r.Header.Get("X-Entitlement-Tier")))
	if !tier.Valid() {
		return model.TierFree
	}
	return tier
}

// HandleHealth is GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

// HandleReady is GET /ready: 503 with the missing settings until the
// required configuration is present.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if missing := h.cfg.MissingForReady(); len(missing) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, model.ReadyResponse{
			Status:     "not_ready",
			MissingEnv: missing,
		})
		return
	}
	writeJSON(w, http.StatusOK, model.ReadyResponse{Status: "ok"})
}
