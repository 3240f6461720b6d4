package provider

import (
	"context"
	"log/slog"

	"github.com/tillerhq/tiller/internal/model"
)

// Rendered is the pipeline's outcome. Fallback output is first-class: the
// request still succeeds, and FallbackCause records why the model's output
// was not used.
type Rendered struct {
	Verified
	UsedFallback  bool
	FallbackCause model.FailureType
	BreakerOpen   bool
}

// Render runs the full invocation pipeline for one request: envelope build,
// one model call, sanitization, verification, and deterministic fallback on
// any failure. It never returns an error; the fallback always renders.
func Render(ctx context.Context, caller Caller, logger *slog.Logger, in RenderInput) Rendered {
	env, err := BuildEnvelope(in)
	if err != nil {
		logger.WarnContext(ctx, "envelope rejected, using fallback",
			slog.String("trace_id", in.Plan.TraceID))
		return Rendered{Verified: Fallback(in), UsedFallback: true, FallbackCause: model.FailInternal}
	}

	// Silent closures never need a model call.
	if in.Plan.Action == model.ActionClose &&
		in.Plan.ClosureSpec != nil && in.Plan.ClosureSpec.Mode == model.ClosureRenderSilent {
		return Rendered{Verified: Verified{Text: ""}}
	}

	if caller == nil {
		return Rendered{Verified: Fallback(in), UsedFallback: true, FallbackCause: model.FailProviderError}
	}

	raw, err := caller.Complete(ctx, env)
	if err != nil {
		open := ErrBreakerOpen(err)
		cause := model.FailProviderError
		if open {
			cause = model.FailBreakerTripped
		}
		logger.WarnContext(ctx, "model call failed, using fallback",
			slog.String("trace_id", in.Plan.TraceID),
			slog.String("cause", string(cause)))
		return Rendered{Verified: Fallback(in), UsedFallback: true, FallbackCause: cause, BreakerOpen: open}
	}

	verified, verr := Verify(in.Plan, Sanitize(raw))
	if verr != nil {
		cause := model.FailProviderError
		if ve, ok := verr.(*VerifyError); ok {
			cause = ve.Type
		}
		logger.WarnContext(ctx, "model output rejected, using fallback",
			slog.String("trace_id", in.Plan.TraceID),
			slog.String("cause", string(cause)))
		return Rendered{Verified: Fallback(in), UsedFallback: true, FallbackCause: cause}
	}

	return Rendered{Verified: verified}
}
