// Package chat runs the governed response pipeline for one request: stakes
// classification, control orchestration, output planning, optional
// deep-think refinement, and the model invocation. Stage order is fixed;
// any invariant violation fails the request closed.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/tillerhq/tiller/internal/config"
	"github.com/tillerhq/tiller/internal/control"
	"github.com/tillerhq/tiller/internal/deepthink"
	"github.com/tillerhq/tiller/internal/model"
	"github.com/tillerhq/tiller/internal/output"
	"github.com/tillerhq/tiller/internal/provider"
	"github.com/tillerhq/tiller/internal/session"
	"github.com/tillerhq/tiller/internal/signature"
	"github.com/tillerhq/tiller/internal/stakes"
	"github.com/tillerhq/tiller/internal/telemetry"
)

// BreakerStater is implemented by callers that expose circuit state, so the
// deep-think router sees an open breaker before any pass runs.
type BreakerStater interface {
	BreakerOpen() bool
}

// Service wires the pipeline stages together.
type Service struct {
	cfg    config.Config
	store  session.Store
	caller provider.Caller
	logger *slog.Logger

	pipelineDuration metric.Float64Histogram
	fallbackCount    metric.Int64Counter
}

// New creates the chat service. store may be a NoopStore; caller may be nil
// when model calls are disabled (every render then uses the fallback).
func New(cfg config.Config, store session.Store, caller provider.Caller, logger *slog.Logger) *Service {
	meter := telemetry.Meter("tiller/chat")
	dur, _ := meter.Float64Histogram("tiller.chat.pipeline.duration",
		metric.WithDescription("End-to-end pipeline time (ms)"),
		metric.WithUnit("ms"),
	)
	fallbacks, _ := meter.Int64Counter("tiller.chat.render.fallbacks",
		metric.WithDescription("Renders that used the deterministic fallback"),
	)
	return &Service{
		cfg:              cfg,
		store:            store,
		caller:           caller,
		logger:           logger,
		pipelineDuration: dur,
		fallbackCount:    fallbacks,
	}
}

// Input is one request to the pipeline.
type Input struct {
	UserText      string
	RequestID     string
	SessionID     string // empty means a one-shot request
	Tier          model.EntitlementTier
	RequestedMode string // "deep" requests the refinement loop
}

// Result is the pipeline outcome handed back to the HTTP layer, plus the
// sanitized structural facts the telemetry summary records.
type Result struct {
	Action       model.OutputAction
	RenderedText string
	UXState      model.UXState

	StopReason        model.StopReason
	PassesPlanned     int
	PassesExecuted    int
	ValidatorFailures int
	Downgraded        bool
	UsedFallback      bool
	Signature         string
}

// Handle runs the five stages in order. Errors are assembly failures; the
// HTTP layer translates them into the sanitized 500 envelope.
func (s *Service) Handle(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	defer func() {
		s.pipelineDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
	}()

	decisionID := uuid.New()
	traceID := in.RequestID

	// Prior turns in the same session feed the proximity floor and the
	// closure latch. A missing or failing store degrades to a blank prior.
	var snap session.Snapshot
	if in.SessionID != "" {
		loaded, found, err := s.store.Load(ctx, in.SessionID)
		if err != nil {
			s.logger.WarnContext(ctx, "session load failed, continuing without prior",
				slog.String("request_id", in.RequestID))
		} else if found {
			snap = loaded
		}
	}

	// Stage 1: stakes.
	features := stakes.ExtractFeatures(in.UserText)
	state, err := stakes.Assemble(decisionID, traceID, features, stakes.Prior{Proximity: snap.ProximityFloor})
	if err != nil {
		return Result{}, err
	}

	// Stage 2: control.
	priorClosure := model.ClosureState("")
	if snap.Closure == model.ClosureClosed || snap.Closure == model.ClosureUserTerminated {
		priorClosure = snap.Closure
	}
	plan, err := control.Assemble(control.Input{
		State:        state,
		UserText:     in.UserText,
		PriorClosure: priorClosure,
	})
	if err != nil {
		return Result{}, err
	}

	// Stage 3: output plan.
	outPlan, err := output.Assemble(state, plan)
	if err != nil {
		return Result{}, err
	}

	// Stage 4: deep-think refinement of the draft, ANSWER only.
	draft := deepthink.State{
		Request:  in.UserText,
		Decision: deepthink.Decision{Action: model.DraftAnswer},
	}
	var (
		dtPlan   deepthink.Plan
		dtResult deepthink.Result
	)
	if outPlan.Action == model.ActionAnswer {
		dtPlan, dtResult = s.refine(draft, in)
	} else {
		dtResult = deepthink.Result{FinalState: draft}
	}

	sig, err := signature.Compute(
		signature.StableInputs{
			TraceID:       traceID,
			DecisionID:    decisionID.String(),
			ControlAction: string(plan.Action),
			OutputAction:  string(outPlan.Action),
			SchemaVersion: model.SchemaVersion,
		},
		dtPlan.PassPlan,
		dtResult.DeltasApplied,
		dtResult.ValidatorFailures,
		dtResult.StopReason,
	)
	if err != nil {
		return Result{}, err
	}

	// Stage 5: render. A refined draft that chose to ask folds its question
	// into the answer content; the OutputPlan's action is already fixed.
	finalDecision := dtResult.FinalState.Decision
	if outPlan.Action == model.ActionAnswer &&
		finalDecision.Action == model.DraftAskOneQuestion && finalDecision.ClarifyQuestion != "" {
		finalDecision.Answer = finalDecision.ClarifyQuestion
	}
	rendered := provider.Render(ctx, s.caller, s.logger, provider.RenderInput{
		Plan:     outPlan,
		Draft:    finalDecision,
		UserText: in.UserText,
	})
	if rendered.UsedFallback {
		s.fallbackCount.Add(ctx, 1)
	}

	s.persistSession(ctx, in.SessionID, state, plan, outPlan)

	return Result{
		Action:            outPlan.Action,
		RenderedText:      rendered.Text,
		UXState:           uxStateFor(outPlan.Action),
		StopReason:        dtResult.StopReason,
		PassesPlanned:     len(dtPlan.PassPlan),
		PassesExecuted:    dtResult.ExecutedPasses,
		ValidatorFailures: dtResult.ValidatorFailures,
		Downgraded:        dtResult.Downgraded,
		UsedFallback:      rendered.UsedFallback,
		Signature:         sig,
	}, nil
}

// refine routes and runs the deep-think loop over the draft.
func (s *Service) refine(draft deepthink.State, in Input) (deepthink.Plan, deepthink.Result) {
	breakerTripped := false
	if bs, ok := s.caller.(BreakerStater); ok {
		breakerTripped = bs.BreakerOpen()
	}

	plan := deepthink.Route(deepthink.RouterInput{
		EntitlementTier:  in.Tier,
		DeepthinkEnabled: s.cfg.DeepThinkEnabled,
		EnvMode:          s.cfg.AppEnv,
		RequestedMode:    in.RequestedMode,
		BreakerTripped:   breakerTripped,
		TotalBudgetUnits: s.cfg.DeepThinkBudget,
		TotalTimeoutMS:   s.deepThinkTimeoutMS(),
	})
	result := deepthink.Run(draft, plan, deepthink.EngineContext{
		BudgetUnitsRemaining: s.cfg.DeepThinkBudget,
		BreakerTripped:       breakerTripped,
		NowMS:                func() int64 { return time.Now().UnixMilli() },
	})
	return plan, result
}

// deepThinkTimeoutMS is the share of the request budget the refinement loop
// may spend: everything except the model call and a small margin.
func (s *Service) deepThinkTimeoutMS() int {
	budget := s.cfg.ChatTotalTimeout - s.cfg.ModelCallTimeout - time.Second
	if budget < 0 {
		budget = 0
	}
	return int(budget.Milliseconds())
}

// persistSession records the floor and latch for the next turn. Failures are
// logged, never fatal.
func (s *Service) persistSession(ctx context.Context, sessionID string, state model.DecisionState, plan model.ControlPlan, outPlan model.OutputPlan) {
	if sessionID == "" {
		return
	}
	floor := state.ProximityState
	if floor == model.ProximityUnknown {
		floor = ""
	}
	err := s.store.Save(ctx, sessionID, session.Snapshot{
		ProximityFloor: floor,
		Closure:        plan.ClosureState,
		UXState:        uxStateFor(outPlan.Action),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "session save failed",
			slog.String("session_id_hash", telemetry.HashSubject(sessionID)))
	}
}

func uxStateFor(action model.OutputAction) model.UXState {
	switch action {
	case model.ActionAskOneQuestion:
		return model.UXAwaitingAnswer
	case model.ActionRefuse:
		return model.UXRefused
	case model.ActionClose:
		return model.UXClosed
	default:
		return model.UXOpen
	}
}
