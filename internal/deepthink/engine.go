package deepthink

import (
	"fmt"

	"github.com/tillerhq/tiller/internal/model"
)

// PassSummary is the sanitized per-pass record: structure only, no text.
type PassSummary struct {
	Type       model.PassType `json:"type"`
	Executed   bool           `json:"executed"`
	CostUnits  int            `json:"cost_units"`
	DurationMS int            `json:"duration_ms"`
	Strikes    int            `json:"strikes"`
	OpCount    int            `json:"op_count"`
}

// Result is the engine's outcome for one run. When Downgraded is true,
// FinalState is the untouched baseline.
type Result struct {
	FinalState        State
	StopReason        model.StopReason
	ValidatorFailures int
	Downgraded        bool
	ExecutedPasses    int
	PassSummaries     []PassSummary
	// DeltasApplied feeds the decision signature: structure of every delta
	// the passes produced, in order, whether or not it was applied.
	DeltasApplied []model.DecisionDelta
}

// Run drives the pass plan over the initial state. Given identical inputs
// and runner outputs the result is bit-identical, including field order in
// the summaries.
func Run(initial State, plan Plan, ctx EngineContext) Result {
	baseline := initial.Clone()

	// Router already stopped the run: return the baseline, downgraded.
	if plan.StopReason != "" {
		return Result{
			FinalState: baseline,
			StopReason: plan.StopReason,
			Downgraded: true,
		}
	}

	if ctx.NowMS == nil {
		return Result{
			FinalState: baseline,
			StopReason: model.StopInternalInconsistency,
			Downgraded: true,
		}
	}

	res := Result{FinalState: initial.Clone()}
	start := ctx.NowMS()
	totalTimeout := int64(plan.TotalTimeoutMS())
	strikes := 0

	finish := func(reason model.StopReason, downgrade bool) Result {
		res.StopReason = reason
		res.Downgraded = downgrade
		if downgrade {
			res.FinalState = baseline
		}
		return res
	}

	for _, passType := range plan.PassPlan {
		// Evaluate every stop condition and pick the highest priority.
		var gates []model.StopReason
		if ctx.AbuseBlocked {
			gates = append(gates, model.StopAbuse)
		}
		if ctx.BreakerTripped {
			gates = append(gates, model.StopBreakerTripped)
		}
		if ctx.BudgetUnitsRemaining <= 0 {
			gates = append(gates, model.StopBudgetExhausted)
		}
		if ctx.NowMS()-start >= totalTimeout {
			gates = append(gates, model.StopTimeout)
		}
		if strikes >= 2 {
			gates = append(gates, model.StopValidationFail)
		}
		if res.ExecutedPasses >= MaxPassesEver {
			gates = append(gates, model.StopPassLimitReached)
		}
		if reason := model.HighestPriority(gates...); reason != "" {
			// The pass limit keeps the refinement done so far; every other
			// mid-run stop returns the baseline.
			return finish(reason, reason != model.StopPassLimitReached)
		}

		out, err := invokePass(passType, res.FinalState, ctx)
		if err != nil {
			return finish(model.StopInternalInconsistency, true)
		}
		if out.Err != nil {
			return finish(model.StopInternalInconsistency, true)
		}

		// The pass's cost is charged whether or not its delta survives.
		ctx.BudgetUnitsRemaining -= out.CostUnits
		res.ExecutedPasses++
		res.DeltasApplied = append(res.DeltasApplied, out.Delta)

		summary := PassSummary{
			Type:       passType,
			Executed:   true,
			CostUnits:  out.CostUnits,
			DurationMS: out.DurationMS,
			OpCount:    len(out.Delta.Ops),
		}

		v := ValidateDelta(out.Delta, strikes)
		if !v.OK {
			strikes = v.TotalStrikes
			res.ValidatorFailures++
			summary.Strikes = strikes
			res.PassSummaries = append(res.PassSummaries, summary)
			if v.StopReason != "" {
				return finish(v.StopReason, v.Downgrade)
			}
			continue
		}

		next, applyErr := ApplyDelta(res.FinalState, out.Delta)
		if applyErr != nil {
			// Patch application failure counts as one validation strike.
			strikes++
			res.ValidatorFailures++
			summary.Strikes = strikes
			res.PassSummaries = append(res.PassSummaries, summary)
			if strikes >= 2 {
				return finish(model.StopValidationFail, true)
			}
			continue
		}

		res.FinalState = next
		summary.Strikes = strikes
		res.PassSummaries = append(res.PassSummaries, summary)
	}

	return finish(model.StopSuccessCompleted, false)
}

// invokePass runs one pass and converts panics into errors so a buggy rule
// can never take down the request.
func invokePass(passType model.PassType, s State, ctx EngineContext) (out PassOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass %s panicked: %v", passType, r)
		}
	}()

	lookup := ctx.Runners
	if lookup == nil {
		lookup = runnerFor
	}
	fn, err := lookup(passType)
	if err != nil {
		return PassOutput{}, err
	}
	return fn(s, ctx), nil
}
