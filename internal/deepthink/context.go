// Package deepthink implements the bounded multi-pass refinement engine:
// a router that converts entitlements and budgets into a pass plan, a set of
// deterministic rule-based passes, a bounds-checked patch applier with a
// two-strikes validator, and the engine loop that holds them to a fixed
// stop-reason priority. No stage in this package generates or stores text
// beyond the bounded decision draft fields.
package deepthink

import "github.com/tillerhq/tiller/internal/model"

// Scheduling floors. A pass below either floor cannot run at all.
const (
	MinPassTimeoutMS = 250
	MinBudgetPerPass = 50
	MaxPassesEver    = 5
)

// EngineContext carries the per-request scheduling inputs. BudgetUnits is
// the only field the engine mutates, and only within a single run. NowMS is
// the injected clock; nothing in this package reads the wall clock directly.
type EngineContext struct {
	BudgetUnitsRemaining int
	BreakerTripped       bool
	AbuseBlocked         bool
	NowMS                func() int64
	// Runners overrides the pass registry lookup. Nil means the built-in
	// registry; tests substitute it to script pass outputs.
	Runners func(model.PassType) (PassFunc, error)
}

// RouterInput is everything the router may consult.
type RouterInput struct {
	EntitlementTier  model.EntitlementTier
	DeepthinkEnabled bool
	EnvMode          string
	RequestedMode    string
	BreakerTripped   bool
	AbuseBlocked     bool
	TotalBudgetUnits int
	TotalTimeoutMS   int
}

// Plan is the router's output: how many passes run and with what resources.
// A non-empty StopReason means the engine must not run at all.
type Plan struct {
	EffectivePassCount int
	PassPlan           []model.PassType
	PerPassBudget      []int
	PerPassTimeoutMS   []int
	StopReason         model.StopReason
	// Policy is a safe diagnostic map: labels and numbers only, no text.
	Policy map[string]string
}

// TotalTimeoutMS sums the per-pass timeouts.
func (p Plan) TotalTimeoutMS() int {
	total := 0
	for _, t := range p.PerPassTimeoutMS {
		total += t
	}
	return total
}
