package deepthink

import (
	"strconv"

	"github.com/tillerhq/tiller/internal/model"
)

// Pass plan templates, fixed by effective count.
var passTemplates = map[int][]model.PassType{
	2: {model.PassRefine, model.PassStressTest},
	3: {model.PassRefine, model.PassCounterarg, model.PassStressTest},
	4: {model.PassRefine, model.PassCounterarg, model.PassAlternatives, model.PassStressTest},
	5: {model.PassRefine, model.PassCounterarg, model.PassStressTest, model.PassAlternatives, model.PassRegret},
}

// passWeights drive resource allocation. Heavier passes get a larger share
// of whatever remains after every pass has its floor.
var passWeights = map[model.PassType]int{
	model.PassRefine:       1,
	model.PassCounterarg:   2,
	model.PassStressTest:   2,
	model.PassAlternatives: 3,
	model.PassRegret:       2,
}

// Route converts entitlements and budgets into a Plan. Hard blocks fail
// closed with pass_count=0 and a stop reason; the engine then returns the
// baseline state downgraded.
func Route(in RouterInput) Plan {
	blocked := func(reason model.StopReason) Plan {
		return Plan{
			EffectivePassCount: 0,
			PassPlan:           nil,
			StopReason:         reason,
			Policy: map[string]string{
				"tier": string(in.EntitlementTier),
				"mode": in.RequestedMode,
			},
		}
	}

	// Hard blocks: evaluate every gate, then let the fixed stop priority
	// pick among the triggered ones.
	var gates []model.StopReason
	if in.AbuseBlocked {
		gates = append(gates, model.StopAbuse)
	}
	if in.BreakerTripped {
		gates = append(gates, model.StopBreakerTripped)
	}
	if in.EntitlementTier == model.TierFree || !in.DeepthinkEnabled || in.RequestedMode != "deep" {
		gates = append(gates, model.StopEntitlementCap)
	}
	if in.TotalTimeoutMS < 2*MinPassTimeoutMS || in.TotalBudgetUnits <= 0 {
		gates = append(gates, model.StopBudgetExhausted)
	}
	if reason := model.HighestPriority(gates...); reason != "" {
		return blocked(reason)
	}

	count := in.EntitlementTier.PassCap()
	if byTime := in.TotalTimeoutMS / MinPassTimeoutMS; byTime < count {
		count = byTime
	}
	if byBudget := in.TotalBudgetUnits / MinBudgetPerPass; byBudget < count {
		count = byBudget
	}
	if count > MaxPassesEver {
		count = MaxPassesEver
	}
	if count < 2 {
		return blocked(model.StopBudgetExhausted)
	}

	passPlan := passTemplates[count]

	return Plan{
		EffectivePassCount: count,
		PassPlan:           passPlan,
		PerPassBudget:      allocate(passPlan, in.TotalBudgetUnits, MinBudgetPerPass),
		PerPassTimeoutMS:   allocate(passPlan, in.TotalTimeoutMS, MinPassTimeoutMS),
		Policy: map[string]string{
			"tier":       string(in.EntitlementTier),
			"mode":       in.RequestedMode,
			"pass_count": strconv.Itoa(count),
		},
	}
}

// allocate splits total across the plan: every pass gets the floor, the
// remainder is distributed by weight, and any leftover units go round-robin
// in plan order. The result always sums to total with every share >= floor.
func allocate(plan []model.PassType, total, floor int) []int {
	n := len(plan)
	shares := make([]int, n)
	weightSum := 0
	for i, p := range plan {
		shares[i] = floor
		weightSum += passWeights[p]
	}

	remaining := total - n*floor
	if remaining <= 0 || weightSum == 0 {
		// Degenerate: dump any surplus (or nothing) on the first pass so the
		// sum invariant holds.
		if remaining > 0 {
			shares[0] += remaining
		}
		return shares
	}

	distributed := 0
	for i, p := range plan {
		extra := remaining * passWeights[p] / weightSum
		shares[i] += extra
		distributed += extra
	}
	leftover := remaining - distributed
	for i := 0; i < leftover; i++ {
		shares[i%n]++
	}
	return shares
}
