package deepthink

import (
	"fmt"
	"sort"

	"github.com/tillerhq/tiller/internal/model"
)

// ValidationResult is the validator's verdict on one delta under the
// two-strikes rule.
type ValidationResult struct {
	OK           bool
	Errors       []string
	StrikesAdded int
	TotalStrikes int
	StopReason   model.StopReason
	Downgrade    bool
}

// ValidateDelta checks a delta's structure, allowlist membership, forbidden
// path patterns, enum membership and bounds. One invalid delta adds a
// strike; the second strike stops the run with VALIDATION_FAIL and a
// downgrade. Errors are sorted alphabetically before emission so identical
// inputs always produce identical output.
func ValidateDelta(delta model.DecisionDelta, currentStrikes int) ValidationResult {
	var errs []string

	if len(delta.Ops) == 0 {
		errs = append(errs, "delta has no operations")
	}
	for i, op := range delta.Ops {
		if op.Op != "set" {
			errs = append(errs, fmt.Sprintf("op[%d]: operation %q is not set", i, op.Op))
			continue
		}
		if !model.PatchAllowlist[op.Path] {
			errs = append(errs, fmt.Sprintf("op[%d]: path %q not in allowlist", i, op.Path))
			continue
		}
		if pat := model.ForbiddenPathPattern(op.Path); pat != "" {
			errs = append(errs, fmt.Sprintf("op[%d]: path %q matches forbidden pattern %q", i, op.Path, pat))
			continue
		}
		if err := model.CheckPatchValue(op.Path, op.Value); err != nil {
			errs = append(errs, fmt.Sprintf("op[%d]: %v", i, err))
		}
	}

	sort.Strings(errs)

	res := ValidationResult{
		OK:           len(errs) == 0,
		Errors:       errs,
		TotalStrikes: currentStrikes,
	}
	if !res.OK {
		res.StrikesAdded = 1
		res.TotalStrikes = currentStrikes + 1
	}
	if res.TotalStrikes >= 2 {
		res.StopReason = model.StopValidationFail
		res.Downgrade = true
	}
	return res
}
