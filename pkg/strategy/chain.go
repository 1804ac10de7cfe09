package strategy

import (
	"github.com/raykavin/fibscan/pkg/core"
)

// Step is one link of a Fibonacci touch chain: a bar must reach MustTouch without reaching
// MustNotTouch at the same time.
type Step struct {
	MustTouch    core.Ratio
	MustNotTouch core.Optional[core.Ratio]
}

// DefaultChain is the retracement sequence that confirms an AxB pattern, walked from B back to A
var DefaultChain = []Step{
	{MustTouch: core.Ratio0382, MustNotTouch: core.Some(core.Ratio001)},
	{MustTouch: core.Ratio05, MustNotTouch: core.Some(core.Ratio0236)},
	{MustTouch: core.Ratio0618, MustNotTouch: core.Some(core.Ratio0382)},
	{MustTouch: core.Ratio0786, MustNotTouch: core.Some(core.Ratio0618)},
	{MustTouch: core.Ratio1, MustNotTouch: core.None[core.Ratio]()},
}

// Validate reports whether every step of the chain is touched, in order, walking backwards
// from right to left.
func Validate(bars core.Bars, levels core.Levels, left, right int, steps []Step) bool {
	_, ok := Check(bars, levels, left, right, steps)
	return ok
}

// Check walks the chain and returns the position of the first step that was not satisfied.
//
// Each step scans bars from right down to left and is satisfied by the first bar whose
// high/low/close range contains the MustTouch level but not the MustNotTouch level. The next step
// then searches only bars strictly before that one, so touches must happen in descending time
// order.
func Check(bars core.Bars, levels core.Levels, left, right int, steps []Step) (failed int, ok bool) {
	if bars.Validate() != nil {
		return 0, false
	}

	left = max(left, 0)
	right = min(right, bars.Len()-1)

	for k, step := range steps {
		touch, exists := levels.Get(step.MustTouch)
		if !exists {
			return k, false
		}

		avoidRatio, hasAvoid := step.MustNotTouch.Get()
		var avoid float64
		if hasAvoid {
			if avoid, exists = levels.Get(avoidRatio); !exists {
				return k, false
			}
		}

		found := -1
		for j := right; j >= left; j-- {
			if !bars.Touches(j, touch) {
				continue
			}
			if hasAvoid && bars.Touches(j, avoid) {
				continue
			}
			found = j
			break
		}

		if found < 0 {
			return k, false
		}
		right = found - 1
	}

	return -1, true
}
