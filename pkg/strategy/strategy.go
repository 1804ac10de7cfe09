package strategy

import (
	"fmt"
	"math"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/indicator"
)

// MinSwing is the smallest |B-X|/X move accepted for an AxB triple
const MinSwing = 0.02

// Strategy evaluates a bar series for one trade direction
type Strategy interface {
	Evaluate(bars core.Bars, period int, direction core.Direction) Result
}

// Result is the outcome of an evaluation. A, X, B and Levels are set only for a confirmed signal.
type Result struct {
	Signal core.Direction
	Reason string
	A      core.Pivot
	X      core.Pivot
	B      core.Pivot
	Levels core.Levels
}

// Confirmed reports whether the evaluation produced a signal
func (r Result) Confirmed() bool {
	return r.Signal == core.DirectionLong || r.Signal == core.DirectionShort
}

// StopLoss is the 1.272 extension, or 0 when the levels have none (short patterns)
func (r Result) StopLoss() float64 {
	v, _ := r.Levels.Get(core.Ratio1272)
	return v
}

// TakeProfit is the 1.0 level, the X pivot price
func (r Result) TakeProfit() float64 {
	v, _ := r.Levels.Get(core.Ratio1)
	return v
}

// AxB finds HH-LH-HH (long) or LL-LH-LL (short) pivot triples confirmed by a Fibonacci chain
type AxB struct {
	Chain    []Step
	MinSwing float64
}

// NewAxB creates the strategy with the default chain and swing filter
func NewAxB() AxB {
	return AxB{Chain: DefaultChain, MinSwing: MinSwing}
}

// Evaluate implements Strategy
func (s AxB) Evaluate(bars core.Bars, period int, direction core.Direction) Result {
	return s.evaluate(bars, period, direction)
}

// Evaluate checks the long and the short side independently, like the scanner does, and
// returns the first confirmed one. Without a signal the long result is returned.
func Evaluate(bars core.Bars, period int) Result {
	long := EvaluateDirection(bars, period, core.DirectionLong)
	if long.Confirmed() {
		return long
	}
	if short := EvaluateDirection(bars, period, core.DirectionShort); short.Confirmed() {
		return short
	}
	return long
}

// EvaluateDirection looks for the first confirmed pattern of a single direction
func EvaluateDirection(bars core.Bars, period int, direction core.Direction) Result {
	return NewAxB().evaluate(bars, period, direction)
}

func (s AxB) evaluate(bars core.Bars, period int, direction core.Direction) Result {
	pivots := indicator.ZigZag(bars, period)
	if len(pivots) < 3 {
		return Result{Signal: core.DirectionNone, Reason: "not enough zigzag points"}
	}

	for i := 0; i+2 < len(pivots); i++ {
		a, x, b := pivots[i], pivots[i+1], pivots[i+2]

		if !matchTriple(a, x, b, direction) {
			continue
		}

		if x.Price <= 0 || math.Abs(b.Price-x.Price)/x.Price < s.MinSwing {
			continue
		}

		levels := levelsFor(direction, b.Price, x.Price)
		if one, ok := levels.Get(core.Ratio1); !ok || one != x.Price {
			continue
		}
		if zero, ok := levels.Get(core.Ratio0); !ok || zero != b.Price {
			continue
		}

		if failed, ok := Check(bars, levels, a.Index, b.Index, s.Chain); !ok {
			return Result{
				Signal: core.DirectionNone,
				Reason: fmt.Sprintf("chain validation failed at %s", s.Chain[failed].MustTouch),
			}
		}

		return Result{
			Signal: direction,
			Reason: fmt.Sprintf("%s pattern confirmed by fibonacci chain", direction.Pattern()),
			A:      a,
			X:      x,
			B:      b,
			Levels: levels,
		}
	}

	return Result{Signal: core.DirectionNone, Reason: "no matching pattern found"}
}

// matchTriple reports whether the triple follows the label pattern of direction
func matchTriple(a, x, b core.Pivot, direction core.Direction) bool {
	// the middle pivot is LH for both directions
	if x.Label != core.LabelLH {
		return false
	}
	switch direction {
	case core.DirectionLong:
		return a.Label == core.LabelHH && b.Label == core.LabelHH
	case core.DirectionShort:
		return a.Label == core.LabelLL && b.Label == core.LabelLL
	default:
		return false
	}
}

func levelsFor(direction core.Direction, b, x float64) core.Levels {
	if direction == core.DirectionLong {
		return indicator.LongLevels(b, x)
	}
	return indicator.ShortLevels(b, x)
}
