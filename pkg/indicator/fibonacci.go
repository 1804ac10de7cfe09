package indicator

import (
	"github.com/raykavin/fibscan/pkg/core"
)

// LongLevels calculates retracement levels from B (swing high) down to X (prior pivot).
// Level 0.0 is B, 1.0 is X and 1.272 is the extension beyond X used as stop loss.
// Returns empty levels when B is not above X.
func LongLevels(b, x float64) core.Levels {
	diff := b - x
	if diff <= 0 {
		return core.Levels{}
	}

	levels := make(core.Levels, len(core.RetracementRatios)+1)
	for _, r := range core.RetracementRatios {
		levels[r] = b - diff*float64(r)
	}
	levels[core.Ratio0] = b
	levels[core.Ratio1] = x
	levels[core.Ratio1272] = x - diff*0.272

	return levels
}

// ShortLevels calculates retracement levels from B (swing low) up to X (prior pivot).
// Level 0.0 is B and 1.0 is X. There is no extension level.
// Returns empty levels when X is not above B.
func ShortLevels(b, x float64) core.Levels {
	diff := x - b
	if diff <= 0 {
		return core.Levels{}
	}

	levels := make(core.Levels, len(core.RetracementRatios))
	for _, r := range core.RetracementRatios {
		levels[r] = b + diff*float64(r)
	}
	levels[core.Ratio0] = b
	levels[core.Ratio1] = x

	return levels
}

// LastLevels returns the levels spanned by the last two pivots of the series: long levels when
// the last pivot is HH, short levels when it is LL, empty otherwise.
func LastLevels(bars core.Bars, period int) core.Levels {
	pivots := ZigZag(bars, period)
	if len(pivots) < 2 {
		return core.Levels{}
	}

	last, prev := pivots[len(pivots)-1], pivots[len(pivots)-2]
	switch last.Label {
	case core.LabelHH:
		return LongLevels(last.Price, prev.Price)
	case core.LabelLL:
		return ShortLevels(last.Price, prev.Price)
	default:
		return core.Levels{}
	}
}
