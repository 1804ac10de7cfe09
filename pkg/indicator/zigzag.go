package indicator

import (
	"github.com/raykavin/fibscan/pkg/core"
)

// ZigZag finds swing pivots in a bar series
// Parameters:
//   - bars: close, high and low series, oldest first
//   - period: number of bars on each side a pivot must dominate
//
// Returns: pivots ordered by index, or nil when there is not enough history
//
// A bar i in [period, len-period) is a high pivot when its high is strictly greater than every
// other high in [i-period, i+period], and a low pivot when its low is strictly lower than every
// other low in that window. High is tested first.
//
// Labels depend on the pivots accepted so far. A high is HH when it is above every previous
// HH/HL price, otherwise LH. A low is LL when it is below every previous LL/LH price, otherwise
// HL. The first high is HH and the first low is LL.
func ZigZag(bars core.Bars, period int) []core.Pivot {
	n := bars.Len()
	if period <= 0 || n < period*2 || bars.Validate() != nil {
		return nil
	}

	var (
		pivots []core.Pivot
		// price pools used to label the next pivot
		highPool, lowPool       float64
		hasHighPool, hasLowPool bool
	)

	accept := func(p core.Pivot) {
		pivots = append(pivots, p)
		switch p.Label {
		case core.LabelHH, core.LabelHL:
			if !hasHighPool || p.Price > highPool {
				highPool, hasHighPool = p.Price, true
			}
		}
		switch p.Label {
		case core.LabelLL, core.LabelLH:
			if !hasLowPool || p.Price < lowPool {
				lowPool, hasLowPool = p.Price, true
			}
		}
	}

	for i := period; i < n-period; i++ {
		from, to := i-period, i+period

		if bars.High.StrictMaxAt(i, from, to) {
			price := bars.High[i]
			label := core.LabelHH
			if hasHighPool && price <= highPool {
				label = core.LabelLH
			}
			accept(core.Pivot{Index: i, Price: price, Label: label})
			continue
		}

		if bars.Low.StrictMinAt(i, from, to) {
			price := bars.Low[i]
			label := core.LabelLL
			if hasLowPool && price >= lowPool {
				label = core.LabelHL
			}
			accept(core.Pivot{Index: i, Price: price, Label: label})
		}
	}

	return pivots
}

// Alternate collapses runs of same-side pivots into the most extreme one of each run, so that
// highs and lows strictly alternate. Labels are kept as assigned by ZigZag.
func Alternate(pivots []core.Pivot) []core.Pivot {
	out := make([]core.Pivot, 0, len(pivots))
	for _, p := range pivots {
		if len(out) == 0 {
			out = append(out, p)
			continue
		}

		last := &out[len(out)-1]
		if last.Label.IsHigh() != p.Label.IsHigh() {
			out = append(out, p)
			continue
		}

		if (p.Label.IsHigh() && p.Price > last.Price) || (p.Label.IsLow() && p.Price < last.Price) {
			*last = p
		}
	}
	return out
}
