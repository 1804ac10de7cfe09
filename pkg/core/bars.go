package core

import (
	"fmt"
)

// Bars holds close, high and low prices of a symbol/timeframe.
// Index 0 is the oldest bar and Len()-1 the current one.
type Bars struct {
	Close Series[float64]
	High  Series[float64]
	Low   Series[float64]
}

// Len returns the number of bars
func (b Bars) Len() int {
	return len(b.Close)
}

// Validate checks that the three series are index aligned
func (b Bars) Validate() error {
	if len(b.High) != len(b.Close) || len(b.Low) != len(b.Close) {
		return fmt.Errorf("%w: close=%d high=%d low=%d",
			ErrMisalignedBars, len(b.Close), len(b.High), len(b.Low))
	}
	return nil
}

// Touches reports whether the price range of bar i, taken over high, low and close, contains price.
func (b Bars) Touches(i int, price float64) bool {
	lo := min(b.High[i], b.Low[i], b.Close[i])
	hi := max(b.High[i], b.Low[i], b.Close[i])
	return lo <= price && price <= hi
}

// LastClose returns the close of the current bar, if any.
func (b Bars) LastClose() Optional[float64] {
	if b.Len() == 0 {
		return None[float64]()
	}
	return Some(b.Close.Last(0))
}
