package core

import (
	"strconv"
)

// Ratio names a Fibonacci retracement or extension level
type Ratio float64

const (
	Ratio0    Ratio = 0.0
	Ratio001  Ratio = 0.01
	Ratio0236 Ratio = 0.236
	Ratio0382 Ratio = 0.382
	Ratio05   Ratio = 0.5
	Ratio0618 Ratio = 0.618
	Ratio0786 Ratio = 0.786
	Ratio1    Ratio = 1.0
	Ratio1272 Ratio = 1.272
)

// RetracementRatios are the ratios computed for both directions, in ascending order
var RetracementRatios = []Ratio{Ratio0, Ratio001, Ratio0236, Ratio0382, Ratio05, Ratio0618, Ratio0786, Ratio1}

func (r Ratio) String() string {
	s := strconv.FormatFloat(float64(r), 'f', -1, 64)
	if r == Ratio0 || r == Ratio1 {
		s += ".0"
	}
	return s
}

// MarshalText lets Ratio be used as a JSON object key
func (r Ratio) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Ratio) UnmarshalText(text []byte) error {
	v, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return err
	}
	*r = Ratio(v)
	return nil
}

// Levels maps ratios to price levels. An empty Levels means the pattern does not apply.
type Levels map[Ratio]float64

// Get returns the price at ratio r
func (l Levels) Get(r Ratio) (float64, bool) {
	v, ok := l[r]
	return v, ok
}

// Empty reports whether no level was computed
func (l Levels) Empty() bool {
	return len(l) == 0
}

// Select returns a copy holding only the given ratios that are present
func (l Levels) Select(ratios ...Ratio) Levels {
	out := make(Levels, len(ratios))
	for _, r := range ratios {
		if v, ok := l[r]; ok {
			out[r] = v
		}
	}
	return out
}

// Direction of a trade signal
type Direction string

const (
	DirectionNone  Direction = "NONE"
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Pattern returns the pivot label sequence that produces the direction
func (d Direction) Pattern() string {
	switch d {
	case DirectionLong:
		return "HH-LH-HH"
	case DirectionShort:
		return "LL-LH-LL"
	default:
		return ""
	}
}
