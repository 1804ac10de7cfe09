// Package fixture builds deterministic bar series with known AxB patterns for tests.
package fixture

import (
	"time"

	"github.com/raykavin/fibscan/pkg/core"
)

// Period is the zigzag period the fixtures are laid out for
const Period = 3

// Long returns 60 bars whose only zigzag pivots are HH(10, 105), LH(19, 100) and HH(27, 120).
// The rally from X to B touches 0.786, 0.618, 0.5 and 0.382 on consecutive bars, so the
// pattern is confirmed.
func Long() core.Bars {
	return AxBLong(105, 100, 120, [4]float64{106, 111, 114, 117}, 60)
}

// Short returns 60 bars with pivots HH(10), LL(19, 98.5), LH(28, 111.5) and LL(37, 88.5),
// a confirmed short pattern.
func Short() core.Bars {
	return Path([]Point{{0, 110}, {10, 120}, {19, 100}, {28, 110}, {37, 90}, {59, 100}}, 1.5)
}

// AxBLong lays out n bars: a ramp up to A at index 10, a dip, X at 19, a dip, the four leg
// bars at 23..26, B at 27 and then a slow decline. Lows are flat at x-10 so no low pivot forms
// and the touch ranges depend only on highs.
func AxBLong(a, x, b float64, leg [4]float64, n int) core.Bars {
	d := b - x
	floor := x - 10

	highs := make([]float64, 0, n)
	for i := 0; i < 10; i++ {
		highs = append(highs, x-3+0.1*float64(i))
	}
	highs = append(highs, a)
	highs = append(highs, x-2.5, x-3, x-3.5, x-4, x-3.5, x-3, x-2.5, x-2)
	highs = append(highs, x)
	highs = append(highs, x-2, x-2.5, x-3)
	highs = append(highs, leg[:]...)
	highs = append(highs, b)
	highs = append(highs, b-0.2*d, b-0.35*d, b-0.5*d)
	for k := 1; len(highs) < n; k++ {
		highs = append(highs, b-0.5*d-0.01*d*float64(k))
	}
	highs = highs[:n]

	bars := core.Bars{
		Close: make(core.Series[float64], n),
		High:  highs,
		Low:   make(core.Series[float64], n),
	}
	for i := 0; i < n; i++ {
		bars.Close[i] = floor
		bars.Low[i] = floor
	}
	return bars
}

// Point is a price anchor of a piecewise linear path
type Point struct {
	Index int
	Price float64
}

// Path interpolates a close series through the given anchors. High and low sit spread above
// and below the close.
func Path(points []Point, spread float64) core.Bars {
	var closes []float64
	for k := 0; k+1 < len(points); k++ {
		from, to := points[k], points[k+1]
		for i := from.Index; i < to.Index; i++ {
			closes = append(closes, from.Price+(to.Price-from.Price)*float64(i-from.Index)/float64(to.Index-from.Index))
		}
	}
	closes = append(closes, points[len(points)-1].Price)

	bars := core.Bars{
		Close: closes,
		High:  make(core.Series[float64], len(closes)),
		Low:   make(core.Series[float64], len(closes)),
	}
	for i, c := range closes {
		bars.High[i] = c + spread
		bars.Low[i] = c - spread
	}
	return bars
}

// Concat appends bar series one after the other
func Concat(parts ...core.Bars) core.Bars {
	var bars core.Bars
	for _, part := range parts {
		bars.Close = append(bars.Close, part.Close...)
		bars.High = append(bars.High, part.High...)
		bars.Low = append(bars.Low, part.Low...)
	}
	return bars
}

// Flat returns n bars with the same price, which never form a pivot
func Flat(n int, price float64) core.Bars {
	bars := core.Bars{
		Close: make(core.Series[float64], n),
		High:  make(core.Series[float64], n),
		Low:   make(core.Series[float64], n),
	}
	for i := 0; i < n; i++ {
		bars.Close[i] = price
		bars.High[i] = price + 1
		bars.Low[i] = price - 1
	}
	return bars
}

// Candles turns bars into candles spaced step apart, starting at start
func Candles(symbol string, bars core.Bars, start time.Time, step time.Duration, volume float64) []core.Candle {
	candles := make([]core.Candle, bars.Len())
	for i := range candles {
		candles[i] = core.Candle{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * step),
			Open:   bars.Close[i],
			Close:  bars.Close[i],
			Low:    bars.Low[i],
			High:   bars.High[i],
			Volume: volume,
		}
	}
	return candles
}
