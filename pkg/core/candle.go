package core

import (
	"fmt"
	"strconv"
	"time"
)

// Candle represents a trading candle with OHLCV data
type Candle struct {
	Symbol string
	Time   time.Time
	Open   float64
	Close  float64
	Low    float64
	High   float64
	Volume float64
}

// IsEmpty checks if the candle contains no significant data
func (c Candle) IsEmpty() bool { return c.Symbol == "" && c.Close == 0 && c.Open == 0 && c.Volume == 0 }

// ToSlice converts a candle to a string slice for serialization
// with the specified decimal precision
func (c Candle) ToSlice(precision int) []string {
	return []string{
		fmt.Sprintf("%d", c.Time.Unix()),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', precision, 64),
	}
}

// BarsFromCandles splits candles into an index-aligned bar series.
// Candles must already be ordered oldest first.
func BarsFromCandles(candles []Candle) Bars {
	bars := Bars{
		Close: make(Series[float64], 0, len(candles)),
		High:  make(Series[float64], 0, len(candles)),
		Low:   make(Series[float64], 0, len(candles)),
	}

	for _, c := range candles {
		bars.Close = append(bars.Close, c.Close)
		bars.High = append(bars.High, c.High)
		bars.Low = append(bars.Low, c.Low)
	}

	return bars
}
