package core

import (
	"fmt"
	"time"
)

// Signal is a confirmed AxB pattern ready to be published
type Signal struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Direction  Direction `json:"direction"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Levels     Levels    `json:"levels"`
	Pattern    string    `json:"pattern"`
}

func (s Signal) String() string {
	return fmt.Sprintf("%s SIGNAL | Symbol: %s | Period: %s | Price: %.8f | Stop Loss: %.8f | Take Profit: %.8f",
		s.Direction, s.Symbol, s.Timeframe, s.Price, s.StopLoss, s.TakeProfit)
}

// Message is the text sent to subscribed users
func (s Signal) Message() string {
	icon := "🟢"
	if s.Direction == DirectionShort {
		icon = "🔴"
	}
	return fmt.Sprintf("%s %s SIGNAL\n\nSymbol: %s\nPeriod: %s\nPrice: %.8f", icon, s.Direction, s.Symbol, s.Timeframe, s.Price)
}

// SignalFilter selects signals when querying storage
type SignalFilter func(Signal) bool

func WithSignalSymbol(symbol string) SignalFilter {
	return func(s Signal) bool {
		return s.Symbol == symbol
	}
}

func WithSignalDirection(direction Direction) SignalFilter {
	return func(s Signal) bool {
		return s.Direction == direction
	}
}

func WithSignalSince(since time.Time) SignalFilter {
	return func(s Signal) bool {
		return !s.Time.Before(since)
	}
}

// Instrument is a tradable symbol with its 24h quote turnover
type Instrument struct {
	Symbol     string  `json:"symbol"`
	BaseAsset  string  `json:"base_asset"`
	QuoteAsset string  `json:"quote_asset"`
	Volume     float64 `json:"volume"`
	Precision  int     `json:"precision"`
}
