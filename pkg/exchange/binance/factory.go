package binance

import (
	"fmt"
	"time"
)

// MarketType represents the type of market (spot or futures)
type MarketType string

const (
	// MarketTypeSpot represents the spot market
	MarketTypeSpot MarketType = "spot"

	// MarketTypeFutures represents the USDⓈ-M futures market
	MarketTypeFutures MarketType = "futures"
)

// Config represents the common configuration for Binance clients
type Config struct {
	// Market type, futures when empty
	Type MarketType

	// API credentials, optional for public market data
	APIKey    string
	APISecret string

	// Use testnet
	UseTestnet bool

	// Deadline of a single request
	RequestTimeout time.Duration
}

func (c Config) options() []Option {
	return []Option{WithRequestTimeout(c.RequestTimeout)}
}

// NewGateway creates a market data client based on the provided configuration
func NewGateway(config Config, options ...Option) (Gateway, error) {
	switch config.Type {
	case MarketTypeFutures, "":
		return NewFutures(config, options...), nil
	case MarketTypeSpot:
		return NewSpot(config, options...), nil
	default:
		return nil, fmt.Errorf("unknown market type: %s", config.Type)
	}
}
