package binance

import (
	"context"
	"time"

	"github.com/raykavin/fibscan/pkg/core"

	"github.com/adshao/go-binance/v2"
)

// Spot serves market data from the Binance spot market
type Spot struct {
	client *binance.Client
	req    *requester
}

// NewSpot creates a spot market data client
func NewSpot(config Config, options ...Option) *Spot {
	binance.UseTestnet = config.UseTestnet

	return &Spot{
		client: binance.NewClient(config.APIKey, config.APISecret),
		req:    newRequester(append(config.options(), options...)...),
	}
}

// Instruments lists symbols in TRADING status with their 24h quote volume
func (s *Spot) Instruments(ctx context.Context) ([]core.Instrument, error) {
	info, err := call(ctx, s.req, "exchange info", "", func(ctx context.Context) (*binance.ExchangeInfo, error) {
		return s.client.NewExchangeInfoService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	stats, err := call(ctx, s.req, "24h tickers", "", func(ctx context.Context) ([]*binance.PriceChangeStats, error) {
		return s.client.NewListPriceChangeStatsService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]float64, len(stats))
	for _, st := range stats {
		volumes[st.Symbol] = parseFloat(st.QuoteVolume)
	}

	instruments := make([]core.Instrument, 0, len(info.Symbols))
	for _, symbol := range info.Symbols {
		if symbol.Status != "TRADING" {
			continue
		}

		instruments = append(instruments, core.Instrument{
			Symbol:     symbol.Symbol,
			BaseAsset:  symbol.BaseAsset,
			QuoteAsset: symbol.QuoteAsset,
			Volume:     volumes[symbol.Symbol],
			Precision:  symbol.QuotePrecision,
		})
	}

	return instruments, nil
}

// Volume24h returns the 24h quote turnover of a symbol
func (s *Spot) Volume24h(ctx context.Context, symbol string) (float64, error) {
	stats, err := call(ctx, s.req, "24h ticker", symbol, func(ctx context.Context) ([]*binance.PriceChangeStats, error) {
		return s.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	})
	if err != nil {
		return 0, err
	}

	for _, st := range stats {
		if st.Symbol == symbol {
			return parseFloat(st.QuoteVolume), nil
		}
	}
	return 0, nil
}

// Bars returns the last KlineLimit bars of a symbol, oldest first
func (s *Spot) Bars(ctx context.Context, symbol, interval string) (core.Bars, error) {
	candles, err := s.klines(ctx, symbol, interval, KlineLimit)
	if err != nil {
		return core.Bars{}, err
	}
	return core.BarsFromCandles(candles), nil
}

// LastPrice returns the close of the latest 1m bar
func (s *Spot) LastPrice(ctx context.Context, symbol string) (float64, error) {
	candles, err := s.klines(ctx, symbol, "1m", 1)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, nil
	}
	return candles[len(candles)-1].Close, nil
}

// CandlesByPeriod gets candles for a symbol within a time range
func (s *Spot) CandlesByPeriod(ctx context.Context, symbol, interval string, start, end time.Time) ([]core.Candle, error) {
	data, err := call(ctx, s.req, "klines", symbol, func(ctx context.Context) ([]*binance.Kline, error) {
		return s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(millis(start)).
			EndTime(millis(end)).
			Limit(KlineLimit).
			Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	return convertKlines(symbol, data), nil
}

func (s *Spot) klines(ctx context.Context, symbol, interval string, limit int) ([]core.Candle, error) {
	data, err := call(ctx, s.req, "klines", symbol, func(ctx context.Context) ([]*binance.Kline, error) {
		return s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	return convertKlines(symbol, data), nil
}

// convertKlines converts Binance klines to candles
func convertKlines(symbol string, data []*binance.Kline) []core.Candle {
	candles := make([]core.Candle, 0, len(data))
	for _, k := range data {
		candles = append(candles, core.Candle{
			Symbol: symbol,
			Time:   time.UnixMilli(k.OpenTime),
			Open:   parseFloat(k.Open),
			Close:  parseFloat(k.Close),
			Low:    parseFloat(k.Low),
			High:   parseFloat(k.High),
			Volume: parseFloat(k.Volume),
		})
	}
	return candles
}
