package binance

import (
	"context"
	"time"

	"github.com/raykavin/fibscan/pkg/core"

	"github.com/adshao/go-binance/v2/futures"
)

// Futures serves market data from Binance USDⓈ-M futures. Only perpetual contracts in
// TRADING status are part of the instrument universe.
type Futures struct {
	client *futures.Client
	req    *requester
}

// NewFutures creates a futures market data client
func NewFutures(config Config, options ...Option) *Futures {
	futures.UseTestnet = config.UseTestnet

	return &Futures{
		client: futures.NewClient(config.APIKey, config.APISecret),
		req:    newRequester(append(config.options(), options...)...),
	}
}

// Instruments lists tradable perpetual contracts with their 24h quote volume
func (f *Futures) Instruments(ctx context.Context) ([]core.Instrument, error) {
	info, err := call(ctx, f.req, "exchange info", "", func(ctx context.Context) (*futures.ExchangeInfo, error) {
		return f.client.NewExchangeInfoService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	stats, err := call(ctx, f.req, "24h tickers", "", func(ctx context.Context) ([]*futures.PriceChangeStats, error) {
		return f.client.NewListPriceChangeStatsService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]float64, len(stats))
	for _, s := range stats {
		volumes[s.Symbol] = parseFloat(s.QuoteVolume)
	}

	instruments := make([]core.Instrument, 0, len(info.Symbols))
	for _, symbol := range info.Symbols {
		if symbol.Status != "TRADING" || symbol.ContractType != futures.ContractTypePerpetual {
			continue
		}

		instruments = append(instruments, core.Instrument{
			Symbol:     symbol.Symbol,
			BaseAsset:  symbol.BaseAsset,
			QuoteAsset: symbol.QuoteAsset,
			Volume:     volumes[symbol.Symbol],
			Precision:  symbol.PricePrecision,
		})
	}

	return instruments, nil
}

// Volume24h returns the 24h quote turnover of a symbol
func (f *Futures) Volume24h(ctx context.Context, symbol string) (float64, error) {
	stats, err := call(ctx, f.req, "24h ticker", symbol, func(ctx context.Context) ([]*futures.PriceChangeStats, error) {
		return f.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	})
	if err != nil {
		return 0, err
	}

	for _, s := range stats {
		if s.Symbol == symbol {
			return parseFloat(s.QuoteVolume), nil
		}
	}
	return 0, nil
}

// Bars returns the last KlineLimit bars of a symbol, oldest first
func (f *Futures) Bars(ctx context.Context, symbol, interval string) (core.Bars, error) {
	candles, err := f.klines(ctx, symbol, interval, KlineLimit)
	if err != nil {
		return core.Bars{}, err
	}
	return core.BarsFromCandles(candles), nil
}

// LastPrice returns the close of the latest 1m bar
func (f *Futures) LastPrice(ctx context.Context, symbol string) (float64, error) {
	candles, err := f.klines(ctx, symbol, "1m", 1)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, nil
	}
	return candles[len(candles)-1].Close, nil
}

// CandlesByPeriod gets candles for a symbol within a time range
func (f *Futures) CandlesByPeriod(ctx context.Context, symbol, interval string, start, end time.Time) ([]core.Candle, error) {
	data, err := call(ctx, f.req, "klines", symbol, func(ctx context.Context) ([]*futures.Kline, error) {
		return f.client.NewKlinesService().
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

	return convertFuturesKlines(symbol, data), nil
}

func (f *Futures) klines(ctx context.Context, symbol, interval string, limit int) ([]core.Candle, error) {
	data, err := call(ctx, f.req, "klines", symbol, func(ctx context.Context) ([]*futures.Kline, error) {
		return f.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	return convertFuturesKlines(symbol, data), nil
}

func convertFuturesKlines(symbol string, data []*futures.Kline) []core.Candle {
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
