package exchange

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
)

// BarLimit is the number of most recent bars returned by Bars, matching the live gateway
const BarLimit = 500

var defaultHeaderMap = map[string]int{
	"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
}

// SymbolFeed is one CSV file of candles for a symbol and interval
type SymbolFeed struct {
	Symbol   string
	Interval string
	File     string
}

// CSVFeed serves market data from CSV files written by the downloader.
// Intervals with no file of their own are resampled from the finest interval of the symbol.
type CSVFeed struct {
	mu      sync.RWMutex
	candles map[string][]core.Candle
	// intervals per symbol, finest first
	intervals map[string][]string
}

// NewCSVFeedFromDir loads every <SYMBOL>_<interval>.csv file of a directory
func NewCSVFeedFromDir(dir string) (*CSVFeed, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*_*.csv"))
	if err != nil {
		return nil, err
	}

	feeds := make([]SymbolFeed, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		sep := strings.LastIndex(name, "_")
		feeds = append(feeds, SymbolFeed{
			Symbol:   strings.ToUpper(name[:sep]),
			Interval: name[sep+1:],
			File:     file,
		})
	}

	return NewCSVFeed(feeds...)
}

// NewCSVFeed loads the given files
func NewCSVFeed(feeds ...SymbolFeed) (*CSVFeed, error) {
	c := &CSVFeed{
		candles:   make(map[string][]core.Candle),
		intervals: make(map[string][]string),
	}

	for _, feed := range feeds {
		candles, err := readCandlesFromCSV(feed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", feed.File, err)
		}
		if err := c.Add(feed.Symbol, feed.Interval, candles); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Add registers candles, oldest first, for a symbol and interval
func (c *CSVFeed) Add(symbol, interval string, candles []core.Candle) error {
	if _, err := str2duration.ParseDuration(interval); err != nil {
		return fmt.Errorf("invalid interval %q: %w", interval, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.candles[feedKey(symbol, interval)] = candles

	intervals := lo.Uniq(append(c.intervals[symbol], interval))
	sort.SliceStable(intervals, func(i, j int) bool {
		return mustDuration(intervals[i]) < mustDuration(intervals[j])
	})
	c.intervals[symbol] = intervals

	return nil
}

func mustDuration(interval string) time.Duration {
	d, _ := str2duration.ParseDuration(interval)
	return d
}

// readCandlesFromCSV reads a candle file with an optional header line
func readCandlesFromCSV(feed SymbolFeed) ([]core.Candle, error) {
	csvFile, err := os.Open(feed.File)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	lines, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	headerMap, hasHeader := parseHeaders(lines[0])
	if hasHeader {
		lines = lines[1:]
	}

	candles := make([]core.Candle, 0, len(lines))
	for _, line := range lines {
		candle, err := parseCandleFromLine(line, headerMap, feed.Symbol)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// parseHeaders returns the column index of each field
func parseHeaders(headers []string) (headerMap map[string]int, hasHeader bool) {
	if _, err := strconv.Atoi(headers[0]); err == nil {
		return defaultHeaderMap, false
	}

	headerMap = make(map[string]int, len(headers))
	for index, header := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = index
	}
	return headerMap, true
}

func parseCandleFromLine(line []string, headerMap map[string]int, symbol string) (core.Candle, error) {
	field := func(name string) (string, error) {
		index, ok := headerMap[name]
		if !ok || index >= len(line) {
			return "", fmt.Errorf("missing column %q", name)
		}
		return line[index], nil
	}

	raw, err := field("time")
	if err != nil {
		return core.Candle{}, err
	}
	timestamp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return core.Candle{}, err
	}

	candle := core.Candle{
		Symbol: symbol,
		Time:   time.Unix(timestamp, 0).UTC(),
	}

	for name, target := range map[string]*float64{
		"open":   &candle.Open,
		"close":  &candle.Close,
		"low":    &candle.Low,
		"high":   &candle.High,
		"volume": &candle.Volume,
	} {
		if raw, err = field(name); err != nil {
			return core.Candle{}, err
		}
		if *target, err = strconv.ParseFloat(raw, 64); err != nil {
			return core.Candle{}, err
		}
	}

	return candle, nil
}

func feedKey(symbol, interval string) string {
	return fmt.Sprintf("%s--%s", symbol, interval)
}

// series returns the candles of a symbol and interval, resampling from the finest interval
// when there is no file for it
func (c *CSVFeed) series(symbol, interval string) ([]core.Candle, error) {
	c.mu.RLock()
	candles, ok := c.candles[feedKey(symbol, interval)]
	intervals := c.intervals[symbol]
	c.mu.RUnlock()

	if ok {
		return candles, nil
	}
	if len(intervals) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	source := intervals[0]
	c.mu.RLock()
	sourceCandles := c.candles[feedKey(symbol, source)]
	c.mu.RUnlock()

	resampled, err := resampleCandles(sourceCandles, source, interval)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.candles[feedKey(symbol, interval)] = resampled
	c.mu.Unlock()

	return resampled, nil
}

// Instruments lists every loaded symbol with its 24h quote volume
func (c *CSVFeed) Instruments(ctx context.Context) ([]core.Instrument, error) {
	c.mu.RLock()
	symbols := lo.Keys(c.intervals)
	c.mu.RUnlock()
	sort.Strings(symbols)

	instruments := make([]core.Instrument, 0, len(symbols))
	for _, symbol := range symbols {
		volume, err := c.Volume24h(ctx, symbol)
		if err != nil {
			return nil, err
		}

		asset, quote := SplitAssetQuote(symbol)
		instruments = append(instruments, core.Instrument{
			Symbol:     symbol,
			BaseAsset:  asset,
			QuoteAsset: quote,
			Volume:     volume,
			Precision:  8,
		})
	}
	return instruments, nil
}

// Volume24h sums close*volume over the last 24 hours of the finest interval
func (c *CSVFeed) Volume24h(_ context.Context, symbol string) (float64, error) {
	c.mu.RLock()
	intervals := c.intervals[symbol]
	var candles []core.Candle
	if len(intervals) > 0 {
		candles = c.candles[feedKey(symbol, intervals[0])]
	}
	c.mu.RUnlock()

	if len(intervals) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if len(candles) == 0 {
		return 0, nil
	}

	since := candles[len(candles)-1].Time.Add(-24 * time.Hour)
	return lo.SumBy(lo.Filter(candles, func(candle core.Candle, _ int) bool {
		return candle.Time.After(since)
	}), func(candle core.Candle) float64 {
		return candle.Close * candle.Volume
	}), nil
}

// Bars returns the last BarLimit bars of a symbol, oldest first
func (c *CSVFeed) Bars(_ context.Context, symbol, interval string) (core.Bars, error) {
	candles, err := c.series(symbol, interval)
	if err != nil {
		return core.Bars{}, err
	}
	if len(candles) > BarLimit {
		candles = candles[len(candles)-BarLimit:]
	}
	return core.BarsFromCandles(candles), nil
}

// LastPrice returns the close of the latest candle of the finest interval
func (c *CSVFeed) LastPrice(_ context.Context, symbol string) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	intervals := c.intervals[symbol]
	if len(intervals) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	candles := c.candles[feedKey(symbol, intervals[0])]
	if len(candles) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrInsufficientData, symbol)
	}
	return candles[len(candles)-1].Close, nil
}

// CandlesByPeriod returns the candles within [start, end]
func (c *CSVFeed) CandlesByPeriod(_ context.Context, symbol, interval string, start, end time.Time) ([]core.Candle, error) {
	candles, err := c.series(symbol, interval)
	if err != nil {
		return nil, err
	}

	return lo.Filter(candles, func(candle core.Candle, _ int) bool {
		return !candle.Time.Before(start) && !candle.Time.After(end)
	}), nil
}

// isLastCandlePeriod checks whether a candle closes a period of the target timeframe
func isLastCandlePeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	if fromTimeframe == targetTimeframe {
		return true, nil
	}

	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	next := t.Add(fromDuration).UTC()
	return isTimeOnPeriodBoundary(next, targetTimeframe)
}

// isTimeOnPeriodBoundary checks whether a timestamp starts a period of the target timeframe
func isTimeOnPeriodBoundary(t time.Time, targetTimeframe string) (bool, error) {
	switch targetTimeframe {
	case "1m":
		return t.Second() == 0, nil
	case "3m", "5m", "15m", "30m":
		minutes, _ := strconv.Atoi(strings.TrimSuffix(targetTimeframe, "m"))
		return t.Minute()%minutes == 0 && t.Second() == 0, nil
	case "1h":
		return t.Minute() == 0 && t.Second() == 0, nil
	case "2h", "4h", "6h", "8h", "12h":
		hours, _ := strconv.Atoi(strings.TrimSuffix(targetTimeframe, "h"))
		return t.Hour()%hours == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "1d":
		return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	case "1w":
		return t.Weekday() == time.Monday && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0, nil
	default:
		return false, fmt.Errorf("invalid timeframe: %s", targetTimeframe)
	}
}

// resampleCandles groups source candles into target timeframe candles. Candles before the
// first period boundary and an unfinished last period are dropped.
func resampleCandles(source []core.Candle, sourceTimeframe, targetTimeframe string) ([]core.Candle, error) {
	if mustDuration(targetTimeframe) < mustDuration(sourceTimeframe) {
		return nil, fmt.Errorf("cannot resample %s into %s", sourceTimeframe, targetTimeframe)
	}

	target := make([]core.Candle, 0, len(source))

	var current core.Candle
	inPeriod := false

	for _, candle := range source {
		if !inPeriod {
			first, err := isTimeOnPeriodBoundary(candle.Time.UTC(), targetTimeframe)
			if err != nil {
				return nil, err
			}
			if !first {
				continue
			}
			current = candle
			inPeriod = true
		} else {
			current.High = max(current.High, candle.High)
			current.Low = min(current.Low, candle.Low)
			current.Close = candle.Close
			current.Volume += candle.Volume
		}

		last, err := isLastCandlePeriod(candle.Time, sourceTimeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
		if last {
			target = append(target, current)
			inPeriod = false
		}
	}

	return target, nil
}
