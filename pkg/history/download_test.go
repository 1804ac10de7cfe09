package history

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/exchange"
	"github.com/raykavin/fibscan/pkg/logger/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hourlyFeeder returns one candle per hour within the requested range
type hourlyFeeder struct {
	calls int
	err   error
}

func (f *hourlyFeeder) CandlesByPeriod(_ context.Context, symbol, _ string, start, end time.Time) ([]core.Candle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	var candles []core.Candle
	for t := start.Truncate(time.Hour); !t.After(end); t = t.Add(time.Hour) {
		if t.Before(start) {
			continue
		}
		price := float64(t.Hour() + 100)
		candles = append(candles, core.Candle{
			Symbol: symbol, Time: t, Open: price, Close: price, Low: price - 1, High: price + 1, Volume: 1,
		})
	}
	return candles, nil
}

func (f *hourlyFeeder) Instruments(context.Context) ([]core.Instrument, error) { return nil, nil }
func (f *hourlyFeeder) Volume24h(context.Context, string) (float64, error)     { return 0, nil }
func (f *hourlyFeeder) Bars(context.Context, string, string) (core.Bars, error) {
	return core.Bars{}, nil
}
func (f *hourlyFeeder) LastPrice(context.Context, string) (float64, error) { return 0, nil }

func newTestDownloader(feeder core.Feeder) Downloader {
	return NewDownloader(feeder, zerolog.Nop(), WithProgressOutput(io.Discard))
}

func TestDownload(t *testing.T) {
	feeder := &hourlyFeeder{}
	downloader := newTestDownloader(feeder)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)

	output := filepath.Join(t.TempDir(), "btc.csv")
	require.NoError(t, downloader.Download(context.Background(), "BTCUSDT", "1h", output, WithInterval(start, end)))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")

	assert.Equal(t, "time,open,close,low,high,volume", lines[0])
	assert.Len(t, lines, 30*24+2)
	// 720 hours split in batches of 500
	assert.Equal(t, 2, feeder.calls)
}

func TestDownloadAll_ReadableByCSVFeed(t *testing.T) {
	downloader := newTestDownloader(&hourlyFeeder{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dir := filepath.Join(t.TempDir(), "data")

	err := downloader.DownloadAll(context.Background(), dir, []string{"btcusdt", "ETHUSDT"}, []string{"1h"},
		WithInterval(start, start.Add(48*time.Hour)))
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "BTCUSDT_1h.csv"))
	assert.FileExists(t, filepath.Join(dir, "ETHUSDT_1h.csv"))

	feed, err := exchange.NewCSVFeedFromDir(dir)
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, 49, bars.Len())
	assert.Equal(t, 100.0, bars.Close[0])
}

func TestDownload_Errors(t *testing.T) {
	boom := errors.New("exchange down")
	downloader := newTestDownloader(&hourlyFeeder{err: boom})
	output := filepath.Join(t.TempDir(), "out.csv")

	err := downloader.Download(context.Background(), "BTCUSDT", "1h", output, WithDays(2))
	assert.ErrorIs(t, err, boom)

	err = downloader.Download(context.Background(), "BTCUSDT", "never", output, WithDays(2))
	assert.Error(t, err)
}

func TestCalculateBatchEnd(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(1000 * time.Hour)

	assert.Equal(t, start.Add(500*time.Hour-time.Second), calculateBatchEnd(start, time.Hour, end))
	assert.Equal(t, end, calculateBatchEnd(start.Add(600*time.Hour), time.Hour, end))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "BTCUSDT_15m.csv", FileName("btcusdt", "15m"))
}
