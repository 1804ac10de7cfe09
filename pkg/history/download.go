// Package history downloads historical candles from an exchange into CSV files that the
// offline feed can read.
package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/xhit/go-str2duration/v2"
)

const (
	batchSize = 500
	// DefaultPrecision is the number of decimals written for prices and volumes
	DefaultPrecision = 8
)

// CSV header names
var csvHeaders = []string{"time", "open", "close", "low", "high", "volume"}

// FileName is the file a symbol and interval are stored in, as expected by exchange.NewCSVFeedFromDir
func FileName(symbol, interval string) string {
	return fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), interval)
}

// Downloader facilitates downloading historical candle data from exchanges
type Downloader struct {
	feeder    core.Feeder
	log       logger.Logger
	progress  io.Writer
	precision int
	now       func() time.Time
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithProgressOutput sets where the progress bar is drawn, io.Discard hides it
func WithProgressOutput(w io.Writer) DownloaderOption {
	return func(d *Downloader) {
		d.progress = w
	}
}

// WithPrecision sets the decimals written for prices and volumes
func WithPrecision(precision int) DownloaderOption {
	return func(d *Downloader) {
		d.precision = precision
	}
}

// NewDownloader creates a new downloader instance with the provided exchange
func NewDownloader(feeder core.Feeder, log logger.Logger, options ...DownloaderOption) Downloader {
	d := Downloader{
		feeder:    feeder,
		log:       log,
		progress:  os.Stderr,
		precision: DefaultPrecision,
		now:       time.Now,
	}
	for _, option := range options {
		option(&d)
	}
	return d
}

// Parameters defines the time range for data download
type Parameters struct {
	Start time.Time
	End   time.Time
}

// Option is a function type for configuring download parameters
type Option func(*Parameters)

// WithInterval sets specific start and end times for the download
func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays sets the download period to a specific number of days until now
func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.End = time.Now()
		parameters.Start = parameters.End.AddDate(0, 0, -days)
	}
}

// calculateCandleCount determines the number of candles in the given timeframe
func calculateCandleCount(start, end time.Time, timeframe string) (int, time.Duration, error) {
	interval, err := str2duration.ParseDuration(timeframe)
	if err != nil {
		return 0, 0, err
	}
	if interval <= 0 {
		return 0, 0, fmt.Errorf("invalid timeframe: %s", timeframe)
	}
	return int(end.Sub(start) / interval), interval, nil
}

// DownloadAll downloads every symbol and interval into dir, one file each
func (d Downloader) DownloadAll(ctx context.Context, dir string, symbols, intervals []string, options ...Option) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, symbol := range symbols {
		for _, interval := range intervals {
			if err := d.Download(ctx, symbol, interval, filepath.Join(dir, FileName(symbol, interval)), options...); err != nil {
				return fmt.Errorf("download %s %s: %w", symbol, interval, err)
			}
		}
	}
	return nil
}

// Download fetches candle data from the exchange and saves it to a CSV file
func (d Downloader) Download(ctx context.Context, symbol, timeframe, outputPath string, options ...Option) error {
	parameters := d.initializeParameters()
	for _, option := range options {
		option(parameters)
	}
	d.normalizeTimeParameters(parameters)

	candleCount, interval, err := calculateCandleCount(parameters.Start, parameters.End, timeframe)
	if err != nil {
		return err
	}
	candleCount++

	recordFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer recordFile.Close()

	d.log.Infof("Downloading %d candles of %s for %s", candleCount, timeframe, symbol)

	writer := csv.NewWriter(recordFile)
	progressBar := progressbar.NewOptions64(int64(candleCount),
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", symbol, timeframe)),
		progressbar.OptionShowCount(),
	)

	if err := writer.Write(csvHeaders); err != nil {
		return err
	}

	missingCandles, err := d.downloadCandleBatches(ctx, symbol, timeframe, parameters.Start, parameters.End,
		interval, writer, progressBar)
	if err != nil {
		return err
	}

	if err = progressBar.Close(); err != nil {
		d.log.Warnf("Failed to close progress bar: %s", err.Error())
	}

	if missingCandles > 0 {
		d.log.Warnf("%d missing candles", missingCandles)
	}

	writer.Flush()
	d.log.Infof("Saved %s", outputPath)
	return writer.Error()
}

// initializeParameters creates default parameters for the last month
func (d Downloader) initializeParameters() *Parameters {
	now := d.now()
	return &Parameters{
		Start: now.AddDate(0, -1, 0),
		End:   now,
	}
}

// normalizeTimeParameters moves the start to the beginning of its day and keeps the end out of the future
func (d Downloader) normalizeTimeParameters(parameters *Parameters) {
	parameters.Start = time.Date(
		parameters.Start.Year(),
		parameters.Start.Month(),
		parameters.Start.Day(),
		0, 0, 0, 0, time.UTC,
	)

	if now := d.now(); parameters.End.After(now) {
		parameters.End = now
	}
}

// downloadCandleBatches downloads candles in batches and writes them to CSV
func (d Downloader) downloadCandleBatches(
	ctx context.Context,
	symbol string,
	timeframe string,
	start time.Time,
	end time.Time,
	interval time.Duration,
	writer *csv.Writer,
	progressBar *progressbar.ProgressBar,
) (int, error) {
	missingCandles := 0

	for batchStart := start; batchStart.Before(end); batchStart = batchStart.Add(interval * batchSize) {
		batchEnd := calculateBatchEnd(batchStart, interval, end)
		isLastBatch := batchEnd.Equal(end)

		candles, err := d.feeder.CandlesByPeriod(ctx, symbol, timeframe, batchStart, batchEnd)
		if err != nil {
			return missingCandles, err
		}

		if err := writeCandles(writer, candles, d.precision); err != nil {
			return missingCandles, err
		}

		if !isLastBatch && len(candles) < batchSize {
			missingCandles += batchSize - len(candles)
		}

		if err := progressBar.Add(len(candles)); err != nil {
			d.log.Warnf("Failed to update progress bar: %s", err.Error())
		}
	}

	return missingCandles, nil
}

// calculateBatchEnd determines the end time for a batch
func calculateBatchEnd(batchStart time.Time, interval time.Duration, totalEnd time.Time) time.Time {
	potentialEnd := batchStart.Add(interval * batchSize)

	if potentialEnd.Before(totalEnd) {
		// 1s before the next batch start so batches never overlap
		return potentialEnd.Add(-1 * time.Second)
	}

	return totalEnd
}

// writeCandles writes a batch of candles to the CSV writer
func writeCandles(writer *csv.Writer, candles []core.Candle, precision int) error {
	for _, candle := range candles {
		if err := writer.Write(candle.ToSlice(precision)); err != nil {
			return err
		}
	}
	return nil
}
