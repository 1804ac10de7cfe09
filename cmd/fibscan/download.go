package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/fibscan"
	"github.com/raykavin/fibscan/pkg/config"
	"github.com/raykavin/fibscan/pkg/exchange/binance"
	"github.com/raykavin/fibscan/pkg/history"

	"github.com/spf13/cobra"
)

// Download command flags
var (
	pairs      []string
	timeframes []string
	days       int
	startDate  string
	endDate    string
	outputFile string
	outputDir  string
	isSpot     bool
)

func buildDownloadCmd() *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download historical data",
		Args:  cobra.NoArgs,
		RunE:  runDownload,
	}

	downloadCmd.Flags().StringSliceVarP(&pairs, "pair", "p", nil, "Trading pair (e.g. BTCUSDT), repeat or separate with commas for --dir")
	downloadCmd.Flags().StringSliceVarP(&timeframes, "timeframe", "t", nil, "Timeframe (e.g. 1h), repeat or separate with commas for --dir")
	downloadCmd.Flags().IntVarP(&days, "days", "d", 0, "Number of days to download (default 30 days)")
	downloadCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (e.g. 2021-12-01)")
	downloadCmd.Flags().StringVarP(&endDate, "end", "e", "", "End date (e.g. 2020-12-31)")
	downloadCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (e.g. ./btc.csv)")
	downloadCmd.Flags().StringVar(&outputDir, "dir", "", "Output directory, one SYMBOL_interval.csv per pair and timeframe")
	downloadCmd.Flags().BoolVar(&isSpot, "spot", false, "Use spot market instead of futures")

	downloadCmd.MarkFlagRequired("pair")
	downloadCmd.MarkFlagRequired("timeframe")
	downloadCmd.MarkFlagsMutuallyExclusive("output", "dir")

	return downloadCmd
}

func runDownload(cmd *cobra.Command, _ []string) error {
	if outputFile == "" && outputDir == "" {
		return errors.New("one of --output or --dir is required")
	}
	if outputFile != "" && (len(pairs) != 1 || len(timeframes) != 1) {
		return errors.New("--output takes a single pair and timeframe, use --dir for more")
	}

	options, err := buildDownloadOptions()
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	market := binance.MarketTypeFutures
	if isSpot {
		market = binance.MarketTypeSpot
	}

	feeder, err := newGateway(cfg, string(market))
	if err != nil {
		return err
	}

	downloader := history.NewDownloader(feeder, fibscan.DefaultLog, history.WithProgressOutput(cmd.ErrOrStderr()))
	if outputDir != "" {
		return downloader.DownloadAll(cmd.Context(), outputDir, pairs, timeframes, options...)
	}

	return downloader.Download(cmd.Context(), pairs[0], timeframes[0], outputFile, options...)
}

func buildDownloadOptions() ([]history.Option, error) {
	var options []history.Option

	if days > 0 {
		options = append(options, history.WithDays(days))
	}

	if startDate != "" || endDate != "" {
		// Both must be provided together
		if startDate == "" || endDate == "" {
			return nil, fmt.Errorf("START and END dates must be provided together")
		}

		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date format: %w", err)
		}

		end, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date format: %w", err)
		}

		if !end.After(start) {
			return nil, fmt.Errorf("end date %s is not after start date %s", endDate, startDate)
		}

		options = append(options, history.WithInterval(start, end))
	}

	return options, nil
}
