package main

import (
	"context"
	"io"
	"strconv"

	"github.com/raykavin/fibscan"
	"github.com/raykavin/fibscan/pkg/config"
	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/exchange"
	"github.com/raykavin/fibscan/pkg/strategy"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// Scan command flags
var (
	dataDir       string
	scanTimeframe string
	scanPeriod    int
)

// scanRow is the evaluation of one symbol
type scanRow struct {
	symbol    string
	timeframe string
	price     core.Optional[float64]
	result    strategy.Result
	err       error
}

func buildScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan SYMBOL...",
		Short: "Evaluate the AxB pattern once for the given symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScan,
	}

	scanCmd.Flags().StringVar(&dataDir, "data", "", "Directory of SYMBOL_interval.csv files used instead of the exchange")
	scanCmd.Flags().StringVarP(&scanTimeframe, "timeframe", "t", "1h", "Timeframe label or interval (e.g. 1h, 4 hours)")
	scanCmd.Flags().IntVar(&scanPeriod, "period", 0, "Pivot period (default from the configuration)")

	return scanCmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	period := scanPeriod
	if period <= 0 {
		period = cfg.Scanner.PivotPeriod
	}

	market, err := scanMarket(cfg)
	if err != nil {
		return err
	}

	interval := config.NewProvider(cfg.Scanner.ScanConfig, nil).ResolveTimeframe(scanTimeframe)

	rows := make([]scanRow, 0, len(args))
	for _, symbol := range args {
		rows = append(rows, evaluate(cmd.Context(), market, symbol, interval, period))
	}

	renderScan(cmd.OutOrStdout(), rows)
	return nil
}

func scanMarket(cfg *config.Config) (core.Feeder, error) {
	if dataDir != "" {
		return exchange.NewCSVFeedFromDir(dataDir)
	}
	return newGateway(cfg, "")
}

func evaluate(ctx context.Context, market core.Feeder, symbol, interval string, period int) scanRow {
	row := scanRow{symbol: symbol, timeframe: interval}

	bars, err := market.Bars(ctx, symbol, interval)
	if err != nil {
		row.err = err
		return row
	}
	if err := bars.Validate(); err != nil {
		row.err = err
		return row
	}

	row.price = bars.LastClose()
	row.result = strategy.Evaluate(bars, period)
	fibscan.DefaultLog.WithFields(map[string]any{
		"symbol":    symbol,
		"timeframe": interval,
		"direction": string(row.result.Signal),
	}).Debug(row.result.Reason)
	return row
}

func renderScan(w io.Writer, rows []scanRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Timeframe", "Direction", "Reason", "Price", "Stop loss", "Take profit"})
	table.SetAutoWrapText(false)

	for _, row := range rows {
		if row.err != nil {
			table.Append([]string{row.symbol, row.timeframe, "ERROR", row.err.Error(), absent, absent, absent})
			continue
		}

		stopLoss, takeProfit := absent, absent
		if row.result.Confirmed() {
			stopLoss = formatLevel(row.result.StopLoss())
			takeProfit = formatLevel(row.result.TakeProfit())
		}

		table.Append([]string{
			row.symbol,
			row.timeframe,
			string(row.result.Signal),
			row.result.Reason,
			formatPrice(row.price),
			stopLoss,
			takeProfit,
		})
	}

	table.Render()
}

const absent = "-"

func formatPrice(v core.Optional[float64]) string {
	if price, ok := v.Get(); ok {
		return formatLevel(price)
	}
	return absent
}

// formatLevel renders a price, a zero level means the level could not be computed
func formatLevel(v float64) string {
	if v == 0 {
		return absent
	}
	return strconv.FormatFloat(v, 'f', 8, 64)
}
