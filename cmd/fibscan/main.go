package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raykavin/fibscan"
	"github.com/raykavin/fibscan/pkg/activity"
	"github.com/raykavin/fibscan/pkg/config"
	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/exchange/binance"
	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	dateLayout = "2006-01-02"
)

// Command line flags
var (
	configPath   string
	logLevel     string
	showProgress bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fibscan",
		Short:         "Fibonacci AxB pattern scanner",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if logLevel == "" {
				return nil
			}
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			fibscan.DefaultLog.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override FIBSCAN_LOG_LEVEL (e.g. debug)")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildScanCmd(),
		buildDownloadCmd(),
		buildLogsCmd(),
		buildSettingsCmd(),
	)

	return rootCmd
}

func buildRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scanner until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runScanner,
	}

	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Draw the progress of each cycle")

	return runCmd
}

func runScanner(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := fibscan.OpenStorage(cfg.Storage)
	if err != nil {
		return err
	}

	market, err := newGateway(cfg, "", binance.WithActivity(activity.New(store, fibscan.DefaultLog)))
	if err != nil {
		store.Close()
		return err
	}

	options := []fibscan.Option{fibscan.WithStorage(store)}
	if showProgress {
		options = append(options, fibscan.WithProgress(cmd.ErrOrStderr()))
	}

	app, err := fibscan.New(cfg, market, options...)
	if err != nil {
		store.Close()
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}

// newGateway creates the Binance client of the configured market, or of market when set
func newGateway(cfg *config.Config, market string, options ...binance.Option) (core.Feeder, error) {
	if market == "" {
		market = cfg.Exchange.Market
	}

	options = append(options, binance.WithLogger(fibscan.DefaultLog))
	return binance.NewGateway(binance.Config{
		Type:           binance.MarketType(market),
		APIKey:         cfg.Exchange.APIKey,
		APISecret:      cfg.Exchange.APISecret,
		UseTestnet:     cfg.Exchange.Testnet,
		RequestTimeout: cfg.Exchange.RequestTimeout,
	}, options...)
}

// openStorage loads the configuration and opens its storage
func openStorage() (*config.Config, core.Storage, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := fibscan.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}
