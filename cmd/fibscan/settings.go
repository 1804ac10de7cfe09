package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/raykavin/fibscan/pkg/config"
	"github.com/raykavin/fibscan/pkg/core"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// Settings command flags
var (
	settingValues map[string]string
	periodValues  map[string]string
)

func buildSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or update the persistent scan settings",
		Args:  cobra.NoArgs,
		RunE:  runSettings,
	}

	settingsCmd.Flags().StringToStringVar(&settingValues, "set", nil,
		"Update settings (e.g. --set pivot_period=10,min_volume=5000000)")
	settingsCmd.Flags().StringToStringVar(&periodValues, "period", nil,
		"Add timeframe labels (e.g. --period \"2 hours\"=2h)")

	return settingsCmd
}

func runSettings(cmd *cobra.Command, _ []string) error {
	update, err := parseSettings(settingValues)
	if err != nil {
		return err
	}

	cfg, store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	provider := config.NewProvider(cfg.Scanner.ScanConfig, store)
	if err := provider.SeedPeriods(); err != nil {
		return err
	}

	for label, code := range periodValues {
		interval, ok := config.NormalizeInterval(code)
		if !ok {
			return fmt.Errorf("invalid interval %q for period %q", code, label)
		}
		if err := store.SavePeriod(label, interval); err != nil {
			return err
		}
	}

	settings, err := provider.Settings()
	if !update.Empty() {
		settings, err = provider.Update(update)
	}
	if err != nil {
		return err
	}

	periods, err := provider.Periods()
	if err != nil {
		return err
	}

	renderSettings(cmd.OutOrStdout(), settings, periods)
	return nil
}

// parseSettings converts key=value pairs to a settings update. Only quote_suffix may be
// set to an empty value.
func parseSettings(values map[string]string) (core.ScanUpdate, error) {
	var update core.ScanUpdate
	for key, value := range values {
		if value == "" && key != "quote_suffix" {
			return core.ScanUpdate{}, fmt.Errorf("setting %s: empty value", key)
		}

		switch key {
		case "quote_suffix":
			update.QuoteSuffix = lo.ToPtr(value)
		case "timeframe_1":
			update.Timeframe1 = lo.ToPtr(value)
		case "timeframe_2":
			update.Timeframe2 = lo.ToPtr(value)
		case "min_volume":
			volume, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return core.ScanUpdate{}, fmt.Errorf("setting %s: %w", key, err)
			}
			update.MinVolume = &volume
		case "pivot_period", "wait_seconds":
			n, err := strconv.Atoi(value)
			if err != nil {
				return core.ScanUpdate{}, fmt.Errorf("setting %s: %w", key, err)
			}
			if key == "pivot_period" {
				update.PivotPeriod = &n
			} else {
				update.WaitSeconds = &n
			}
		default:
			return core.ScanUpdate{}, fmt.Errorf("unknown setting %q", key)
		}
	}
	return update, update.Validate()
}

func renderSettings(w io.Writer, settings core.ScanConfig, periods map[string]string) {
	table := tablewriter.NewWriter(w)
	table.AppendBulk([][]string{
		{"quote_suffix", settings.QuoteSuffix},
		{"min_volume", strconv.FormatFloat(settings.MinVolume, 'f', -1, 64)},
		{"pivot_period", strconv.Itoa(settings.PivotPeriod)},
		{"timeframe_1", settings.Timeframe1},
		{"timeframe_2", settings.Timeframe2},
		{"wait_seconds", strconv.Itoa(settings.WaitSeconds)},
	})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	labels := lo.Keys(periods)
	sort.Strings(labels)

	periodTable := tablewriter.NewWriter(w)
	periodTable.SetHeader([]string{"Period", "Interval"})
	for _, label := range labels {
		periodTable.Append([]string{label, periods[label]})
	}
	periodTable.Render()
}
