package main

import (
	"fmt"
	"io"
	"time"

	"github.com/raykavin/fibscan"
	"github.com/raykavin/fibscan/pkg/activity"
	"github.com/raykavin/fibscan/pkg/core"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// Logs command flags
var (
	logDate   string
	logKind   string
	purgeDays int
)

func buildLogsCmd() *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show or purge the activity log",
		Args:  cobra.NoArgs,
		RunE:  runLogs,
	}

	logsCmd.Flags().StringVar(&logDate, "date", "", "Day to show (e.g. 2024-01-31, default today)")
	logsCmd.Flags().StringVar(&logKind, "kind", "", "Only entries of this kind: error, alert or transaction")
	logsCmd.Flags().IntVar(&purgeDays, "purge", 0, "Delete entries older than this many days instead of listing")

	return logsCmd
}

func runLogs(cmd *cobra.Command, _ []string) error {
	_, store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	log := activity.New(store, fibscan.DefaultLog)

	if purgeDays > 0 {
		removed, err := log.Purge(purgeDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %d days\n", removed, purgeDays)
		return nil
	}

	day := time.Now()
	if logDate != "" {
		day, err = time.ParseInLocation(dateLayout, logDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
	}

	entries, err := log.Day(day, core.LogKind(logKind))
	if err != nil {
		return err
	}

	renderLogs(cmd.OutOrStdout(), entries)
	return nil
}

func renderLogs(w io.Writer, entries []core.LogEntry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Kind", "Title", "Description"})
	table.SetAutoWrapText(false)

	for _, entry := range entries {
		table.Append([]string{
			entry.Time.Format(time.TimeOnly),
			string(entry.Kind),
			entry.Title,
			entry.Description,
		})
	}

	table.Render()
}
