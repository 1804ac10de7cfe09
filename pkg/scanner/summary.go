package scanner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/fibscan/pkg/core"

	"github.com/olekukonko/tablewriter"
)

const absent = "-"

func formatPrice(v core.Optional[float64]) string {
	if price, ok := v.Get(); ok {
		return strconv.FormatFloat(price, 'f', 8, 64)
	}
	return absent
}

// Progress returns scanned/total, e.g. 12/250
func (s Status) Progress() string {
	return fmt.Sprintf("%d/%d", s.ScannedSymbols, s.TotalSymbols)
}

// String renders the status as a two column table
func (s Status) String() string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)

	lastSignal := absent
	if t, ok := s.LastSignalTime.Get(); ok {
		lastSignal = t.Format(time.TimeOnly)
	}

	data := [][]string{
		{"Status", string(s.State)},
		{"Scanned", s.Progress()},
		{"Symbol", s.CurrentSymbol.OrElse(absent)},
		{"Timeframe", s.CurrentTimeframe.OrElse(absent)},
		{"Signals", strconv.FormatInt(s.FoundSignals, 10)},
		{"Last signal", lastSignal},
		{"Price", formatPrice(s.CurrentPrice)},
		{"Last pivot", formatPrice(s.LastPivotPrice)},
		{"Fib 0.618", formatPrice(s.LastFibLevel)},
	}

	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	return tableString.String()
}

// Poll calls fn with a status snapshot every interval until ctx is done. It only reads.
func Poll(ctx context.Context, c *Controller, interval time.Duration, fn func(Status)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(c.Status())
		}
	}
}
