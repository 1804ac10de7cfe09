package storage

import (
	"testing"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testJournal runs the same log and signal checks against any journal backend
func testJournal(t *testing.T, journal core.Journal) {
	t.Helper()
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("logs", func(t *testing.T) {
		old := &core.LogEntry{Kind: core.LogError, Title: "old", Time: day.AddDate(0, 0, -40)}
		first := &core.LogEntry{Kind: core.LogAlert, Title: "first", Time: day}
		second := &core.LogEntry{Kind: core.LogTransaction, Title: "second", Time: day.Add(time.Minute)}
		for _, entry := range []*core.LogEntry{second, old, first} {
			require.NoError(t, journal.AddLog(entry))
			require.NotEmpty(t, entry.ID)
		}

		logs, err := journal.Logs()
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, []string{"old", "first", "second"}, []string{logs[0].Title, logs[1].Title, logs[2].Title})

		logs, err = journal.Logs(core.WithLogDay(day))
		require.NoError(t, err)
		assert.Len(t, logs, 2)

		logs, err = journal.Logs(core.WithLogKind(core.LogAlert))
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, first.ID, logs[0].ID)

		removed, err := journal.PurgeLogs(day.AddDate(0, 0, -30))
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		require.NoError(t, journal.DeleteLog(second.ID))
		require.ErrorIs(t, journal.DeleteLog(second.ID), ErrNotFound)

		logs, err = journal.Logs()
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "first", logs[0].Title)
		assert.True(t, logs[0].Time.Equal(day))
	})

	t.Run("signals", func(t *testing.T) {
		long := core.Signal{
			Time:       day,
			Symbol:     "BTCUSDT",
			Timeframe:  "1h",
			Direction:  core.DirectionLong,
			Price:      101,
			StopLoss:   94.56,
			TakeProfit: 100,
			Levels:     core.Levels{core.Ratio0: 120, core.Ratio1: 100, core.Ratio1272: 94.56},
			Pattern:    "HH-LH-HH",
		}
		short := core.Signal{
			Time:       day.Add(time.Hour),
			Symbol:     "ETHUSDT",
			Timeframe:  "4h",
			Direction:  core.DirectionShort,
			Price:      90,
			TakeProfit: 111.5,
			Levels:     core.Levels{core.Ratio0: 88.5, core.Ratio1: 111.5},
		}
		require.NoError(t, journal.SaveSignal(short))
		require.NoError(t, journal.SaveSignal(long))

		signals, err := journal.Signals()
		require.NoError(t, err)
		require.Len(t, signals, 2)
		assert.Equal(t, "BTCUSDT", signals[0].Symbol)
		assert.Equal(t, 94.56, signals[0].Levels[core.Ratio1272])
		assert.NotEmpty(t, signals[0].ID)

		signals, err = journal.Signals(core.WithSignalDirection(core.DirectionShort))
		require.NoError(t, err)
		require.Len(t, signals, 1)
		assert.Equal(t, "ETHUSDT", signals[0].Symbol)

		signals, err = journal.Signals(core.WithSignalSymbol("BTCUSDT"), core.WithSignalSince(day.Add(time.Minute)))
		require.NoError(t, err)
		assert.Empty(t, signals)
	})
}
