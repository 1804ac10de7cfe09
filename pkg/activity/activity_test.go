package activity

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	zlog "github.com/raykavin/fibscan/pkg/logger/zerolog"
	"github.com/raykavin/fibscan/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	core.LogStorage
}

func (failingStorage) AddLog(*core.LogEntry) error {
	return errors.New("disk full")
}

func newLog(t *testing.T) (*Log, *storage.BuntStorage, *bytes.Buffer) {
	t.Helper()
	db, err := storage.FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var out bytes.Buffer
	log, err := zlog.NewWithWriter(&out, "debug", time.RFC3339, false, true)
	require.NoError(t, err)

	return New(db, log), db, &out
}

func TestLog_Add(t *testing.T) {
	l, db, out := newLog(t)

	l.Error("ScannerLoop", "settings incomplete")
	l.Alert("Rate limit", "retrying")
	l.Transaction("LongSignal", "LONG SIGNAL | Symbol: BTCUSDT")

	logs, err := db.Logs()
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, core.LogError, logs[0].Kind)
	assert.Equal(t, "Rate limit", logs[1].Title)
	assert.Equal(t, "LONG SIGNAL | Symbol: BTCUSDT", logs[2].Description)

	assert.Contains(t, out.String(), `"level":"error"`)
	assert.Contains(t, out.String(), `"level":"warn"`)
	assert.Contains(t, out.String(), `"kind":"transaction"`)
	assert.Contains(t, out.String(), `"title":"LongSignal"`)
}

func TestLog_InvalidEntry(t *testing.T) {
	l, db, _ := newLog(t)

	require.ErrorIs(t, l.Add("debug", "title", ""), ErrInvalidEntry)
	require.ErrorIs(t, l.Add(core.LogAlert, "", "no title"), ErrInvalidEntry)

	logs, err := db.Logs()
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestLog_StorageFailure(t *testing.T) {
	var out bytes.Buffer
	log, err := zlog.NewWithWriter(&out, "info", time.RFC3339, false, true)
	require.NoError(t, err)

	l := New(failingStorage{}, log)
	require.NoError(t, l.Add(core.LogAlert, "Rate limit", "retrying"))
	assert.Contains(t, out.String(), "disk full")
}

func TestLog_DayAndPurge(t *testing.T) {
	l, _, _ := newLog(t)
	now := time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)

	l.now = func() time.Time { return now.AddDate(0, 0, -45) }
	l.Alert("old", "")
	l.now = func() time.Time { return now }
	l.Alert("today", "")
	l.Error("today", "")

	entries, err := l.Day(now, "")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = l.Day(now, core.LogError)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = l.Day(now, "debug")
	require.ErrorIs(t, err, ErrInvalidEntry)

	removed, err := l.Purge(0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = l.Purge(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = l.Purge(-1)
	require.Error(t, err)
}
