package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBunt(t *testing.T) *BuntStorage {
	t.Helper()
	db, err := FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBuntStorage_ScanSettings(t *testing.T) {
	db := newBunt(t)

	_, err := db.ScanSettings()
	require.ErrorIs(t, err, ErrNotFound)

	overrides := core.ScanUpdate{QuoteSuffix: lo.ToPtr("USDT"), PivotPeriod: lo.ToPtr(5), Timeframe2: lo.ToPtr("4 hours")}
	require.NoError(t, db.SaveScanSettings(overrides))

	got, err := db.ScanSettings()
	require.NoError(t, err)
	assert.Equal(t, overrides, got)
	assert.Nil(t, got.MinVolume)

	// a zero override survives the round trip
	overrides.MinVolume = lo.ToPtr(0.0)
	require.NoError(t, db.SaveScanSettings(overrides))

	got, err = db.ScanSettings()
	require.NoError(t, err)
	require.NotNil(t, got.MinVolume)
	assert.Zero(t, *got.MinVolume)
}

func TestBuntStorage_Periods(t *testing.T) {
	db := newBunt(t)

	require.NoError(t, db.SavePeriod("1 hour", "1h"))
	require.NoError(t, db.SavePeriod("4 hours", "4h"))
	require.Error(t, db.SavePeriod("", "1d"))

	periods, err := db.Periods()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1 hour": "1h", "4 hours": "4h"}, periods)

	require.NoError(t, db.DeletePeriod("1 hour"))
	require.ErrorIs(t, db.DeletePeriod("1 hour"), ErrNotFound)

	periods, err = db.Periods()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"4 hours": "4h"}, periods)
}

func TestBuntStorage_Users(t *testing.T) {
	db := newBunt(t)

	_, err := db.User(1)
	require.ErrorIs(t, err, ErrNotFound)

	added := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveUser(core.User{ID: 1, Name: "alice", Active: true, AddedAt: added}))
	require.NoError(t, db.SaveUser(core.User{ID: 2, Name: "bob", AddedAt: added.Add(time.Hour)}))

	// updates keep the original AddedAt
	require.NoError(t, db.SaveUser(core.User{ID: 1, Name: "alice", Active: true, Admin: true}))

	user, err := db.User(1)
	require.NoError(t, err)
	assert.True(t, user.Admin)
	assert.True(t, user.AddedAt.Equal(added))

	users, err := db.Users()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, int64(2), users[1].ID)

	active, err := db.ActiveUsers()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Name)
}

func TestBuntStorage_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fibscan.db")

	db, err := FromFile(path)
	require.NoError(t, err)
	require.NoError(t, db.SavePeriod("1 day", "1d"))
	require.NoError(t, db.Close())

	db, err = FromFile(path)
	require.NoError(t, err)
	defer db.Close()

	periods, err := db.Periods()
	require.NoError(t, err)
	assert.Equal(t, "1d", periods["1 day"])
}

func TestBuntStorage_Journal(t *testing.T) {
	testJournal(t, newBunt(t))
}
