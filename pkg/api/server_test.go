package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/fibscan/pkg/activity"
	"github.com/raykavin/fibscan/pkg/config"
	"github.com/raykavin/fibscan/pkg/core"
	zlog "github.com/raykavin/fibscan/pkg/logger/zerolog"
	"github.com/raykavin/fibscan/pkg/scanner"
	"github.com/raykavin/fibscan/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	running bool
}

func (s *fakeScanner) Start() error {
	if s.running {
		return scanner.ErrAlreadyRunning
	}
	s.running = true
	return nil
}

func (s *fakeScanner) Stop() error {
	if !s.running {
		return scanner.ErrNotRunning
	}
	s.running = false
	return nil
}

func (s *fakeScanner) Status() scanner.Status {
	status := scanner.Status{State: scanner.StateStopped, TotalSymbols: 3, ScannedSymbols: 1}
	if s.running {
		status.State = scanner.StateRunning
		status.CurrentSymbol = core.Some("BTCUSDT")
	}
	return status
}

type response struct {
	Success bool            `json:"success"`
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	server  *Server
	scanner *fakeScanner
	db      *storage.BuntStorage
	logs    *activity.Log
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := storage.FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logs := activity.New(db, zlog.Nop())
	provider := config.NewProvider(config.Default().Scanner.ScanConfig, db)
	control := &fakeScanner{}
	server := NewServer(Config{Release: true}, control, zlog.Nop(),
		WithSignals(db), WithLogs(logs), WithSettings(provider))

	return fixture{server: server, scanner: control, db: db, logs: logs}
}

func (f fixture) do(t *testing.T, method, target, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	code, resp := f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), `"status":"healthy"`)
}

func TestServer_Status(t *testing.T) {
	f := newFixture(t)

	code, resp := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, code)

	var status scanner.Status
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, scanner.StateStopped, status.State)
	assert.Equal(t, int64(3), status.TotalSymbols)
	assert.Equal(t, int64(1), status.ScannedSymbols)
	assert.False(t, status.CurrentSymbol.IsSet())
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t)

	code, resp := f.do(t, http.MethodPost, "/api/scanner/start", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"state":"running"`)

	code, resp = f.do(t, http.MethodPost, "/api/scanner/start", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.True(t, resp.Error)
	assert.Equal(t, scanner.ErrAlreadyRunning.Error(), resp.Message)

	code, _ = f.do(t, http.MethodPost, "/api/scanner/stop", "")
	assert.Equal(t, http.StatusOK, code)

	code, resp = f.do(t, http.MethodPost, "/api/scanner/stop", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, scanner.ErrNotRunning.Error(), resp.Message)
}

func TestServer_Signals(t *testing.T) {
	f := newFixture(t)

	code, resp := f.do(t, http.MethodGet, "/api/signals", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(resp.Data))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.db.SaveSignal(core.Signal{
			Time:      base.Add(time.Duration(i) * time.Minute),
			Symbol:    "SYM" + strconv.Itoa(i),
			Direction: core.DirectionShort,
		}))
	}

	code, resp = f.do(t, http.MethodGet, "/api/signals?limit=2", "")
	require.Equal(t, http.StatusOK, code)

	var signals []core.Signal
	require.NoError(t, json.Unmarshal(resp.Data, &signals))
	require.Len(t, signals, 2)
	assert.Equal(t, "SYM3", signals[0].Symbol)
	assert.Equal(t, "SYM2", signals[1].Symbol)

	for _, limit := range []string{"0", "-1", "many"} {
		code, resp = f.do(t, http.MethodGet, "/api/signals?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, code, limit)
		assert.True(t, resp.Error)
	}
}

func TestServer_Logs(t *testing.T) {
	f := newFixture(t)

	f.logs.Error("ScannerLoop", "Settings (pivot_period) could not be loaded completely.")
	f.logs.Alert("GetSymbols", "connection refused")

	code, resp := f.do(t, http.MethodGet, "/api/logs", "")
	require.Equal(t, http.StatusOK, code)

	var entries []core.LogEntry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "ScannerLoop", entries[0].Title)

	code, resp = f.do(t, http.MethodGet, "/api/logs?kind=alert", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, core.LogAlert, entries[0].Kind)

	code, resp = f.do(t, http.MethodGet, "/api/logs?date=2000-01-01", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	assert.Empty(t, entries)

	code, _ = f.do(t, http.MethodGet, "/api/logs?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/logs?kind=debug", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_Settings(t *testing.T) {
	f := newFixture(t)

	code, resp := f.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, code)

	var settings core.ScanConfig
	require.NoError(t, json.Unmarshal(resp.Data, &settings))
	assert.Equal(t, config.Default().Scanner.ScanConfig, settings)

	code, resp = f.do(t, http.MethodPut, "/api/settings", `{"pivot_period": 7, "timeframe_2": "4 hours"}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &settings))
	assert.Equal(t, 7, settings.PivotPeriod)
	assert.Equal(t, "4 hours", settings.Timeframe2)
	assert.Equal(t, "15 minutes", settings.Timeframe1)

	stored, err := f.db.ScanSettings()
	require.NoError(t, err)
	require.NotNil(t, stored.PivotPeriod)
	assert.Equal(t, 7, *stored.PivotPeriod)

	code, resp = f.do(t, http.MethodPut, "/api/settings", `{"min_volume": 0}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &settings))
	assert.Zero(t, settings.MinVolume)
	assert.Equal(t, 7, settings.PivotPeriod)

	stored, err = f.db.ScanSettings()
	require.NoError(t, err)
	require.NotNil(t, stored.MinVolume)
	assert.Zero(t, *stored.MinVolume)

	code, _ = f.do(t, http.MethodPut, "/api/settings", `{"pivot_period": -1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPut, "/api/settings", `{"pivot_period": 0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPut, "/api/settings", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_Unavailable(t *testing.T) {
	server := NewServer(Config{Release: true}, &fakeScanner{}, zlog.Nop())

	for _, target := range []string{"/api/signals", "/api/logs", "/api/settings"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
}
