package core

import (
	"context"
	"time"
)

// MarketData is the scanner's view of an exchange. Bars are returned oldest first.
type MarketData interface {
	Instruments(ctx context.Context) ([]Instrument, error)
	Volume24h(ctx context.Context, symbol string) (float64, error)
	Bars(ctx context.Context, symbol, interval string) (Bars, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// Feeder is a MarketData source that can also serve candles over a time range
type Feeder interface {
	MarketData
	CandlesByPeriod(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error)
}

// SettingsProvider owns the scan settings and the timeframe label table
type SettingsProvider interface {
	Settings() (ScanConfig, error)
	ResolveTimeframe(label string) string
}

type Notifier interface {
	Notify(userID int64, text string) error
}

// ActivityLogger records typed activity entries
type ActivityLogger interface {
	Error(title, description string)
	Alert(title, description string)
	Transaction(title, description string)
}

type LogStorage interface {
	AddLog(entry *LogEntry) error
	Logs(filters ...LogFilter) ([]LogEntry, error)
	DeleteLog(id string) error
	PurgeLogs(before time.Time) (int, error)
}

type SignalStorage interface {
	SaveSignal(signal Signal) error
	Signals(filters ...SignalFilter) ([]Signal, error)
}

type UserStorage interface {
	SaveUser(user User) error
	User(id int64) (User, error)
	Users() ([]User, error)
	ActiveUsers() ([]User, error)
}

type SettingsStorage interface {
	// ScanSettings returns the stored overrides, ErrNotFound when none were saved
	ScanSettings() (ScanUpdate, error)
	SaveScanSettings(overrides ScanUpdate) error
	Periods() (map[string]string, error)
	SavePeriod(label, code string) error
	DeletePeriod(label string) error
}

// Journal persists signals and activity logs
type Journal interface {
	LogStorage
	SignalStorage
}

// Storage is everything the application persists
type Storage interface {
	Journal
	UserStorage
	SettingsStorage
	Close() error
}
