package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/raykavin/fibscan/pkg/core"

	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// SQLStorage implements core.Journal on a SQL database via GORM
type SQLStorage struct {
	db *gorm.DB
}

// SQLConfig holds the connection pool settings
type SQLConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultSQLConfig returns a pool suited to a single-writer SQLite file
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	}
}

type logRecord struct {
	ID          string    `gorm:"primaryKey;size:26"`
	Kind        string    `gorm:"index;size:16"`
	Title       string    `gorm:"size:255"`
	Description string
	Time        time.Time `gorm:"index"`
}

func (logRecord) TableName() string { return "logs" }

type signalRecord struct {
	ID         string    `gorm:"primaryKey;size:26"`
	Time       time.Time `gorm:"index"`
	Symbol     string    `gorm:"index;size:32"`
	Timeframe  string    `gorm:"size:16"`
	Direction  string    `gorm:"size:8"`
	Price      float64
	Volume     float64
	StopLoss   float64
	TakeProfit float64
	Levels     string
	Pattern    string `gorm:"size:64"`
}

func (signalRecord) TableName() string { return "signals" }

// FromSQLite opens (or creates) a SQLite journal at path
func FromSQLite(path string, opts ...gorm.Option) (*SQLStorage, error) {
	return FromSQL(sqlite.Open(path), DefaultSQLConfig(), opts...)
}

// FromSQL creates a journal on any GORM dialect and migrates its tables
func FromSQL(dialect gorm.Dialector, config SQLConfig, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.AutoMigrate(&logRecord{}, &signalRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// AddLog stores a log entry, assigning an ID and time when missing
func (s *SQLStorage) AddLog(entry *core.LogEntry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	if entry.ID == "" {
		entry.ID = core.NewID(entry.Time)
	}

	record := logRecord{
		ID:          entry.ID,
		Kind:        string(entry.Kind),
		Title:       entry.Title,
		Description: entry.Description,
		Time:        entry.Time.UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create log: %w", err)
	}
	return nil
}

// Logs returns the entries matching every filter, oldest first
func (s *SQLStorage) Logs(filters ...core.LogFilter) ([]core.LogEntry, error) {
	var records []logRecord
	if err := s.db.Order("time asc, id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}

	entries := lo.Map(records, func(r logRecord, _ int) core.LogEntry {
		return core.LogEntry{
			ID:          r.ID,
			Kind:        core.LogKind(r.Kind),
			Title:       r.Title,
			Description: r.Description,
			Time:        r.Time,
		}
	})

	return lo.Filter(entries, func(entry core.LogEntry, _ int) bool {
		for _, filter := range filters {
			if !filter(entry) {
				return false
			}
		}
		return true
	}), nil
}

func (s *SQLStorage) DeleteLog(id string) error {
	result := s.db.Delete(&logRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete log: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("log %s: %w", id, ErrNotFound)
	}
	return nil
}

// PurgeLogs deletes every entry logged before the given time
func (s *SQLStorage) PurgeLogs(before time.Time) (int, error) {
	result := s.db.Where("time < ?", before.UTC()).Delete(&logRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge logs: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (s *SQLStorage) SaveSignal(signal core.Signal) error {
	if signal.ID == "" {
		signal.ID = core.NewID(signal.Time)
	}

	levels, err := json.Marshal(signal.Levels)
	if err != nil {
		return fmt.Errorf("failed to marshal levels: %w", err)
	}

	record := signalRecord{
		ID:         signal.ID,
		Time:       signal.Time.UTC(),
		Symbol:     signal.Symbol,
		Timeframe:  signal.Timeframe,
		Direction:  string(signal.Direction),
		Price:      signal.Price,
		Volume:     signal.Volume,
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
		Levels:     string(levels),
		Pattern:    signal.Pattern,
	}
	if err := s.db.Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}
	return nil
}

// Signals returns the signals matching every filter, oldest first
func (s *SQLStorage) Signals(filters ...core.SignalFilter) ([]core.Signal, error) {
	var records []signalRecord
	if err := s.db.Order("time asc, id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch signals: %w", err)
	}

	signals := make([]core.Signal, 0, len(records))
	for _, r := range records {
		var levels core.Levels
		if r.Levels != "" {
			if err := json.Unmarshal([]byte(r.Levels), &levels); err != nil {
				return nil, fmt.Errorf("failed to unmarshal levels of %s: %w", r.ID, err)
			}
		}

		signal := core.Signal{
			ID:         r.ID,
			Time:       r.Time,
			Symbol:     r.Symbol,
			Timeframe:  r.Timeframe,
			Direction:  core.Direction(r.Direction),
			Price:      r.Price,
			Volume:     r.Volume,
			StopLoss:   r.StopLoss,
			TakeProfit: r.TakeProfit,
			Levels:     levels,
			Pattern:    r.Pattern,
		}
		if lo.EveryBy(filters, func(filter core.SignalFilter) bool { return filter(signal) }) {
			signals = append(signals, signal)
		}
	}

	return signals, nil
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
