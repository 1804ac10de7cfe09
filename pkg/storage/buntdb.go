package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/tidwall/buntdb"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = core.ErrNotFound

// Key prefixes. Logs and signals are keyed by ULID so key order is time order.
const (
	settingsKey   = "settings:scan"
	periodPrefix  = "period:"
	userPrefix    = "user:"
	logPrefix     = "log:"
	signalPrefix  = "signal:"
	userIndexName = "user_added"
)

// BuntStorage implements core.Storage using BuntDB
type BuntStorage struct {
	db *buntdb.DB
}

// BuntConfig holds configuration options for BuntDB
type BuntConfig struct {
	// SyncPolicy determines how often data is synchronized to disk
	SyncPolicy buntdb.SyncPolicy
}

// DefaultBuntConfig returns the default configuration for BuntDB
func DefaultBuntConfig() BuntConfig {
	return BuntConfig{SyncPolicy: buntdb.EverySecond}
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:", DefaultBuntConfig())
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file, DefaultBuntConfig())
}

// NewBuntStorage opens a BuntDB database and creates its indexes
func NewBuntStorage(sourceFile string, config BuntConfig) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	var dbConfig buntdb.Config
	if err := db.ReadConfig(&dbConfig); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read buntdb config: %w", err)
	}
	dbConfig.SyncPolicy = config.SyncPolicy
	if err := db.SetConfig(dbConfig); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set buntdb config: %w", err)
	}

	err = db.CreateIndex(userIndexName, userPrefix+"*", buntdb.IndexJSON("added_at"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{db: db}, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, buntdb.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func (b *BuntStorage) set(key string, value any) error {
	content, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(key, string(content), nil); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
		return nil
	})
}

func (b *BuntStorage) get(key string, value any) error {
	return b.db.View(func(tx *buntdb.Tx) error {
		content, err := tx.Get(key)
		if err != nil {
			return notFound(err, key)
		}
		return json.Unmarshal([]byte(content), value)
	})
}

// AddLog stores a log entry, assigning an ID and time when missing
func (b *BuntStorage) AddLog(entry *core.LogEntry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	if entry.ID == "" {
		entry.ID = core.NewID(entry.Time)
	}
	return b.set(logPrefix+entry.ID, entry)
}

// Logs returns the entries matching every filter, oldest first
func (b *BuntStorage) Logs(filters ...core.LogFilter) ([]core.LogEntry, error) {
	entries := make([]core.LogEntry, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(logPrefix+"*", func(_, value string) bool {
			var entry core.LogEntry
			if err := json.Unmarshal([]byte(value), &entry); err != nil {
				return true
			}
			for _, filter := range filters {
				if !filter(entry) {
					return true
				}
			}
			entries = append(entries, entry)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over logs: %w", err)
	}
	return entries, nil
}

func (b *BuntStorage) DeleteLog(id string) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(logPrefix + id)
		return notFound(err, "log "+id)
	})
}

// PurgeLogs deletes every entry logged before the given time
func (b *BuntStorage) PurgeLogs(before time.Time) (int, error) {
	var expired []string
	err := b.db.Update(func(tx *buntdb.Tx) error {
		err := tx.AscendKeys(logPrefix+"*", func(key, value string) bool {
			var entry core.LogEntry
			if err := json.Unmarshal([]byte(value), &entry); err == nil && entry.Time.Before(before) {
				expired = append(expired, key)
			}
			return true
		})
		if err != nil {
			return err
		}

		// keys cannot be deleted while iterating
		for _, key := range expired {
			if _, err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge logs: %w", err)
	}
	return len(expired), nil
}

func (b *BuntStorage) SaveSignal(signal core.Signal) error {
	if signal.ID == "" {
		signal.ID = core.NewID(signal.Time)
	}
	return b.set(signalPrefix+signal.ID, signal)
}

// Signals returns the signals matching every filter, oldest first
func (b *BuntStorage) Signals(filters ...core.SignalFilter) ([]core.Signal, error) {
	signals := make([]core.Signal, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(signalPrefix+"*", func(_, value string) bool {
			var signal core.Signal
			if err := json.Unmarshal([]byte(value), &signal); err != nil {
				return true
			}
			for _, filter := range filters {
				if !filter(signal) {
					return true
				}
			}
			signals = append(signals, signal)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over signals: %w", err)
	}
	return signals, nil
}

// SaveUser inserts or replaces a user. AddedAt is kept from the stored record.
func (b *BuntStorage) SaveUser(user core.User) error {
	if existing, err := b.User(user.ID); err == nil {
		user.AddedAt = existing.AddedAt
	}
	if user.AddedAt.IsZero() {
		user.AddedAt = time.Now()
	}
	return b.set(userPrefix+strconv.FormatInt(user.ID, 10), user)
}

func (b *BuntStorage) User(id int64) (core.User, error) {
	var user core.User
	err := b.get(userPrefix+strconv.FormatInt(id, 10), &user)
	return user, err
}

// Users returns every user in the order they were added
func (b *BuntStorage) Users() ([]core.User, error) {
	return b.users(func(core.User) bool { return true })
}

func (b *BuntStorage) ActiveUsers() ([]core.User, error) {
	return b.users(func(u core.User) bool { return u.Active })
}

func (b *BuntStorage) users(keep func(core.User) bool) ([]core.User, error) {
	users := make([]core.User, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(userIndexName, func(_, value string) bool {
			var user core.User
			if err := json.Unmarshal([]byte(value), &user); err == nil && keep(user) {
				users = append(users, user)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over users: %w", err)
	}
	return users, nil
}

// ScanSettings returns the stored overrides or ErrNotFound when none were saved
func (b *BuntStorage) ScanSettings() (core.ScanUpdate, error) {
	var overrides core.ScanUpdate
	err := b.get(settingsKey, &overrides)
	return overrides, err
}

func (b *BuntStorage) SaveScanSettings(overrides core.ScanUpdate) error {
	return b.set(settingsKey, overrides)
}

// Periods returns the timeframe label table, label to exchange interval
func (b *BuntStorage) Periods() (map[string]string, error) {
	periods := make(map[string]string)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(periodPrefix+"*", func(key, value string) bool {
			periods[strings.TrimPrefix(key, periodPrefix)] = value
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over periods: %w", err)
	}
	return periods, nil
}

func (b *BuntStorage) SavePeriod(label, code string) error {
	if label == "" || code == "" {
		return fmt.Errorf("period label and code are required")
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(periodPrefix+label, code, nil)
		return err
	})
}

func (b *BuntStorage) DeletePeriod(label string) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(periodPrefix + label)
		return notFound(err, "period "+label)
	})
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
