package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/logger"
)

// ErrInvalidEntry is returned for entries with an unknown kind or without a title
var ErrInvalidEntry = errors.New("invalid log entry")

// Log records typed activity to the structured logger and to storage
type Log struct {
	storage core.LogStorage
	log     logger.Logger
	now     func() time.Time
}

// New creates an activity log. storage may be nil to only write to the logger.
func New(storage core.LogStorage, log logger.Logger) *Log {
	return &Log{
		storage: storage,
		log:     log,
		now:     time.Now,
	}
}

// Add validates and records an entry. Storage failures are logged, not returned.
func (l *Log) Add(kind core.LogKind, title, description string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidEntry, kind)
	}
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEntry)
	}

	entry := &core.LogEntry{
		Kind:        kind,
		Title:       title,
		Description: description,
		Time:        l.now(),
	}

	log := l.log.WithFields(map[string]any{
		"kind":  string(kind),
		"title": title,
	})

	switch kind {
	case core.LogError:
		log.Error(description)
	case core.LogAlert:
		log.Warn(description)
	default:
		log.Info(description)
	}

	if l.storage == nil {
		return nil
	}

	if err := l.storage.AddLog(entry); err != nil {
		l.log.WithError(err).Errorf("failed to store %s log %q", kind, title)
	}
	return nil
}

func (l *Log) Error(title, description string) {
	_ = l.Add(core.LogError, title, description)
}

func (l *Log) Alert(title, description string) {
	_ = l.Add(core.LogAlert, title, description)
}

func (l *Log) Transaction(title, description string) {
	_ = l.Add(core.LogTransaction, title, description)
}

// Day returns the entries logged on the calendar day of day, optionally of a single kind
func (l *Log) Day(day time.Time, kind core.LogKind) ([]core.LogEntry, error) {
	if l.storage == nil {
		return nil, nil
	}

	filters := []core.LogFilter{core.WithLogDay(day)}
	if kind != "" {
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: kind %q", ErrInvalidEntry, kind)
		}
		filters = append(filters, core.WithLogKind(kind))
	}
	return l.storage.Logs(filters...)
}

// Purge deletes entries older than days. Zero keeps everything.
func (l *Log) Purge(days int) (int, error) {
	if days < 0 {
		return 0, fmt.Errorf("retention days must not be negative, got %d", days)
	}
	if days == 0 || l.storage == nil {
		return 0, nil
	}

	removed, err := l.storage.PurgeLogs(l.now().AddDate(0, 0, -days))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		l.log.WithField("removed", removed).Infof("purged logs older than %d days", days)
	}
	return removed, nil
}
