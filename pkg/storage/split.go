package storage

import (
	"errors"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
)

// Split keeps settings and users in one store and the signal/log journal in another
type Split struct {
	core.UserStorage
	core.SettingsStorage
	journal core.Journal
	closers []interface{ Close() error }
}

// NewSplit combines a settings store with a separate journal. Both are closed by Close.
func NewSplit(base *BuntStorage, journal core.Journal) *Split {
	s := &Split{
		UserStorage:     base,
		SettingsStorage: base,
		journal:         journal,
		closers:         []interface{ Close() error }{base},
	}
	if closer, ok := journal.(interface{ Close() error }); ok {
		s.closers = append(s.closers, closer)
	}
	return s
}

func (s *Split) AddLog(entry *core.LogEntry) error {
	return s.journal.AddLog(entry)
}

func (s *Split) Logs(filters ...core.LogFilter) ([]core.LogEntry, error) {
	return s.journal.Logs(filters...)
}

func (s *Split) DeleteLog(id string) error {
	return s.journal.DeleteLog(id)
}

func (s *Split) PurgeLogs(before time.Time) (int, error) {
	return s.journal.PurgeLogs(before)
}

func (s *Split) SaveSignal(signal core.Signal) error {
	return s.journal.SaveSignal(signal)
}

func (s *Split) Signals(filters ...core.SignalFilter) ([]core.Signal, error) {
	return s.journal.Signals(filters...)
}

func (s *Split) Close() error {
	var errs []error
	for _, closer := range s.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
