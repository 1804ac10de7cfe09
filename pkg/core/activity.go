package core

import (
	"time"
)

// LogKind is the category of an activity log entry
type LogKind string

const (
	LogError       LogKind = "error"
	LogAlert       LogKind = "alert"
	LogTransaction LogKind = "transaction"
)

// Valid reports whether k is one of the known kinds
func (k LogKind) Valid() bool {
	return k == LogError || k == LogAlert || k == LogTransaction
}

// LogEntry is a persisted activity log record
type LogEntry struct {
	ID          string    `json:"id"`
	Kind        LogKind   `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
}

// LogFilter selects log entries when querying storage
type LogFilter func(LogEntry) bool

func WithLogKind(kind LogKind) LogFilter {
	return func(e LogEntry) bool {
		return e.Kind == kind
	}
}

// WithLogDay keeps entries logged on the calendar day of day, in day's location
func WithLogDay(day time.Time) LogFilter {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	return func(e LogEntry) bool {
		return !e.Time.Before(start) && e.Time.Before(end)
	}
}

// User is a Telegram user known to the bot
type User struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Admin   bool      `json:"admin"`
	Active  bool      `json:"active"`
	AddedAt time.Time `json:"added_at"`
}
