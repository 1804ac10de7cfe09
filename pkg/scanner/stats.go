package scanner

import (
	"sync/atomic"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
)

// State of the scanner loop. Start and Stop switch directly between stopped and running, so
// these are the only states a status reader sees.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StateWaiting State = "waiting"
)

// Active reports whether a loop is alive in this state
func (s State) Active() bool {
	return s != StateStopped
}

// field is a last-observed value that may be absent
type field[T any] struct {
	p atomic.Pointer[T]
}

func (f *field[T]) Set(value T) {
	f.p.Store(&value)
}

func (f *field[T]) Clear() {
	f.p.Store(nil)
}

func (f *field[T]) Get() core.Optional[T] {
	if v := f.p.Load(); v != nil {
		return core.Some(*v)
	}
	return core.None[T]()
}

// Stats are the live scanner counters. Every field is atomic so status reads never block the loop.
type Stats struct {
	state   atomic.Pointer[State]
	total   atomic.Int64
	scanned atomic.Int64
	found   atomic.Int64

	symbol     field[string]
	timeframe  field[string]
	price      field[float64]
	pivot      field[float64]
	fibLevel   field[float64]
	lastSignal field[time.Time]
}

func (s *Stats) State() State {
	if state := s.state.Load(); state != nil {
		return *state
	}
	return StateStopped
}

func (s *Stats) setState(state State) {
	s.state.Store(&state)
}

// reset clears everything but the state
func (s *Stats) reset() {
	s.total.Store(0)
	s.scanned.Store(0)
	s.found.Store(0)
	s.symbol.Clear()
	s.timeframe.Clear()
	s.lastSignal.Clear()
	s.clearDisplay()
}

func (s *Stats) clearDisplay() {
	s.price.Clear()
	s.pivot.Clear()
	s.fibLevel.Clear()
}

// Status is a point in time copy of Stats
type Status struct {
	State            State                    `json:"state"`
	TotalSymbols     int64                    `json:"total_symbols"`
	ScannedSymbols   int64                    `json:"scanned_symbols"`
	FoundSignals     int64                    `json:"found_signals"`
	CurrentSymbol    core.Optional[string]    `json:"current_symbol"`
	CurrentTimeframe core.Optional[string]    `json:"current_timeframe"`
	CurrentPrice     core.Optional[float64]   `json:"current_price"`
	LastPivotPrice   core.Optional[float64]   `json:"last_pivot_price"`
	LastFibLevel     core.Optional[float64]   `json:"last_fib_level"`
	LastSignalTime   core.Optional[time.Time] `json:"last_signal_time"`
}

// Snapshot copies the counters
func (s *Stats) Snapshot() Status {
	return Status{
		State:            s.State(),
		TotalSymbols:     s.total.Load(),
		ScannedSymbols:   s.scanned.Load(),
		FoundSignals:     s.found.Load(),
		CurrentSymbol:    s.symbol.Get(),
		CurrentTimeframe: s.timeframe.Get(),
		CurrentPrice:     s.price.Get(),
		LastPivotPrice:   s.pivot.Get(),
		LastFibLevel:     s.fibLevel.Get(),
		LastSignalTime:   s.lastSignal.Get(),
	}
}
