package scanner

import (
	"context"
	"sync"

	"github.com/raykavin/fibscan/pkg/core"
)

// SignalConsumer processes a published signal
type SignalConsumer func(signal core.Signal)

// SignalQueue is an unbounded FIFO of confirmed signals. Publish never blocks.
type SignalQueue struct {
	mu          sync.Mutex
	items       []core.Signal
	ready       chan struct{}
	subscribers []SignalConsumer

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSignalQueue() *SignalQueue {
	return &SignalQueue{ready: make(chan struct{}, 1)}
}

func (q *SignalQueue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Publish appends a signal to the queue
func (q *SignalQueue) Publish(signal core.Signal) {
	q.mu.Lock()
	q.items = append(q.items, signal)
	q.mu.Unlock()
	q.wake()
}

// Len returns the number of queued signals
func (q *SignalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every queued signal, oldest first
func (q *SignalQueue) Drain() []core.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

func (q *SignalQueue) pop() (core.Signal, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return core.Signal{}, false
	}

	signal := q.items[0]
	q.items[0] = core.Signal{}
	q.items = q.items[1:]

	// pass the wake up on to the next waiting consumer
	if len(q.items) > 0 {
		q.wake()
	}
	return signal, true
}

// Next blocks until a signal is available or ctx is done
func (q *SignalQueue) Next(ctx context.Context) (core.Signal, error) {
	for {
		if signal, ok := q.pop(); ok {
			return signal, nil
		}

		select {
		case <-ctx.Done():
			return core.Signal{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Subscribe registers a consumer called by the dispatcher for each signal
func (q *SignalQueue) Subscribe(consumer SignalConsumer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subscribers = append(q.subscribers, consumer)
}

// Start runs the dispatcher that hands queued signals to subscribers
func (q *SignalQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for {
			signal, err := q.Next(ctx)
			if err != nil {
				return
			}

			q.mu.Lock()
			subscribers := append([]SignalConsumer(nil), q.subscribers...)
			q.mu.Unlock()

			for _, consumer := range subscribers {
				consumer(signal)
			}
		}
	}(q.done)
}

// Stop ends dispatch and waits for the dispatcher to return. Queued signals are kept.
func (q *SignalQueue) Stop() {
	q.mu.Lock()
	cancel, done := q.cancel, q.done
	q.cancel, q.done = nil, nil
	q.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
