package notifications

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"clipforge/internal/logging"
)

const (
	defaultAsyncBuffer = 64
	asyncDrainTimeout  = 5 * time.Second
)

// Async hands envelopes to a slower sink on a background worker. Publish
// never blocks: when the queue is full the envelope is dropped and counted.
type Async struct {
	next   Sink
	logger *slog.Logger
	queue  chan Envelope

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAsync starts the delivery worker for next.
func NewAsync(next Sink, buffer int, logger *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = defaultAsyncBuffer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		next:   next,
		logger: logging.NewComponentLogger(logger, "notifications"),
		queue:  make(chan Envelope, buffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Publish implements Sink.
func (a *Async) Publish(_ context.Context, env Envelope) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return nil
	}
	select {
	case a.queue <- env:
	default:
		a.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many envelopes were discarded.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting envelopes and waits briefly for the queue to drain;
// deliveries still pending after that are abandoned.
func (a *Async) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(asyncDrainTimeout):
		a.cancel()
		<-a.done
	}
	a.cancel()
	if n := a.Dropped(); n > 0 {
		logging.WarnWithContext(a.logger, "notifications dropped", "notification_dropped",
			logging.Int64("count", int64(n)),
			logging.String(logging.FieldImpact, "webhook subscribers missed clip lifecycle events"),
			logging.String(logging.FieldErrorHint, "check webhook endpoint latency"),
		)
	}
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for env := range a.queue {
		if err := a.next.Publish(a.ctx, env); err != nil {
			logging.WarnWithContext(a.logger, "notification delivery failed", "notification_failed",
				logging.String("type", string(env.Type)),
				logging.String(logging.FieldSessionID, env.SessionID),
				logging.String(logging.FieldImpact, "webhook missed a clip lifecycle event"),
				logging.Error(err),
			)
		}
	}
}
