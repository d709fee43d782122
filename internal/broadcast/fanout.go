package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fraud-detector/internal/models"
)

// FanOut queues payloads and delivers them to every subscriber from a single
// dispatch goroutine, so observers see alerts in publish order. A subscriber
// that fails a delivery is dropped and closed; it is never retried.
type FanOut struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber

	queueMu sync.RWMutex
	queue   chan models.AlertPayload
	closed  bool

	sendTimeout time.Duration
	log         *slog.Logger
	done        chan struct{}
}

func NewFanOut(queueSize int, sendTimeout time.Duration, log *slog.Logger) *FanOut {
	f := &FanOut{
		subscribers: make(map[string]Subscriber),
		queue:       make(chan models.AlertPayload, queueSize),
		sendTimeout: sendTimeout,
		log:         log,
		done:        make(chan struct{}),
	}
	go f.dispatch()
	return f
}

func (f *FanOut) Subscribe(sub Subscriber) {
	f.mu.Lock()
	f.subscribers[sub.ID()] = sub
	count := len(f.subscribers)
	f.mu.Unlock()

	f.log.Info("observer subscribed", slog.String("observer_id", sub.ID()), slog.Int("observers", count))
}

// Unsubscribe removes and closes the subscriber. Unknown IDs are ignored.
func (f *FanOut) Unsubscribe(id string) {
	f.mu.Lock()
	sub, ok := f.subscribers[id]
	delete(f.subscribers, id)
	count := len(f.subscribers)
	f.mu.Unlock()

	if !ok {
		return
	}
	if err := sub.Close(); err != nil {
		f.log.Warn("failed to close observer", slog.String("observer_id", id), slog.String("error", err.Error()))
	}
	f.log.Info("observer unsubscribed", slog.String("observer_id", id), slog.Int("observers", count))
}

func (f *FanOut) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// Publish never blocks: when the queue is full or the fan-out is closed the
// payload is dropped and logged.
func (f *FanOut) Publish(_ context.Context, payload models.AlertPayload) {
	f.queueMu.RLock()
	defer f.queueMu.RUnlock()

	if f.closed {
		f.log.Warn("broadcaster closed, alert dropped", slog.String("alert_id", payload.AlertID.String()))
		return
	}

	select {
	case f.queue <- payload:
	default:
		f.log.Error("alert queue is full, alert dropped",
			slog.String("alert_id", payload.AlertID.String()),
			slog.String("transaction_id", payload.TransactionID))
	}
}

func (f *FanOut) dispatch() {
	defer close(f.done)

	for payload := range f.queue {
		f.deliver(payload)
	}

	f.mu.Lock()
	subs := f.subscribers
	f.subscribers = make(map[string]Subscriber)
	f.mu.Unlock()

	for id, sub := range subs {
		if err := sub.Close(); err != nil {
			f.log.Warn("failed to close observer", slog.String("observer_id", id), slog.String("error", err.Error()))
		}
	}
}

func (f *FanOut) deliver(payload models.AlertPayload) {
	f.mu.RLock()
	subs := make([]Subscriber, 0, len(f.subscribers))
	for _, sub := range f.subscribers {
		subs = append(subs, sub)
	}
	f.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed []string
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub Subscriber) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), f.sendTimeout)
			defer cancel()

			if err := sub.Deliver(ctx, payload); err != nil {
				f.log.Warn("alert delivery failed, dropping observer",
					slog.String("observer_id", sub.ID()),
					slog.String("alert_id", payload.AlertID.String()),
					slog.String("error", err.Error()))
				failMu.Lock()
				failed = append(failed, sub.ID())
				failMu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	for _, id := range failed {
		f.Unsubscribe(id)
	}

	f.log.Debug("alert broadcast",
		slog.String("alert_id", payload.AlertID.String()),
		slog.Int("delivered", len(subs)-len(failed)),
		slog.Int("failed", len(failed)))
}

// Close stops accepting payloads, drains the queue and closes every
// subscriber. It returns ctx.Err() if draining outlives ctx.
func (f *FanOut) Close(ctx context.Context) error {
	f.queueMu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.queueMu.Unlock()

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
