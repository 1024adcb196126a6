package position

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WatchID identifies one watch on a Capability.
type WatchID string

// Capability is the device or browser location stream. Callbacks may run
// on any goroutine, concurrently; the Source serialises sample delivery.
type Capability interface {
	Watch(ctx context.Context, opts Options, onSample func(Sample), onError func(error)) (WatchID, error)
	Cancel(id WatchID)
}

// Source wraps a Capability and enforces the sample contract: valid
// coordinates, non-decreasing timestamps and a no-fix watchdog.
type Source struct {
	capability Capability
	opts       Options
	logger     *slog.Logger
}

func NewSource(capability Capability, opts Options, logger *slog.Logger) *Source {
	return &Source{capability: capability, opts: opts, logger: logger}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id       WatchID
	source   *Source
	onSample func(Sample)
	onError  func(error)

	// deliverMu is held from the ordering check through onSample, so
	// accepted samples reach onSample one at a time and in order.
	deliverMu sync.Mutex

	mu       sync.Mutex
	active   bool
	hasLast  bool
	lastTs   int64
	watchdog *time.Timer
}

func (s *Source) Subscribe(ctx context.Context, onSample func(Sample), onError func(error)) (*Subscription, error) {
	sub := &Subscription{
		source:   s,
		onSample: onSample,
		onError:  onError,
		active:   true,
	}

	// Watch may deliver synchronously, so it runs without sub.mu held.
	id, err := s.capability.Watch(ctx, s.opts, sub.deliver, sub.fail)
	if err != nil {
		sub.mu.Lock()
		sub.active = false
		sub.mu.Unlock()
		return nil, fmt.Errorf("watching position: %w", AsError(err))
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.id = id
	if s.opts.Timeout > 0 {
		sub.watchdog = time.AfterFunc(s.opts.Timeout, sub.timeout)
	}
	return sub, nil
}

func (sub *Subscription) ID() WatchID {
	return sub.id
}

func (sub *Subscription) Unsubscribe() {
	sub.mu.Lock()
	if !sub.active {
		sub.mu.Unlock()
		return
	}
	sub.active = false
	if sub.watchdog != nil {
		sub.watchdog.Stop()
	}
	id := sub.id
	sub.mu.Unlock()

	sub.source.capability.Cancel(id)
	sub.source.logger.Debug("position watch cancelled", "watchID", id)
}

func (sub *Subscription) Active() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.active
}

func (sub *Subscription) deliver(sample Sample) {
	sub.deliverMu.Lock()
	defer sub.deliverMu.Unlock()

	sub.mu.Lock()
	if !sub.active {
		sub.mu.Unlock()
		return
	}
	if err := sample.Coordinate.Validate(); err != nil {
		sub.mu.Unlock()
		sub.source.logger.Warn("dropping invalid position sample", "error", err)
		return
	}
	if sub.hasLast && sample.TimestampMs < sub.lastTs {
		sub.mu.Unlock()
		sub.source.logger.Debug("dropping out of order sample", "timestamp", sample.TimestampMs, "last", sub.lastTs)
		return
	}
	sub.hasLast = true
	sub.lastTs = sample.TimestampMs
	if sub.watchdog != nil {
		sub.watchdog.Reset(sub.source.opts.Timeout)
	}
	sub.mu.Unlock()

	sub.onSample(sample)
}

func (sub *Subscription) fail(err error) {
	if !sub.Active() {
		return
	}
	sub.onError(AsError(err))
}

func (sub *Subscription) timeout() {
	sub.mu.Lock()
	if !sub.active {
		sub.mu.Unlock()
		return
	}
	sub.watchdog.Reset(sub.source.opts.Timeout)
	sub.mu.Unlock()

	sub.onError(&Error{Reason: ReasonTimeout})
}
