package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Manual is an in-process Capability driven by Push and Fail. It backs
// track replays and tests.
type Manual struct {
	mu       sync.Mutex
	next     int
	watches  map[WatchID]manualWatch
	denied   error
	lastOpts Options
}

type manualWatch struct {
	onSample func(Sample)
	onError  func(error)
}

func NewManual() *Manual {
	return &Manual{watches: make(map[WatchID]manualWatch)}
}

// Deny makes the next Watch calls fail with err.
func (m *Manual) Deny(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = err
}

func (m *Manual) Watch(_ context.Context, opts Options, onSample func(Sample), onError func(error)) (WatchID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied != nil {
		return "", m.denied
	}
	m.next++
	id := WatchID(fmt.Sprintf("manual-%d", m.next))
	m.watches[id] = manualWatch{onSample: onSample, onError: onError}
	m.lastOpts = opts
	return id, nil
}

func (m *Manual) Cancel(id WatchID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watches, id)
}

// Active reports how many watches are open.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}

func (m *Manual) LastOptions() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}

// Push delivers sample to every open watch.
func (m *Manual) Push(sample Sample) {
	for _, w := range m.snapshot() {
		w.onSample(sample)
	}
}

// Fail delivers err to every open watch.
func (m *Manual) Fail(err error) {
	if err == nil {
		err = errors.New("no fix")
	}
	for _, w := range m.snapshot() {
		w.onError(err)
	}
}

func (m *Manual) snapshot() []manualWatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]manualWatch, 0, len(m.watches))
	for _, w := range m.watches {
		out = append(out, w)
	}
	return out
}
