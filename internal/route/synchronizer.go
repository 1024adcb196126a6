package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"walk-navigation/internal/directions"
	"walk-navigation/internal/geo"
)

var ErrRouteUnavailable = errors.New("route unavailable")

// Directions is the external directions service.
type Directions interface {
	Route(ctx context.Context, req directions.Request) (*directions.Route, error)
}

type Config struct {
	Grid    geo.Grid
	Profile string
}

// Outcome describes how one fetch ended.
type Outcome struct {
	Key      CacheKey
	Geometry *Geometry
	// Applied is true when Geometry replaced the cached route.
	Applied bool
	// Stale results were issued for a key that is no longer wanted, or after
	// Close. They are dropped without touching the cache.
	Stale bool
	Err   error
}

// Synchronizer keeps at most one cached route and issues at most one fetch
// per CacheKey at a time.
type Synchronizer struct {
	directions Directions
	cfg        Config
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	current   *Geometry
	wanted    CacheKey
	hasWanted bool
	inflight  map[CacheKey]context.CancelFunc
	version   uint64
	fetches   uint64
	closed    bool
}

func NewSynchronizer(dirs Directions, cfg Config, logger *slog.Logger) *Synchronizer {
	if cfg.Profile == "" {
		cfg.Profile = directions.ProfileWalking
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		directions: dirs,
		cfg:        cfg,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		inflight:   make(map[CacheKey]context.CancelFunc),
	}
}

func (s *Synchronizer) Key(origin geo.Coordinate, dest geo.Destination) CacheKey {
	return CacheKey{Origin: s.cfg.Grid.Cell(origin), Destination: dest.Coordinate}
}

// EnsureRoute returns the cached route when it is valid for origin, otherwise
// starts one fetch (unless one is already running for the same key) and
// returns the previous route. done, when non-nil, runs once the fetch ends.
func (s *Synchronizer) EnsureRoute(origin geo.Coordinate, dest geo.Destination, done func(Outcome)) *Geometry {
	key := s.Key(origin, dest)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.wanted, s.hasWanted = key, true
	current := s.current

	if current != nil && current.Key == key {
		s.mu.Unlock()
		return current
	}
	if _, busy := s.inflight[key]; busy {
		s.mu.Unlock()
		return current
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight[key] = cancel
	s.fetches++
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("fetching route", "key", key.String())
	go s.fetch(ctx, key, origin, dest, done)
	return current
}

func (s *Synchronizer) fetch(ctx context.Context, key CacheKey, origin geo.Coordinate, dest geo.Destination, done func(Outcome)) {
	res, err := s.directions.Route(ctx, directions.Request{
		Origin:      origin,
		Destination: dest.Coordinate,
		Profile:     s.cfg.Profile,
	})

	out := s.settle(key, origin, dest, res, err)
	switch {
	case out.Stale:
		s.logger.Debug("discarding stale route result", "key", key.String())
	case out.Err != nil:
		s.logger.Warn("route fetch failed", "key", key.String(), "error", out.Err)
	default:
		s.logger.Debug("route replaced", "key", key.String(), "version", out.Geometry.Version)
	}
	// The result is settled; done may call Close.
	s.wg.Done()
	if done != nil {
		done(out)
	}
}

func (s *Synchronizer) settle(key CacheKey, origin geo.Coordinate, dest geo.Destination, res *directions.Route, err error) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.inflight[key]; ok {
		cancel()
		delete(s.inflight, key)
	}

	out := Outcome{Key: key}
	if s.closed || !s.hasWanted || s.wanted != key {
		out.Stale = true
		return out
	}
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrRouteUnavailable, err)
		return out
	}
	if res == nil || len(res.Path) == 0 {
		out.Err = fmt.Errorf("%w: %w", ErrRouteUnavailable, directions.ErrNoRoute)
		return out
	}

	distance := res.DistanceMeters
	if distance <= 0 {
		distance = geo.PathLength(res.Path)
	}

	s.version++
	g := &Geometry{
		Path:            res.Path,
		Origin:          origin,
		Destination:     dest,
		DistanceMeters:  distance,
		DurationSeconds: res.DurationSeconds,
		Key:             key,
		Version:         s.version,
		FetchedAt:       time.Now(),
	}
	s.current = g
	out.Geometry = g
	out.Applied = true
	return out
}

// Current returns the cached route, or nil.
func (s *Synchronizer) Current() *Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// InFlight reports the number of fetches still running.
func (s *Synchronizer) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Fetches reports how many fetches were issued in total.
func (s *Synchronizer) Fetches() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Close invalidates every pending result, cancels running fetches and waits
// for them to settle. A done callback may still be running when Close
// returns, and may itself call Close.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, cancel := range s.inflight {
		cancel()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
