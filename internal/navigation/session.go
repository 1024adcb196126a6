package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"walk-navigation/internal/camera"
	"walk-navigation/internal/directions"
	"walk-navigation/internal/geo"
	"walk-navigation/internal/geofence"
	"walk-navigation/internal/heading"
	"walk-navigation/internal/position"
	"walk-navigation/internal/route"
)

// Session ties position, heading, geofence, routing and camera together for
// one destination. Samples are processed one at a time; a stopped session
// cannot be restarted.
type Session struct {
	cfg    Config
	logger *slog.Logger

	source  *position.Source
	heading *heading.Estimator
	fence   *geofence.Monitor
	routes  *route.Synchronizer
	camera  *camera.Controller

	mu         sync.Mutex
	state      Lifecycle
	starting   bool
	dest       geo.Destination
	ctx        context.Context
	cancel     context.CancelFunc
	sub        *position.Subscription
	last       *position.Sample
	shownRoute uint64
	samples    uint64
	updatedAt  time.Time
}

func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.OutsidePolicy == "" {
		cfg.OutsidePolicy = PolicyFlag
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("sessionID", cfg.ID)

	return &Session{
		cfg:     cfg,
		logger:  logger,
		source:  position.NewSource(cfg.Capability, cfg.PositionOptions, logger),
		heading: heading.NewEstimator(cfg.HeadingEpsilonMeters),
		fence:   geofence.NewMonitor(cfg.Region, cfg.GeofenceBufferMeters),
		routes: route.NewSynchronizer(cfg.Directions, route.Config{
			Grid:    geo.Grid{CellMeters: cfg.GridMeters},
			Profile: cfg.Profile,
		}, logger),
		camera: camera.NewController(cfg.Camera),
		state:  Idle,
	}, nil
}

func (s *Session) ID() string {
	return s.cfg.ID
}

func (s *Session) State() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start validates dest, opens the position subscription and moves the
// session to Tracking. Cancelling ctx tears the session down like Stop. On
// error the session stays Idle.
func (s *Session) Start(ctx context.Context, dest geo.Destination) error {
	if err := dest.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}

	s.mu.Lock()
	if s.state != Idle || s.starting {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotIdle, state)
	}
	s.starting = true
	s.dest = dest
	s.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	sub, err := s.source.Subscribe(sessionCtx, s.handleSample, s.handlePositionError)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		cancel()
		return err
	}
	if s.state != Idle {
		// Stop won the race while subscribing.
		s.mu.Unlock()
		sub.Unsubscribe()
		cancel()
		return fmt.Errorf("%w: %s", ErrNotIdle, Stopped)
	}
	s.ctx, s.cancel = sessionCtx, cancel
	s.sub = sub
	s.state = Tracking
	s.updatedAt = time.Now()

	marker := Marker{Kind: MarkerDestination, Coordinate: dest.Coordinate, Label: dest.Label}
	if err := s.cfg.Surface.PlaceMarker(sessionCtx, marker); err != nil {
		s.logger.Warn("failed to place destination marker", "error", err)
	}
	s.mu.Unlock()

	go func() {
		<-sessionCtx.Done()
		s.Stop()
	}()

	s.logger.Info("navigation started", "destination", dest.Coordinate.String(), "label", dest.Label)
	return nil
}

// Stop releases the position subscription and drops pending route results.
// It is idempotent and safe to call from an OnEvent callback.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = Stopped
	s.updatedAt = time.Now()
	sub, cancel := s.sub, s.cancel
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.routes.Close()
	if cancel != nil {
		cancel()
	}
	if prev == Tracking {
		s.logger.Info("navigation stopped")
	}
}

// handleSample runs the per-sample stages in order. Nothing a stage does can
// stop later samples from being processed.
func (s *Session) handleSample(sample position.Sample) {
	s.mu.Lock()
	if s.state != Tracking {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.samples++
	s.updatedAt = time.Now()
	coord := sample.Coordinate

	// Heading.
	var hdg *heading.State
	if h, ok := s.heading.Update(sample); ok {
		hdg = &h
	}

	// Geofence.
	verdict, transition := s.fence.Observe(coord)
	inside := bool(verdict)

	// Route.
	var current *route.Geometry
	if inside || s.cfg.OutsidePolicy != PolicySuppress {
		current = s.routes.EnsureRoute(coord, s.dest, s.handleRouteOutcome)
	} else {
		current = s.routes.Current()
	}

	// Camera and surface.
	view, changed := s.camera.Next(coord, hdg)
	if changed || transition != geofence.TransitionNone {
		frame := Frame{View: view, Heading: hdg, Route: current, Inside: inside}
		if current != nil {
			off := current.OffRouteDistance(coord)
			frame.OffRouteMeters = &off
		}
		if err := s.cfg.Surface.Render(ctx, frame); err != nil {
			s.logger.Warn("failed to render frame", "error", err)
		}
	}

	s.last = &sample
	s.mu.Unlock()

	s.logger.Debug("sample processed", "coordinate", coord.String(), "inside", inside)

	switch transition {
	case geofence.TransitionLeft:
		s.emit(Event{Kind: EventLeftServiceArea, Coordinate: &coord})
	case geofence.TransitionEntered:
		s.emit(Event{Kind: EventEnteredServiceArea, Coordinate: &coord})
	}
}

func (s *Session) handlePositionError(err error) {
	if s.State() != Tracking {
		return
	}
	s.logger.Warn("position unavailable", "error", err)
	reason := position.AsError(err).Reason
	if !reason.IsValid() {
		reason = position.ReasonUnavailable
	}
	s.emit(Event{Kind: EventPositionUnavailable, Err: err, Message: "position unavailable: " + string(reason)})
}

func (s *Session) handleRouteOutcome(out route.Outcome) {
	if out.Stale {
		return
	}

	s.mu.Lock()
	if s.state != Tracking {
		s.mu.Unlock()
		return
	}
	if out.Err != nil {
		s.mu.Unlock()
		s.emit(Event{Kind: EventRouteUnavailable, Err: out.Err, Message: routeUnavailableMessage(out.Err)})
		return
	}

	g := out.Geometry
	if g == nil || g.Version <= s.shownRoute {
		s.mu.Unlock()
		return
	}
	s.shownRoute = g.Version
	if err := s.cfg.Surface.ShowRoute(s.ctx, g); err != nil {
		s.logger.Warn("failed to show route", "error", err)
	}
	marker := Marker{Kind: MarkerOrigin, Coordinate: g.Origin}
	if err := s.cfg.Surface.PlaceMarker(s.ctx, marker); err != nil {
		s.logger.Warn("failed to place origin marker", "error", err)
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventRouteUpdated, Message: fmt.Sprintf("route v%d, %d points", g.Version, len(g.Path))})
}

// routeUnavailableMessage is shown to hosts instead of the raw error, which
// may carry upstream request details.
func routeUnavailableMessage(err error) string {
	if errors.Is(err, directions.ErrNoRoute) {
		return "no walking route to the destination"
	}
	return "directions service unavailable"
}

func (s *Session) emit(e Event) {
	if s.cfg.OnEvent == nil {
		return
	}
	e.SessionID = s.cfg.ID
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.cfg.OnEvent(e)
}

// Route returns the cached route, or nil.
func (s *Session) Route() *route.Geometry {
	return s.routes.Current()
}

func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		ID:            s.cfg.ID,
		State:         s.state,
		Destination:   s.dest,
		Samples:       s.samples,
		UpdatedAt:     s.updatedAt,
		RouteFetches:  s.routes.Fetches(),
		RouteInFlight: s.routes.InFlight(),
	}
	if s.last != nil {
		last := *s.last
		snap.LastPosition = &last
	}
	if h, ok := s.heading.Current(); ok {
		snap.Heading = &h
	}
	if v, ok := s.fence.Inside(); ok {
		inside := bool(v)
		snap.Inside = &inside
	}
	if view, ok := s.camera.Previous(); ok {
		snap.View = &view
	}
	if g := s.routes.Current(); g != nil {
		snap.Route = &RouteSummary{
			Version:         g.Version,
			Points:          len(g.Path),
			DistanceMeters:  g.DistanceMeters,
			DurationSeconds: g.DurationSeconds,
		}
	}
	return snap
}
