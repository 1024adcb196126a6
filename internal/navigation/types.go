package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"walk-navigation/internal/camera"
	"walk-navigation/internal/geo"
	"walk-navigation/internal/heading"
	"walk-navigation/internal/position"
	"walk-navigation/internal/route"
)

var (
	ErrInvalidDestination = errors.New("invalid destination")
	ErrNotIdle            = errors.New("session is not idle")
	ErrInvalidConfig      = errors.New("invalid session config")
	ErrSnapshotNotFound   = errors.New("session snapshot not found")
)

type Lifecycle int

const (
	Idle Lifecycle = iota
	Tracking
	Stopped
)

func (l Lifecycle) String() string {
	switch l {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("lifecycle(%d)", int(l))
}

func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Lifecycle) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*l = Idle
	case "tracking":
		*l = Tracking
	case "stopped":
		*l = Stopped
	default:
		return fmt.Errorf("unknown lifecycle %q", b)
	}
	return nil
}

// OutsidePolicy decides what happens to routing while the user is outside
// the service area.
type OutsidePolicy string

const (
	// PolicyFlag keeps fetching routes; frames carry Inside=false.
	PolicyFlag OutsidePolicy = "flag"
	// PolicySuppress requests no route while outside.
	PolicySuppress OutsidePolicy = "suppress"
)

func (p OutsidePolicy) IsValid() bool {
	switch p {
	case PolicyFlag, PolicySuppress:
		return true
	}
	return false
}

// Frame is forwarded to the surface once per processed sample.
type Frame struct {
	View    camera.ViewDirective `json:"view"`
	Heading *heading.State       `json:"heading,omitempty"`
	Route   *route.Geometry      `json:"-"`
	Inside  bool                 `json:"inside"`
	// OffRouteMeters is the distance to the displayed route, when there is one.
	OffRouteMeters *float64 `json:"off_route_meters,omitempty"`
}

type MarkerKind string

const (
	MarkerOrigin      MarkerKind = "origin"
	MarkerDestination MarkerKind = "destination"
)

type Marker struct {
	Kind       MarkerKind     `json:"kind"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Label      string         `json:"label,omitempty"`
}

// Surface is the map renderer. Calls for one session are serialised.
type Surface interface {
	Render(ctx context.Context, frame Frame) error
	// ShowRoute replaces any path previously drawn for the session.
	ShowRoute(ctx context.Context, g *route.Geometry) error
	PlaceMarker(ctx context.Context, m Marker) error
}

type EventKind string

const (
	EventLeftServiceArea     EventKind = "left_service_area"
	EventEnteredServiceArea  EventKind = "entered_service_area"
	EventPositionUnavailable EventKind = "position_unavailable"
	EventRouteUnavailable    EventKind = "route_unavailable"
	EventRouteUpdated        EventKind = "route_updated"
)

// Event is surfaced to the host application.
type Event struct {
	Kind       EventKind       `json:"kind"`
	SessionID  string          `json:"session_id"`
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	// Message is fixed per kind and safe to show to clients. Err stays on
	// the server.
	Message string    `json:"message,omitempty"`
	Err     error     `json:"-"`
	At      time.Time `json:"at"`
}

// RouteSummary is the part of a route worth persisting in a snapshot.
type RouteSummary struct {
	Version         uint64  `json:"version"`
	Points          int     `json:"points"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Snapshot is a read-only view of a session, safe to serialise.
type Snapshot struct {
	ID            string                `json:"session_id"`
	State         Lifecycle             `json:"state"`
	Destination   geo.Destination       `json:"destination"`
	LastPosition  *position.Sample      `json:"last_position,omitempty"`
	Heading       *heading.State        `json:"heading,omitempty"`
	Inside        *bool                 `json:"inside,omitempty"`
	View          *camera.ViewDirective `json:"view,omitempty"`
	Route         *RouteSummary         `json:"route,omitempty"`
	RouteFetches  uint64                `json:"route_fetches"`
	RouteInFlight int                   `json:"route_in_flight"`
	Samples       uint64                `json:"samples"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// SnapshotStore keeps snapshots for observers outside the session.
type SnapshotStore interface {
	SetSnapshot(ctx context.Context, snapshot *Snapshot) error
	GetSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, sessionID string) error
}
