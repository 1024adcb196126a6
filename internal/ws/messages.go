package ws

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"walk-navigation/internal/geo"
	"walk-navigation/internal/position"
	"walk-navigation/internal/route"
)

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound message types.
const (
	TypeDestination   = "destination"
	TypePosition      = "position"
	TypePositionError = "position_error"
	TypeStop          = "stop"
)

// Outbound message types.
const (
	TypeWatch  = "watch"
	TypeCancel = "cancel"
	TypeFrame  = "frame"
	TypeRoute  = "route"
	TypeMarker = "marker"
	TypeEvent  = "event"
	TypeState  = "state"
	TypeError  = "error"
)

func newMessage(typ string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshalling %s message: %w", typ, err)
	}
	return Message{Type: typ, Data: raw}, nil
}

type destinationPayload struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

func (p destinationPayload) destination() geo.Destination {
	return geo.Destination{Coordinate: geo.Coordinate{Lat: p.Lat, Lng: p.Lng}, Label: p.Label}
}

// positionPayload mirrors a browser GeolocationPosition.
type positionPayload struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Heading   *float64 `json:"heading"`
	Timestamp int64    `json:"timestamp"`
}

func (p positionPayload) sample() position.Sample {
	return position.Sample{
		Coordinate:  geo.Coordinate{Lat: p.Lat, Lng: p.Lng},
		Heading:     p.Heading,
		TimestampMs: p.Timestamp,
	}
}

type positionErrorPayload struct {
	Reason  position.Reason `json:"reason"`
	Message string          `json:"message"`
}

type watchPayload struct {
	WatchID            position.WatchID `json:"watch_id"`
	EnableHighAccuracy bool             `json:"enableHighAccuracy"`
	MaximumAge         int64            `json:"maximumAge"`
	Timeout            int64            `json:"timeout"`
}

type cancelPayload struct {
	WatchID position.WatchID `json:"watch_id"`
}

type routePayload struct {
	Version         uint64            `json:"version"`
	DistanceMeters  float64           `json:"distance_meters"`
	DurationSeconds float64           `json:"duration_seconds"`
	Geometry        *geojson.Geometry `json:"geometry"`
}

func newRoutePayload(g *route.Geometry) routePayload {
	line := make(orb.LineString, len(g.Path))
	for i, c := range g.Path {
		line[i] = c.Point()
	}
	return routePayload{
		Version:         g.Version,
		DistanceMeters:  g.DistanceMeters,
		DurationSeconds: g.DurationSeconds,
		Geometry:        geojson.NewGeometry(line),
	}
}

type statePayload struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type errorPayload struct {
	Message string `json:"message"`
}
