package subscriber

import (
	"walk-navigation/internal/geo"
	"walk-navigation/internal/position"
)

// PositionMessage is the payload published on a device position channel.
// Either Error is set, or the fix fields are.
type PositionMessage struct {
	Lat       float64       `json:"lat"`
	Lng       float64       `json:"lng"`
	Heading   *float64      `json:"heading,omitempty"`
	Timestamp int64         `json:"timestamp"`
	Error     *ErrorMessage `json:"error,omitempty"`
}

type ErrorMessage struct {
	Reason  position.Reason `json:"reason"`
	Message string          `json:"message"`
}

func (m PositionMessage) Sample() position.Sample {
	return position.Sample{
		Coordinate:  geo.Coordinate{Lat: m.Lat, Lng: m.Lng},
		Heading:     m.Heading,
		TimestampMs: m.Timestamp,
	}
}
