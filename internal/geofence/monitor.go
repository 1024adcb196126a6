package geofence

import (
	"walk-navigation/internal/geo"
)

type Transition int

const (
	TransitionNone Transition = iota
	TransitionLeft
	TransitionEntered
)

func (t Transition) String() string {
	switch t {
	case TransitionLeft:
		return "left"
	case TransitionEntered:
		return "entered"
	default:
		return "none"
	}
}

// Verdict is true while the user is inside the service area.
type Verdict bool

// Monitor classifies positions against a static service region and reports
// each inside/outside flip exactly once.
type Monitor struct {
	region geo.Region
	buffer float64

	hasBaseline bool
	inside      bool
}

// NewMonitor builds a monitor. A positive bufferMeters adds hysteresis: the
// verdict only flips once the position is more than the buffer past the edge.
func NewMonitor(region geo.Region, bufferMeters float64) *Monitor {
	if bufferMeters < 0 {
		bufferMeters = 0
	}
	return &Monitor{region: region, buffer: bufferMeters}
}

// Classify is the plain containment test, without hysteresis or state.
func (m *Monitor) Classify(c geo.Coordinate) Verdict {
	return Verdict(m.region.Contains(c))
}

// Observe updates the verdict with c. The first observation sets the
// baseline; an outside baseline reports
// TransitionLeft so the host can warn immediately.
func (m *Monitor) Observe(c geo.Coordinate) (Verdict, Transition) {
	contained := bool(m.Classify(c))

	if !m.hasBaseline {
		m.hasBaseline = true
		m.inside = contained
		if !contained {
			return false, TransitionLeft
		}
		return true, TransitionNone
	}

	next := contained
	if m.buffer > 0 && contained != m.inside {
		if m.region.DistanceToBoundary(c) <= m.buffer {
			next = m.inside
		}
	}

	if next == m.inside {
		return Verdict(m.inside), TransitionNone
	}
	m.inside = next
	if next {
		return true, TransitionEntered
	}
	return false, TransitionLeft
}

// Inside reports the current verdict; ok is false before the first observation.
func (m *Monitor) Inside() (inside Verdict, ok bool) {
	return Verdict(m.inside), m.hasBaseline
}
