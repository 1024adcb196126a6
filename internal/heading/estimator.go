package heading

import (
	"walk-navigation/internal/geo"
	"walk-navigation/internal/position"
)

// DefaultEpsilonMeters is the displacement under which a derived bearing is
// treated as noise.
const DefaultEpsilonMeters = 1.0

type Source string

const (
	SourceReported Source = "reported"
	SourceDerived  Source = "derived"
)

// State is a facing direction in [0, 360).
type State struct {
	Degrees float64 `json:"degrees"`
	Source  Source  `json:"source"`
}

// Estimator derives a heading from the reported device heading or from the
// displacement between successive samples.
type Estimator struct {
	epsilon float64

	anchor  *position.Sample
	current State
	known   bool
}

func NewEstimator(epsilonMeters float64) *Estimator {
	if epsilonMeters <= 0 {
		epsilonMeters = DefaultEpsilonMeters
	}
	return &Estimator{epsilon: epsilonMeters}
}

// Update folds sample into the estimate. ok is false while no heading is known.
func (e *Estimator) Update(sample position.Sample) (State, bool) {
	defer e.moveAnchor(sample)

	if deg, ok := sample.ReportedHeading(); ok {
		e.set(State{Degrees: geo.NormalizeDegrees(deg), Source: SourceReported})
		return e.current, true
	}

	if e.anchor != nil {
		if geo.Haversine(e.anchor.Coordinate, sample.Coordinate) >= e.epsilon {
			e.set(State{Degrees: geo.Bearing(e.anchor.Coordinate, sample.Coordinate), Source: SourceDerived})
		}
	}
	return e.current, e.known
}

// Current returns the last known heading.
func (e *Estimator) Current() (State, bool) {
	return e.current, e.known
}

func (e *Estimator) set(s State) {
	e.current = s
	e.known = true
}

// moveAnchor keeps the anchor where it is while the user stands still, so
// slow walking still accumulates enough displacement to derive a bearing.
func (e *Estimator) moveAnchor(sample position.Sample) {
	if e.anchor != nil && geo.Haversine(e.anchor.Coordinate, sample.Coordinate) < e.epsilon {
		return
	}
	s := sample
	e.anchor = &s
}
