package camera

import (
	"time"

	"walk-navigation/internal/geo"
	"walk-navigation/internal/heading"
)

// Settings are the follow-mode constants.
type Settings struct {
	Zoom         float64
	Pitch        float64
	EaseDuration time.Duration
}

func DefaultSettings() Settings {
	return Settings{Zoom: 16, Pitch: 60, EaseDuration: 500 * time.Millisecond}
}

// ViewDirective is what the map surface eases towards. The surface owns the
// interpolation; EaseDurationMs tells it how long the transition lasts.
type ViewDirective struct {
	Center         geo.Coordinate `json:"center"`
	BearingDegrees float64        `json:"bearing"`
	Zoom           float64        `json:"zoom"`
	Pitch          float64        `json:"pitch"`
	EaseDurationMs int64          `json:"ease_duration_ms"`
}

// NextView centres on position and turns to the heading, falling back to the
// previous bearing and then to north.
func NextView(settings Settings, position geo.Coordinate, h *heading.State, previous *ViewDirective) ViewDirective {
	bearing := 0.0
	switch {
	case h != nil:
		bearing = geo.NormalizeDegrees(h.Degrees)
	case previous != nil:
		bearing = previous.BearingDegrees
	}
	return ViewDirective{
		Center:         position,
		BearingDegrees: bearing,
		Zoom:           settings.Zoom,
		Pitch:          settings.Pitch,
		EaseDurationMs: settings.EaseDuration.Milliseconds(),
	}
}

// Controller remembers the last emitted directive.
type Controller struct {
	settings Settings
	previous *ViewDirective
}

func NewController(settings Settings) *Controller {
	return &Controller{settings: settings}
}

// Next computes the directive for one sample. changed is false when it equals
// the previous directive, in which case the surface need not re-render.
func (c *Controller) Next(position geo.Coordinate, h *heading.State) (view ViewDirective, changed bool) {
	view = NextView(c.settings, position, h, c.previous)
	if c.previous != nil && *c.previous == view {
		return view, false
	}
	c.previous = &view
	return view, true
}

func (c *Controller) Previous() (ViewDirective, bool) {
	if c.previous == nil {
		return ViewDirective{}, false
	}
	return *c.previous, true
}
