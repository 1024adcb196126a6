package navigation

import (
	"fmt"
	"log/slog"

	"walk-navigation/internal/camera"
	"walk-navigation/internal/geo"
	"walk-navigation/internal/heading"
	"walk-navigation/internal/position"
	"walk-navigation/internal/route"
)

// Settings are the tunables shared by every session of a process.
type Settings struct {
	PositionOptions      position.Options
	Region               geo.Region
	GeofenceBufferMeters float64
	OutsidePolicy        OutsidePolicy
	GridMeters           float64
	HeadingEpsilonMeters float64
	Camera               camera.Settings
	Profile              string
}

func DefaultSettings(region geo.Region) Settings {
	return Settings{
		PositionOptions:      position.DefaultOptions(),
		Region:               region,
		OutsidePolicy:        PolicyFlag,
		GridMeters:           10,
		HeadingEpsilonMeters: heading.DefaultEpsilonMeters,
		Camera:               camera.DefaultSettings(),
	}
}

// Config is everything one session needs. Collaborators are passed in
// explicitly; nothing is looked up from package state.
type Config struct {
	Settings

	ID         string
	Capability position.Capability
	Directions route.Directions
	Surface    Surface
	Logger     *slog.Logger
	// OnEvent receives host notifications. It is never called with the
	// session lock held, so it may call Stop.
	OnEvent func(Event)
}

func (c Config) Validate() error {
	switch {
	case c.Capability == nil:
		return fmt.Errorf("%w: missing position capability", ErrInvalidConfig)
	case c.Directions == nil:
		return fmt.Errorf("%w: missing directions service", ErrInvalidConfig)
	case c.Surface == nil:
		return fmt.Errorf("%w: missing map surface", ErrInvalidConfig)
	case c.Region == nil:
		return fmt.Errorf("%w: missing service region", ErrInvalidConfig)
	case c.OutsidePolicy != "" && !c.OutsidePolicy.IsValid():
		return fmt.Errorf("%w: outside policy %q", ErrInvalidConfig, c.OutsidePolicy)
	}
	return nil
}
