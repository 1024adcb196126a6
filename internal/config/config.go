package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"walk-navigation/internal/camera"
	"walk-navigation/internal/destinations"
	"walk-navigation/internal/directions"
	"walk-navigation/internal/geo"
	"walk-navigation/internal/navigation"
	"walk-navigation/internal/position"
	"walk-navigation/internal/route"
)

type Env string

const (
	EnvProd Env = "prod"
	EnvDev  Env = "dev"
)

func (e Env) IsValid() bool {
	switch e {
	case EnvProd, EnvDev:
		return true
	}
	return false
}

const (
	ProviderMapbox = "mapbox"
	ProviderGIS    = "gis"
)

type Config struct {
	APIServerHost string `env:"API_SERVER_HOST"`
	APIServerPort string `env:"API_SERVER_PORT" envDefault:"8081" validate:"required,numeric"`
	Env           Env    `env:"ENV" envDefault:"prod"`

	RedisHost            string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort            string        `env:"REDIS_PORT" envDefault:"6379" validate:"numeric"`
	RedisEventsChannel   string        `env:"REDIS_EVENTS_CHANNEL" envDefault:"navigation:events" validate:"required"`
	RedisPositionsPrefix string        `env:"REDIS_POSITIONS_PREFIX" envDefault:"navigation:positions:" validate:"required"`
	SessionSnapshotTTL   time.Duration `env:"SESSION_SNAPSHOT_TTL" envDefault:"30m" validate:"gt=0"`

	DirectionsProvider    string        `env:"DIRECTIONS_PROVIDER" envDefault:"mapbox" validate:"oneof=mapbox gis"`
	DirectionsBaseURL     string        `env:"DIRECTIONS_BASE_URL" envDefault:"https://api.mapbox.com" validate:"required,url"`
	DirectionsAccessToken string        `env:"DIRECTIONS_ACCESS_TOKEN" validate:"required_if=DirectionsProvider mapbox"`
	DirectionsProfile     string        `env:"DIRECTIONS_PROFILE" envDefault:"walking" validate:"required"`
	DirectionsTimeout     time.Duration `env:"DIRECTIONS_TIMEOUT" envDefault:"7s" validate:"gt=0"`
	DirectionsRPS         float64       `env:"DIRECTIONS_RPS" envDefault:"5" validate:"gte=0"`

	// GeofenceBounds is minLng,minLat,maxLng,maxLat.
	GeofenceBounds       []float64 `env:"GEOFENCE_BOUNDS" envDefault:"135.12,34.62,135.35,34.76" envSeparator:"," validate:"len=4"`
	GeofencePolygonFile  string    `env:"GEOFENCE_POLYGON_FILE"`
	GeofenceBufferMeters float64   `env:"GEOFENCE_BUFFER_METERS" envDefault:"0" validate:"gte=0"`
	OutsideAreaPolicy    string    `env:"OUTSIDE_AREA_POLICY" envDefault:"flag" validate:"oneof=flag suppress"`

	RouteGridMeters      float64 `env:"ROUTE_GRID_METERS" envDefault:"10" validate:"gt=0"`
	HeadingEpsilonMeters float64 `env:"HEADING_EPSILON_METERS" envDefault:"1" validate:"gt=0"`

	CameraZoom  float64       `env:"CAMERA_ZOOM" envDefault:"16" validate:"gte=0,lte=24"`
	CameraPitch float64       `env:"CAMERA_PITCH" envDefault:"60" validate:"gte=0,lte=85"`
	CameraEase  time.Duration `env:"CAMERA_EASE" envDefault:"500ms" validate:"gte=0"`

	PositionHighAccuracy bool          `env:"POSITION_HIGH_ACCURACY" envDefault:"true"`
	PositionMaxAge       time.Duration `env:"POSITION_MAX_AGE" envDefault:"1s" validate:"gte=0"`
	PositionTimeout      time.Duration `env:"POSITION_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	DestinationsFile string `env:"DESTINATIONS_FILE"`
}

func New() (*Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.Env.IsValid() {
		return nil, fmt.Errorf("invalid env variable (must be 'prod' or 'dev')")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Bounds() geo.Bounds {
	return geo.Bounds{
		MinLng: c.GeofenceBounds[0],
		MinLat: c.GeofenceBounds[1],
		MaxLng: c.GeofenceBounds[2],
		MaxLat: c.GeofenceBounds[3],
	}
}

// Region returns the service area: the polygon file when set, the
// rectangular bounds otherwise.
func (c *Config) Region() (geo.Region, error) {
	if c.GeofencePolygonFile != "" {
		p, err := geo.LoadPolygon(c.GeofencePolygonFile)
		if err != nil {
			return nil, fmt.Errorf("loading service area: %w", err)
		}
		return p, nil
	}
	b := c.Bounds()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid GEOFENCE_BOUNDS: %w", err)
	}
	return b, nil
}

// NavigationSettings builds the per-session settings shared by every
// session of the process.
func (c *Config) NavigationSettings() (navigation.Settings, error) {
	region, err := c.Region()
	if err != nil {
		return navigation.Settings{}, err
	}
	return navigation.Settings{
		PositionOptions: position.Options{
			HighAccuracy: c.PositionHighAccuracy,
			MaxSampleAge: c.PositionMaxAge,
			Timeout:      c.PositionTimeout,
		},
		Region:               region,
		GeofenceBufferMeters: c.GeofenceBufferMeters,
		OutsidePolicy:        navigation.OutsidePolicy(c.OutsideAreaPolicy),
		GridMeters:           c.RouteGridMeters,
		HeadingEpsilonMeters: c.HeadingEpsilonMeters,
		Camera: camera.Settings{
			Zoom:         c.CameraZoom,
			Pitch:        c.CameraPitch,
			EaseDuration: c.CameraEase,
		},
		Profile: c.DirectionsProfile,
	}, nil
}

// Directions returns the directions client selected by DIRECTIONS_PROVIDER.
func (c *Config) Directions() (route.Directions, error) {
	opts := directions.DefaultClientOptions()
	opts.Timeout = c.DirectionsTimeout
	opts.RequestsPerSecond = c.DirectionsRPS

	switch c.DirectionsProvider {
	case ProviderMapbox:
		return directions.NewMapboxClient(c.DirectionsBaseURL, c.DirectionsAccessToken, opts), nil
	case ProviderGIS:
		return directions.NewGISClient(c.DirectionsBaseURL, opts), nil
	}
	return nil, errors.New("unknown directions provider: " + c.DirectionsProvider)
}

// Destinations returns the preset catalog, read from DESTINATIONS_FILE when set.
func (c *Config) Destinations() (*destinations.Catalog, error) {
	if c.DestinationsFile == "" {
		return destinations.Default(), nil
	}
	return destinations.Load(c.DestinationsFile)
}
