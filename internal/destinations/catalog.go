package destinations

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"walk-navigation/internal/geo"
)

var ErrUnknownDestination = errors.New("unknown destination")

// Entry is one preset in a catalog file.
type Entry struct {
	Name  string  `yaml:"name" json:"name" validate:"required"`
	Label string  `yaml:"label" json:"label"`
	Lat   float64 `yaml:"lat" json:"lat" validate:"latitude"`
	Lng   float64 `yaml:"lng" json:"lng" validate:"longitude"`
}

func (e Entry) Destination() geo.Destination {
	label := e.Label
	if label == "" {
		label = e.Name
	}
	return geo.Destination{Coordinate: geo.Coordinate{Lat: e.Lat, Lng: e.Lng}, Label: label}
}

type file struct {
	Destinations []Entry `yaml:"destinations" validate:"dive"`
}

// Catalog maps lower-cased names to preset destinations.
type Catalog struct {
	entries map[string]Entry
}

// Default is the catalog used when no file is configured.
func Default() *Catalog {
	c, _ := New([]Entry{
		{Name: "tokyo", Label: "Tokyo Station", Lat: 35.681236, Lng: 139.767125},
		{Name: "osaka", Label: "Osaka Station", Lat: 34.702485, Lng: 135.495951},
		{Name: "kobe", Label: "Kobe Station", Lat: 34.6795, Lng: 135.1780},
		{Name: "sannomiya", Label: "Sannomiya", Lat: 34.6913, Lng: 135.1955},
	})
	return c
}

func New(entries []Entry) (*Catalog, error) {
	v := validator.New()
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := v.Struct(e); err != nil {
			return nil, fmt.Errorf("destination %q: %w", e.Name, err)
		}
		key := strings.ToLower(e.Name)
		if _, dup := c.entries[key]; dup {
			return nil, fmt.Errorf("duplicate destination %q", e.Name)
		}
		c.entries[key] = e
	}
	return c, nil
}

// Load reads a YAML catalog:
//
//	destinations:
//	  - name: kobe
//	    label: Kobe Station
//	    lat: 34.6795
//	    lng: 135.1780
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(f.Destinations)
}

func (c *Catalog) Lookup(name string) (geo.Destination, error) {
	e, ok := c.entries[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return geo.Destination{}, fmt.Errorf("%w: %q", ErrUnknownDestination, name)
	}
	return e.Destination(), nil
}

// Entries returns the presets sorted by name.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
