package geo

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
)

// LoadTrack reads a recorded walk from a GeoJSON file. LineStrings are
// joined in file order.
func LoadTrack(path string) ([]Coordinate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading track file: %w", err)
	}
	return ParseTrack(data)
}

func ParseTrack(data []byte) ([]Coordinate, error) {
	geometries, err := decodeGeometries(data)
	if err != nil {
		return nil, err
	}

	var track []Coordinate
	add := func(ls orb.LineString) {
		for _, p := range ls {
			track = append(track, FromPoint(p))
		}
	}
	for _, g := range geometries {
		switch v := g.(type) {
		case orb.LineString:
			add(v)
		case orb.MultiLineString:
			for _, ls := range v {
				add(ls)
			}
		case orb.Point:
			track = append(track, FromPoint(v))
		}
	}
	if len(track) == 0 {
		return nil, errors.New("track contains no points")
	}
	for i, c := range track {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("track point %d: %w", i, err)
		}
	}
	return track, nil
}
