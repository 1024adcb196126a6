package geo

import (
	"fmt"
	"math"
)

// metersPerDegreeLat is the length of one degree of latitude on the EarthRadius sphere.
const metersPerDegreeLat = EarthRadius * degToRad

// Cell identifies one coarse grid bucket.
type Cell struct {
	Row int64
	Col int64
}

func (c Cell) String() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

// Grid buckets coordinates into cells of roughly CellMeters on a side.
// Columns are sized from the latitude of the row's centre, so every
// coordinate in a row shares the same column width.
type Grid struct {
	CellMeters float64
}

func (g Grid) Cell(c Coordinate) Cell {
	size := g.CellMeters
	if size <= 0 {
		size = 10
	}

	dLat := size / metersPerDegreeLat
	row := int64(math.Floor((c.Lat + 90) / dLat))

	rowLat := -90 + (float64(row)+0.5)*dLat
	cos := math.Cos(math.Max(-89.9, math.Min(89.9, rowLat)) * degToRad)
	dLng := size / (metersPerDegreeLat * cos)
	col := int64(math.Floor((c.Lng + 180) / dLng))

	return Cell{Row: row, Col: col}
}
