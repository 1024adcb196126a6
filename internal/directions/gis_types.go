package directions

import (
	"errors"
	"fmt"
)

// Request and response bodies of the supmap GIS routing service.

type gisRouteRequest struct {
	Locations []gisLocationRequest `json:"locations"`
	Costing   Costing              `json:"costing"`
	Language  *string              `json:"language,omitempty"`
}

func (r gisRouteRequest) Validate() error {
	if len(r.Locations) < 2 {
		return errors.New("at least 2 locations must be provided")
	}
	if !r.Costing.IsValid() {
		return fmt.Errorf("costing %q is invalid", r.Costing)
	}
	return nil
}

type gisLocationRequest struct {
	Lat  float64       `json:"lat"`
	Lon  float64       `json:"lon"`
	Type *LocationType `json:"type,omitempty"`
	Name *string       `json:"name,omitempty"`
}

type LocationType string

const (
	LocationTypeBreak   LocationType = "break"
	LocationTypeThrough LocationType = "through"
	LocationTypeVia     LocationType = "via"
)

type Costing string

const (
	CostingAuto       Costing = "auto"
	CostingBicycle    Costing = "bicycle"
	CostingPedestrian Costing = "pedestrian"
)

func (c Costing) IsValid() bool {
	switch c {
	case CostingAuto, CostingBicycle, CostingPedestrian:
		return true
	default:
		return false
	}
}

// CostingForProfile maps a directions profile onto GIS costing.
func CostingForProfile(profile string) Costing {
	switch profile {
	case "cycling", "bicycle":
		return CostingBicycle
	case "driving", "auto":
		return CostingAuto
	default:
		return CostingPedestrian
	}
}

type gisRouteResponse struct {
	Data    []gisTrip `json:"data"`
	Message string    `json:"message"`
}

type gisTrip struct {
	Legs    []gisLeg   `json:"legs"`
	Summary gisSummary `json:"summary"`
}

type gisSummary struct {
	// Time in seconds, length in kilometres.
	Time   float64 `json:"time"`
	Length float64 `json:"length"`
}

type gisLeg struct {
	Summary gisSummary `json:"summary"`
	Shape   []gisPoint `json:"shape"`
}

type gisPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}
