package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"walk-navigation/internal/geo"
)

// GISClient talks to the supmap GIS routing service.
type GISClient struct {
	base
	baseURL string
}

func NewGISClient(baseURL string, options ...ClientOptions) *GISClient {
	return &GISClient{
		base:    newBase(options),
		baseURL: baseURL,
	}
}

func (c *GISClient) Route(ctx context.Context, req Request) (*Route, error) {
	return c.do(ctx, req, c.fetch)
}

func (c *GISClient) fetch(ctx context.Context, req Request) (*Route, error) {
	routeRequest := gisRouteRequest{
		Locations: []gisLocationRequest{
			{Lat: req.Origin.Lat, Lon: req.Origin.Lng},
			{Lat: req.Destination.Lat, Lon: req.Destination.Lng},
		},
		Costing: CostingForProfile(req.Profile),
	}
	if err := routeRequest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route request: %w", err)
	}

	reqURL, err := url.Parse(c.baseURL + "/route")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	body, err := json.Marshal(routeRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var routeResponse gisRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&routeResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(routeResponse.Data) == 0 {
		return nil, ErrNoRoute
	}

	trip := routeResponse.Data[0]
	var path []geo.Coordinate
	for _, leg := range trip.Legs {
		for i, p := range leg.Shape {
			c := geo.Coordinate{Lat: p.Lat, Lng: p.Lon}
			// Consecutive legs share their joining point.
			if i == 0 && len(path) > 0 && path[len(path)-1] == c {
				continue
			}
			path = append(path, c)
		}
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty shape", ErrNoRoute)
	}

	return &Route{
		Path:            path,
		DistanceMeters:  trip.Summary.Length * 1000,
		DurationSeconds: trip.Summary.Time,
	}, nil
}
