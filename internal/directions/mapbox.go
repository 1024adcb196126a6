package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"walk-navigation/internal/geo"
)

// MapboxClient talks to a Mapbox compatible Directions API.
type MapboxClient struct {
	base
	baseURL     string
	accessToken string
}

func NewMapboxClient(baseURL, accessToken string, options ...ClientOptions) *MapboxClient {
	return &MapboxClient{
		base:        newBase(options),
		baseURL:     baseURL,
		accessToken: accessToken,
	}
}

type mapboxResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Routes  []mapboxRoute `json:"routes"`
}

type mapboxRoute struct {
	Geometry geojson.Geometry `json:"geometry"`
	Distance float64          `json:"distance"`
	Duration float64          `json:"duration"`
}

func (c *MapboxClient) Route(ctx context.Context, req Request) (*Route, error) {
	if req.Profile == "" {
		req.Profile = ProfileWalking
	}
	return c.do(ctx, req, c.fetch)
}

func (c *MapboxClient) fetch(ctx context.Context, req Request) (*Route, error) {
	reqURL, err := url.Parse(fmt.Sprintf("%s/directions/v5/mapbox/%s/%s;%s",
		c.baseURL, req.Profile, lngLat(req.Origin), lngLat(req.Destination)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := reqURL.Query()
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	q.Set("access_token", c.accessToken)
	reqURL.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	var body mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if body.Code == "NoRoute" || body.Code == "NoSegment" {
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, body.Message)
		}
		return nil, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, body.Message)
	}

	if len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	first := body.Routes[0]
	line, ok := first.Geometry.Geometry().(orb.LineString)
	if !ok || len(line) == 0 {
		return nil, fmt.Errorf("%w: route geometry is not a line", ErrNoRoute)
	}

	path := make([]geo.Coordinate, len(line))
	for i, p := range line {
		path[i] = geo.FromPoint(p)
	}
	return &Route{
		Path:            path,
		DistanceMeters:  first.Distance,
		DurationSeconds: first.Duration,
	}, nil
}

func lngLat(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// redactURLError drops the query string, which holds the access token, from
// the URL that net/http puts in transport errors.
func redactURLError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	redacted := "<redacted>"
	if u, perr := url.Parse(uerr.URL); perr == nil {
		u.RawQuery = ""
		redacted = u.String()
	}
	return &url.Error{Op: uerr.Op, URL: redacted, Err: uerr.Err}
}
