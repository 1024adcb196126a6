package directions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-navigation/internal/geo"
)

var (
	sannomiya  = geo.Coordinate{Lat: 34.6913, Lng: 135.1955}
	motomachi  = geo.Coordinate{Lat: 34.6896, Lng: 135.1862}
	walkingReq = Request{Origin: motomachi, Destination: sannomiya, Profile: ProfileWalking}
)

const mapboxBody = `{"code":"Ok","routes":[{"distance":912.4,"duration":655.1,
	"geometry":{"type":"LineString","coordinates":[[135.1862,34.6896],[135.1900,34.6905],[135.1955,34.6913]]}}]}`

func TestMapboxRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/v5/mapbox/walking/135.1862,34.6896;135.1955,34.6913", r.URL.Path)
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "secret", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(mapboxBody))
	}))
	defer srv.Close()

	client := NewMapboxClient(srv.URL, "secret")
	route, err := client.Route(context.Background(), walkingReq)
	require.NoError(t, err)

	require.Len(t, route.Path, 3)
	assert.Equal(t, motomachi, route.Path[0])
	assert.Equal(t, sannomiya, route.Path[2])
	assert.InDelta(t, 912.4, route.DistanceMeters, 1e-9)
	assert.InDelta(t, 655.1, route.DurationSeconds, 1e-9)
}

func TestMapboxNoRoute(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "empty routes", status: http.StatusOK, body: `{"code":"Ok","routes":[]}`},
		{name: "no route code", status: http.StatusOK, body: `{"code":"NoRoute","routes":[]}`},
		{name: "no segment", status: http.StatusUnprocessableEntity, body: `{"code":"NoSegment","message":"snap failed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewMapboxClient(srv.URL, "t").Route(context.Background(), walkingReq)
			assert.ErrorIs(t, err, ErrNoRoute)
		})
	}
}

func TestMapboxServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized - Invalid Token"}`))
	}))
	defer srv.Close()

	_, err := NewMapboxClient(srv.URL, "bad").Route(context.Background(), walkingReq)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRoute)
	assert.Contains(t, err.Error(), "401")
}

func TestMapboxTransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	_, err := NewMapboxClient(baseURL, "sk.SECRET-TOKEN").Route(context.Background(), walkingReq)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sk.SECRET-TOKEN")
	assert.NotContains(t, err.Error(), "access_token")
	assert.Contains(t, err.Error(), "/directions/v5/mapbox/walking/")

	var uerr *url.Error
	assert.ErrorAs(t, err, &uerr)
}

func TestIdenticalRequestsAreCoalesced(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(mapboxBody))
	}))
	defer srv.Close()

	client := NewMapboxClient(srv.URL, "t", ClientOptions{Timeout: 5 * time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			route, err := client.Route(context.Background(), walkingReq)
			assert.NoError(t, err)
			assert.Len(t, route.Path, 3)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(mapboxBody))
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := NewMapboxClient(srv.URL, "t").Route(ctx, walkingReq)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Route did not return after cancellation")
	}
}

func TestGISRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/route", r.URL.Path)

		var req gisRouteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, CostingPedestrian, req.Costing)
		if assert.Len(t, req.Locations, 2) {
			assert.Equal(t, motomachi.Lat, req.Locations[0].Lat)
		}

		_, _ = w.Write([]byte(`{"message":"ok","data":[{"summary":{"time":650,"length":0.91},"legs":[
			{"shape":[{"latitude":34.6896,"longitude":135.1862},{"latitude":34.6905,"longitude":135.19}]},
			{"shape":[{"latitude":34.6905,"longitude":135.19},{"latitude":34.6913,"longitude":135.1955}]}]}]}`))
	}))
	defer srv.Close()

	route, err := NewGISClient(srv.URL).Route(context.Background(), walkingReq)
	require.NoError(t, err)
	assert.Len(t, route.Path, 3, "shared leg joint is not duplicated")
	assert.InDelta(t, 910, route.DistanceMeters, 1e-6)
}

func TestGISNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"no path","data":[]}`))
	}))
	defer srv.Close()

	_, err := NewGISClient(srv.URL).Route(context.Background(), walkingReq)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestCostingForProfile(t *testing.T) {
	assert.Equal(t, CostingPedestrian, CostingForProfile(ProfileWalking))
	assert.Equal(t, CostingBicycle, CostingForProfile("cycling"))
	assert.Equal(t, CostingAuto, CostingForProfile("driving"))
}
