package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-navigation/internal/config"
	"walk-navigation/internal/destinations"
	"walk-navigation/internal/directions"
	"walk-navigation/internal/geo"
	"walk-navigation/internal/navigation"
	"walk-navigation/internal/ws"
)

type fixedDirections struct{}

func (fixedDirections) Route(_ context.Context, req directions.Request) (*directions.Route, error) {
	return &directions.Route{
		Path:            []geo.Coordinate{req.Origin, req.Destination},
		DistanceMeters:  640,
		DurationSeconds: 480,
	}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settings := navigation.DefaultSettings(geo.Bounds{MinLat: 34.62, MinLng: 135.12, MaxLat: 34.76, MaxLng: 135.35})

	manager := ws.NewManager(context.Background(), logger, settings, fixedDirections{}, nil, nil)
	go manager.Start()

	srv := NewServer(&config.Config{}, manager, destinations.Default(), nil, nil, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		manager.Shutdown()
		ts.Close()
	})
	return ts
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) ws.Message {
	t.Helper()
	for {
		var msg ws.Message
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDestinations(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/destinations")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []destinations.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "kobe", entries[0].Name)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/sessions/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNavigationRejectsBadQueries(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown preset", "destination=nagoya"},
		{"bad latitude", "lat=north&lng=135.19"},
		{"out of range", "lat=95&lng=135.19"},
		{"unknown feed", "feed=carrier-pigeon"},
		{"redis feed without device", "feed=redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/navigation?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestNavigationOverWebSocket(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/navigation?destination=sannomiya&client_id=c1"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	watch := readUntil(t, ctx, conn, ws.TypeWatch)
	var w struct {
		WatchID            string `json:"watch_id"`
		EnableHighAccuracy bool   `json:"enableHighAccuracy"`
		Timeout            int64  `json:"timeout"`
	}
	require.NoError(t, json.Unmarshal(watch.Data, &w))
	assert.NotEmpty(t, w.WatchID)
	assert.True(t, w.EnableHighAccuracy)
	assert.Equal(t, int64(10000), w.Timeout)

	state := readUntil(t, ctx, conn, ws.TypeState)
	var st struct {
		SessionID string `json:"session_id"`
		State     string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(state.Data, &st))
	assert.Equal(t, "tracking", st.State)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": ws.TypePosition,
		"data": map[string]any{"lat": 34.69, "lng": 135.19, "timestamp": 1000},
	}))

	frame := readUntil(t, ctx, conn, ws.TypeFrame)
	var f struct {
		Inside bool `json:"inside"`
		View   struct {
			Center geo.Coordinate `json:"center"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(frame.Data, &f))
	assert.True(t, f.Inside)

	route := readUntil(t, ctx, conn, ws.TypeRoute)
	var r struct {
		Version  uint64          `json:"version"`
		Geometry json.RawMessage `json:"geometry"`
	}
	require.NoError(t, json.Unmarshal(route.Data, &r))
	assert.Equal(t, uint64(1), r.Version)
	assert.Contains(t, string(r.Geometry), "LineString")

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/sessions/" + st.SessionID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var snap navigation.Snapshot
		if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&snap) != nil {
			return false
		}
		return snap.Samples == 1 && snap.Route != nil && snap.State == navigation.Tracking
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": ws.TypeStop, "data": nil}))
	readUntil(t, ctx, conn, ws.TypeCancel)
}
