package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/matheodrd/httphelper/handler"

	"walk-navigation/internal/geo"
	"walk-navigation/internal/navigation"
	"walk-navigation/internal/position"
)

func (s *Server) destinationsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		s.writeJSON(w, http.StatusOK, s.Destinations.Entries())
		return nil
	})
}

func (s *Server) sessionHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		id := r.PathValue("id")
		if snap, ok := s.WebsocketManager.Snapshot(id); ok {
			s.writeJSON(w, http.StatusOK, snap)
			return nil
		}
		if s.Snapshots == nil {
			return handler.NewErrWithStatus(http.StatusNotFound, fmt.Errorf("%w: %s", navigation.ErrSnapshotNotFound, id))
		}

		snap, err := s.Snapshots.GetSnapshot(r.Context(), id)
		if errors.Is(err, navigation.ErrSnapshotNotFound) {
			return handler.NewErrWithStatus(http.StatusNotFound, err)
		}
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, err)
		}
		s.writeJSON(w, http.StatusOK, snap)
		return nil
	})
}

func (s *Server) wsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		query := r.URL.Query()

		clientID := query.Get("client_id")
		if clientID == "" {
			clientID = uuid.NewString()
		}

		dest, err := s.resolveDestination(query)
		if err != nil {
			return handler.NewErrWithStatus(http.StatusBadRequest, err)
		}

		var feed position.Capability
		switch query.Get("feed") {
		case "", "browser":
		case "redis":
			device := query.Get("device")
			if device == "" {
				return handler.NewErrWithStatus(http.StatusBadRequest, errors.New("missing device for redis feed"))
			}
			if s.Positions == nil {
				return handler.NewErrWithStatus(http.StatusServiceUnavailable, errors.New("redis feed is not available"))
			}
			feed = s.Positions.Feed(device)
		default:
			return handler.NewErrWithStatus(http.StatusBadRequest, fmt.Errorf("unknown feed %q", query.Get("feed")))
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, fmt.Errorf("websocket accept: %w", err))
		}

		client := s.WebsocketManager.HandleNewConnection(clientID, conn, feed)
		if dest != nil {
			client.Navigate(*dest)
		}
		return nil
	})
}

// resolveDestination reads ?destination=<preset> or ?lat=&lng=[&label=].
// A request with neither waits for a destination message.
func (s *Server) resolveDestination(query url.Values) (*geo.Destination, error) {
	if name := query.Get("destination"); name != "" {
		d, err := s.Destinations.Lookup(name)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}

	rawLat, rawLng := query.Get("lat"), query.Get("lng")
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat: %w", err)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lng: %w", err)
	}
	d := geo.Destination{Coordinate: geo.Coordinate{Lat: lat, Lng: lng}, Label: query.Get("label")}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", navigation.ErrInvalidDestination, err)
	}
	return &d, nil
}
