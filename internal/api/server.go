package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"walk-navigation/internal/config"
	"walk-navigation/internal/destinations"
	"walk-navigation/internal/navigation"
	"walk-navigation/internal/subscriber"
	"walk-navigation/internal/ws"
)

type Server struct {
	Config           *config.Config
	WebsocketManager *ws.Manager
	Destinations     *destinations.Catalog
	Snapshots        navigation.SnapshotStore
	// Positions is optional; without it ?feed=redis is rejected.
	Positions *subscriber.Subscriber
	logger    *slog.Logger
}

func NewServer(config *config.Config, manager *ws.Manager, catalog *destinations.Catalog, snapshots navigation.SnapshotStore, positions *subscriber.Subscriber, logger *slog.Logger) *Server {
	return &Server{
		Config:           config,
		WebsocketManager: manager,
		Destinations:     catalog,
		Snapshots:        snapshots,
		Positions:        positions,
		logger:           logger,
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate;")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("API server is started.")); err != nil {
		s.logger.Error(fmt.Sprintf("Error writing response: %v", err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// Handler returns the router of the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /destinations", s.destinationsHandler())
	mux.HandleFunc("GET /sessions/{id}", s.sessionHandler())
	mux.HandleFunc("GET /navigation", s.wsHandler())
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    net.JoinHostPort(s.Config.APIServerHost, s.Config.APIServerPort),
		Handler: s.Handler(),
	}

	go func() {
		s.logger.Info("API server is running", "port", s.Config.APIServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server failed to listen and serve", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("API server failed to shutdown", "error", err)
		}
	}()

	wg.Wait()
	return nil
}
