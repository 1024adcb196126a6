package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"walk-navigation/internal/navigation"
	"walk-navigation/internal/position"
	"walk-navigation/internal/route"
)

// EventPublisher fans navigation events out beyond the originating connection.
type EventPublisher interface {
	Publish(ctx context.Context, e navigation.Event) error
}

type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *slog.Logger

	settings   navigation.Settings
	directions route.Directions
	snapshots  navigation.SnapshotStore
	events     EventPublisher
}

// NewManager creates a Manager. snapshots and events may be nil.
func NewManager(ctx context.Context, logger *slog.Logger, settings navigation.Settings, directions route.Directions, snapshots navigation.SnapshotStore, events EventPublisher) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
		settings:   settings,
		directions: directions,
		snapshots:  snapshots,
		events:     events,
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.ID] = client
			count := len(m.clients)
			m.mu.Unlock()
			m.logger.Info("client connected", "clientID", client.ID, "clients", count)
		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client.ID]; ok {
				delete(m.clients, client.ID)
				m.logger.Info("client disconnected", "clientID", client.ID)
			}
			m.mu.Unlock()
		case <-m.ctx.Done():
			return
		}
	}
}

// HandleNewConnection starts the pumps of a freshly accepted connection.
// A non-nil feed is used as position capability instead of the browser.
func (m *Manager) HandleNewConnection(id string, conn *websocket.Conn, feed position.Capability) *Client {
	client := NewClient(id, conn, m, feed)
	client.Start()
	return client
}

func (m *Manager) newSession(clientID string, capability position.Capability, client *Client) (*navigation.Session, error) {
	return navigation.NewSession(navigation.Config{
		Settings:   m.settings,
		Capability: capability,
		Directions: m.directions,
		Surface:    client,
		Logger:     m.logger.With("clientID", clientID),
		OnEvent:    client.notify,
	})
}

// Snapshot returns the live snapshot of a session held by a connected client.
func (m *Manager) Snapshot(sessionID string) (*navigation.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if s := c.Session(); s != nil && s.ID() == sessionID {
			return s.Snapshot(), true
		}
	}
	return nil, false
}

func (m *Manager) forceDisconnect(c *Client) {
	m.logger.Warn("client too slow, disconnecting", "clientID", c.ID)
	c.Close()
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
	m.cancel()
}
