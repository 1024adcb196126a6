package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"walk-navigation/internal/camera"
	"walk-navigation/internal/geo"
	"walk-navigation/internal/heading"
	"walk-navigation/internal/navigation"
	"walk-navigation/internal/position"
	"walk-navigation/internal/route"
)

const (
	// sendChannelSize controls the max number
	// of messages that can be queued for a client.
	sendChannelSize = 16
	// eventChannelSize bounds the events waiting to be published; the
	// newest are dropped once it is full.
	eventChannelSize = 16
	publishTimeout   = 2 * time.Second
	pingPeriod       = (60 * 9 * time.Second) / 10
	snapshotPeriod   = 2 * time.Second
)

var errClientClosed = errors.New("client closed")

// Client is one browser connection. The browser is both the position
// capability (it runs watchPosition and streams fixes back) and the map
// surface (it renders frames, routes and markers).
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Manager *Manager
	send    chan Message
	events  chan navigation.Event
	ctx     context.Context
	cancel  context.CancelFunc

	// feed replaces the browser as position capability when set.
	feed position.Capability

	// nav serialises session replacement.
	nav sync.Mutex

	mu       sync.Mutex
	session  *navigation.Session
	watchSeq int
	watch    position.WatchID
	onSample func(position.Sample)
	onError  func(error)
	closed   bool
}

func NewClient(id string, conn *websocket.Conn, manager *Manager, feed position.Capability) *Client {
	ctx, cancel := context.WithCancel(manager.ctx)
	return &Client{
		ID:      id,
		Conn:    conn,
		Manager: manager,
		send:    make(chan Message, sendChannelSize),
		events:  make(chan navigation.Event, eventChannelSize),
		ctx:     ctx,
		cancel:  cancel,
		feed:    feed,
	}
}

func (c *Client) Start() {
	select {
	case c.Manager.register <- c:
	case <-c.Manager.ctx.Done():
	}
	go c.readPump()
	go c.writePump()
	go c.snapshotPump()
	go c.eventPump()
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.stopSession()
	if err := c.Conn.Close(websocket.StatusNormalClosure, "bye :P"); err != nil {
		c.Manager.logger.Debug("failed to close connection", "clientID", c.ID, "error", err)
	}
	c.cancel()
}

func (c *Client) Send(msg Message) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		go c.Manager.forceDisconnect(c)
	}
}

func (c *Client) sendData(typ string, data any) error {
	if c.ctx.Err() != nil {
		return errClientClosed
	}
	msg, err := newMessage(typ, data)
	if err != nil {
		return err
	}
	c.Send(msg)
	return nil
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Manager.unregister <- c:
		case <-c.Manager.ctx.Done():
		}
		c.Close()
	}()

	for {
		var msg Message
		if err := wsjson.Read(c.ctx, c.Conn, &msg); err != nil {
			c.Manager.logger.Debug("failed to read message", "clientID", c.ID, "error", err)
			break
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := wsjson.Write(c.ctx, c.Conn, msg); err != nil {
				c.Manager.logger.Debug("failed to write message", "clientID", c.ID, "error", err)
				return
			}
			c.Manager.logger.Debug("message sent", "clientID", c.ID, "type", msg.Type)
		case <-ticker.C:
			if err := c.Conn.Ping(c.ctx); err != nil {
				c.Manager.logger.Debug("failed to ping client", "clientID", c.ID, "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// snapshotPump mirrors the session state into the snapshot store.
func (c *Client) snapshotPump() {
	if c.Manager.snapshots == nil {
		return
	}
	ticker := time.NewTicker(snapshotPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.storeSnapshot(c.ctx)
		case <-c.ctx.Done():
			return
		}
	}
}

// eventPump publishes events off the session goroutines, so a slow
// publisher never holds up samples.
func (c *Client) eventPump() {
	if c.Manager.events == nil {
		return
	}
	for {
		select {
		case e := <-c.events:
			c.publishEvent(e)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) publishEvent(e navigation.Event) {
	ctx, cancel := context.WithTimeout(c.ctx, publishTimeout)
	defer cancel()
	if err := c.Manager.events.Publish(ctx, e); err != nil {
		c.Manager.logger.Warn("failed to publish navigation event", "clientID", c.ID, "kind", e.Kind, "error", err)
	}
}

func (c *Client) storeSnapshot(ctx context.Context) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil || c.Manager.snapshots == nil {
		return
	}
	if err := c.Manager.snapshots.SetSnapshot(ctx, session.Snapshot()); err != nil {
		c.Manager.logger.Warn("failed to store session snapshot", "clientID", c.ID, "error", err)
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case TypeDestination:
		var p destinationPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.Manager.logger.Warn("failed to unmarshal destination", "clientID", c.ID, "error", err)
			_ = c.sendData(TypeError, errorPayload{Message: "invalid destination payload"})
			return
		}
		c.Navigate(p.destination())
	case TypePosition:
		var p positionPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.Manager.logger.Warn("failed to unmarshal position", "clientID", c.ID, "error", err)
			return
		}
		c.mu.Lock()
		onSample := c.onSample
		c.mu.Unlock()
		if onSample != nil {
			onSample(p.sample())
		}
	case TypePositionError:
		var p positionErrorPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.Manager.logger.Warn("failed to unmarshal position error", "clientID", c.ID, "error", err)
			return
		}
		if !p.Reason.IsValid() {
			p.Reason = position.ReasonUnavailable
		}
		c.mu.Lock()
		onError := c.onError
		c.mu.Unlock()
		if onError != nil {
			onError(&position.Error{Reason: p.Reason, Err: errors.New(p.Message)})
		}
	case TypeStop:
		c.stopSession()
	default:
		c.Manager.logger.Debug("received unknown type message", "clientID", c.ID, "type", msg.Type)
	}
}

// Navigate starts navigating to dest and reports a failure to the browser.
func (c *Client) Navigate(dest geo.Destination) {
	if err := c.StartNavigation(dest); err != nil {
		c.Manager.logger.Info("failed to start navigation", "clientID", c.ID, "error", err)
		_ = c.sendData(TypeError, errorPayload{Message: err.Error()})
	}
}

// StartNavigation replaces the current session with one heading to dest.
func (c *Client) StartNavigation(dest geo.Destination) error {
	c.nav.Lock()
	defer c.nav.Unlock()
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.ctx.Err() != nil {
		return errClientClosed
	}
	c.stopSessionLocked()

	capability := position.Capability(c)
	if c.feed != nil {
		capability = c.feed
	}
	session, err := c.Manager.newSession(c.ID, capability, c)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if err := session.Start(c.ctx, dest); err != nil {
		session.Stop()
		return err
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	_ = c.sendData(TypeState, statePayload{SessionID: session.ID(), State: navigation.Tracking.String()})
	return nil
}

func (c *Client) stopSession() {
	c.nav.Lock()
	defer c.nav.Unlock()
	c.stopSessionLocked()
}

func (c *Client) stopSessionLocked() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if session == nil {
		return
	}

	session.Stop()
	// The connection context may already be gone; the final snapshot still counts.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), 2*time.Second)
	defer cancel()
	if c.Manager.snapshots != nil {
		if err := c.Manager.snapshots.SetSnapshot(ctx, session.Snapshot()); err != nil {
			c.Manager.logger.Warn("failed to store final snapshot", "clientID", c.ID, "error", err)
		}
	}
	_ = c.sendData(TypeState, statePayload{SessionID: session.ID(), State: navigation.Stopped.String()})
}

// Session returns the active navigation session, if any.
func (c *Client) Session() *navigation.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Watch implements position.Capability by asking the browser to start
// watchPosition with opts.
func (c *Client) Watch(_ context.Context, opts position.Options, onSample func(position.Sample), onError func(error)) (position.WatchID, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", &position.Error{Reason: position.ReasonUnavailable, Err: errClientClosed}
	}
	c.watchSeq++
	id := position.WatchID(fmt.Sprintf("%s-%d", c.ID, c.watchSeq))
	c.watch, c.onSample, c.onError = id, onSample, onError
	c.mu.Unlock()

	err := c.sendData(TypeWatch, watchPayload{
		WatchID:            id,
		EnableHighAccuracy: opts.HighAccuracy,
		MaximumAge:         opts.MaxSampleAge.Milliseconds(),
		Timeout:            opts.Timeout.Milliseconds(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) Cancel(id position.WatchID) {
	c.mu.Lock()
	if c.watch != id {
		c.mu.Unlock()
		return
	}
	c.watch, c.onSample, c.onError = "", nil, nil
	c.mu.Unlock()

	_ = c.sendData(TypeCancel, cancelPayload{WatchID: id})
}

type framePayload struct {
	View           camera.ViewDirective `json:"view"`
	Heading        *heading.State       `json:"heading,omitempty"`
	Inside         bool                 `json:"inside"`
	RouteVersion   uint64               `json:"route_version"`
	OffRouteMeters *float64             `json:"off_route_meters,omitempty"`
}

// Render implements navigation.Surface.
func (c *Client) Render(_ context.Context, frame navigation.Frame) error {
	p := framePayload{View: frame.View, Heading: frame.Heading, Inside: frame.Inside, OffRouteMeters: frame.OffRouteMeters}
	if frame.Route != nil {
		p.RouteVersion = frame.Route.Version
	}
	return c.sendData(TypeFrame, p)
}

func (c *Client) ShowRoute(_ context.Context, g *route.Geometry) error {
	return c.sendData(TypeRoute, newRoutePayload(g))
}

func (c *Client) PlaceMarker(_ context.Context, m navigation.Marker) error {
	return c.sendData(TypeMarker, m)
}

func (c *Client) notify(e navigation.Event) {
	_ = c.sendData(TypeEvent, e)
	if c.Manager.events == nil {
		return
	}
	select {
	case c.events <- e:
	default:
		c.Manager.logger.Warn("dropping navigation event, publisher is behind", "clientID", c.ID, "kind", e.Kind)
	}
}
