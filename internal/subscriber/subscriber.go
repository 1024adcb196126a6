package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"walk-navigation/internal/geo"
	"walk-navigation/internal/position"
)

const DefaultPrefix = "navigation:positions:"

// Subscriber turns redis pub/sub channels into position capabilities. A
// device publishes PositionMessage payloads on prefix+deviceID.
type Subscriber struct {
	logger *slog.Logger
	client *redis.Client
	prefix string

	mu      sync.Mutex
	seq     int
	watches map[position.WatchID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSubscriber(logger *slog.Logger, client *redis.Client, prefix string) *Subscriber {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Subscriber{
		logger:  logger,
		client:  client,
		prefix:  prefix,
		watches: make(map[position.WatchID]context.CancelFunc),
	}
}

func (s *Subscriber) topic(deviceID string) string {
	return s.prefix + deviceID
}

// Feed returns the capability reading positions of deviceID.
func (s *Subscriber) Feed(deviceID string) *Feed {
	return &Feed{subscriber: s, deviceID: deviceID}
}

// Publish sends msg on the channel of deviceID.
func (s *Subscriber) Publish(ctx context.Context, deviceID string, msg PositionMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling position: %w", err)
	}
	if err := s.client.Publish(ctx, s.topic(deviceID), data).Err(); err != nil {
		return fmt.Errorf("publishing position: %w", err)
	}
	return nil
}

// Replay publishes track on the channel of deviceID, one point per
// interval, stamped with the publish time. It returns when the track is
// done or ctx is cancelled.
func (s *Subscriber) Replay(ctx context.Context, deviceID string, track []geo.Coordinate, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i, c := range track {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		msg := PositionMessage{Lat: c.Lat, Lng: c.Lng, Timestamp: time.Now().UnixMilli()}
		if err := s.Publish(ctx, deviceID, msg); err != nil {
			return err
		}
		s.logger.Debug("position replayed", "deviceID", deviceID, "index", i, "coordinate", c.String())
	}
	return nil
}

// Close cancels every watch and waits for the listeners to exit.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for id, cancel := range s.watches {
		cancel()
		delete(s.watches, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Feed is a position.Capability backed by one redis channel.
type Feed struct {
	subscriber *Subscriber
	deviceID   string
}

// Watch subscribes to the device channel. The redis subscription is
// confirmed before Watch returns so no message published afterwards is lost.
func (f *Feed) Watch(ctx context.Context, _ position.Options, onSample func(position.Sample), onError func(error)) (position.WatchID, error) {
	s := f.subscriber
	topic := s.topic(f.deviceID)

	pubsub := s.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return "", &position.Error{Reason: position.ReasonUnavailable, Err: fmt.Errorf("subscribing to %s: %w", topic, err)}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.seq++
	id := position.WatchID(fmt.Sprintf("redis-%s-%d", f.deviceID, s.seq))
	s.watches[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.listen(watchCtx, pubsub, topic, onSample, onError)
	}()
	return id, nil
}

func (f *Feed) Cancel(id position.WatchID) {
	s := f.subscriber
	s.mu.Lock()
	cancel, ok := s.watches[id]
	delete(s.watches, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *Subscriber) listen(ctx context.Context, pubsub *redis.PubSub, topic string, onSample func(position.Sample), onError func(error)) {
	s.logger.Info("Redis position feed is running", "topic", topic)
	defer func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Warn("failed to close pubsub", "error", err)
		}
	}()

	msgCh := pubsub.Channel()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				s.logger.Warn("pubsub channel closed by Redis", "topic", topic)
				onError(&position.Error{Reason: position.ReasonUnavailable, Err: errors.New("position feed closed")})
				return
			}
			if err := s.handleMessage(msg, onSample, onError); err != nil {
				s.logger.Error("error handling message", "topic", topic, "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("shutting down Redis position feed", "topic", topic)
			return
		}
	}
}

func (s *Subscriber) handleMessage(msg *redis.Message, onSample func(position.Sample), onError func(error)) error {
	var pm PositionMessage
	if err := json.Unmarshal([]byte(msg.Payload), &pm); err != nil {
		return fmt.Errorf("unmarshalling position: %w", err)
	}
	if pm.Error != nil {
		reason := pm.Error.Reason
		if !reason.IsValid() {
			reason = position.ReasonUnavailable
		}
		onError(&position.Error{Reason: reason, Err: errors.New(pm.Error.Message)})
		return nil
	}
	onSample(pm.Sample())
	return nil
}
