package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"walk-navigation/internal/navigation"
)

const DefaultChannel = "navigation:events"

// EventMessage is published on the events channel for every session event.
type EventMessage struct {
	Data navigation.Event `json:"data"`
}

func (m *EventMessage) Validate() error {
	if m.Data.SessionID == "" {
		return errors.New("missing session ID")
	}
	switch m.Data.Kind {
	case navigation.EventLeftServiceArea, navigation.EventEnteredServiceArea,
		navigation.EventPositionUnavailable, navigation.EventRouteUnavailable,
		navigation.EventRouteUpdated:
	default:
		return fmt.Errorf("invalid event kind: %q", m.Data.Kind)
	}
	return nil
}

// Publisher multicasts session events to every redis subscriber of channel.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewPublisher(client *redis.Client, channel string, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, e navigation.Event) error {
	msg := EventMessage{Data: e}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	p.logger.Debug("event published", "channel", p.channel, "kind", e.Kind, "sessionID", e.SessionID, "receivers", receivers)
	return nil
}
