package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-navigation/internal/navigation"
)

func TestPublishEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	sub := client.Subscribe(ctx, DefaultChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p := NewPublisher(client, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	err = p.Publish(ctx, navigation.Event{
		Kind:      navigation.EventRouteUnavailable,
		SessionID: "s1",
		Message:   "directions service unavailable",
		Err:       errors.New("upstream 503 for https://api.example/?access_token=sk.secret"),
		At:        at,
	})
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		var got EventMessage
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, navigation.EventRouteUnavailable, got.Data.Kind)
		assert.Equal(t, "s1", got.Data.SessionID)
		assert.Equal(t, "directions service unavailable", got.Data.Message)
		assert.NotContains(t, msg.Payload, "sk.secret")
		assert.True(t, at.Equal(got.Data.At))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestPublishRejectsInvalidEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	p := NewPublisher(client, "events", slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name  string
		event navigation.Event
	}{
		{"missing session", navigation.Event{Kind: navigation.EventRouteUpdated}},
		{"unknown kind", navigation.Event{Kind: "teleported", SessionID: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, p.Publish(context.Background(), tt.event))
		})
	}
}
