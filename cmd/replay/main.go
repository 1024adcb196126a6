package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"walk-navigation/internal/geo"
	"walk-navigation/internal/subscriber"
)

// replayConfig drives a recorded walk into the redis position feed, so a
// browser connected with ?feed=redis&device=<REPLAY_DEVICE> can follow it.
type replayConfig struct {
	RedisHost            string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort            string        `env:"REDIS_PORT" envDefault:"6379" validate:"numeric"`
	RedisPositionsPrefix string        `env:"REDIS_POSITIONS_PREFIX" envDefault:"navigation:positions:" validate:"required"`
	File                 string        `env:"REPLAY_FILE" validate:"required"`
	Device               string        `env:"REPLAY_DEVICE" validate:"required"`
	Interval             time.Duration `env:"REPLAY_INTERVAL" envDefault:"1s" validate:"gt=0"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := env.ParseAs[replayConfig]()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := validator.New().Struct(conf); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	track, err := geo.LoadTrack(conf.File)
	if err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(conf.RedisHost, conf.RedisPort)})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}()

	feed := subscriber.NewSubscriber(logger, redisClient, conf.RedisPositionsPrefix)
	logger.Info("replaying track", "device", conf.Device, "points", len(track), "interval", conf.Interval)
	if err := feed.Replay(ctx, conf.Device, track, conf.Interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("replay finished", "device", conf.Device)
	return nil
}
