package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"walk-navigation/internal/api"
	"walk-navigation/internal/cache"
	"walk-navigation/internal/config"
	"walk-navigation/internal/notifier"
	"walk-navigation/internal/subscriber"
	"walk-navigation/internal/ws"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := config.New()
	if err != nil {
		return err
	}

	var loggerOpts slog.HandlerOptions
	if conf.Env == config.EnvDev {
		loggerOpts = slog.HandlerOptions{Level: slog.LevelDebug}
	}

	jsonHandler := slog.NewJSONHandler(os.Stdout, &loggerOpts)
	logger := slog.New(jsonHandler)

	settings, err := conf.NavigationSettings()
	if err != nil {
		return err
	}
	directionsClient, err := conf.Directions()
	if err != nil {
		return err
	}
	catalog, err := conf.Destinations()
	if err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(conf.RedisHost, conf.RedisPort)})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis is unreachable, snapshots and events will fail until it is back", "error", err)
	}

	positions := subscriber.NewSubscriber(logger, redisClient, conf.RedisPositionsPrefix)
	defer positions.Close()
	sessionCache := cache.NewRedisSessionCache(redisClient, conf.SessionSnapshotTTL)
	events := notifier.NewPublisher(redisClient, conf.RedisEventsChannel, logger)

	wsManager := ws.NewManager(ctx, logger, settings, directionsClient, sessionCache, events)
	go wsManager.Start()
	defer wsManager.Shutdown()

	logger.Info("navigation engine configured",
		"provider", conf.DirectionsProvider,
		"profile", settings.Profile,
		"outsidePolicy", settings.OutsidePolicy,
		"destinations", len(catalog.Entries()),
	)

	server := api.NewServer(conf, wsManager, catalog, sessionCache, positions, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	return nil
}
