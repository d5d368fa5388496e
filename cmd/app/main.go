package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.New(config.LogConfig{}).Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, log)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	var infra bootstrap.Infra
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheDuration(), cfg.Booking.PromoCacheDuration())
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, caching disabled", "error", err)
			_ = redisCache.Close()
		} else {
			defer redisCache.Close()
			infra.Cache = redisCache
		}
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err := producer.CheckConnection(ctx); err != nil {
			log.Warn("kafka unreachable, events may be lost", "error", err)
		}
		defer producer.Close()
		infra.Producer = producer
	}

	services, _ := bootstrap.NewServices(cfg, storage, infra, log)

	if err := bootstrap.Run(ctx, cfg, services, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
