package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/email"
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
	log := logger.New(cfg.Log).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database, log)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	var infra bootstrap.Infra
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		infra.Producer = producer

		if cfg.Kafka.NotificationsTopic != "" {
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log)
			defer consumer.Close()
			sender := email.NewSender(log)

			go func() {
				if err := consumer.Consume(ctx, sender.Send); err != nil {
					log.Error("consumer stopped", "error", err)
				}
			}()
		}
	}

	_, bookingService := bootstrap.NewServices(cfg, storage, infra, log)

	interval := time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute
	expireTicker := time.NewTicker(interval)
	defer expireTicker.Stop()
	log.Info("worker started", "sweep_interval", interval)

	for {
		select {
		case <-expireTicker.C:
			expired, err := bookingService.ExpirePendingBookings(ctx)
			if err != nil {
				log.Error("expire bookings", "error", err)
			}
			if len(expired) > 0 {
				log.Info("expired bookings", "count", len(expired))
			}
		case <-ctx.Done():
			log.Info("shutting down")
			return
		}
	}
}
