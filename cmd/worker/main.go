package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/suPer8Hu/chatcore/internal/config"
	"github.com/suPer8Hu/chatcore/internal/observability"
	"github.com/suPer8Hu/chatcore/internal/store/rabbitmq"
	"github.com/suPer8Hu/chatcore/internal/store/redisstore"
	"github.com/suPer8Hu/chatcore/internal/unread"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run consumes exported chat events and keeps the unread counters in redis.
func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if !cfg.EventExportEnabled() {
		return fmt.Errorf("RABBIT_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rds.Close() }()
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err = rds.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, cfg.WorkerConcurrency, log)
	if err != nil {
		return err
	}
	defer func() { _ = consumer.Close() }()

	projector := unread.NewProjector(rds, log)
	if err := consumer.Run(ctx, projector.HandleDelivery); err != nil {
		return err
	}
	log.Info("worker stopped")
	return nil
}
