package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hrdesk/notify-service/internal/broker"
	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/consumer"
	"github.com/hrdesk/notify-service/internal/logger"
	"github.com/hrdesk/notify-service/internal/mail"
	"github.com/hrdesk/notify-service/internal/repo"

	"github.com/go-redis/redis/v8"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	sender, err := mail.NewSMTPSender(cfg.SMTP)
	if err != nil {
		log.Fatalf("smtp sender: %v", err)
	}

	mq, err := broker.Dial(cfg.Rabbit, nil, log)
	if err != nil {
		log.Fatalf("rabbitmq dial: %v", err)
	}
	defer mq.Close()

	deliveries, err := mq.Consume(16)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	dedup := repo.NewDedupStore(rdb)
	mc := consumer.NewMailConsumer(dedup, sender, cfg.Notify.AtomicDedup, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("notify-mailworker started")
	mc.Run(ctx, deliveries)
}
