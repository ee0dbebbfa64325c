package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hrdesk/notify-service/internal/broker"
	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/logger"
	"github.com/hrdesk/notify-service/internal/repo"
	"github.com/hrdesk/notify-service/internal/service"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
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

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	repository := repo.NewRepository(gdb, log)

	// the retrier publishes too, so its confirms flow through the same
	// listener as the server's
	var svc *service.NotifyService
	mq, err := broker.Dial(cfg.Rabbit, func(msgID string, ack bool, cause string) {
		svc.HandleConfirm(msgID, ack, cause)
	}, log)
	if err != nil {
		log.Fatalf("rabbitmq dial: %v", err)
	}
	defer mq.Close()

	svc = service.NewNotifyService(repository, mq, cfg.Notify, cfg.Rabbit, log)
	retrier := service.NewRetrier(svc, repository, cfg.Notify, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("notify-retrier started")
	retrier.Start(ctx)
}
