package main

import (
	"fmt"
	"net/http"

	"github.com/hrdesk/notify-service/internal/broker"
	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/logger"
	"github.com/hrdesk/notify-service/internal/model"
	"github.com/hrdesk/notify-service/internal/repo"
	"github.com/hrdesk/notify-service/internal/service"
	httptransport "github.com/hrdesk/notify-service/internal/transport/http"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.Employee{}, &model.OutboxRecord{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. repo & service; the confirm callback closes over svc, which exists
	// before any publish can produce a confirmation
	repository := repo.NewRepository(gdb, log)

	var svc *service.NotifyService
	mq, err := broker.Dial(cfg.Rabbit, func(msgID string, ack bool, cause string) {
		svc.HandleConfirm(msgID, ack, cause)
	}, log)
	if err != nil {
		log.Fatalf("rabbitmq dial: %v", err)
	}
	defer mq.Close()

	svc = service.NewNotifyService(repository, mq, cfg.Notify, cfg.Rabbit, log)

	// 5. gin router
	router := httptransport.NewRouter(svc, cfg.RateLimit, log)

	// 6. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("notify-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
