package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/ZEBDA1/McHess/internal/config"
	"github.com/ZEBDA1/McHess/internal/infra/logger"
	"github.com/ZEBDA1/McHess/internal/infra/mq"
	"github.com/ZEBDA1/McHess/internal/infra/telegram"
	"github.com/ZEBDA1/McHess/internal/service"
)

// 独立的通知消费进程：从 notify_queue 取事件并发往 Telegram。
// 单进程部署时可以不跑它，cmd/web 自带内嵌消费协程。
func main() {
	cfg := config.Load()
	logger.Init()

	if cfg.RabbitMQ.URL == "" {
		log.Fatal("RABBITMQ_URL is required for the notify worker")
	}
	conn := mq.Init(&cfg.RabbitMQ)
	notifier := telegram.NewNotifier(&cfg.Telegram)

	zap.L().Info("notify worker started")
	if err := service.RunConsumer(conn, notifier); err != nil {
		log.Fatalf("notify worker stopped: %v", err)
	}
}
