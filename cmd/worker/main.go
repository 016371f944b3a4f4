package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/thereayou/flasker/internal/config"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/jobs"
	"github.com/thereayou/flasker/internal/logging"
	"github.com/thereayou/flasker/internal/mailer"
	"github.com/thereayou/flasker/internal/services"
	"github.com/thereayou/flasker/internal/tasks"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel, "worker")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb, err := database.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer rdb.Close()

	queue := jobs.NewRedisQueue(rdb, cfg.AppNickname, cfg.ResultTTL)
	notifications := services.NewNotificationService(db, rdb, database.NotificationChannel(cfg.AppNickname), logger)
	taskService := services.NewTaskService(db, queue, notifications, logger)

	worker := jobs.NewWorker(queue, taskService, logger)
	tasks.NewRunner(db, mailer.New(cfg, logger), cfg.SiteName, logger).Register(worker)

	if err := worker.Run(ctx); err != nil {
		logger.Error("worker stopped", zap.Error(err))
	}
}
