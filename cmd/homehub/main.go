package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/config"
	"github.com/rejdysan/home-hub/internal/database"
	"github.com/rejdysan/home-hub/internal/logger"
	"github.com/rejdysan/home-hub/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "home-hub")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting home-hub service")

	// 连接 Postgres
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 连接 Redis（可选，仅作热镜像）
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = database.NewRedisClient(&cfg.Redis)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := database.PingRedis(pingCtx, redisClient); err != nil {
			log.Warn("Redis unavailable, hot mirror disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
		pingCancel()
	}

	// 创建并启动服务
	svc := service.New(cfg, log, db, redisClient)
	if err := svc.Start(); err != nil {
		log.Fatal("Failed to start service", zap.Error(err))
	}

	// 等待系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	svc.Stop()
	log.Info("Service stopped")
}
