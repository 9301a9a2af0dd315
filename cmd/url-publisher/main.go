// Package main 命令行工具：向摄取流投递文章链接
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"news-article-agent/internal/config"
	"news-article-agent/internal/infrastructure/messaging"
	"news-article-agent/internal/infrastructure/persistence/redis"
	"news-article-agent/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	url := flag.String("url", "", "article URL to publish")
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "usage: url-publisher -url <article-url>")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))

	id, err := producer.PublishURL(ctx, *url)
	if err != nil {
		logger.Fatal(ctx, "failed to publish url", err)
	}

	logger.Info(ctx, "url published", "event_id", id, "url", *url)
}
