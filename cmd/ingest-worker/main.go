// Package main 文章摄取 worker 入口
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-article-agent/internal/application/extract"
	"news-article-agent/internal/application/ingest"
	"news-article-agent/internal/config"
	"news-article-agent/internal/infrastructure/embedding"
	"news-article-agent/internal/infrastructure/llm"
	"news-article-agent/internal/infrastructure/messaging"
	"news-article-agent/internal/infrastructure/persistence/milvus"
	"news-article-agent/internal/infrastructure/persistence/redis"
	einoobs "news-article-agent/internal/observability/eino"
	"news-article-agent/pkg/logger"
	"news-article-agent/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting ingest-worker",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "ingest-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	einoobs.Init()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Fatal(ctx, "failed to init milvus", err)
	}
	defer func() { _ = milvusClient.Close() }()

	// 集合不存在则创建；已存在但维度或索引配置不符时直接终止
	vectorRepo := milvus.NewRepository(milvusClient, cfg.Embedding.Dimension)
	if err := vectorRepo.EnsureCollection(ctx); err != nil {
		logger.Fatal(ctx, "failed to ensure articles collection", err)
	}

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedder", err)
	}

	factory := llm.NewEinoFactory(cfg)
	extractor := extract.NewExtractor(factory, extract.Config{
		FetchTimeout: cfg.Ingest.FetchTimeout,
		Cache:        redis.NewCache(redisClient),
		CacheTTL:     cfg.Cache.ArticleTTL,
	})

	pipeline := ingest.NewPipeline(
		extractor,
		embedding.NewClient(embedder, cfg.Embedding.Dimension),
		milvus.NewArticleIndexAdapter(vectorRepo),
		cfg.Ingest,
	)

	consumer := messaging.NewConsumer(
		redisClient.Redis(),
		consumerConfig(&cfg.Messaging.RedisStream),
		func(ctx context.Context, event *messaging.IngestEvent) error {
			return pipeline.HandleURL(ctx, event.Value.URL)
		},
	)

	if err := consumer.Connect(ctx); err != nil {
		logger.Fatal(ctx, "failed to connect consumer", err)
	}
	if err := consumer.Subscribe(ctx); err != nil {
		logger.Fatal(ctx, "failed to subscribe consumer", err)
	}

	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Fatal(ctx, "consumer stopped unexpectedly", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumer.Shutdown(shutdownCtx); err != nil {
		log.Error("consumer forced to shutdown", "error", err)
	}

	log.Info("worker exited")
}

// consumerConfig 从配置组装消费者参数，空值回落到内置默认
func consumerConfig(cfg *config.RedisStreamConfig) messaging.ConsumerConfig {
	stream := messaging.Stream(cfg.Stream)
	if stream == "" {
		stream = messaging.StreamArticleURLs
	}
	group := messaging.ConsumerGroup(cfg.Group)
	if group == "" {
		group = messaging.ConsumerGroupIngestWorker
	}

	backoff := messaging.BackoffConfig{
		Initial:    cfg.RetryBackoff.Initial,
		Max:        cfg.RetryBackoff.Max,
		Multiplier: cfg.RetryBackoff.Multiplier,
	}

	return messaging.ConsumerConfig{
		Stream:        stream,
		Group:         group,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.BlockTimeout,
		ClaimInterval: cfg.ClaimInterval,
		RetryLimit:    cfg.RetryLimit,
		Backoff:       backoff,
	}
}

// hostnameConsumerName 生成组内唯一的消费者名
func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
