// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"news-article-agent/internal/application/extract"
	"news-article-agent/internal/config"
	"news-article-agent/internal/infrastructure/embedding"
	"news-article-agent/internal/infrastructure/llm"
	"news-article-agent/internal/infrastructure/persistence/milvus"
	"news-article-agent/internal/infrastructure/persistence/redis"
)

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClient 提供 Milvus 客户端
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideVectorRepository 提供向量仓储，维度跟随 Embedding 配置
func ProvideVectorRepository(client *milvus.Client, cfg *config.Config) *milvus.Repository {
	return milvus.NewRepository(client, cfg.Embedding.Dimension)
}

// ProvideEmbeddingClient 提供向量化客户端
func ProvideEmbeddingClient(ctx context.Context, cfg *config.Config) (*embedding.Client, error) {
	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return embedding.NewClient(embedder, cfg.Embedding.Dimension), nil
}

// ProvideExtractor 提供文章抽取器（带 Redis 结果缓存）
func ProvideExtractor(models *llm.EinoFactory, cache *redis.Cache, cfg *config.Config) *extract.Extractor {
	return extract.NewExtractor(models, extract.Config{
		FetchTimeout: cfg.Ingest.FetchTimeout,
		Cache:        cache,
		CacheTTL:     cfg.Cache.ArticleTTL,
	})
}
