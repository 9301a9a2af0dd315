//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	appagent "news-article-agent/internal/application/agent"
	"news-article-agent/internal/application/extract"
	"news-article-agent/internal/config"
	"news-article-agent/internal/infrastructure/embedding"
	"news-article-agent/internal/infrastructure/llm"
	"news-article-agent/internal/infrastructure/persistence/milvus"
	"news-article-agent/internal/infrastructure/persistence/redis"
	"news-article-agent/internal/interfaces/http/handler"
	"news-article-agent/internal/interfaces/http/middleware"
	"news-article-agent/internal/interfaces/http/router"
)

// InitializeApp 初始化问答网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RedisSet,
		MilvusSet,
		EmbeddingSet,
		LLMSet,
		ExtractSet,
		AgentSet,
		RouterSet,
	)
	return nil, nil, nil
}

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
	wire.Bind(new(extract.ArticleCache), new(*redis.Cache)),
)

// MilvusSet Milvus 提供者集合
var MilvusSet = wire.NewSet(
	ProvideMilvusClient,
	ProvideVectorRepository,
	milvus.NewArticleIndexAdapter,
	wire.Bind(new(appagent.Retriever), new(*milvus.ArticleIndexAdapter)),
)

// EmbeddingSet 向量化提供者集合
var EmbeddingSet = wire.NewSet(
	ProvideEmbeddingClient,
	wire.Bind(new(appagent.Embedder), new(*embedding.Client)),
)

// LLMSet 模型工厂提供者集合
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(extract.ChatModelProvider), new(*llm.EinoFactory)),
	wire.Bind(new(appagent.ChatModelProvider), new(*llm.EinoFactory)),
)

// ExtractSet 文章抽取提供者集合
var ExtractSet = wire.NewSet(
	ProvideExtractor,
	wire.Bind(new(appagent.LinkReader), new(*extract.Extractor)),
)

// AgentSet 问答代理提供者集合
var AgentSet = wire.NewSet(
	appagent.NewAgent,
	wire.Bind(new(handler.AnswerService), new(*appagent.Agent)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewAgentHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
