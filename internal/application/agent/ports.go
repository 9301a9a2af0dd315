// Package agent 实现基于检索的问答代理
package agent

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"news-article-agent/internal/domain/entity"
)

// ChatModelProvider 提供聊天模型实例
type ChatModelProvider interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
}

// Embedder 向量化端口
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match 检索命中的文章切片
type Match struct {
	ID      string
	Score   float32
	Article entity.Article
}

// Retriever 向量检索端口
type Retriever interface {
	Search(ctx context.Context, vector []float32, topK int) ([]*Match, error)
}

// LinkReader 实时读取链接内容的端口（工具调用路径）
type LinkReader interface {
	Extract(ctx context.Context, url string) (*entity.Article, error)
}
