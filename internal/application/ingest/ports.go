// Package ingest 实现文章摄取管线
package ingest

import (
	"context"

	"news-article-agent/internal/domain/entity"
)

// Extractor 文章抽取端口
type Extractor interface {
	Extract(ctx context.Context, url string) (*entity.Article, error)
}

// Embedder 向量化端口
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Point 待写入向量索引的文章切片。
// payload 冗余携带完整文章：检索命中任意切片都能直接取回来源文章。
type Point struct {
	ID      string
	Vector  []float32
	Article entity.Article
}

// ArticleIndex 向量索引写入端口
type ArticleIndex interface {
	Upsert(ctx context.Context, points []*Point) error
}
