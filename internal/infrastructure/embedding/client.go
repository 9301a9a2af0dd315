// Package embedding 提供 Embedding 服务客户端
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	apperrors "news-article-agent/pkg/errors"
	"news-article-agent/pkg/metrics"
)

// Client 向量化客户端。
// 包装 Eino Embedder，统一输出 float32 并校验返回维度。
// 不做内部重试：重试策略由调用方（摄取管线）决定。
type Client struct {
	embedder embedding.Embedder
	dim      int
}

// NewClient 创建向量化客户端
func NewClient(embedder embedding.Embedder, dim int) *Client {
	return &Client{
		embedder: embedder,
		dim:      dim,
	}
}

// Embed 批量向量化文本
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vectors64, err := c.embedder.EmbedStrings(ctx, texts)
	metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EmbeddingCallTotal.WithLabelValues("error").Inc()
		return nil, apperrors.ErrEmbeddingFailed.WithError(err)
	}
	metrics.EmbeddingCallTotal.WithLabelValues("ok").Inc()

	if len(vectors64) != len(texts) {
		return nil, apperrors.ErrEmbeddingFailed.WithDetail(
			fmt.Sprintf("expected %d vectors, got %d", len(texts), len(vectors64)))
	}

	vectors := make([][]float32, len(vectors64))
	for i, v64 := range vectors64 {
		if c.dim > 0 && len(v64) != c.dim {
			return nil, apperrors.ErrEmbeddingFailed.WithDetail(
				fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v64), c.dim))
		}
		v := make([]float32, len(v64))
		for j, f := range v64 {
			v[j] = float32(f)
		}
		vectors[i] = v
	}

	return vectors, nil
}

// Dimension 配置的向量维度
func (c *Client) Dimension() int {
	return c.dim
}
