package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"news-article-agent/internal/application/chunk"
	"news-article-agent/internal/config"
	"news-article-agent/pkg/logger"
	"news-article-agent/pkg/metrics"
)

var tracer = otel.Tracer("ingest")

// Pipeline 文章摄取管线：抽取 -> 切片 -> 向量化 -> 写入索引
type Pipeline struct {
	extractor Extractor
	embedder  Embedder
	index     ArticleIndex
	cfg       config.IngestConfig
}

// NewPipeline 创建摄取管线
func NewPipeline(extractor Extractor, embedder Embedder, index ArticleIndex, cfg config.IngestConfig) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunk.DefaultSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = chunk.DefaultOverlap
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBackoff.Initial <= 0 {
		cfg.RetryBackoff = config.BackoffConfig{
			Initial:    500 * time.Millisecond,
			Max:        10 * time.Second,
			Multiplier: 2,
		}
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		cfg:       cfg,
	}
}

// HandleURL 处理一条文章链接：抽取后按切片并发向量化并写入索引。
// 任一切片最终失败时返回错误，事件整体重试（写入幂等，重复切片会被覆盖）。
func (p *Pipeline) HandleURL(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "ingest.HandleURL",
		trace.WithAttributes(attribute.String("article.url", url)))
	defer span.End()

	log := logger.FromContext(ctx)

	article, err := p.extractor.Extract(ctx, url)
	if err != nil {
		span.RecordError(err)
		return err
	}

	chunks := chunk.Split(article.Content, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for _, text := range chunks {
		text := text
		g.Go(func() error {
			var vector []float32
			err := p.withRetry(gctx, func(ctx context.Context) error {
				vectors, err := p.embedder.Embed(ctx, []string{text})
				if err != nil {
					return err
				}
				vector = vectors[0]
				return nil
			})
			if err != nil {
				return err
			}

			point := &Point{
				ID:      uuid.NewString(),
				Vector:  vector,
				Article: *article,
			}
			return p.withRetry(gctx, func(ctx context.Context) error {
				return p.index.Upsert(ctx, []*Point{point})
			})
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}

	metrics.IngestChunksIndexed.Add(float64(len(chunks)))
	log.Info("article indexed",
		"title", article.Title,
		"chunks", len(chunks),
	)
	return nil
}

// withRetry 有界指数退避重试
func (p *Pipeline) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < p.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := p.cfg.RetryBackoff.CalculateBackoff(attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
