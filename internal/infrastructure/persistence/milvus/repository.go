// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "news-article-agent/pkg/errors"
	"news-article-agent/pkg/metrics"
)

// Repository 文章向量仓储
type Repository struct {
	client *Client
	dim    int
}

// NewRepository 创建文章向量仓储
func NewRepository(client *Client, dim int) *Repository {
	return &Repository{client: client, dim: dim}
}

// EnsureCollection 确保 articles 集合与索引可用（不存在则创建）。
// 已存在时校验向量维度与索引度量；不一致直接返回配置错误，绝不做 drop/rebuild。
func (r *Repository) EnsureCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return apperrors.ErrIndexConfig.WithDetail("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.EnsureCollection",
		trace.WithAttributes(attribute.String("collection", CollectionArticles)))
	defer span.End()

	exists, err := r.client.HasCollection(ctx, CollectionArticles)
	if err != nil {
		span.RecordError(err)
		return apperrors.ErrIndexConfig.WithError(err)
	}

	if !exists {
		if err := r.createCollection(ctx); err != nil {
			span.RecordError(err)
			return err
		}
		if err := r.createIndex(ctx); err != nil {
			span.RecordError(err)
			return err
		}
	} else if err := r.validateCollection(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	if err := r.client.LoadCollection(ctx, CollectionArticles); err != nil {
		span.RecordError(err)
		return apperrors.ErrIndexConfig.WithError(err)
	}
	return nil
}

func (r *Repository) createCollection(ctx context.Context) error {
	schema := ArticlesSchema(r.dim)
	schema.CollectionName = r.client.CollectionName(schema.CollectionName)

	if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return apperrors.ErrIndexConfig.WithDetail("failed to create collection").WithError(err)
	}
	return nil
}

func (r *Repository) createIndex(ctx context.Context) error {
	collName := r.client.CollectionName(CollectionArticles)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		return apperrors.ErrIndexConfig.WithDetail("failed to build index definition").WithError(err)
	}

	if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		return apperrors.ErrIndexConfig.WithDetail("failed to create index").WithError(err)
	}
	return nil
}

// validateCollection 校验已有集合的向量维度与索引度量
func (r *Repository) validateCollection(ctx context.Context) error {
	collName := r.client.CollectionName(CollectionArticles)

	coll, err := r.client.milvus.DescribeCollection(ctx, collName)
	if err != nil {
		return apperrors.ErrIndexConfig.WithDetail("failed to describe collection").WithError(err)
	}

	var dimOK bool
	for _, field := range coll.Schema.Fields {
		if field.Name != "vector" {
			continue
		}
		dimStr := field.TypeParams["dim"]
		dim, err := strconv.Atoi(dimStr)
		if err != nil {
			return apperrors.ErrIndexConfig.WithDetail(fmt.Sprintf("invalid vector dim %q", dimStr))
		}
		if dim != r.dim {
			return apperrors.ErrIndexConfig.WithDetail(
				fmt.Sprintf("collection dimension %d does not match configured %d", dim, r.dim))
		}
		dimOK = true
	}
	if !dimOK {
		return apperrors.ErrIndexConfig.WithDetail("collection has no vector field")
	}

	idxs, err := r.client.milvus.DescribeIndex(ctx, collName, "vector")
	if err != nil {
		return apperrors.ErrIndexConfig.WithDetail("failed to describe index").WithError(err)
	}
	for _, idx := range idxs {
		metric := idx.Params()["metric_type"]
		if metric != "" && metric != string(entity.COSINE) {
			return apperrors.ErrIndexConfig.WithDetail(
				fmt.Sprintf("index metric %q does not match required COSINE", metric))
		}
	}
	return nil
}

// Upsert 写入文章切片（等待写入结果返回，失败必须上抛）
func (r *Repository) Upsert(ctx context.Context, points []*ArticlePoint) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return apperrors.ErrIndexWrite.WithDetail("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(
			attribute.String("collection", CollectionArticles),
			attribute.Int("count", len(points)),
		))
	defer span.End()

	if len(points) == 0 {
		return nil
	}

	ids := make([]string, len(points))
	vectors := make([][]float32, len(points))
	titles := make([]string, len(points))
	contents := make([]string, len(points))
	urls := make([]string, len(points))
	dates := make([]string, len(points))

	for i, p := range points {
		ids[i] = p.ID
		vectors[i] = p.Vector
		titles[i] = p.Title
		contents[i] = p.Content
		urls[i] = p.URL
		dates[i] = p.DatePublished
	}

	collName := r.client.CollectionName(CollectionArticles)

	_, err := r.client.milvus.Upsert(ctx, collName, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", r.dim, vectors),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("url", urls),
		entity.NewColumnVarChar("date_published", dates),
	)
	if err != nil {
		span.RecordError(err)
		metrics.VectorUpsertTotal.WithLabelValues("error").Inc()
		return apperrors.ErrIndexWrite.WithError(err)
	}

	metrics.VectorUpsertTotal.WithLabelValues("ok").Inc()
	return nil
}

// Search 按余弦相似度检索文章切片。
// 结果按相似度降序；相同分数时按 id 升序，保证排序稳定可复现。
func (r *Repository) Search(ctx context.Context, vector []float32, topK int) ([]*ScoredPoint, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, apperrors.ErrIndexSearch.WithDetail("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("collection", CollectionArticles),
			attribute.Int("top_k", topK),
		))
	defer span.End()

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrIndexSearch.WithError(err)
	}

	collName := r.client.CollectionName(CollectionArticles)

	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		[]string{"id", "title", "content", "url", "date_published"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrIndexSearch.WithError(err)
	}

	var points []*ScoredPoint
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			p := &ScoredPoint{
				Score: result.Scores[i],
			}
			if col, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				p.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("title").(*entity.ColumnVarChar); ok {
				p.Title = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("content").(*entity.ColumnVarChar); ok {
				p.Content = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("url").(*entity.ColumnVarChar); ok {
				p.URL = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("date_published").(*entity.ColumnVarChar); ok {
				p.DatePublished = col.Data()[i]
			}
			points = append(points, p)
		}
	}

	SortScored(points)

	span.SetAttributes(attribute.Int("result_count", len(points)))
	return points, nil
}

// SortScored 按分数降序、同分按 id 升序排序
func SortScored(points []*ScoredPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Score != points[j].Score {
			return points[i].Score > points[j].Score
		}
		return points[i].ID < points[j].ID
	})
}
