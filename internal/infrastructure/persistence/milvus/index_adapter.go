package milvus

import (
	"context"

	"news-article-agent/internal/application/agent"
	"news-article-agent/internal/application/ingest"
	"news-article-agent/internal/domain/entity"
)

// ArticleIndexAdapter 将向量仓储适配到应用层端口
type ArticleIndexAdapter struct {
	repo *Repository
}

func NewArticleIndexAdapter(repo *Repository) *ArticleIndexAdapter {
	return &ArticleIndexAdapter{repo: repo}
}

var (
	_ ingest.ArticleIndex = (*ArticleIndexAdapter)(nil)
	_ agent.Retriever     = (*ArticleIndexAdapter)(nil)
)

func (a *ArticleIndexAdapter) Upsert(ctx context.Context, points []*ingest.Point) error {
	if a == nil || a.repo == nil {
		return nil
	}
	if len(points) == 0 {
		return nil
	}

	out := make([]*ArticlePoint, 0, len(points))
	for i := range points {
		p := points[i]
		if p == nil {
			continue
		}
		out = append(out, &ArticlePoint{
			ID:            p.ID,
			Vector:        p.Vector,
			Title:         p.Article.Title,
			Content:       p.Article.Content,
			URL:           p.Article.URL,
			DatePublished: p.Article.DatePublished,
		})
	}
	return a.repo.Upsert(ctx, out)
}

func (a *ArticleIndexAdapter) Search(ctx context.Context, vector []float32, topK int) ([]*agent.Match, error) {
	if a == nil || a.repo == nil {
		return nil, nil
	}

	out, err := a.repo.Search(ctx, vector, topK)
	if err != nil {
		return nil, err
	}

	matches := make([]*agent.Match, 0, len(out))
	for i := range out {
		p := out[i]
		if p == nil {
			continue
		}
		matches = append(matches, &agent.Match{
			ID:    p.ID,
			Score: p.Score,
			Article: entity.Article{
				Title:         p.Title,
				Content:       p.Content,
				URL:           p.URL,
				DatePublished: p.DatePublished,
			},
		})
	}
	return matches, nil
}
