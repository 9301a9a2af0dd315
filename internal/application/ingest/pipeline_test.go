package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-article-agent/internal/config"
	"news-article-agent/internal/domain/entity"
	apperrors "news-article-agent/pkg/errors"
)

type fakeExtractor struct {
	article *entity.Article
	err     error
}

func (f *fakeExtractor) Extract(context.Context, string) (*entity.Article, error) {
	return f.article, f.err
}

type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, apperrors.ErrEmbeddingFailed
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeIndex struct {
	mu     sync.Mutex
	points []*Point
	err    error
}

func (f *fakeIndex) Upsert(_ context.Context, points []*Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, points...)
	return nil
}

// urlExtractor 按 URL 生成互不相同的文章，用于并发隔离断言
type urlExtractor struct{}

func (urlExtractor) Extract(_ context.Context, url string) (*entity.Article, error) {
	return &entity.Article{
		Title:         "Title for " + url,
		Content:       "Body mentioning " + url + ". More sentences follow here.",
		URL:           url,
		DatePublished: "2024-01-01",
	}, nil
}

func testArticle(content string) *entity.Article {
	return &entity.Article{
		Title:         "Title",
		Content:       content,
		URL:           "https://example.com/a",
		DatePublished: "2024-01-01",
	}
}

func fastRetryConfig() config.IngestConfig {
	return config.IngestConfig{
		ChunkSize:     64,
		ChunkOverlap:  8,
		Concurrency:   2,
		RetryAttempts: 3,
		RetryBackoff: config.BackoffConfig{
			Initial:    time.Millisecond,
			Max:        5 * time.Millisecond,
			Multiplier: 2,
		},
	}
}

func TestPipeline_HandleURL(t *testing.T) {
	t.Parallel()

	t.Run("indexes every chunk with full payload", func(t *testing.T) {
		t.Parallel()

		content := strings.Repeat("A fairly long sentence about the news. ", 10)
		extractor := &fakeExtractor{article: testArticle(content)}
		embedder := &fakeEmbedder{}
		index := &fakeIndex{}

		p := NewPipeline(extractor, embedder, index, fastRetryConfig())
		require.NoError(t, p.HandleURL(context.Background(), "https://example.com/a"))

		require.NotEmpty(t, index.points)
		seen := map[string]bool{}
		for _, pt := range index.points {
			assert.Equal(t, []float32{1, 2, 3}, pt.Vector)
			assert.Equal(t, "Title", pt.Article.Title)
			assert.Equal(t, "https://example.com/a", pt.Article.URL)
			assert.False(t, seen[pt.ID], "duplicate point id %s", pt.ID)
			seen[pt.ID] = true
		}
		assert.Equal(t, len(index.points), embedder.calls)
	})

	t.Run("extraction failure propagates", func(t *testing.T) {
		t.Parallel()

		extractor := &fakeExtractor{err: apperrors.ErrFetchFailed}
		p := NewPipeline(extractor, &fakeEmbedder{}, &fakeIndex{}, fastRetryConfig())

		err := p.HandleURL(context.Background(), "https://example.com/a")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeFetchFailed))
	})

	t.Run("embedding retries then succeeds", func(t *testing.T) {
		t.Parallel()

		extractor := &fakeExtractor{article: testArticle("Short content.")}
		embedder := &fakeEmbedder{failures: 2}
		index := &fakeIndex{}

		p := NewPipeline(extractor, embedder, index, fastRetryConfig())
		require.NoError(t, p.HandleURL(context.Background(), "https://example.com/a"))
		assert.Len(t, index.points, 1)
		assert.Equal(t, 3, embedder.calls)
	})

	t.Run("persistent index failure exhausts retries", func(t *testing.T) {
		t.Parallel()

		extractor := &fakeExtractor{article: testArticle("Short content.")}
		index := &fakeIndex{err: apperrors.ErrIndexWrite}

		p := NewPipeline(extractor, &fakeEmbedder{}, index, fastRetryConfig())
		err := p.HandleURL(context.Background(), "https://example.com/a")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeIndexWrite))
	})

	t.Run("concurrent events keep their own payloads", func(t *testing.T) {
		t.Parallel()

		extractor := &urlExtractor{}
		index := &fakeIndex{}
		p := NewPipeline(extractor, &fakeEmbedder{}, index, fastRetryConfig())

		urls := []string{"https://example.com/one", "https://example.com/two", "https://example.com/three"}
		var wg sync.WaitGroup
		for _, u := range urls {
			u := u
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, p.HandleURL(context.Background(), u))
			}()
		}
		wg.Wait()

		require.NotEmpty(t, index.points)
		for _, pt := range index.points {
			assert.Contains(t, pt.Article.Content, pt.Article.URL,
				"point payload mixed up between events")
		}
	})

	t.Run("empty content produces no points", func(t *testing.T) {
		t.Parallel()

		article := testArticle("   ")
		extractor := &fakeExtractor{article: article}
		embedder := &fakeEmbedder{}
		index := &fakeIndex{}

		p := NewPipeline(extractor, embedder, index, fastRetryConfig())
		require.NoError(t, p.HandleURL(context.Background(), "https://example.com/a"))
		assert.Empty(t, index.points)
		assert.Zero(t, embedder.calls)
	})
}
