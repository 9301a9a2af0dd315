package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "news-article-agent/pkg/errors"
)

type fakeChatModel struct {
	content      string
	err          error
	calls        int
	lastMessages []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	m.lastMessages = messages
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type fakeProvider struct {
	cm model.BaseChatModel
}

func (p *fakeProvider) Default(context.Context) (model.BaseChatModel, error) {
	return p.cm, nil
}

type fakeCache struct {
	data      map[string][]byte
	err       error
	loadCalls int
}

func (c *fakeCache) GetOrLoadSafe(_ context.Context, key string, _ time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	c.loadCalls++
	val, err := loader()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = b
	return b, nil
}

const articleHTML = `<html><body>
	<h1>Markets rally</h1>
	<p>Stocks climbed sharply on Friday. Analysts credited the move to cooling inflation.</p>
	<script>trackPageView()</script>
</body></html>`

const modelArticleJSON = `{"title":"Markets rally","content":"Stocks climbed sharply on Friday.","url":"https://news.example.com/markets","datePublished":"2024-03-15"}`

func TestExtractFromHTML(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		cm := &fakeChatModel{content: modelArticleJSON}
		e := NewExtractor(&fakeProvider{cm: cm}, Config{})

		article, err := e.ExtractFromHTML(context.Background(), "https://news.example.com/markets", articleHTML)
		require.NoError(t, err)

		assert.Equal(t, "Markets rally", article.Title)
		assert.Equal(t, "Stocks climbed sharply on Friday.", article.Content)
		assert.Equal(t, "https://news.example.com/markets", article.URL)
		assert.Equal(t, "2024-03-15", article.DatePublished)

		// 送给模型的是清洗后的正文，不含脚本
		require.Len(t, cm.lastMessages, 2)
		assert.Contains(t, cm.lastMessages[1].Content, "Stocks climbed sharply")
		assert.NotContains(t, cm.lastMessages[1].Content, "trackPageView")
	})

	t.Run("backfills url from source", func(t *testing.T) {
		t.Parallel()

		cm := &fakeChatModel{content: `{"title":"T","content":"C","url":"","datePublished":"2024-01-01"}`}
		e := NewExtractor(&fakeProvider{cm: cm}, Config{})

		article, err := e.ExtractFromHTML(context.Background(), "https://example.com/orig", articleHTML)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/orig", article.URL)
	})

	t.Run("incomplete article fails", func(t *testing.T) {
		t.Parallel()

		cm := &fakeChatModel{content: `{"title":"","content":"C","url":"u","datePublished":"d"}`}
		e := NewExtractor(&fakeProvider{cm: cm}, Config{})

		_, err := e.ExtractFromHTML(context.Background(), "https://example.com", articleHTML)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeExtractionFailed))
	})

	t.Run("non-json model output fails", func(t *testing.T) {
		t.Parallel()

		cm := &fakeChatModel{content: "sorry, I cannot do that"}
		e := NewExtractor(&fakeProvider{cm: cm}, Config{})

		_, err := e.ExtractFromHTML(context.Background(), "https://example.com", articleHTML)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeExtractionFailed))
	})

	t.Run("empty page skips model call", func(t *testing.T) {
		t.Parallel()

		cm := &fakeChatModel{content: modelArticleJSON}
		e := NewExtractor(&fakeProvider{cm: cm}, Config{})

		_, err := e.ExtractFromHTML(context.Background(), "https://example.com", "<html><body><script>x</script></body></html>")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeExtractionFailed))
		assert.Zero(t, cm.calls)
	})
}

func TestExtract_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("fetches and extracts", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "news-article-agent/1.0", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(articleHTML))
		}))
		defer srv.Close()

		cm := &fakeChatModel{content: modelArticleJSON}
		e := NewExtractor(&fakeProvider{cm: cm}, Config{})

		article, err := e.Extract(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Markets rally", article.Title)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		e := NewExtractor(&fakeProvider{cm: &fakeChatModel{}}, Config{})

		_, err := e.Extract(context.Background(), srv.URL)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeFetchFailed))
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		e := NewExtractor(&fakeProvider{cm: &fakeChatModel{}}, Config{FetchTimeout: time.Second})

		_, err := e.Extract(context.Background(), "http://127.0.0.1:1")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeFetchFailed))
	})
}

func TestExtract_Cache(t *testing.T) {
	t.Parallel()

	t.Run("cache hit skips fetch", func(t *testing.T) {
		t.Parallel()

		url := "https://cached.example.com/a"
		cache := &fakeCache{data: map[string][]byte{
			cacheKey(url): []byte(modelArticleJSON),
		}}
		cm := &fakeChatModel{}
		e := NewExtractor(&fakeProvider{cm: cm}, Config{Cache: cache})

		article, err := e.Extract(context.Background(), url)
		require.NoError(t, err)
		assert.Equal(t, "Markets rally", article.Title)
		assert.Zero(t, cm.calls)
		assert.Zero(t, cache.loadCalls)
	})

	t.Run("cache miss populates via live extraction", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(articleHTML))
		}))
		defer srv.Close()

		cache := &fakeCache{}
		e := NewExtractor(&fakeProvider{cm: &fakeChatModel{content: modelArticleJSON}}, Config{Cache: cache})

		article, err := e.Extract(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Markets rally", article.Title)
		assert.Equal(t, 1, cache.loadCalls)
	})

	t.Run("cache backend failure degrades to live extraction", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(articleHTML))
		}))
		defer srv.Close()

		cache := &fakeCache{err: errors.New("redis down")}
		e := NewExtractor(&fakeProvider{cm: &fakeChatModel{content: modelArticleJSON}}, Config{Cache: cache})

		article, err := e.Extract(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Markets rally", article.Title)
	})

	t.Run("extraction error passes through cache", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		cache := &fakeCache{}
		e := NewExtractor(&fakeProvider{cm: &fakeChatModel{}}, Config{Cache: cache})

		_, err := e.Extract(context.Background(), srv.URL)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeFetchFailed))
	})
}
