// Package extract 负责从网页中抽取结构化文章
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"news-article-agent/internal/domain/entity"
	apperrors "news-article-agent/pkg/errors"
	"news-article-agent/pkg/logger"
	"news-article-agent/pkg/metrics"
)

var tracer = otel.Tracer("extract")

const (
	// maxFetchBytes 抓取响应体上限
	maxFetchBytes = 4 << 20
	// maxPromptRunes 传给模型的正文长度上限
	maxPromptRunes = 48000

	extractSystemPrompt = "You are a precise information extraction engine. " +
		"Given the raw text of a news web page, extract the article as JSON with exactly these fields: " +
		"title (headline), content (full article body text), url (canonical article link), " +
		"datePublished (publication date, ISO 8601 if possible). " +
		"Use only information present in the page. Respond with JSON only."
)

// ChatModelProvider 提供聊天模型实例
type ChatModelProvider interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
}

// ArticleCache 抽取结果缓存端口
type ArticleCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// Config 抽取器配置
type Config struct {
	FetchTimeout time.Duration
	Cache        ArticleCache
	CacheTTL     time.Duration
}

// Extractor 文章抽取器：抓取页面、清洗正文、用 LLM 结构化抽取
type Extractor struct {
	models     ChatModelProvider
	httpClient *http.Client
	cache      ArticleCache
	cacheTTL   time.Duration
}

// NewExtractor 创建文章抽取器
func NewExtractor(models ChatModelProvider, cfg Config) *Extractor {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Extractor{
		models: models,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    cfg.Cache,
		cacheTTL: cacheTTL,
	}
}

// Extract 抓取 URL 并抽取结构化文章。
// 命中缓存时跳过抓取和模型调用；缓存不可用时降级为直接抽取。
func (e *Extractor) Extract(ctx context.Context, url string) (*entity.Article, error) {
	ctx, span := tracer.Start(ctx, "extract.Extract",
		trace.WithAttributes(attribute.String("article.url", url)))
	defer span.End()

	if e.cache == nil {
		return e.extractLive(ctx, url)
	}

	data, err := e.cache.GetOrLoadSafe(ctx, cacheKey(url), e.cacheTTL, func() (interface{}, error) {
		return e.extractLive(ctx, url)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		// 缓存后端故障不应影响抽取
		logger.FromContext(ctx).Warn("article cache unavailable, extracting directly", "error", err)
		return e.extractLive(ctx, url)
	}

	var article entity.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return e.extractLive(ctx, url)
	}
	return &article, nil
}

func (e *Extractor) extractLive(ctx context.Context, url string) (*entity.Article, error) {
	html, err := e.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return e.ExtractFromHTML(ctx, url, html)
}

// fetch 抓取页面原始 HTML
func (e *Extractor) fetch(ctx context.Context, url string) (string, error) {
	ctx, span := tracer.Start(ctx, "extract.fetch",
		trace.WithAttributes(attribute.String("article.url", url)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.ErrFetchFailed.WithDetail("invalid url").WithError(err)
	}
	req.Header.Set("User-Agent", "news-article-agent/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", apperrors.ErrFetchFailed.WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.ErrFetchFailed.WithDetail(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		span.RecordError(err)
		return "", apperrors.ErrFetchFailed.WithDetail("failed to read response body").WithError(err)
	}

	return string(body), nil
}

// ExtractFromHTML 从已抓取的 HTML 中抽取结构化文章
func (e *Extractor) ExtractFromHTML(ctx context.Context, url, html string) (*entity.Article, error) {
	ctx, span := tracer.Start(ctx, "extract.ExtractFromHTML",
		trace.WithAttributes(attribute.String("article.url", url)))
	defer span.End()

	text, err := CleanHTML(html)
	if err != nil {
		return nil, apperrors.ErrExtractionFailed.WithDetail("failed to parse html").WithError(err)
	}
	if text == "" {
		return nil, apperrors.ErrExtractionFailed.WithDetail("page has no extractable text")
	}

	if runes := []rune(text); len(runes) > maxPromptRunes {
		text = string(runes[:maxPromptRunes])
	}

	article, err := e.extractWithModel(ctx, url, text)
	if err != nil {
		return nil, err
	}

	// 模型未能给出规范链接时，以事件里的来源 URL 为准
	if strings.TrimSpace(article.URL) == "" {
		article.URL = url
	}

	if err := article.Validate(); err != nil {
		return nil, apperrors.ErrExtractionFailed.WithDetail(err.Error())
	}
	return article, nil
}

// extractWithModel 调用 LLM 做结构化抽取
func (e *Extractor) extractWithModel(ctx context.Context, url, text string) (*entity.Article, error) {
	cm, err := e.models.Default(ctx)
	if err != nil {
		return nil, apperrors.ErrLLMCallFailed.WithError(err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(extractSystemPrompt),
		schema.UserMessage(fmt.Sprintf("Source URL: %s\n\nPage text:\n%s", url, text)),
	}

	msg, err := e.generate(ctx, cm, messages, true)
	if err != nil && schemaUnsupported(err) {
		logger.FromContext(ctx).Warn("llm json_schema not supported, fallback to prompt-only", "error", err)
		msg, err = e.generate(ctx, cm, messages, false)
	}
	if err != nil {
		return nil, apperrors.ErrLLMCallFailed.WithError(err)
	}

	var article entity.Article
	if err := json.Unmarshal([]byte(ExtractJSONObject(msg.Content)), &article); err != nil {
		return nil, apperrors.ErrExtractionFailed.WithDetail("model output is not valid article JSON").WithError(err)
	}
	return &article, nil
}

func (e *Extractor) generate(ctx context.Context, cm model.BaseChatModel, messages []*schema.Message, enableSchema bool) (*schema.Message, error) {
	var opts []model.Option
	if enableSchema {
		// 优先使用 response_format=json_schema 强约束；失败时降级为纯 Prompt 约束
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "article_extraction",
					"strict": false,
					"schema": articleJSONSchema(),
				},
			},
		}))
	}

	start := time.Now()
	msg, err := cm.Generate(ctx, messages, opts...)
	metrics.LLMCallDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("extract", "error").Inc()
		return nil, err
	}
	metrics.LLMCallTotal.WithLabelValues("extract", "ok").Inc()
	return msg, nil
}

// articleJSONSchema 抽取输出的 JSON Schema
func articleJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":         map[string]any{"type": "string"},
			"content":       map[string]any{"type": "string"},
			"url":           map[string]any{"type": "string"},
			"datePublished": map[string]any{"type": "string"},
		},
		"required":             []string{"title", "content", "url", "datePublished"},
		"additionalProperties": false,
	}
}

// schemaUnsupported 判断错误是否因服务端不支持 response_format 约束
func schemaUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "response_format") || strings.Contains(msg, "json_schema")
}
