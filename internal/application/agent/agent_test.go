package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-article-agent/internal/domain/entity"
	apperrors "news-article-agent/pkg/errors"
)

// scriptedModel 按脚本依次返回预设回复
type scriptedModel struct {
	responses  []*schema.Message
	idx        int
	boundTools []*schema.ToolInfo
	calls      [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls = append(m.calls, messages)
	if m.idx >= len(m.responses) {
		return nil, errors.New("no scripted response left")
	}
	msg := m.responses[m.idx]
	m.idx++
	return msg, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.boundTools = tools
	return m, nil
}

type staticProvider struct {
	cm  model.BaseChatModel
	err error
}

func (p *staticProvider) Default(context.Context) (model.BaseChatModel, error) {
	return p.cm, p.err
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type staticRetriever struct {
	matches []*Match
	err     error
}

func (r *staticRetriever) Search(context.Context, []float32, int) ([]*Match, error) {
	return r.matches, r.err
}

type staticReader struct {
	article *entity.Article
	err     error
	urls    []string
}

func (r *staticReader) Extract(_ context.Context, url string) (*entity.Article, error) {
	r.urls = append(r.urls, url)
	return r.article, r.err
}

func indexedArticle() entity.Article {
	return entity.Article{
		Title:         "Justice Department indictment",
		Content:       "The Justice Department announced an indictment on Thursday.",
		URL:           "https://news.example.com/doj",
		DatePublished: "2024-03-21",
	}
}

func singleMatch() []*Match {
	return []*Match{{ID: "p1", Score: 0.92, Article: indexedArticle()}}
}

func TestAgent_Answer(t *testing.T) {
	t.Parallel()

	t.Run("empty question", func(t *testing.T) {
		t.Parallel()

		a := NewAgent(&staticProvider{}, staticEmbedder{}, &staticRetriever{}, &staticReader{})
		_, err := a.Answer(context.Background(), "   ")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		a := NewAgent(&staticProvider{}, staticEmbedder{}, &staticRetriever{matches: nil}, &staticReader{})
		_, err := a.Answer(context.Background(), "what happened?")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNoMatch))
	})

	t.Run("incomplete payload treated as no match", func(t *testing.T) {
		t.Parallel()

		matches := []*Match{{ID: "p1", Score: 0.9, Article: entity.Article{Title: "only title"}}}
		a := NewAgent(&staticProvider{}, staticEmbedder{}, &staticRetriever{matches: matches}, &staticReader{})
		_, err := a.Answer(context.Background(), "what happened?")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNoMatch))
	})

	t.Run("direct grounded answer", func(t *testing.T) {
		t.Parallel()

		cm := &scriptedModel{responses: []*schema.Message{
			schema.AssistantMessage(`{"answer":"An indictment was announced.","source":"https://news.example.com/doj"}`, nil),
		}}
		a := NewAgent(&staticProvider{cm: cm}, staticEmbedder{}, &staticRetriever{matches: singleMatch()}, &staticReader{})

		result, err := a.Answer(context.Background(), "What did the Justice Department do?")
		require.NoError(t, err)

		assert.Equal(t, "An indictment was announced.", result.Answer)
		assert.Equal(t, "https://news.example.com/doj", result.Source.URL)

		// 工具已绑定，上下文里带了检索到的文章
		require.Len(t, cm.boundTools, 1)
		assert.Equal(t, "get_link_content", cm.boundTools[0].Name)
		require.Len(t, cm.calls, 1)
		assert.Contains(t, cm.calls[0][1].Content, "Justice Department announced")
	})

	t.Run("one tool round with fresh source", func(t *testing.T) {
		t.Parallel()

		toolCall := schema.ToolCall{
			ID: "call-1",
			Function: schema.FunctionCall{
				Name:      "get_link_content",
				Arguments: `{"url":"https://fresh.example.com/story","userMessageContents":["check this link"]}`,
			},
		}
		cm := &scriptedModel{responses: []*schema.Message{
			schema.AssistantMessage("", []schema.ToolCall{toolCall}),
			schema.AssistantMessage(`{"answer":"The linked story says X.","source":"https://fresh.example.com/story"}`, nil),
		}}
		fresh := &entity.Article{
			Title:         "Fresh story",
			Content:       "Linked content body.",
			URL:           "https://fresh.example.com/story",
			DatePublished: "2024-04-01",
		}
		reader := &staticReader{article: fresh}
		a := NewAgent(&staticProvider{cm: cm}, staticEmbedder{}, &staticRetriever{matches: singleMatch()}, reader)

		result, err := a.Answer(context.Background(), "What does https://fresh.example.com/story say?")
		require.NoError(t, err)

		assert.Equal(t, "The linked story says X.", result.Answer)
		assert.Equal(t, *fresh, result.Source)
		assert.Equal(t, []string{"https://fresh.example.com/story"}, reader.urls)

		// 第二次调用带上了工具结果消息
		require.Len(t, cm.calls, 2)
		final := cm.calls[1]
		require.GreaterOrEqual(t, len(final), 4)
		assert.Equal(t, schema.Tool, final[len(final)-1].Role)
		assert.Equal(t, "call-1", final[len(final)-1].ToolCallID)
	})

	t.Run("unknown tool requested", func(t *testing.T) {
		t.Parallel()

		toolCall := schema.ToolCall{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: "delete_everything", Arguments: `{}`},
		}
		cm := &scriptedModel{responses: []*schema.Message{
			schema.AssistantMessage("", []schema.ToolCall{toolCall}),
		}}
		a := NewAgent(&staticProvider{cm: cm}, staticEmbedder{}, &staticRetriever{matches: singleMatch()}, &staticReader{})

		_, err := a.Answer(context.Background(), "question")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnknownTool))
	})

	t.Run("tool failure propagates", func(t *testing.T) {
		t.Parallel()

		toolCall := schema.ToolCall{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: "get_link_content", Arguments: `{"url":"https://x.example.com"}`},
		}
		cm := &scriptedModel{responses: []*schema.Message{
			schema.AssistantMessage("", []schema.ToolCall{toolCall}),
		}}
		reader := &staticReader{err: apperrors.ErrFetchFailed}
		a := NewAgent(&staticProvider{cm: cm}, staticEmbedder{}, &staticRetriever{matches: singleMatch()}, reader)

		_, err := a.Answer(context.Background(), "question")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeFetchFailed))
	})

	t.Run("unstructured model output falls back to raw text", func(t *testing.T) {
		t.Parallel()

		cm := &scriptedModel{responses: []*schema.Message{
			schema.AssistantMessage("Plain prose answer without JSON.", nil),
		}}
		a := NewAgent(&staticProvider{cm: cm}, staticEmbedder{}, &staticRetriever{matches: singleMatch()}, &staticReader{})

		result, err := a.Answer(context.Background(), "question")
		require.NoError(t, err)
		assert.Equal(t, "Plain prose answer without JSON.", result.Answer)
	})

	t.Run("model provider failure", func(t *testing.T) {
		t.Parallel()

		a := NewAgent(&staticProvider{err: errors.New("no provider configured")}, staticEmbedder{},
			&staticRetriever{matches: singleMatch()}, &staticReader{})
		_, err := a.Answer(context.Background(), "question")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeLLMCallFailed))
	})
}

func TestLinkContentTool_InvokableRun(t *testing.T) {
	t.Parallel()

	t.Run("missing url", func(t *testing.T) {
		t.Parallel()

		tool := newLinkContentTool(&staticReader{})
		_, err := tool.InvokableRun(context.Background(), `{"url":"  "}`)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	})

	t.Run("returns article json and keeps it as source", func(t *testing.T) {
		t.Parallel()

		article := indexedArticle()
		tool := newLinkContentTool(&staticReader{article: &article})

		out, err := tool.InvokableRun(context.Background(), `{"url":"https://news.example.com/doj"}`)
		require.NoError(t, err)
		assert.Contains(t, out, "Justice Department indictment")
		require.NotNil(t, tool.article)
		assert.Equal(t, article, *tool.article)
	})
}
