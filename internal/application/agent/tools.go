package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"news-article-agent/internal/domain/entity"
	apperrors "news-article-agent/pkg/errors"
)

const toolNameGetLinkContent = "get_link_content"

// linkContentTool 按需抓取问题中出现的链接。
// 每次请求构造一个实例：抓到的文章留在实例上，作为最终回答的来源。
type linkContentTool struct {
	reader  LinkReader
	article *entity.Article
}

func newLinkContentTool(reader LinkReader) *linkContentTool {
	return &linkContentTool{reader: reader}
}

func (t *linkContentTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: toolNameGetLinkContent,
		Desc: "Fetch and extract the article behind a URL mentioned in the user's question. " +
			"Use it when the question refers to a specific link whose content is needed to answer.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"url": {
				Type:     schema.String,
				Desc:     "The URL to fetch",
				Required: true,
			},
			"userMessageContents": {
				Type: schema.Array,
				ElemInfo: &schema.ParameterInfo{
					Type: schema.String,
				},
				Desc:     "The contents of the user message that mention this URL",
				Required: false,
			},
		}),
	}, nil
}

func (t *linkContentTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		URL                 string   `json:"url"`
		UserMessageContents []string `json:"userMessageContents"`
	}
	_ = json.Unmarshal([]byte(argumentsInJSON), &args)

	url := strings.TrimSpace(args.URL)
	if url == "" {
		return "", apperrors.ErrInvalidParam.WithDetail("get_link_content called without url")
	}

	article, err := t.reader.Extract(ctx, url)
	if err != nil {
		return "", err
	}
	t.article = article

	out, err := json.Marshal(article)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
