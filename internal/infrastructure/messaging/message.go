// Package messaging 提供消息流实现
package messaging

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "news-article-agent/pkg/errors"
)

// IngestEvent 摄取事件信封。
// 流内载荷形如 {"value":{"url":"https://..."}}。
type IngestEvent struct {
	Value IngestValue `json:"value"`
}

// IngestValue 事件内容
type IngestValue struct {
	URL string `json:"url"`
}

// NewIngestEvent 创建摄取事件
func NewIngestEvent(url string) *IngestEvent {
	return &IngestEvent{Value: IngestValue{URL: url}}
}

// DecodeIngestEvent 解析摄取事件。
// 格式非法或 url 缺失视为坏输入，调用方应跳过该事件而非重试。
func DecodeIngestEvent(data []byte) (*IngestEvent, error) {
	var event IngestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, apperrors.ErrInvalidParam.WithDetail("malformed ingest event").WithError(err)
	}
	if strings.TrimSpace(event.Value.URL) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("ingest event missing url")
	}
	return &event, nil
}

// Stream 流定义
type Stream string

const (
	// StreamArticleURLs 文章链接摄取流
	StreamArticleURLs Stream = "stream:articles:url"
)

// ConsumerGroup 消费者组定义
type ConsumerGroup string

const (
	// ConsumerGroupIngestWorker 摄取 worker 消费者组
	ConsumerGroupIngestWorker ConsumerGroup = "cg-ingest-worker"
)

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 默认退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 计算退避时间
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	backoff := c.Initial
	for i := 0; i < retryCount; i++ {
		backoff = time.Duration(float64(backoff) * c.Multiplier)
		if backoff > c.Max {
			backoff = c.Max
			break
		}
	}
	return backoff
}
