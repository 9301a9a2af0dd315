// Package messaging 提供消息流实现
package messaging

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "news-article-agent/pkg/errors"
	"news-article-agent/pkg/logger"
	"news-article-agent/pkg/metrics"
)

// EventHandler 摄取事件处理函数
type EventHandler func(ctx context.Context, event *IngestEvent) error

// State 消费者生命周期状态
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateSubscribed
	StateRunning
	StateShuttingDown
	StateStopped
)

// String 状态名
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Consumer 摄取事件消费者。
// 生命周期：Disconnected -> Connected -> Subscribed -> Running -> ShuttingDown -> Stopped。
// 单循环顺序消费，保持流内事件的到达顺序；事件内部的切片处理可以并发。
type Consumer struct {
	client        *redis.Client
	stream        Stream
	group         ConsumerGroup
	consumerName  string
	blockTimeout  time.Duration
	claimInterval time.Duration
	reclaimIdle   time.Duration
	retryLimit    int
	backoff       BackoffConfig

	handler EventHandler
	state   atomic.Int32
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// NewConsumer 创建摄取事件消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig, handler EventHandler) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	c := &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumerName:  cfg.ConsumerName,
		blockTimeout:  cfg.BlockTimeout,
		claimInterval: cfg.ClaimInterval,
		reclaimIdle:   maxDuration(5*time.Minute, cfg.Backoff.Max*2),
		retryLimit:    cfg.RetryLimit,
		backoff:       cfg.Backoff,
		handler:       handler,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State 当前状态
func (c *Consumer) State() State {
	return State(c.state.Load())
}

func (c *Consumer) transition(from, to State) error {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("invalid consumer state transition: %s -> %s (current %s)",
			from, to, c.State())
	}
	return nil
}

// Connect 验证与 Redis 的连接
func (c *Consumer) Connect(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return apperrors.ErrStream.WithDetail("failed to connect to stream backend").WithError(err)
	}
	return c.transition(StateDisconnected, StateConnected)
}

// Subscribe 确保流和消费者组存在
func (c *Consumer) Subscribe(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return apperrors.ErrStream.WithDetail("failed to create consumer group").WithError(err)
	}
	return c.transition(StateConnected, StateSubscribed)
}

// Run 启动消费循环，阻塞直到停止
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.transition(StateSubscribed, StateRunning); err != nil {
		return err
	}
	defer close(c.doneCh)
	defer c.state.Store(int32(StateStopped))

	log := logger.FromContext(ctx)
	log.Info("consumer started",
		"stream", c.stream,
		"group", c.group,
		"consumer", c.consumerName,
	)

	lastClaim := time.Now().Add(-c.claimInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped due to context cancellation")
			return nil
		case <-c.stopCh:
			log.Info("consumer stopped")
			return nil
		default:
		}

		c.processDuePending(ctx)
		if time.Since(lastClaim) >= c.claimInterval {
			c.reclaimStale(ctx)
			lastClaim = time.Now()
		}

		// 每次只取一条新事件，保证按到达顺序处理
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.group),
			Consumer: c.consumerName,
			Streams:  []string{string(c.stream), ">"},
			Count:    1,
			Block:    c.blockTimeout,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			log.Error("failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xmsg := range stream.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

// Shutdown 停止消费并等待在途事件处理完成
func (c *Consumer) Shutdown(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown)) {
		// 尚未进入 Running（或已停止）时无需排水
		c.state.Store(int32(StateStopped))
		return nil
	}

	close(c.stopCh)

	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("consumer shutdown timed out: %w", ctx.Err())
	}
}

// processMessage 处理单条事件
func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	ctx = logger.WithContext(ctx, logger.EventIDKey, xmsg.ID)

	dataStr, ok := xmsg.Values["data"].(string)
	if !ok {
		logger.FromContext(ctx).Warn("skipping event with invalid format")
		metrics.IngestEventsTotal.WithLabelValues("skipped").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	event, err := DecodeIngestEvent([]byte(dataStr))
	if err != nil {
		logger.FromContext(ctx).Warn("skipping malformed event", "error", err)
		metrics.IngestEventsTotal.WithLabelValues("skipped").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	ctx = logger.WithContext(ctx, logger.ArticleKey, event.Value.URL)
	log := logger.FromContext(ctx)

	span.SetAttributes(attribute.String("article.url", event.Value.URL))

	if err := c.handler(ctx, event); err != nil {
		span.RecordError(err)
		if apperrors.IsBadInput(err) {
			// 抓取/抽取失败属于内容问题，重试无意义：记录并跳过
			log.Warn("skipping event after unprocessable content", "error", err)
			metrics.IngestEventsTotal.WithLabelValues("skipped").Inc()
			c.ack(ctx, xmsg.ID)
			return
		}
		log.Error("handler failed", "error", err)
		c.handleFailure(ctx, xmsg)
		return
	}

	metrics.IngestEventsTotal.WithLabelValues("ok").Inc()
	metrics.IngestEventDuration.Observe(time.Since(start).Seconds())
	c.ack(ctx, xmsg.ID)
}

// ack 确认事件
func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.stream), string(c.group), id).Err(); err != nil {
		logger.FromContext(ctx).Error("failed to ack event", "error", err, "event_id", id)
	}
}

// handleFailure 基础设施类失败的处理。
// 未达重试上限时事件留在 pending 表，待退避时间后被重新认领；
// 超限后记录错误并确认，避免毒丸事件卡死整个流。
func (c *Consumer) handleFailure(ctx context.Context, xmsg redis.XMessage) {
	log := logger.FromContext(ctx)

	retryCount := c.getRetryCount(ctx, xmsg.ID)

	if retryCount >= c.retryLimit {
		log.Error("dropping event after max retries",
			"retry_count", retryCount,
		)
		metrics.IngestEventsTotal.WithLabelValues("failed").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}
	log.Info("event left pending for retry",
		"retry_count", retryCount,
		"next_backoff", c.backoff.CalculateBackoff(retryCount),
	)
}

// getRetryCount 通过 XPENDING 获取事件的投递次数
func (c *Consumer) getRetryCount(ctx context.Context, messageID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()

	if err != nil || len(pending) == 0 {
		return 0
	}

	return int(pending[0].RetryCount)
}

// processDuePending 重放本消费者名下退避到期的 pending 事件
func (c *Consumer) processDuePending(ctx context.Context) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: c.consumerName,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return
		}
		logger.FromContext(ctx).Error("failed to query pending events", "error", err)
		return
	}

	for i := range pending {
		p := pending[i]
		retryCount := int(p.RetryCount)
		if retryCount >= c.retryLimit {
			logger.FromContext(ctx).Error("dropping pending event after max retries",
				"event_id", p.ID,
				"retry_count", retryCount,
			)
			metrics.IngestEventsTotal.WithLabelValues("failed").Inc()
			c.ack(ctx, p.ID)
			continue
		}

		backoff := c.backoff.CalculateBackoff(retryCount)
		if p.Idle < backoff {
			continue
		}

		claimed, claimErr := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   string(c.stream),
			Group:    string(c.group),
			Consumer: c.consumerName,
			MinIdle:  backoff,
			Messages: []string{p.ID},
		}).Result()
		if claimErr != nil {
			logger.FromContext(ctx).Error("failed to claim pending event", "error", claimErr, "event_id", p.ID)
			continue
		}

		for _, xmsg := range claimed {
			c.processMessage(ctx, xmsg)
		}
	}
}

// reclaimStale 接管其他消费者实例遗留的超时事件
func (c *Consumer) reclaimStale(ctx context.Context) {
	if c.reclaimIdle <= 0 {
		return
	}

	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  "-",
		End:    "+",
		Count:  20,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return
		}
		logger.FromContext(ctx).Error("failed to query pending events for reclaim", "error", err)
		return
	}

	for i := range pending {
		p := pending[i]
		if p.Consumer == c.consumerName {
			continue
		}
		if p.Idle < c.reclaimIdle {
			continue
		}

		claimed, claimErr := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   string(c.stream),
			Group:    string(c.group),
			Consumer: c.consumerName,
			MinIdle:  c.reclaimIdle,
			Messages: []string{p.ID},
		}).Result()
		if claimErr != nil {
			logger.FromContext(ctx).Error("failed to reclaim pending event", "error", claimErr, "event_id", p.ID)
			continue
		}

		for _, xmsg := range claimed {
			if int(p.RetryCount) >= c.retryLimit {
				logger.FromContext(ctx).Error("dropping stale event after max retries",
					"event_id", xmsg.ID,
					"retry_count", p.RetryCount,
				)
				metrics.IngestEventsTotal.WithLabelValues("failed").Inc()
				c.ack(ctx, xmsg.ID)
				continue
			}
			c.processMessage(ctx, xmsg)
		}
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
