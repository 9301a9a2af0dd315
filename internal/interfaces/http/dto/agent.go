package dto

import "news-article-agent/internal/domain/entity"

// AgentRequest 问答请求
type AgentRequest struct {
	Query string `json:"query" binding:"required"`
}

// AgentResponse 问答响应。
// source 返回支撑回答的完整文章对象，调用方可直接读取 source.url 溯源。
type AgentResponse struct {
	Answer string         `json:"answer"`
	Source entity.Article `json:"source"`
}
