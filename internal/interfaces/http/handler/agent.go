// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	appagent "news-article-agent/internal/application/agent"
	"news-article-agent/internal/interfaces/http/dto"
	apperrors "news-article-agent/pkg/errors"
	"news-article-agent/pkg/logger"
)

// AnswerService 问答服务端口
type AnswerService interface {
	Answer(ctx context.Context, question string) (*appagent.Result, error)
}

// AgentHandler 问答处理器
type AgentHandler struct {
	agent AnswerService
}

// NewAgentHandler 创建问答处理器
func NewAgentHandler(agent AnswerService) *AgentHandler {
	return &AgentHandler{agent: agent}
}

// Ask 处理问答请求
// POST /agent
func (h *AgentHandler) Ask(c *gin.Context) {
	var req dto.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "query is required")
		return
	}

	result, err := h.agent.Answer(c.Request.Context(), req.Query)
	if err != nil {
		logger.Error(c.Request.Context(), "agent answer failed", err, "path", c.FullPath())
		if apperrors.IsCode(err, apperrors.CodeInvalidParam) {
			dto.BadRequest(c, "invalid query")
			return
		}
		if apperrors.IsCode(err, apperrors.CodeNoMatch) {
			dto.Error(c, http.StatusNotFound, "no matching article found")
			return
		}
		// 对外不暴露内部失败细节
		dto.InternalError(c, "internal server error")
		return
	}

	c.JSON(http.StatusOK, dto.AgentResponse{
		Answer: result.Answer,
		Source: result.Source,
	})
}
