// Package errors 提供统一的错误定义
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 摄取/查询业务错误 (4xxx)
	CodeFetchFailed      ErrorCode = "4101"
	CodeExtractionFailed ErrorCode = "4102"
	CodeEmbeddingFailed  ErrorCode = "4103"
	CodeNoMatch          ErrorCode = "4104"
	CodeUnknownTool      ErrorCode = "4105"
	CodeLLMCallFailed    ErrorCode = "4106"

	// 外部服务错误 (5xxx)
	CodeIndexConfig ErrorCode = "5101"
	CodeIndexWrite  ErrorCode = "5102"
	CodeIndexSearch ErrorCode = "5103"
	CodeStreamError ErrorCode = "5104"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeNoMatch:
		return http.StatusNotFound
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrFetchFailed      = New(CodeFetchFailed, "failed to fetch page")
	ErrExtractionFailed = New(CodeExtractionFailed, "article extraction failed")
	ErrEmbeddingFailed  = New(CodeEmbeddingFailed, "embedding call failed")
	ErrNoMatch          = New(CodeNoMatch, "no matching article found")
	ErrUnknownTool      = New(CodeUnknownTool, "model requested unknown tool")
	ErrLLMCallFailed    = New(CodeLLMCallFailed, "LLM call failed")

	ErrIndexConfig = New(CodeIndexConfig, "vector collection schema mismatch")
	ErrIndexWrite  = New(CodeIndexWrite, "vector index write failed")
	ErrIndexSearch = New(CodeIndexSearch, "vector index search failed")
	ErrStream      = New(CodeStreamError, "message stream operation failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// IsCode 判断错误链上是否存在指定错误码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsBadInput 判断是否为"不自动重试"类错误。
// 消费循环对这类错误执行 log-and-ack：一条坏消息不应阻塞整个流，
// 模型调用失败同样只记录不重投。
// 基础设施类错误（embedding/index/stream）需要重试并上报。
func IsBadInput(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeInvalidParam, CodeFetchFailed, CodeExtractionFailed, CodeLLMCallFailed:
		return true
	default:
		return false
	}
}
