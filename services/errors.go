package services

import "fmt"

// ValidationError 请求字段缺失或格式错误，对应 HTTP 400
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError 构造一个字段校验错误
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError 未知的会话密钥或交易 ID，对应 HTTP 404
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ExpiredError 基于时间的失效（密钥过期或 deadline 已过），
// 与一般的授权拒绝区分开，UI 可以提示"续期"而不是"修改后重试"
type ExpiredError struct {
	What string
}

func (e *ExpiredError) Error() string { return e.What + " expired" }

// AuthorizationError 授权域失败（权限不足、签名无效），
// 在校验边界内被转换为结构化结果，不会作为异常穿透出去
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return e.Reason }

// UpstreamError 中继、RPC 或价格源故障，对应 HTTP 5xx；
// 原始错误仅记录日志，调用方只收到笼统信息，避免泄露上游内部细节
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
