package models

import (
	"errors"
	"fmt"
)

// FetchErrorKind 抓取错误分类
type FetchErrorKind string

const (
	ErrKindTimeout          FetchErrorKind = "timeout"           // 请求/导航超时
	ErrKindTransport        FetchErrorKind = "transport_error"   // 传输层失败
	ErrKindHTTPStatus       FetchErrorKind = "http_status_error" // 非2xx状态码
	ErrKindReadinessTimeout FetchErrorKind = "readiness_timeout" // 页面就绪等待超时
	ErrKindExtraction       FetchErrorKind = "extraction_error"  // 提取函数失败
)

// FetchError 单次抓取尝试的分类错误
// 五种分类全部可重试,由RetryPolicy决定重新入队还是终态
type FetchError struct {
	Kind FetchErrorKind // 错误分类
	URL  string         // 目标URL
	Err  error          // 底层错误
}

// Error 实现error接口
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Kind, e.URL, e.Err)
}

// Unwrap 支持errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError 创建分类错误
func NewFetchError(kind FetchErrorKind, targetURL string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: targetURL, Err: err}
}

// IsRetryable 判断错误是否走重试路径
// 所有抓取分类错误均可重试,其余错误视为编程错误向上传播
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// KindOf 提取错误分类,非抓取错误返回"unknown"
func KindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return "unknown"
}

// ValidationError 输入验证错误
type ValidationError struct {
	// Field 出错的字段
	Field string

	// Value 出错的值 (可选)
	Value string

	// Reason 错误原因
	Reason string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("验证失败 [%s=%s]: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("验证失败 [%s]: %s", e.Field, e.Reason)
}

// ConfigError 配置文件错误
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
