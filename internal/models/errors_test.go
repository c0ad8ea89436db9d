package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFetchError(t *testing.T) {
	t.Run("错误消息包含分类与URL", func(t *testing.T) {
		err := NewFetchError(ErrKindTimeout, "https://example.com", errors.New("超出30秒"))

		msg := err.Error()
		if !strings.Contains(msg, "timeout") {
			t.Errorf("错误消息应包含分类: %s", msg)
		}
		if !strings.Contains(msg, "https://example.com") {
			t.Errorf("错误消息应包含URL: %s", msg)
		}
	})

	t.Run("Unwrap返回底层错误", func(t *testing.T) {
		cause := errors.New("连接被拒绝")
		err := NewFetchError(ErrKindTransport, "https://example.com", cause)

		if !errors.Is(err, cause) {
			t.Error("期望errors.Is能找到底层错误")
		}
	})
}

func TestIsRetryable(t *testing.T) {
	kinds := []FetchErrorKind{
		ErrKindTimeout,
		ErrKindTransport,
		ErrKindHTTPStatus,
		ErrKindReadinessTimeout,
		ErrKindExtraction,
	}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			err := NewFetchError(kind, "https://example.com", errors.New("x"))
			if !IsRetryable(err) {
				t.Errorf("分类 %s 应可重试", kind)
			}
		})
	}

	t.Run("普通错误不可重试", func(t *testing.T) {
		if IsRetryable(errors.New("编程错误")) {
			t.Error("普通错误不应走重试路径")
		}
	})

	t.Run("包装后仍可识别", func(t *testing.T) {
		inner := NewFetchError(ErrKindHTTPStatus, "https://example.com", errors.New("HTTP 503"))
		wrapped := fmt.Errorf("执行失败: %w", inner)

		if !IsRetryable(wrapped) {
			t.Error("包装后的抓取错误应仍可重试")
		}
	})
}

func TestKindOf(t *testing.T) {
	t.Run("抓取错误返回分类", func(t *testing.T) {
		err := NewFetchError(ErrKindReadinessTimeout, "https://example.com", errors.New("选择器未出现"))
		if KindOf(err) != ErrKindReadinessTimeout {
			t.Errorf("期望分类readiness_timeout, 实际: %s", KindOf(err))
		}
	})

	t.Run("普通错误返回unknown", func(t *testing.T) {
		if KindOf(errors.New("x")) != "unknown" {
			t.Errorf("期望unknown, 实际: %s", KindOf(errors.New("x")))
		}
	})
}

func TestValidationError(t *testing.T) {
	t.Run("带值的消息", func(t *testing.T) {
		err := &ValidationError{Field: "method", Value: "PATCH", Reason: "不支持的HTTP方法"}
		msg := err.Error()
		if !strings.Contains(msg, "method") || !strings.Contains(msg, "PATCH") {
			t.Errorf("消息缺少字段或值: %s", msg)
		}
	})

	t.Run("无值的消息", func(t *testing.T) {
		err := &ValidationError{Field: "url", Reason: "不能为空"}
		if !strings.Contains(err.Error(), "url") {
			t.Errorf("消息缺少字段: %s", err.Error())
		}
	})
}

func TestConfigError(t *testing.T) {
	cause := errors.New("yaml语法错误")
	err := &ConfigError{FilePath: "configs/headers.yaml", Cause: cause}

	if !strings.Contains(err.Error(), "configs/headers.yaml") {
		t.Errorf("消息缺少文件路径: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("期望errors.Is能找到底层错误")
	}
}
