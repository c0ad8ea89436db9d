package models

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// ValidateURL 校验抓取目标地址,仅接受带主机名的http/https绝对URL
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Value: rawURL, Reason: "URL格式无效"}
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return &ValidationError{Field: "url", Value: rawURL, Reason: "URL必须是HTTP或HTTPS协议"}
	}
	if parsed.Host == "" {
		return &ValidationError{Field: "url", Value: rawURL, Reason: "URL缺少主机名"}
	}
	return nil
}

// BuildURL 将查询参数合并进URL,保留原有参数
func BuildURL(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("无效的URL: %w", err)
	}
	query := parsed.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// generateID 生成任务唯一标识
func generateID() string {
	return uuid.New().String()
}
