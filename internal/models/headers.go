package models

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderConfig headers.yaml配置文件的结构
type HeaderConfig struct {
	Headers map[string]string `mapstructure:"headers" yaml:"headers"` // 名称到值的自定义头部
}

// CliHeaders 命令行传入的头部列表,每项格式为 "Name: Value"
type CliHeaders []string

// Parse 解析为http.Header
// 按第一个冒号切分,值中的冒号原样保留,名称与值去除首尾空白
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header, len(ch))
	for i, raw := range ch {
		name, value, found := strings.Cut(raw, ":")
		if !found {
			return nil, fmt.Errorf("参数 --header 第%d项缺少冒号分隔符,应为 'Name: Value'", i+1)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("参数 --header 第%d项头部名称为空", i+1)
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

// HeaderProvider 基础HTTP头部提供者
// 实现者负责按优先级合并头部(默认 < 配置文件 < 命令行)
// 端点元数据与任务级头部由执行器在此结果之上叠加
type HeaderProvider interface {
	GetHeaders() (http.Header, error)
}
