package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ProxyEndpoint 代理出口端点
// 装载后不可变,"使用中"集合是唯一的共享可变状态,由代理池维护
type ProxyEndpoint struct {
	Name          string `json:"server_name"`             // 端点名称,池内唯一
	Address       string `json:"server"`                  // HTTP代理地址 (http://host:port)
	Socks5Address string `json:"socks5_server,omitempty"` // SOCKS5代理地址 (socks5://host:port)

	// 端点级伪装元数据,执行器按端点应用
	UserAgent      string `json:"user_agent,omitempty"`      // 固定User-Agent
	AcceptLanguage string `json:"accept_language,omitempty"` // Accept-Language头部
	Locale         string `json:"locale,omitempty"`          // 浏览器locale (如 ru-RU)
	Timezone       string `json:"timezone,omitempty"`        // 浏览器时区 (如 Europe/Moscow)
}

// Validate 验证端点配置
func (p *ProxyEndpoint) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "server_name", Reason: "端点名称不能为空"}
	}
	if p.Address == "" && p.Socks5Address == "" {
		return &ValidationError{
			Field:  "server",
			Reason: fmt.Sprintf("端点 %s 必须至少配置一个代理地址", p.Name),
		}
	}
	if p.Address != "" {
		if err := validateProxyAddress(p.Address, "http", "https"); err != nil {
			return err
		}
	}
	if p.Socks5Address != "" {
		if err := validateProxyAddress(p.Socks5Address, "socks5"); err != nil {
			return err
		}
	}
	return nil
}

// Host 返回HTTP代理的host:port,用于浏览器启动参数
func (p *ProxyEndpoint) Host() string {
	parsed, err := url.Parse(p.Address)
	if err != nil || parsed.Host == "" {
		return strings.TrimPrefix(p.Address, "http://")
	}
	return parsed.Host
}

// ToJSON 序列化为JSON
func (p *ProxyEndpoint) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// FromJSON 从JSON反序列化
func (p *ProxyEndpoint) FromJSON(data []byte) error {
	return json.Unmarshal(data, p)
}

// validateProxyAddress 验证代理地址格式与协议
func validateProxyAddress(addr string, schemes ...string) error {
	parsed, err := url.Parse(addr)
	if err != nil {
		return &ValidationError{Field: "address", Value: addr, Reason: "代理地址格式无效"}
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			if parsed.Host == "" {
				return &ValidationError{Field: "address", Value: addr, Reason: "代理地址缺少主机名"}
			}
			return nil
		}
	}
	return &ValidationError{
		Field:  "address",
		Value:  addr,
		Reason: fmt.Sprintf("代理协议必须是 %s", strings.Join(schemes, "/")),
	}
}
