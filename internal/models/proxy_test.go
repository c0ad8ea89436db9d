package models

import (
	"testing"
)

func TestProxyEndpoint_Validate(t *testing.T) {
	tests := []struct {
		name     string
		endpoint ProxyEndpoint
		wantErr  bool
	}{
		{
			"HTTP地址合法",
			ProxyEndpoint{Name: "ru-1", Address: "http://10.0.0.1:3128"},
			false,
		},
		{
			"仅SOCKS5合法",
			ProxyEndpoint{Name: "ru-2", Socks5Address: "socks5://10.0.0.1:1080"},
			false,
		},
		{
			"双地址合法",
			ProxyEndpoint{Name: "ru-3", Address: "http://10.0.0.1:3128", Socks5Address: "socks5://10.0.0.1:1080"},
			false,
		},
		{
			"名称为空",
			ProxyEndpoint{Address: "http://10.0.0.1:3128"},
			true,
		},
		{
			"无任何地址",
			ProxyEndpoint{Name: "ru-4"},
			true,
		},
		{
			"HTTP地址协议错误",
			ProxyEndpoint{Name: "ru-5", Address: "socks5://10.0.0.1:1080"},
			true,
		},
		{
			"SOCKS5地址协议错误",
			ProxyEndpoint{Name: "ru-6", Socks5Address: "http://10.0.0.1:3128"},
			true,
		},
		{
			"地址缺主机",
			ProxyEndpoint{Name: "ru-7", Address: "http://"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.endpoint.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, 期望错误: %v", err, tt.wantErr)
			}
		})
	}
}

func TestProxyEndpoint_Host(t *testing.T) {
	t.Run("提取host:port", func(t *testing.T) {
		p := ProxyEndpoint{Name: "ru-1", Address: "http://10.0.0.1:3128"}
		if p.Host() != "10.0.0.1:3128" {
			t.Errorf("期望'10.0.0.1:3128', 实际'%s'", p.Host())
		}
	})

	t.Run("无端口保留主机", func(t *testing.T) {
		p := ProxyEndpoint{Name: "ru-2", Address: "http://proxy.example.com"}
		if p.Host() != "proxy.example.com" {
			t.Errorf("期望'proxy.example.com', 实际'%s'", p.Host())
		}
	})
}

func TestProxyEndpoint_FromJSON(t *testing.T) {
	data := []byte(`{
		"server_name": "msk-1",
		"server": "http://10.0.0.5:3128",
		"socks5_server": "socks5://10.0.0.5:1080",
		"user_agent": "Mozilla/5.0 Custom",
		"accept_language": "ru-RU,ru;q=0.9",
		"locale": "ru-RU",
		"timezone": "Europe/Moscow"
	}`)

	var p ProxyEndpoint
	if err := p.FromJSON(data); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}

	if p.Name != "msk-1" {
		t.Errorf("Name错误: %s", p.Name)
	}
	if p.Socks5Address != "socks5://10.0.0.5:1080" {
		t.Errorf("Socks5Address错误: %s", p.Socks5Address)
	}
	if p.UserAgent != "Mozilla/5.0 Custom" {
		t.Errorf("UserAgent错误: %s", p.UserAgent)
	}
	if p.Timezone != "Europe/Moscow" {
		t.Errorf("Timezone错误: %s", p.Timezone)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("反序列化后的端点应通过验证: %v", err)
	}
}
