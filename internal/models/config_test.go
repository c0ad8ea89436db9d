package models

import (
	"testing"
	"time"
)

func TestEngineConfig_Validate(t *testing.T) {
	valid := EngineConfig{
		MaxConcurrency:    2,
		MaxRetries:        5,
		MaxTasksPerClient: 20,
		JitterMinMs:       200,
		JitterMaxMs:       500,
	}

	t.Run("默认值合法", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Errorf("默认配置应合法: %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(c *EngineConfig)
	}{
		{"并发为0", func(c *EngineConfig) { c.MaxConcurrency = 0 }},
		{"并发超上限", func(c *EngineConfig) { c.MaxConcurrency = 101 }},
		{"重试为负", func(c *EngineConfig) { c.MaxRetries = -1 }},
		{"重试超上限", func(c *EngineConfig) { c.MaxRetries = 21 }},
		{"客户端任务数为0", func(c *EngineConfig) { c.MaxTasksPerClient = 0 }},
		{"延迟区间倒置", func(c *EngineConfig) { c.JitterMinMs = 500; c.JitterMaxMs = 200 }},
		{"延迟下界为负", func(c *EngineConfig) { c.JitterMinMs = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("期望验证失败")
			}
		})
	}

	t.Run("重试为0合法", func(t *testing.T) {
		c := valid
		c.MaxRetries = 0
		if err := c.Validate(); err != nil {
			t.Errorf("零重试应合法: %v", err)
		}
	})

	t.Run("延迟区间全0合法", func(t *testing.T) {
		c := valid
		c.JitterMinMs = 0
		c.JitterMaxMs = 0
		if err := c.Validate(); err != nil {
			t.Errorf("关闭延迟应合法: %v", err)
		}
	})
}

func TestEngineConfig_JitterBounds(t *testing.T) {
	c := EngineConfig{JitterMinMs: 200, JitterMaxMs: 500}
	minDelay, maxDelay := c.JitterBounds()

	if minDelay != 200*time.Millisecond {
		t.Errorf("延迟下界错误: %v", minDelay)
	}
	if maxDelay != 500*time.Millisecond {
		t.Errorf("延迟上界错误: %v", maxDelay)
	}
}

func TestHTTPConfig_Validate(t *testing.T) {
	t.Run("合法超时", func(t *testing.T) {
		c := HTTPConfig{RequestTimeout: 30}
		if err := c.Validate(); err != nil {
			t.Errorf("30秒超时应合法: %v", err)
		}
	})

	t.Run("超时为0", func(t *testing.T) {
		c := HTTPConfig{RequestTimeout: 0}
		if err := c.Validate(); err == nil {
			t.Error("期望验证失败")
		}
	})
}

func TestBrowserConfig_Validate(t *testing.T) {
	t.Run("合法配置", func(t *testing.T) {
		c := BrowserConfig{NavigationTimeout: 30, ReadinessTimeout: 10}
		if err := c.Validate(); err != nil {
			t.Errorf("默认超时应合法: %v", err)
		}
	})

	t.Run("导航超时为0", func(t *testing.T) {
		c := BrowserConfig{NavigationTimeout: 0, ReadinessTimeout: 10}
		if err := c.Validate(); err == nil {
			t.Error("期望验证失败")
		}
	})

	t.Run("就绪超时过大", func(t *testing.T) {
		c := BrowserConfig{NavigationTimeout: 30, ReadinessTimeout: 301}
		if err := c.Validate(); err == nil {
			t.Error("期望验证失败")
		}
	})
}

func TestDefaults(t *testing.T) {
	if len(DefaultUserAgents()) == 0 {
		t.Error("默认User-Agent列表不能为空")
	}
	if len(DefaultViewports()) == 0 {
		t.Error("默认视口列表不能为空")
	}
	for _, v := range DefaultViewports() {
		if v.Width <= 0 || v.Height <= 0 {
			t.Errorf("视口尺寸无效: %dx%d", v.Width, v.Height)
		}
	}
}
