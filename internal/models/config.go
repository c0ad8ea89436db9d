package models

import (
	"fmt"
	"time"
)

// EngineConfig 引擎并发配置
type EngineConfig struct {
	MaxConcurrency    int `json:"max_concurrency" mapstructure:"max_concurrency"`           // 并发上限 (默认:2)
	MaxRetries        int `json:"max_retries" mapstructure:"max_retries"`                   // 单任务最大重试次数 (默认:5)
	MaxTasksPerClient int `json:"max_tasks_per_client" mapstructure:"max_tasks_per_client"` // 客户端回收前处理的任务数 (默认:20)
	JitterMinMs       int `json:"jitter_min_ms" mapstructure:"jitter_min_ms"`               // 随机延迟下界(毫秒),0表示关闭
	JitterMaxMs       int `json:"jitter_max_ms" mapstructure:"jitter_max_ms"`               // 随机延迟上界(毫秒)
}

// Validate 验证引擎配置
func (c *EngineConfig) Validate() error {
	if c.MaxConcurrency < 1 || c.MaxConcurrency > 100 {
		return fmt.Errorf("并发上限必须在1-100之间,当前值: %d", c.MaxConcurrency)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 20 {
		return fmt.Errorf("最大重试次数必须在0-20之间,当前值: %d", c.MaxRetries)
	}
	if c.MaxTasksPerClient < 1 {
		return fmt.Errorf("单客户端任务数必须大于0,当前值: %d", c.MaxTasksPerClient)
	}
	if c.JitterMinMs < 0 || c.JitterMaxMs < c.JitterMinMs {
		return fmt.Errorf("随机延迟区间无效: [%d, %d]", c.JitterMinMs, c.JitterMaxMs)
	}
	return nil
}

// JitterBounds 返回随机延迟区间
func (c *EngineConfig) JitterBounds() (time.Duration, time.Duration) {
	return time.Duration(c.JitterMinMs) * time.Millisecond,
		time.Duration(c.JitterMaxMs) * time.Millisecond
}

// HTTPConfig HTTP执行器配置
type HTTPConfig struct {
	RequestTimeout     int    `json:"request_timeout" mapstructure:"request_timeout"`           // 请求超时(秒) (默认:30)
	InsecureSkipVerify bool   `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify"` // 跳过TLS证书验证
	CookieFile         string `json:"cookie_file,omitempty" mapstructure:"cookie_file"`         // 预置Cookie文件(JSON)
}

// Validate 验证HTTP配置
func (c *HTTPConfig) Validate() error {
	if c.RequestTimeout < 1 || c.RequestTimeout > 300 {
		return fmt.Errorf("请求超时必须在1-300秒之间,当前值: %d", c.RequestTimeout)
	}
	return nil
}

// Viewport 浏览器视口尺寸
type Viewport struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// BrowserConfig 浏览器执行器配置
type BrowserConfig struct {
	Headless          bool `json:"headless" mapstructure:"headless"`                     // 无头模式 (默认:true)
	NavigationTimeout int  `json:"navigation_timeout" mapstructure:"navigation_timeout"` // 导航超时(秒) (默认:30)
	ReadinessTimeout  int  `json:"readiness_timeout" mapstructure:"readiness_timeout"`   // 就绪等待超时(秒) (默认:10)

	// 两段式就绪等待: 先等主选择器,超时后等备用选择器
	WaitSelector         string `json:"wait_selector" mapstructure:"wait_selector"`                   // 主就绪选择器
	FallbackWaitSelector string `json:"fallback_wait_selector" mapstructure:"fallback_wait_selector"` // 备用就绪选择器

	// 两段都超时后的策略: true=带部分页面继续提取, false=按可重试失败处理
	ContinueOnReadinessTimeout bool `json:"continue_on_readiness_timeout" mapstructure:"continue_on_readiness_timeout"`

	BlockImages bool       `json:"block_images" mapstructure:"block_images"` // 拦截图片请求 (默认:true)
	UserAgents  []string   `json:"user_agents" mapstructure:"user_agents"`   // 随机User-Agent候选
	Viewports   []Viewport `json:"viewports" mapstructure:"viewports"`       // 随机视口候选

	Locale     string `json:"locale" mapstructure:"locale"`                     // 默认locale (默认:ru-RU)
	Timezone   string `json:"timezone" mapstructure:"timezone"`                 // 默认时区 (默认:Europe/Moscow)
	CookieFile string `json:"cookie_file,omitempty" mapstructure:"cookie_file"` // 预置Cookie文件(JSON)
}

// Validate 验证浏览器配置
func (c *BrowserConfig) Validate() error {
	if c.NavigationTimeout < 1 || c.NavigationTimeout > 300 {
		return fmt.Errorf("导航超时必须在1-300秒之间,当前值: %d", c.NavigationTimeout)
	}
	if c.ReadinessTimeout < 1 || c.ReadinessTimeout > 300 {
		return fmt.Errorf("就绪等待超时必须在1-300秒之间,当前值: %d", c.ReadinessTimeout)
	}
	return nil
}

// DefaultViewports 默认视口候选
func DefaultViewports() []Viewport {
	return []Viewport{
		{Width: 1920, Height: 1080},
		{Width: 1366, Height: 768},
		{Width: 1440, Height: 900},
		{Width: 1536, Height: 864},
		{Width: 1600, Height: 900},
	}
}

// DefaultUserAgents 默认User-Agent候选
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/120.0.0.0 Safari/537.36",
	}
}
