package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Engine  models.EngineConfig  `mapstructure:"engine"`
	HTTP    models.HTTPConfig    `mapstructure:"http"`
	Browser models.BrowserConfig `mapstructure:"browser"`
	Proxy   ProxyConfig          `mapstructure:"proxy"`
	Logging LoggingConfig        `mapstructure:"logging"`
	Output  OutputConfig         `mapstructure:"output"`
}

// ProxyConfig 代理来源配置
type ProxyConfig struct {
	Enabled bool   `mapstructure:"enabled"` // 是否使用代理池
	File    string `mapstructure:"file"`    // 代理端点JSON文件路径
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"` // 报告输出目录
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		// 使用指定的配置文件
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// 添加配置搜索路径
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		// 用户主目录
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pageharvest"))
		}
	}

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果配置文件不存在,使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 列表型默认值在Unmarshal后补齐
	if len(config.Browser.UserAgents) == 0 {
		config.Browser.UserAgents = models.DefaultUserAgents()
	}
	if len(config.Browser.Viewports) == 0 {
		config.Browser.Viewports = models.DefaultViewports()
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 引擎配置默认值
	v.SetDefault("engine.max_concurrency", 2)
	v.SetDefault("engine.max_retries", 5)
	v.SetDefault("engine.max_tasks_per_client", 20)
	v.SetDefault("engine.jitter_min_ms", 200)
	v.SetDefault("engine.jitter_max_ms", 500)

	// HTTP执行器默认值
	v.SetDefault("http.request_timeout", 30)
	v.SetDefault("http.insecure_skip_verify", true)
	v.SetDefault("http.cookie_file", "")

	// 浏览器执行器默认值
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 30)
	v.SetDefault("browser.readiness_timeout", 10)
	v.SetDefault("browser.wait_selector", "")
	v.SetDefault("browser.fallback_wait_selector", "")
	v.SetDefault("browser.continue_on_readiness_timeout", false)
	v.SetDefault("browser.block_images", true)
	v.SetDefault("browser.locale", "ru-RU")
	v.SetDefault("browser.timezone", "Europe/Moscow")
	v.SetDefault("browser.cookie_file", "")

	// 代理配置默认值
	v.SetDefault("proxy.enabled", true)
	v.SetDefault("proxy.file", "")

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Browser.Validate(); err != nil {
		return err
	}
	return nil
}

// LogConfig 转换为日志初始化配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(
	maxConcurrency int,
	maxRetries int,
	maxTasksPerClient int,
	jitterMinMs int,
	jitterMaxMs int,
	headless bool,
	proxyFile string,
	outputDir string,
) {
	if maxConcurrency > 0 {
		c.Engine.MaxConcurrency = maxConcurrency
	}
	if maxRetries >= 0 {
		c.Engine.MaxRetries = maxRetries
	}
	if maxTasksPerClient > 0 {
		c.Engine.MaxTasksPerClient = maxTasksPerClient
	}
	if jitterMinMs >= 0 {
		c.Engine.JitterMinMs = jitterMinMs
	}
	if jitterMaxMs >= 0 {
		c.Engine.JitterMaxMs = jitterMaxMs
	}
	c.Browser.Headless = headless
	if proxyFile != "" {
		c.Proxy.File = proxyFile
		c.Proxy.Enabled = true
	}
	if outputDir != "" {
		c.Output.BaseDir = outputDir
	}
}
