package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("无配置文件时使用默认值", func(t *testing.T) {
		config, err := LoadConfig("")
		if err != nil {
			t.Fatalf("加载默认配置失败: %v", err)
		}

		if config.Engine.MaxConcurrency != 2 {
			t.Errorf("期望默认并发数2, 实际: %d", config.Engine.MaxConcurrency)
		}
		if config.Engine.MaxRetries != 5 {
			t.Errorf("期望默认重试数5, 实际: %d", config.Engine.MaxRetries)
		}
		if config.Engine.MaxTasksPerClient != 20 {
			t.Errorf("期望默认客户端任务上限20, 实际: %d", config.Engine.MaxTasksPerClient)
		}
		if config.HTTP.RequestTimeout != 30 {
			t.Errorf("期望默认请求超时30秒, 实际: %d", config.HTTP.RequestTimeout)
		}
		if !config.Browser.Headless {
			t.Error("浏览器默认应为无头模式")
		}
		if config.Browser.Locale != "ru-RU" {
			t.Errorf("期望默认locale=ru-RU, 实际: %s", config.Browser.Locale)
		}
		if !config.Proxy.Enabled {
			t.Error("代理池默认应启用")
		}
		if config.Logging.Level != "info" {
			t.Errorf("期望默认日志级别info, 实际: %s", config.Logging.Level)
		}
		if config.Output.BaseDir != "output" {
			t.Errorf("期望默认输出目录output, 实际: %s", config.Output.BaseDir)
		}
		if len(config.Browser.UserAgents) == 0 {
			t.Error("默认User-Agent候选列表不应为空")
		}
		if len(config.Browser.Viewports) == 0 {
			t.Error("默认视口候选列表不应为空")
		}
	})

	t.Run("从配置文件加载", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `engine:
  max_concurrency: 8
  max_retries: 3
  max_tasks_per_client: 50
  jitter_min_ms: 100
  jitter_max_ms: 300
proxy:
  enabled: true
  file: "proxies.json"
logging:
  level: "debug"
output:
  base_dir: "results"
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}

		if config.Engine.MaxConcurrency != 8 {
			t.Errorf("期望并发数8, 实际: %d", config.Engine.MaxConcurrency)
		}
		if config.Engine.MaxRetries != 3 {
			t.Errorf("期望重试数3, 实际: %d", config.Engine.MaxRetries)
		}
		if config.Proxy.File != "proxies.json" {
			t.Errorf("代理文件路径未加载: %s", config.Proxy.File)
		}
		if config.Logging.Level != "debug" {
			t.Errorf("日志级别未加载: %s", config.Logging.Level)
		}
		if config.Output.BaseDir != "results" {
			t.Errorf("输出目录未加载: %s", config.Output.BaseDir)
		}

		// 未指定的段落回落到默认值
		if config.HTTP.RequestTimeout != 30 {
			t.Errorf("未配置的请求超时应为默认30, 实际: %d", config.HTTP.RequestTimeout)
		}
		if config.Browser.Timezone != "Europe/Moscow" {
			t.Errorf("未配置的时区应为默认值, 实际: %s", config.Browser.Timezone)
		}
	})

	t.Run("指定的配置文件不存在返回错误", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("显式指定的缺失文件应返回错误")
		}
	})

	t.Run("非法YAML返回错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("engine: [broken"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("非法YAML应返回错误")
		}
	})
}

func TestConfig_MergeCLIFlags(t *testing.T) {
	t.Run("命令行参数覆盖配置", func(t *testing.T) {
		config, err := LoadConfig("")
		if err != nil {
			t.Fatal(err)
		}

		config.MergeCLIFlags(4, 2, 50, 100, 300, false, "cli-proxies.json", "cli-out")

		if config.Engine.MaxConcurrency != 4 {
			t.Errorf("并发数未覆盖: %d", config.Engine.MaxConcurrency)
		}
		if config.Engine.MaxRetries != 2 {
			t.Errorf("重试数未覆盖: %d", config.Engine.MaxRetries)
		}
		if config.Engine.MaxTasksPerClient != 50 {
			t.Errorf("客户端任务上限未覆盖: %d", config.Engine.MaxTasksPerClient)
		}
		if config.Engine.JitterMinMs != 100 || config.Engine.JitterMaxMs != 300 {
			t.Errorf("抖动区间未覆盖: [%d, %d]", config.Engine.JitterMinMs, config.Engine.JitterMaxMs)
		}
		if config.Browser.Headless {
			t.Error("无头开关未覆盖")
		}
		if config.Proxy.File != "cli-proxies.json" || !config.Proxy.Enabled {
			t.Error("代理文件参数应同时启用代理池")
		}
		if config.Output.BaseDir != "cli-out" {
			t.Errorf("输出目录未覆盖: %s", config.Output.BaseDir)
		}
	})

	t.Run("哨兵值保留配置原值", func(t *testing.T) {
		config, err := LoadConfig("")
		if err != nil {
			t.Fatal(err)
		}

		// 0与-1表示未在命令行指定
		config.MergeCLIFlags(0, -1, 0, -1, -1, true, "", "")

		if config.Engine.MaxConcurrency != 2 {
			t.Errorf("未指定的并发数应保留默认: %d", config.Engine.MaxConcurrency)
		}
		if config.Engine.MaxRetries != 5 {
			t.Errorf("未指定的重试数应保留默认: %d", config.Engine.MaxRetries)
		}
		if config.Engine.JitterMinMs != 200 || config.Engine.JitterMaxMs != 500 {
			t.Errorf("未指定的抖动区间应保留默认: [%d, %d]",
				config.Engine.JitterMinMs, config.Engine.JitterMaxMs)
		}
		if config.Output.BaseDir != "output" {
			t.Errorf("未指定的输出目录应保留默认: %s", config.Output.BaseDir)
		}
	})

	t.Run("零重试是合法覆盖", func(t *testing.T) {
		config, err := LoadConfig("")
		if err != nil {
			t.Fatal(err)
		}

		config.MergeCLIFlags(0, 0, 0, -1, -1, true, "", "")

		if config.Engine.MaxRetries != 0 {
			t.Errorf("显式0次重试应生效, 实际: %d", config.Engine.MaxRetries)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("默认配置合法", func(t *testing.T) {
		config, err := LoadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("默认配置应通过验证: %v", err)
		}
	})

	t.Run("非法引擎配置被拒绝", func(t *testing.T) {
		config, err := LoadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		config.Engine.MaxConcurrency = 0
		if err := config.Validate(); err == nil {
			t.Error("并发数0应验证失败")
		}
	})

	t.Run("非法HTTP配置被拒绝", func(t *testing.T) {
		config, err := LoadConfig("")
		if err != nil {
			t.Fatal(err)
		}
		config.HTTP.RequestTimeout = 0
		if err := config.Validate(); err == nil {
			t.Error("请求超时0应验证失败")
		}
	})
}

func TestConfig_LogConfig(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	config.Logging.Level = "warn"
	config.Logging.LogDir = "custom-logs"
	config.Logging.Rotation.MaxSize = 42

	lc := config.LogConfig()

	if lc.Level != "warn" || lc.LogDir != "custom-logs" || lc.MaxSize != 42 {
		t.Errorf("日志配置映射不符: %+v", lc)
	}
}
