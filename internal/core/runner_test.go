package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/proxypool"
)

// runnerConfig 返回适合快速测试的配置: 直连、无抖动、临时输出目录
func runnerConfig(t *testing.T) *Config {
	t.Helper()
	config, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	config.Proxy.Enabled = false
	config.Output.BaseDir = t.TempDir()
	config.Engine.JitterMinMs = 0
	config.Engine.JitterMaxMs = 0
	config.Engine.MaxRetries = 1
	config.HTTP.RequestTimeout = 10
	return config
}

func TestNewRunner(t *testing.T) {
	t.Run("空配置被拒绝", func(t *testing.T) {
		if _, err := NewRunner(nil, models.ModeHTTP, nil, zerolog.Nop()); err == nil {
			t.Error("nil配置应返回错误")
		}
	})

	t.Run("非法模式被拒绝", func(t *testing.T) {
		if _, err := NewRunner(runnerConfig(t), "ftp", nil, zerolog.Nop()); err == nil {
			t.Error("未知模式应返回错误")
		}
	})

	t.Run("非法配置被拒绝", func(t *testing.T) {
		config := runnerConfig(t)
		config.Engine.MaxConcurrency = 0
		if _, err := NewRunner(config, models.ModeHTTP, nil, zerolog.Nop()); err == nil {
			t.Error("非法配置应返回错误")
		}
	})
}

func TestRunner_Run_HTTPMode(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("页面内容"))
	}))
	defer server.Close()

	runner, err := NewRunner(runnerConfig(t), models.ModeHTTP, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	items := make([]*models.WorkItem, 0, 3)
	for _, path := range []string{"/a", "/b", "/c"} {
		item, err := models.NewWorkItem(server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		items = append(items, item)
	}

	report, records, err := runner.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("期望3条结果记录, 实际: %d", len(records))
	}
	for _, rec := range records {
		if rec.Status != models.ResultSuccess {
			t.Errorf("期望全部成功, %s 状态: %s (%s)", rec.URL, rec.Status, rec.ErrorMessage)
		}
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("服务端应收到3次请求, 实际: %d", hits)
	}

	if report.Stats.TotalItems != 3 || report.Stats.Succeeded != 3 || report.Stats.Failed != 0 {
		t.Errorf("统计不符: %+v", report.Stats)
	}
	if report.EndTime.Before(report.StartTime) {
		t.Error("结束时间不应早于开始时间")
	}

	// 报告文件落盘
	for _, name := range []string{"results.json", "summary.json"} {
		if _, err := os.Stat(filepath.Join(report.OutputDir, name)); err != nil {
			t.Errorf("期望生成%s: %v", name, err)
		}
	}
}

func TestRunner_Run_ProxyFailure(t *testing.T) {
	// 端点指向不可达的代理,所有任务应以终态失败收尾
	runner, err := NewRunner(runnerConfig(t), models.ModeHTTP, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	runner.SetProxySource(proxypool.NewStaticSource([]*models.ProxyEndpoint{
		{Name: "dead-1", Address: "http://127.0.0.1:1"},
	}))

	item, err := models.NewWorkItem("http://example.com/")
	if err != nil {
		t.Fatal(err)
	}

	report, records, err := runner.Run(context.Background(), []*models.WorkItem{item})
	if err != nil {
		t.Fatalf("调度层不应失败: %v", err)
	}
	if len(records) != 1 || records[0].Status != models.ResultError {
		t.Fatalf("期望1条终态失败记录, 实际: %+v", records)
	}
	if report.Stats.Failed != 1 {
		t.Errorf("失败计数不符: %+v", report.Stats)
	}
	if len(report.FailedItems) != 1 {
		t.Errorf("失败项应写入报告: %d", len(report.FailedItems))
	}
	if _, err := os.Stat(filepath.Join(report.OutputDir, "failed_items.json")); err != nil {
		t.Errorf("期望生成failed_items.json: %v", err)
	}
}

func TestRunner_Run_InputValidation(t *testing.T) {
	runner, err := NewRunner(runnerConfig(t), models.ModeHTTP, nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("空工作项列表", func(t *testing.T) {
		if _, _, err := runner.Run(context.Background(), nil); err == nil {
			t.Error("空列表应返回错误")
		}
	})

	t.Run("含非法工作项", func(t *testing.T) {
		items := []*models.WorkItem{{URL: "not-a-url"}}
		if _, _, err := runner.Run(context.Background(), items); err == nil {
			t.Error("非法工作项应返回错误")
		}
	})
}
