package utils

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

func TestReporter_WriteRunReport(t *testing.T) {
	engineConfig := models.EngineConfig{
		MaxConcurrency:    2,
		MaxRetries:        3,
		MaxTasksPerClient: 20,
		JitterMinMs:       0,
		JitterMaxMs:       0,
	}

	newItem := func(id, url string) *models.WorkItem {
		return &models.WorkItem{RequestID: id, URL: url, Method: "GET"}
	}

	t.Run("含失败项的完整报告", func(t *testing.T) {
		outputDir := filepath.Join(t.TempDir(), "run_test")

		items := []*models.WorkItem{
			newItem("ok-1", "https://example.com/1"),
			newItem("ok-2", "https://example.com/2"),
			newItem("bad-1", "https://example.com/broken"),
		}

		records := []*models.ResultRecord{
			models.NewSuccessRecord(models.NewTask(items[0]), "payload-1", 100*time.Millisecond),
			models.NewSuccessRecord(models.NewTask(items[1]), "payload-2", 120*time.Millisecond),
			models.NewErrorRecord(models.NewTask(items[2]), errors.New("连接失败"), 80*time.Millisecond),
		}

		report := models.NewRunReport(models.ModeHTTP, engineConfig)
		report.Stats = models.RunStats{TotalItems: 3, Succeeded: 2, Failed: 1}

		if err := NewReporter(outputDir).WriteRunReport(report, records, items); err != nil {
			t.Fatalf("写出报告失败: %v", err)
		}

		// 三个报告文件齐备
		for _, name := range []string{"results.json", "summary.json", "failed_items.json"} {
			if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
				t.Errorf("期望生成%s: %v", name, err)
			}
		}

		// 全部结果可回读
		data, err := os.ReadFile(filepath.Join(outputDir, "results.json"))
		if err != nil {
			t.Fatal(err)
		}
		var loaded []*models.ResultRecord
		if err := json.Unmarshal(data, &loaded); err != nil {
			t.Fatalf("results.json解析失败: %v", err)
		}
		if len(loaded) != 3 {
			t.Errorf("期望3条结果记录, 实际: %d", len(loaded))
		}

		// 失败项按输入格式给出,可直接重新提交
		data, err = os.ReadFile(filepath.Join(outputDir, "failed_items.json"))
		if err != nil {
			t.Fatal(err)
		}
		var failed []*models.WorkItem
		if err := json.Unmarshal(data, &failed); err != nil {
			t.Fatalf("failed_items.json解析失败: %v", err)
		}
		if len(failed) != 1 || failed[0].RequestID != "bad-1" {
			t.Errorf("失败项应只含bad-1, 实际: %+v", failed)
		}

		if len(report.FailedItems) != 1 {
			t.Errorf("报告中的失败项未填充: %d", len(report.FailedItems))
		}
		if report.OutputDir != outputDir {
			t.Errorf("报告应记录输出目录: %s", report.OutputDir)
		}
	})

	t.Run("全部成功时不生成失败项文件", func(t *testing.T) {
		outputDir := filepath.Join(t.TempDir(), "run_ok")

		items := []*models.WorkItem{newItem("ok-1", "https://example.com/1")}
		records := []*models.ResultRecord{
			models.NewSuccessRecord(models.NewTask(items[0]), "payload", 50*time.Millisecond),
		}

		report := models.NewRunReport(models.ModeHTTP, engineConfig)
		if err := NewReporter(outputDir).WriteRunReport(report, records, items); err != nil {
			t.Fatalf("写出报告失败: %v", err)
		}

		if _, err := os.Stat(filepath.Join(outputDir, "failed_items.json")); !os.IsNotExist(err) {
			t.Error("无失败项时不应生成failed_items.json")
		}

		// 报告可反序列化且带运行ID
		data, err := os.ReadFile(filepath.Join(outputDir, "summary.json"))
		if err != nil {
			t.Fatal(err)
		}
		var loaded models.RunReport
		if err := loaded.FromJSON(data); err != nil {
			t.Fatalf("summary.json解析失败: %v", err)
		}
		if loaded.RunID == "" || loaded.Mode != models.ModeHTTP {
			t.Errorf("报告字段缺失: %+v", loaded)
		}
	})
}
