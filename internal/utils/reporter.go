package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 运行报告生成器
// 一次运行产出三个文件:
//   - results.json      全部终态结果记录
//   - summary.json      运行报告 (统计+配置快照+失败项)
//   - failed_items.json 失败工作项,与输入格式一致,可直接重新提交
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// WriteRunReport 写出运行结果与报告
func (r *Reporter) WriteRunReport(report *models.RunReport, records []*models.ResultRecord, items []*models.WorkItem) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	// 收集失败项,按身份回查输入工作项
	byIdentity := make(map[string]*models.WorkItem, len(items))
	for _, item := range items {
		byIdentity[item.Identity()] = item
	}
	failed := make([]*models.WorkItem, 0)
	for _, rec := range records {
		if rec.Status != models.ResultError {
			continue
		}
		if item, ok := byIdentity[rec.Identity]; ok {
			failed = append(failed, item)
		}
	}
	report.FailedItems = failed
	report.OutputDir = r.outputDir

	// 保存全部结果
	if err := r.saveJSON("results.json", records); err != nil {
		return err
	}

	// 保存运行报告
	if err := r.saveJSON("summary.json", report); err != nil {
		return err
	}

	// 保存可重新提交的失败项
	if len(failed) > 0 {
		if err := r.saveJSON("failed_items.json", failed); err != nil {
			return err
		}
	}

	Infof("✅ 报告已生成: %s", r.outputDir)
	return nil
}

// saveJSON 保存JSON文件
func (r *Reporter) saveJSON(filename string, data interface{}) error {
	path := filepath.Join(r.outputDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
