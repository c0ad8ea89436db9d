package main

import (
	"fmt"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// ValidateFlags 验证命令行标志
// 留用配置默认值的哨兵取值 (0或-1) 不参与范围检查
func ValidateFlags(
	targetURL string,
	mode string,
	maxConcurrency int,
	maxRetries int,
	maxTasksPerClient int,
	jitterMinMs int,
	jitterMaxMs int,
) error {
	// 验证URL
	if targetURL != "" {
		if err := models.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	// 验证模式
	validModes := map[string]bool{
		string(models.ModeHTTP):    true,
		string(models.ModeBrowser): true,
	}
	if !validModes[mode] {
		return fmt.Errorf("无效的抓取模式: %s (有效值: %s, %s)", mode, models.ModeHTTP, models.ModeBrowser)
	}

	// 验证并发数
	if maxConcurrency != 0 && (maxConcurrency < 1 || maxConcurrency > 100) {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", maxConcurrency)
	}

	// 验证重试次数
	if maxRetries < -1 || maxRetries > 20 {
		return fmt.Errorf("重试次数必须在0-20之间,当前值: %d", maxRetries)
	}

	// 验证客户端任务上限
	if maxTasksPerClient != 0 && (maxTasksPerClient < 1 || maxTasksPerClient > 1000) {
		return fmt.Errorf("客户端任务上限必须在1-1000之间,当前值: %d", maxTasksPerClient)
	}

	// 验证延迟区间
	if jitterMinMs < -1 || jitterMinMs > 60000 {
		return fmt.Errorf("延迟下限必须在0-60000毫秒之间,当前值: %d", jitterMinMs)
	}
	if jitterMaxMs < -1 || jitterMaxMs > 60000 {
		return fmt.Errorf("延迟上限必须在0-60000毫秒之间,当前值: %d", jitterMaxMs)
	}
	if jitterMinMs >= 0 && jitterMaxMs >= 0 && jitterMaxMs < jitterMinMs {
		return fmt.Errorf("延迟上限不能小于下限: %d < %d", jitterMaxMs, jitterMinMs)
	}

	return nil
}
