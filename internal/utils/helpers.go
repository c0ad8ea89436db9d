package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// ReadWorkItemsFromFile 从文件中读取工作项列表
// 支持两种格式:
//   - .json: WorkItem对象数组 (完整请求描述)
//   - 其他:  每行一个URL,跳过空行和#注释行
//
// 缺少request_id的项自动补全唯一ID
func ReadWorkItemsFromFile(path string) ([]*models.WorkItem, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return readItemsJSON(path)
	}
	return readItemsLines(path)
}

// readItemsJSON 解析JSON工作项文件
func readItemsJSON(path string) ([]*models.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作项文件失败: %w", err)
	}

	var raw []*models.WorkItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &models.ConfigError{
			FilePath: path,
			Cause:    fmt.Errorf("工作项文件解析失败: %w", err),
		}
	}

	items := make([]*models.WorkItem, 0, len(raw))
	for i, item := range raw {
		if err := item.Validate(); err != nil {
			Warnf("跳过无效工作项 (第%d项): %v", i+1, err)
			continue
		}
		item.EnsureID()
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("工作项文件中没有有效的条目")
	}

	Infof("从文件加载了 %d 个工作项", len(items))
	return items, nil
}

// readItemsLines 解析每行一个URL的文本文件
func readItemsLines(path string) ([]*models.WorkItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作项文件失败: %w", err)
	}
	defer file.Close()

	items := make([]*models.WorkItem, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		item, err := models.NewWorkItem(line)
		if err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", lineNum, line, err)
			continue
		}

		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取工作项文件失败: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("工作项文件中没有有效的URL")
	}

	Infof("从文件加载了 %d 个工作项", len(items))
	return items, nil
}

// EnsureDir 确保目录存在
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
	}
	return nil
}
