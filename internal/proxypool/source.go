package proxypool

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
)

// Source 代理来源,每次运行读取一次只读快照
// 端点的供应与健康检测在本系统之外完成
type Source interface {
	// ListAvailableEndpoints 返回当前可用端点快照
	ListAvailableEndpoints() ([]*models.ProxyEndpoint, error)
}

// FileSource 从JSON文件读取端点列表
// 文件内容为端点对象数组,与代理供应工具的输出格式一致
type FileSource struct {
	filePath string
}

// NewFileSource 创建文件代理来源
func NewFileSource(filePath string) *FileSource {
	return &FileSource{filePath: filePath}
}

// ListAvailableEndpoints 读取并验证端点列表
// 无效端点跳过并告警,按名称去重,文件不存在视为错误
func (s *FileSource) ListAvailableEndpoints() ([]*models.ProxyEndpoint, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("读取代理文件失败 [%s]: %w", s.filePath, err)
	}

	var raw []*models.ProxyEndpoint
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &models.ConfigError{
			FilePath: s.filePath,
			Cause:    fmt.Errorf("代理文件解析失败: %w", err),
		}
	}

	seen := make(map[string]bool, len(raw))
	endpoints := make([]*models.ProxyEndpoint, 0, len(raw))
	for i, ep := range raw {
		if err := ep.Validate(); err != nil {
			utils.Warnf("跳过无效代理端点 (第%d项): %v", i+1, err)
			continue
		}
		if seen[ep.Name] {
			utils.Warnf("跳过重复代理端点: %s", ep.Name)
			continue
		}
		seen[ep.Name] = true
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

// StaticSource 内存端点列表,测试与内嵌配置场景使用
type StaticSource struct {
	endpoints []*models.ProxyEndpoint
}

// NewStaticSource 创建静态代理来源
func NewStaticSource(endpoints []*models.ProxyEndpoint) *StaticSource {
	return &StaticSource{endpoints: endpoints}
}

// ListAvailableEndpoints 返回端点快照
func (s *StaticSource) ListAvailableEndpoints() ([]*models.ProxyEndpoint, error) {
	out := make([]*models.ProxyEndpoint, len(s.endpoints))
	copy(out, s.endpoints)
	return out, nil
}
