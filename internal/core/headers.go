package core

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultHeadersFile 默认头部配置文件路径
	DefaultHeadersFile = "configs/headers.yaml"

	// MaxHeadersFileSize 头部配置文件最大大小 (1MB)
	MaxHeadersFileSize = 1 * 1024 * 1024

	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"

	// DefaultAcceptLanguage 默认Accept-Language
	DefaultAcceptLanguage = "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7"
)

//go:embed headers_template.yaml
var defaultHeaderTemplate string

// sensitiveHeaderKeywords 日志脱敏的敏感头部名称关键字
var sensitiveHeaderKeywords = []string{
	"authorization",
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"cookie",
}

// HeaderManager 管理HTTP请求头部的生命周期
// 实现 models.HeaderProvider 接口
// 合并优先级: 内置默认 < 配置文件 < 命令行
type HeaderManager struct {
	// configFile 配置文件路径
	configFile string

	// defaults 系统默认头部
	defaults http.Header

	// config 从配置文件加载的头部
	config http.Header

	// cli 从命令行参数解析的头部
	cli http.Header

	// loaded 标记配置是否已加载
	loaded bool
}

// NewHeaderManager 创建头部管理器
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	if configFile == "" {
		configFile = DefaultHeadersFile
	}

	hm := &HeaderManager{
		configFile: configFile,
		defaults:   getDefaultHeaders(),
		cli:        make(http.Header),
	}

	// 解析命令行头部
	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}

	return hm, nil
}

// getDefaultHeaders 返回系统默认头部
func getDefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{DefaultUserAgent},
		"Accept":          []string{"*/*"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
		"Accept-Language": []string{DefaultAcceptLanguage},
	}
}

// LoadConfig 加载头部配置文件
// 文件不存在时写出内置模板,过大或解析失败返回错误
func (hm *HeaderManager) LoadConfig() error {
	if hm.loaded {
		return nil
	}

	// 确保配置文件存在
	if _, err := os.Stat(hm.configFile); os.IsNotExist(err) {
		dir := filepath.Dir(hm.configFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
		}
		if err := os.WriteFile(hm.configFile, []byte(defaultHeaderTemplate), 0644); err != nil {
			return fmt.Errorf("无法生成配置文件 [%s]: %w", hm.configFile, err)
		}
	}

	// 验证文件大小
	info, err := os.Stat(hm.configFile)
	if err != nil {
		return fmt.Errorf("无法读取配置文件信息 [%s]: %w", hm.configFile, err)
	}
	if info.Size() > MaxHeadersFileSize {
		return &models.ConfigError{
			FilePath: hm.configFile,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxHeadersFileSize),
		}
	}

	// 使用viper解析YAML
	v := viper.New()
	v.SetConfigFile(hm.configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return &models.ConfigError{FilePath: hm.configFile, Cause: err}
	}

	var headerConfig models.HeaderConfig
	if err := v.Unmarshal(&headerConfig); err != nil {
		return &models.ConfigError{
			FilePath: hm.configFile,
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	hm.config = make(http.Header)
	for name, value := range headerConfig.Headers {
		hm.config.Set(name, value)
	}

	hm.loaded = true

	if len(headerConfig.Headers) > 0 {
		utils.Debugf("成功加载%d个HTTP头部配置: %v",
			len(headerConfig.Headers), RedactHeaders(hm.config))
	}

	return nil
}

// Validate 验证所有头部的合法性
// 验证顺序: 默认 → 配置 → 命令行
func (hm *HeaderManager) Validate() error {
	for _, headers := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range headers {
			for _, value := range values {
				if err := validateHeader(name, value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)

	for name, values := range hm.defaults {
		result[name] = values
	}
	for name, values := range hm.config {
		result[name] = values
	}
	for name, values := range hm.cli {
		result[name] = values
	}

	return result
}

// GetHeaders 实现 models.HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}

// validateHeader 验证单个头部
// 名称必须是RFC 7230 token,值不允许控制字符
func validateHeader(name, value string) error {
	if name == "" {
		return &models.ValidationError{Field: "name", Reason: "头部名称不能为空"}
	}
	for _, r := range name {
		if !isTokenChar(r) {
			return &models.ValidationError{
				Field:  "name",
				Value:  name,
				Reason: fmt.Sprintf("头部名称包含非法字符 %q", r),
			}
		}
	}
	for _, r := range value {
		if r < 0x20 && r != '\t' {
			return &models.ValidationError{
				Field:  "value",
				Value:  name,
				Reason: "头部值包含控制字符",
			}
		}
	}
	return nil
}

// isTokenChar RFC 7230 token字符判定
func isTokenChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+-.^_`|~", r)
}

// RedactHeaders 返回脱敏后的头部,用于日志输出
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		v := strings.Join(values, ", ")
		if isSensitiveHeader(name) {
			if len(v) > 8 {
				v = v[:4] + "***" + v[len(v)-4:]
			} else {
				v = "***"
			}
		}
		out[name] = v
	}
	return out
}

// isSensitiveHeader 检查头部是否为敏感头部
func isSensitiveHeader(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range sensitiveHeaderKeywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}
