package models

import (
	"encoding/json"
	"time"
)

// ResultStatus 结果状态
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success" // 成功
	ResultError   ResultStatus = "error"   // 终态失败
)

// ResultRecord 终态结果记录
// 每个提交的WorkItem身份恰好产生一条,顺序不保证与提交顺序一致
type ResultRecord struct {
	Identity     string       `json:"identity"`                // 工作项身份标识
	URL          string       `json:"url"`                     // 目标URL
	Status       ResultStatus `json:"status"`                  // 结果状态
	Payload      any          `json:"payload,omitempty"`       // 成功时的抓取载荷
	ErrorType    string       `json:"error_type,omitempty"`    // 错误分类 (timeout, transport_error等)
	ErrorMessage string       `json:"error_message,omitempty"` // 错误消息
	RetriesUsed  int          `json:"retries_used"`            // 消耗的重试次数
	Duration     float64      `json:"duration,omitempty"`      // 最后一次尝试耗时(秒)
}

// NewSuccessRecord 创建成功记录
func NewSuccessRecord(t *Task, payload any, duration time.Duration) *ResultRecord {
	return &ResultRecord{
		Identity:    t.Identity(),
		URL:         t.Item.URL,
		Status:      ResultSuccess,
		Payload:     payload,
		RetriesUsed: t.Retries,
		Duration:    duration.Seconds(),
	}
}

// NewErrorRecord 创建终态失败记录
func NewErrorRecord(t *Task, err error, duration time.Duration) *ResultRecord {
	return &ResultRecord{
		Identity:     t.Identity(),
		URL:          t.Item.URL,
		Status:       ResultError,
		ErrorType:    string(KindOf(err)),
		ErrorMessage: err.Error(),
		RetriesUsed:  t.RetriesUsed(),
		Duration:     duration.Seconds(),
	}
}

// HTTPPayload HTTP抓取载荷
type HTTPPayload struct {
	StatusCode int               `json:"status_code"` // 响应状态码
	Headers    map[string]string `json:"headers"`     // 响应头部
	Data       any               `json:"data"`        // 响应体 (JSON解码结果或文本)
}

// PagePayload 浏览器抓取的默认载荷
// 未注入自定义提取函数时由执行器填充
type PagePayload struct {
	FinalURL string `json:"final_url"`         // 导航后的最终URL
	Title    string `json:"title,omitempty"`   // 页面标题
	HTML     string `json:"html,omitempty"`    // 页面HTML
	Partial  bool   `json:"partial,omitempty"` // 就绪等待超时后按策略继续得到的部分页面
}

// RunStats 运行统计
type RunStats struct {
	TotalItems  int     `json:"total_items"`  // 提交的工作项总数
	WorkerCount int     `json:"worker_count"` // 实际worker数
	Processed   int     `json:"processed"`    // 已终态的任务数
	Succeeded   int     `json:"succeeded"`    // 成功数
	Failed      int     `json:"failed"`       // 终态失败数
	Retried     int     `json:"retried"`      // 重新入队次数
	Recycles    int     `json:"recycles"`     // 客户端回收次数
	Duration    float64 `json:"duration"`     // 总耗时(秒)
	Throughput  float64 `json:"throughput"`   // 吞吐(任务/秒)
	PeakRSS     int64   `json:"peak_rss"`     // 进程内存峰值(字节)
	AvgCPU      float64 `json:"avg_cpu"`      // 平均CPU占用(%)
}

// RunReport 运行报告
type RunReport struct {
	RunID     string    `json:"run_id"`     // 运行唯一ID
	Mode      FetchMode `json:"mode"`       // 抓取模式
	StartTime time.Time `json:"start_time"` // 开始时间
	EndTime   time.Time `json:"end_time"`   // 结束时间

	Stats RunStats `json:"stats"` // 统计信息

	// 配置快照
	Config EngineConfig `json:"config"`

	// 失败项,按输入格式重新给出以便直接重新提交
	FailedItems []*WorkItem `json:"failed_items,omitempty"`

	OutputDir string `json:"output_dir"` // 输出目录
}

// NewRunReport 创建运行报告
func NewRunReport(mode FetchMode, config EngineConfig) *RunReport {
	return &RunReport{
		RunID:     generateID(),
		Mode:      mode,
		StartTime: time.Now(),
		Config:    config,
	}
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
