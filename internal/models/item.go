package models

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FetchMode 抓取模式
type FetchMode string

const (
	ModeHTTP    FetchMode = "http"    // HTTP请求抓取
	ModeBrowser FetchMode = "browser" // 浏览器页面抓取
)

// WorkItem 工作项,一次抓取的输入描述
// 身份标识优先使用RequestID,未设置时回退为URL
type WorkItem struct {
	RequestID string            `json:"request_id,omitempty"` // 请求唯一ID
	URL       string            `json:"url"`                  // 目标URL
	Method    string            `json:"method,omitempty"`     // HTTP方法 (默认:GET)
	Params    map[string]string `json:"params,omitempty"`     // 查询参数
	Headers   map[string]string `json:"headers,omitempty"`    // 请求级头部
	Body      string            `json:"body,omitempty"`       // 请求体 (POST/PUT)
}

// NewWorkItem 从URL创建工作项并分配唯一ID
func NewWorkItem(targetURL string) (*WorkItem, error) {
	if err := ValidateURL(targetURL); err != nil {
		return nil, err
	}
	return &WorkItem{
		RequestID: generateID(),
		URL:       targetURL,
		Method:    http.MethodGet,
	}, nil
}

// Identity 返回工作项身份标识
func (w *WorkItem) Identity() string {
	if w.RequestID != "" {
		return w.RequestID
	}
	return w.URL
}

// EnsureID 缺少RequestID时补全唯一ID
func (w *WorkItem) EnsureID() {
	if w.RequestID == "" {
		w.RequestID = generateID()
	}
}

// Validate 验证工作项
func (w *WorkItem) Validate() error {
	if err := ValidateURL(w.URL); err != nil {
		return err
	}
	switch w.Method {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead:
	default:
		return &ValidationError{
			Field:  "method",
			Value:  w.Method,
			Reason: "不支持的HTTP方法",
		}
	}
	return nil
}

// ToJSON 序列化为JSON
func (w *WorkItem) ToJSON() ([]byte, error) {
	return json.MarshalIndent(w, "", "  ")
}

// FromJSON 从JSON反序列化
func (w *WorkItem) FromJSON(data []byte) error {
	return json.Unmarshal(data, w)
}

// Task 调度中的任务,工作项加上可变的重试计数
// 同一时刻只属于共享队列或某一个worker,不会同时属于两者
type Task struct {
	Item      *WorkItem // 工作项
	Retries   int       // 已失败次数 (从0开始,失败时先自增再判定)
	CreatedAt time.Time // 入队时间
}

// NewTask 创建任务
func NewTask(item *WorkItem) *Task {
	return &Task{
		Item:      item,
		Retries:   0,
		CreatedAt: time.Now(),
	}
}

// Identity 返回任务对应工作项的身份标识
func (t *Task) Identity() string {
	return t.Item.Identity()
}

// RetriesUsed 终态错误记录中上报的重试次数
// 最后一次失败之前实际消耗的重试数
func (t *Task) RetriesUsed() int {
	if t.Retries == 0 {
		return 0
	}
	return t.Retries - 1
}

// String 任务的简短描述,用于日志
func (t *Task) String() string {
	return fmt.Sprintf("%s (重试%d次)", t.Identity(), t.Retries)
}
