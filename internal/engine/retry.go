package engine

import (
	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// RetryPolicy 重试决策
// 失败时先自增任务的重试计数,再与上限严格比较
// 退避只来自随机延迟与队列深度,没有独立的延迟重试机制
type RetryPolicy struct {
	// MaxRetries 单任务最大重试次数
	MaxRetries int
}

// NewRetryPolicy 创建重试策略
func NewRetryPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{MaxRetries: maxRetries}
}

// ShouldRetry 判断任务是否还能重新入队
// 计数包含刚刚登记的这次失败,因此允许的上限是MaxRetries+1次尝试
func (p *RetryPolicy) ShouldRetry(t *models.Task) bool {
	return t.Retries <= p.MaxRetries
}

// RegisterFailure 登记一次失败并给出重试决定
// 返回true表示任务应重新入队,false表示到达终态
func (p *RetryPolicy) RegisterFailure(t *models.Task) bool {
	t.Retries++
	return p.ShouldRetry(t)
}
