package engine

import (
	"context"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// Client 抓取客户端句柄(HTTP会话或浏览器实例)
// 一个客户端同一时刻只服务一个任务,由持有它的worker独占
type Client interface {
	// Close 关闭客户端并释放底层资源
	Close() error
}

// Executor 任务执行器
// 实现者必须把所有I/O类失败折叠为*models.FetchError返回,
// 不允许panic或其他异常逃逸到worker循环
type Executor interface {
	// Name 执行器名称,用于日志
	Name() string

	// CreateClient 为worker创建绑定到代理端点的客户端
	// endpoint为nil时客户端直连
	CreateClient(ctx context.Context, endpoint *models.ProxyEndpoint) (Client, error)

	// Execute 执行单个任务并返回抓取载荷
	Execute(ctx context.Context, client Client, task *models.Task) (any, error)
}
