// Package proxypool 管理代理端点的独占分配
//
// 池内端点装载后不可变,唯一的共享可变状态是"使用中"集合。
// 所有变更都发生在同一个最小临界区内,锁从不跨越I/O挂起点。
package proxypool

import (
	"math/rand"
	"sync"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// Pool 代理端点池,保证同一端点同时最多被一个客户端持有
type Pool struct {
	mu        sync.Mutex
	endpoints []*models.ProxyEndpoint
	inUse     map[string]bool
}

// NewPool 从端点快照创建代理池
func NewPool(endpoints []*models.ProxyEndpoint) *Pool {
	return &Pool{
		endpoints: endpoints,
		inUse:     make(map[string]bool, len(endpoints)),
	}
}

// Acquire 独占获取一个空闲端点,非阻塞
// 所有端点都被占用或池为空时返回nil,调用方应直连而不是等待
// 空闲端点中均匀随机选择,把负载随时间摊开
func (p *Pool) Acquire() *models.ProxyEndpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := make([]*models.ProxyEndpoint, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		if !p.inUse[ep.Name] {
			free = append(free, ep)
		}
	}
	if len(free) == 0 {
		return nil
	}

	ep := free[rand.Intn(len(free))]
	p.inUse[ep.Name] = true
	return ep
}

// Release 归还端点到空闲集合
// nil端点(直连worker)与未持有端点的归还都是空操作
func (p *Pool) Release(ep *models.ProxyEndpoint) {
	if ep == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, ep.Name)
}

// Size 返回池内端点总数
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// InUseCount 返回当前被持有的端点数
func (p *Pool) InUseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}
