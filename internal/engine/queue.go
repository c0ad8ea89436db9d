package engine

import (
	"errors"
	"sync"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

var (
	// ErrQueueClosed 队列已关闭
	ErrQueueClosed = errors.New("任务队列已关闭")

	// ErrQueueFull 队列已满
	// 任务数上限在装载时确定,同一任务同时只存在于一处,正常运行不会触发
	ErrQueueFull = errors.New("任务队列已满")
)

// TaskQueue 共享FIFO任务队列
// 职责: 装载全部任务,支持并发安全的非阻塞取出与尾部重新入队
// 一个任务同一时刻只属于队列或某个worker,队列排空即全部任务到达终态
type TaskQueue struct {
	// 待处理任务队列
	pending chan *models.Task

	// 保护closed标记
	mu sync.RWMutex

	// 队列是否已关闭
	closed bool
}

// NewTaskQueue 创建任务队列并装载全部工作项
// 容量等于任务总数,重试回插永远不会超出
func NewTaskQueue(items []*models.WorkItem) *TaskQueue {
	q := &TaskQueue{
		pending: make(chan *models.Task, max(len(items), 1)),
	}
	for _, item := range items {
		q.pending <- models.NewTask(item)
	}
	return q
}

// Push 任务重新入队到尾部
func (q *TaskQueue) Push(t *models.Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.pending <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// TryPop 非阻塞取出下一个任务
// 队列为空时返回(nil, false),worker据此进入DONE状态
func (q *TaskQueue) TryPop() (*models.Task, bool) {
	select {
	case t, ok := <-q.pending:
		if !ok {
			return nil, false
		}
		return t, true
	default:
		return nil, false
	}
}

// Len 返回当前待处理任务数量
func (q *TaskQueue) Len() int {
	return len(q.pending)
}

// Close 关闭队列,后续Push返回错误
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.pending)
		q.closed = true
	}
}
