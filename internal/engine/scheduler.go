package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/proxypool"
)

// Scheduler 并发调度器
// 把工作项装入共享FIFO队列,启动worker池跑到队列排空,
// 汇总所有worker的终态结果
type Scheduler struct {
	executor Executor
	pool     *proxypool.Pool
	config   models.EngineConfig
	tracker  *ProgressTracker
	logger   zerolog.Logger
}

// NewScheduler 创建调度器
func NewScheduler(executor Executor, pool *proxypool.Pool, config models.EngineConfig, tracker *ProgressTracker, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		executor: executor,
		pool:     pool,
		config:   config,
		tracker:  tracker,
		logger:   logger,
	}
}

// Run 执行一次完整的抓取运行
// 每个提交的工作项恰好产生一条终态记录,顺序不保证与提交一致,
// 调用方按identity关联。任一worker级失败中止整个运行,不保留部分结果
func (s *Scheduler) Run(ctx context.Context, items []*models.WorkItem) ([]*models.ResultRecord, error) {
	if len(items) == 0 {
		return nil, nil
	}

	queue := NewTaskQueue(items)
	defer queue.Close()

	workerCount := computeWorkerCount(len(items), s.config.MaxConcurrency, s.pool.Size())
	s.tracker.SetWorkerCount(workerCount)

	s.logger.Info().
		Int("items", len(items)).
		Int("workers", workerCount).
		Int("proxies", s.pool.Size()).
		Str("executor", s.executor.Name()).
		Msg("🚀 调度器启动")

	retry := NewRetryPolicy(s.config.MaxRetries)

	workerResults := make([][]*models.ResultRecord, workerCount)
	workerErrs := make([]error, workerCount)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w := newWorker(id, queue, s.executor, s.pool, retry, s.tracker, s.config, s.logger)
			records, err := w.run(ctx)
			workerResults[id] = records
			workerErrs[id] = err
		}(i)
	}
	wg.Wait()

	if err := errors.Join(workerErrs...); err != nil {
		return nil, fmt.Errorf("运行中止: %w", err)
	}

	results := make([]*models.ResultRecord, 0, len(items))
	for _, records := range workerResults {
		results = append(results, records...)
	}

	s.logger.Info().Int("results", len(results)).Msg("✅ 调度完成")
	return results, nil
}

// computeWorkerCount 计算实际worker数
// 并发同时受配置上限与代理可用量约束,代理稀缺时自动降并发;
// 代理池为空时按1计,但始终保留最低2个worker的下限
func computeWorkerCount(itemCount, maxConcurrency, poolSize int) int {
	p := poolSize
	if p < 1 {
		p = 1
	}

	w := maxConcurrency
	if p < w {
		w = p
	}
	if w < 2 {
		w = 2
	}
	if itemCount < w {
		w = itemCount
	}
	return w
}
