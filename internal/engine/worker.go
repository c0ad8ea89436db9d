package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/proxypool"
)

// worker 顺序执行任务的单个工作单元
// 生命周期: 无客户端 → 活跃 ⇄ 回收 → 完成
// 同一客户端同一时刻只服务一个任务,worker之间互不共享客户端
type worker struct {
	id       int
	queue    *TaskQueue
	executor Executor
	pool     *proxypool.Pool
	retry    *RetryPolicy
	tracker  *ProgressTracker
	config   models.EngineConfig
	logger   zerolog.Logger

	client   Client
	endpoint *models.ProxyEndpoint

	// 当前客户端已成功处理的任务数,达到上限触发回收
	taskCount int

	results []*models.ResultRecord
}

func newWorker(id int, queue *TaskQueue, executor Executor, pool *proxypool.Pool, retry *RetryPolicy, tracker *ProgressTracker, config models.EngineConfig, logger zerolog.Logger) *worker {
	return &worker{
		id:       id,
		queue:    queue,
		executor: executor,
		pool:     pool,
		retry:    retry,
		tracker:  tracker,
		config:   config,
		logger:   logger,
	}
}

// run 执行worker主循环
// 队列瞬时为空即完成;客户端创建失败时worker无法继续,错误上抛由调度器中止整个运行
func (w *worker) run(ctx context.Context) ([]*models.ResultRecord, error) {
	if err := w.createClient(ctx); err != nil {
		return nil, fmt.Errorf("worker %d 创建客户端失败: %w", w.id, err)
	}
	defer w.cleanupClient()

	for {
		if err := ctx.Err(); err != nil {
			return w.results, fmt.Errorf("worker %d 运行被取消: %w", w.id, err)
		}

		// 回收检查在取任务之前,计数达到上限就换客户端
		if w.taskCount >= w.config.MaxTasksPerClient {
			if err := w.recycleClient(ctx); err != nil {
				return w.results, fmt.Errorf("worker %d 回收客户端失败: %w", w.id, err)
			}
		}

		task, ok := w.queue.TryPop()
		if !ok {
			return w.results, nil
		}

		w.processTask(ctx, task)
		w.jitter(ctx)
	}
}

// processTask 执行单个任务并登记结果
// 所有失败路径都归入重试或终态,不向上层抛出
func (w *worker) processTask(ctx context.Context, task *models.Task) {
	attempt := task.Retries + 1
	start := time.Now()
	payload, err := w.executor.Execute(ctx, w.client, task)
	duration := time.Since(start)

	if err == nil {
		record := models.NewSuccessRecord(task, payload, duration)
		w.results = append(w.results, record)
		w.taskCount++
		w.tracker.Update(task.Identity(), true)
		w.logger.Debug().
			Int("worker", w.id).
			Str("identity", task.Identity()).
			Str("proxy", w.proxyName()).
			Int("attempt", attempt).
			Dur("duration", duration).
			Msg("任务完成")
		return
	}

	retryable := models.IsRetryable(err)
	canRequeue := w.retry.RegisterFailure(task)

	if retryable && canRequeue {
		if pushErr := w.queue.Push(task); pushErr != nil {
			// 队列已关闭或已满时无法重试,按终态失败处理
			w.finishTaskWithError(task, err, duration)
			return
		}
		w.tracker.RetryScheduled()
		w.logger.Warn().
			Err(err).
			Int("worker", w.id).
			Str("identity", task.Identity()).
			Str("proxy", w.proxyName()).
			Int("attempt", attempt).
			Int("max_retries", w.retry.MaxRetries).
			Dur("duration", duration).
			Msg("任务失败,已重新入队")
		return
	}

	w.finishTaskWithError(task, err, duration)
	w.logger.Error().
		Err(err).
		Int("worker", w.id).
		Str("identity", task.Identity()).
		Str("proxy", w.proxyName()).
		Int("retries_used", task.RetriesUsed()).
		Dur("duration", duration).
		Msg("❌ 任务终态失败")
}

// finishTaskWithError 登记终态失败记录
func (w *worker) finishTaskWithError(task *models.Task, err error, duration time.Duration) {
	record := models.NewErrorRecord(task, err, duration)
	w.results = append(w.results, record)
	w.tracker.Update(task.Identity(), false)
}

// createClient 获取代理并创建客户端
// 代理池空闲不足时endpoint为nil,客户端直连
func (w *worker) createClient(ctx context.Context) error {
	endpoint := w.pool.Acquire()

	client, err := w.executor.CreateClient(ctx, endpoint)
	if err != nil {
		w.pool.Release(endpoint)
		return err
	}

	w.client = client
	w.endpoint = endpoint
	w.taskCount = 0

	w.logger.Debug().
		Int("worker", w.id).
		Str("executor", w.executor.Name()).
		Str("proxy", w.proxyName()).
		Msg("客户端已创建")

	w.jitter(ctx)
	return nil
}

// cleanupClient 关闭客户端并归还代理
func (w *worker) cleanupClient() {
	if w.client != nil {
		if err := w.client.Close(); err != nil {
			w.logger.Warn().Err(err).Int("worker", w.id).Msg("关闭客户端失败")
		}
		w.client = nil
	}
	w.pool.Release(w.endpoint)
	w.endpoint = nil
}

// recycleClient 回收当前客户端并创建新客户端
// 新客户端可能拿到不同的代理,也可能直连
func (w *worker) recycleClient(ctx context.Context) error {
	w.logger.Debug().
		Int("worker", w.id).
		Int("task_count", w.taskCount).
		Str("proxy", w.proxyName()).
		Msg("客户端达到任务上限,回收重建")

	w.cleanupClient()
	w.tracker.RecycleHappened()
	return w.createClient(ctx)
}

// jitter 客户端创建与每次任务之后的随机延迟
// 反指纹节流,区间配置为零时直接跳过
func (w *worker) jitter(ctx context.Context) {
	minDelay, maxDelay := w.config.JitterBounds()
	if maxDelay <= 0 {
		return
	}

	delay := minDelay
	if span := maxDelay - minDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *worker) proxyName() string {
	if w.endpoint == nil {
		return "直连"
	}
	return w.endpoint.Name
}
