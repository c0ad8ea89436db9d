package engine

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// ProgressTracker 进度跟踪器
// 职责: 统计终态/重试事件,后台采样进程与系统资源
// 计数器由单一互斥锁保护,临界区内不做任何I/O
type ProgressTracker struct {
	mu sync.Mutex

	total       int
	workerCount int
	unique      map[string]struct{}
	processed   int
	succeeded   int
	failed      int
	retried     int
	recycles    int
	startTime   time.Time

	// 进度条(可选,终端展示用),更新在锁外执行
	bar *progressbar.ProgressBar

	logger zerolog.Logger

	// 资源采样缓存,独立锁避免与计数器互相阻塞
	sampleMu      sync.Mutex
	procMemRSS    uint64
	procMemPeak   uint64
	sysMemUsed    uint64
	sysMemPercent float64
	cpuSampleSum  float64
	cpuSampleNum  int

	proc *process.Process

	// 采样控制
	cancelFunc context.CancelFunc
	isRunning  bool
}

// NewProgressTracker 创建进度跟踪器
func NewProgressTracker(total int, logger zerolog.Logger, bar *progressbar.ProgressBar) *ProgressTracker {
	t := &ProgressTracker{
		total:     total,
		unique:    make(map[string]struct{}),
		startTime: time.Now(),
		bar:       bar,
		logger:    logger,
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn().Err(err).Msg("获取当前进程句柄失败,内存采样降级")
	} else {
		t.proc = proc
	}

	return t
}

// StartSampling 启动后台资源采样
// 重复调用是幂等的
func (t *ProgressTracker) StartSampling(interval time.Duration) {
	t.sampleMu.Lock()
	defer t.sampleMu.Unlock()

	if t.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancelFunc = cancel
	t.isRunning = true

	go t.samplingLoop(ctx, interval)
}

// samplingLoop 后台采样循环
func (t *ProgressTracker) samplingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 启动时先采一次,避免短任务拿不到任何样本
	t.sampleOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sampleOnce()
		}
	}
}

// sampleOnce 采集一次进程内存/系统内存/CPU
// 进程内存把子进程(浏览器)的RSS一并计入
func (t *ProgressTracker) sampleOnce() {
	var rss uint64
	if t.proc != nil {
		if info, err := t.proc.MemoryInfo(); err == nil {
			rss = info.RSS
		}
		if children, err := t.proc.Children(); err == nil {
			for _, child := range children {
				if info, err := child.MemoryInfo(); err == nil {
					rss += info.RSS
				}
			}
		}
	}

	var sysUsed uint64
	var sysPercent float64
	if vmStat, err := mem.VirtualMemory(); err == nil {
		sysUsed = vmStat.Used
		sysPercent = vmStat.UsedPercent
	} else {
		t.logger.Warn().Err(err).Msg("获取系统内存失败")
	}

	// 100毫秒采样间隔,只在采样goroutine中阻塞
	var cpuUsage float64
	if percentages, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percentages) > 0 {
		cpuUsage = percentages[0]
	}

	t.sampleMu.Lock()
	t.procMemRSS = rss
	if rss > t.procMemPeak {
		t.procMemPeak = rss
	}
	t.sysMemUsed = sysUsed
	t.sysMemPercent = sysPercent
	t.cpuSampleSum += cpuUsage
	t.cpuSampleNum++
	t.sampleMu.Unlock()
}

// StopSampling 停止后台资源采样
func (t *ProgressTracker) StopSampling() {
	t.sampleMu.Lock()
	defer t.sampleMu.Unlock()

	if t.isRunning && t.cancelFunc != nil {
		t.cancelFunc()
		t.isRunning = false
		t.cancelFunc = nil
	}
}

// Update 登记一次终态事件(成功或终态失败)
// identity用于唯一进度统计,进度条推进放在锁外
func (t *ProgressTracker) Update(identity string, success bool) {
	t.mu.Lock()
	t.processed++
	t.unique[identity] = struct{}{}
	if success {
		t.succeeded++
	} else {
		t.failed++
	}
	uniqueCount := len(t.unique)
	processed := t.processed
	succeeded := t.succeeded
	failed := t.failed
	retried := t.retried
	t.mu.Unlock()

	if t.bar != nil {
		_ = t.bar.Add(1)
	}

	elapsed := time.Since(t.startTime).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(processed) / elapsed
	}

	t.logger.Debug().
		Int("processed", processed).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("retried", retried).
		Int("unique", uniqueCount).
		Int("total", t.total).
		Float64("speed", speed).
		Msg("进度更新")
}

// RetryScheduled 登记一次重新入队
func (t *ProgressTracker) RetryScheduled() {
	t.mu.Lock()
	t.retried++
	t.mu.Unlock()
}

// RecycleHappened 登记一次客户端回收
func (t *ProgressTracker) RecycleHappened() {
	t.mu.Lock()
	t.recycles++
	t.mu.Unlock()
}

// SetWorkerCount 记录本次运行实际启动的worker数
func (t *ProgressTracker) SetWorkerCount(n int) {
	t.mu.Lock()
	t.workerCount = n
	t.mu.Unlock()
}

// Summary 生成当前时点的统计快照
// WorkerCount由调度器补充
func (t *ProgressTracker) Summary() models.RunStats {
	t.mu.Lock()
	stats := models.RunStats{
		TotalItems:  t.total,
		WorkerCount: t.workerCount,
		Processed:   t.processed,
		Succeeded:   t.succeeded,
		Failed:      t.failed,
		Retried:     t.retried,
		Recycles:    t.recycles,
	}
	startTime := t.startTime
	t.mu.Unlock()

	elapsed := time.Since(startTime).Seconds()
	stats.Duration = elapsed
	if elapsed > 0 {
		stats.Throughput = float64(stats.Processed) / elapsed
	}

	t.sampleMu.Lock()
	stats.PeakRSS = int64(t.procMemPeak)
	if t.cpuSampleNum > 0 {
		stats.AvgCPU = t.cpuSampleSum / float64(t.cpuSampleNum)
	}
	t.sampleMu.Unlock()

	return stats
}
