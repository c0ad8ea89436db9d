package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/engine"
	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/proxypool"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// 资源采样间隔
const samplingInterval = 2 * time.Second

// Runner 一次抓取运行的协调器
// 装配代理池、执行器、调度器与跟踪器,运行结束后写出报告
type Runner struct {
	config         *Config
	mode           models.FetchMode
	headerProvider models.HeaderProvider
	logger         zerolog.Logger

	// 可选注入项
	extract      engine.ExtractFunc
	source       proxypool.Source
	showProgress bool
}

// NewRunner 创建运行协调器
func NewRunner(config *Config, mode models.FetchMode, headerProvider models.HeaderProvider, logger zerolog.Logger) (*Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	if mode != models.ModeHTTP && mode != models.ModeBrowser {
		return nil, fmt.Errorf("不支持的抓取模式: %s (可选: %s, %s)", mode, models.ModeHTTP, models.ModeBrowser)
	}

	return &Runner{
		config:         config,
		mode:           mode,
		headerProvider: headerProvider,
		logger:         logger,
	}, nil
}

// SetExtractFunc 注入浏览器模式的自定义提取函数
// 未注入时浏览器执行器返回默认页面载荷
func (r *Runner) SetExtractFunc(fn engine.ExtractFunc) {
	r.extract = fn
}

// SetProxySource 注入自定义代理来源,覆盖配置文件中的来源
func (r *Runner) SetProxySource(source proxypool.Source) {
	r.source = source
}

// SetShowProgress 控制是否显示终端进度条
func (r *Runner) SetShowProgress(show bool) {
	r.showProgress = show
}

// Run 执行一次完整的抓取运行
// 返回运行报告与全部终态结果;调度层错误(如客户端创建失败)导致整次运行失败
func (r *Runner) Run(ctx context.Context, items []*models.WorkItem) (*models.RunReport, []*models.ResultRecord, error) {
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("工作项列表为空")
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, nil, fmt.Errorf("第%d个工作项无效: %w", i+1, err)
		}
	}

	report := models.NewRunReport(r.mode, r.config.Engine)
	outputDir := filepath.Join(r.config.Output.BaseDir,
		fmt.Sprintf("run_%s", report.StartTime.Format("20060102_150405")))

	r.logger.Info().
		Str("run_id", report.RunID).
		Str("mode", string(r.mode)).
		Int("items", len(items)).
		Str("output_dir", outputDir).
		Msg("🚀 开始抓取运行")

	// 装载代理端点
	endpoints, err := r.loadEndpoints()
	if err != nil {
		return nil, nil, err
	}
	pool := proxypool.NewPool(endpoints)
	if pool.Size() > 0 {
		r.logger.Info().Int("proxies", pool.Size()).Msg("代理池就绪")
	} else {
		r.logger.Warn().Msg("代理池为空,所有任务将直连")
	}

	executor, err := r.buildExecutor()
	if err != nil {
		return nil, nil, err
	}

	// 进度与资源跟踪
	var bar *progressbar.ProgressBar
	if r.showProgress {
		bar = utils.NewProgressBar(len(items), "抓取进度")
	}
	tracker := engine.NewProgressTracker(len(items), r.logger, bar)
	tracker.StartSampling(samplingInterval)
	defer tracker.StopSampling()

	scheduler := engine.NewScheduler(executor, pool, r.config.Engine, tracker, r.logger)
	records, err := scheduler.Run(ctx, items)
	if err != nil {
		return nil, nil, fmt.Errorf("调度执行失败: %w", err)
	}

	tracker.StopSampling()
	report.Stats = tracker.Summary()
	report.EndTime = time.Now()

	// 写出报告,失败不影响已获得的结果
	reporter := utils.NewReporter(outputDir)
	if err := reporter.WriteRunReport(report, records, items); err != nil {
		r.logger.Error().Err(err).Msg("写出运行报告失败")
	}

	r.logSummary(report.Stats)
	return report, records, nil
}

// loadEndpoints 按配置读取代理端点快照
func (r *Runner) loadEndpoints() ([]*models.ProxyEndpoint, error) {
	if r.source != nil {
		endpoints, err := r.source.ListAvailableEndpoints()
		if err != nil {
			return nil, fmt.Errorf("加载代理端点失败: %w", err)
		}
		return endpoints, nil
	}

	if !r.config.Proxy.Enabled || r.config.Proxy.File == "" {
		return nil, nil
	}

	endpoints, err := proxypool.NewFileSource(r.config.Proxy.File).ListAvailableEndpoints()
	if err != nil {
		return nil, fmt.Errorf("加载代理端点失败: %w", err)
	}
	return endpoints, nil
}

// buildExecutor 按抓取模式构建执行器
func (r *Runner) buildExecutor() (engine.Executor, error) {
	switch r.mode {
	case models.ModeHTTP:
		return engine.NewHTTPExecutor(r.config.HTTP, r.headerProvider, r.logger), nil
	case models.ModeBrowser:
		return engine.NewBrowserExecutor(r.config.Browser, r.headerProvider, r.extract, r.logger), nil
	default:
		return nil, fmt.Errorf("不支持的抓取模式: %s", r.mode)
	}
}

// logSummary 输出运行统计
func (r *Runner) logSummary(stats models.RunStats) {
	successRate := 0.0
	if stats.TotalItems > 0 {
		successRate = float64(stats.Succeeded) / float64(stats.TotalItems) * 100
	}

	r.logger.Info().Msg("📊 ========== 运行统计 ==========")
	r.logger.Info().Msgf("   工作项总数: %d", stats.TotalItems)
	r.logger.Info().Msgf("   成功: %d (%.1f%%)", stats.Succeeded, successRate)
	r.logger.Info().Msgf("   失败: %d", stats.Failed)
	r.logger.Info().Msgf("   重试入队: %d次", stats.Retried)
	r.logger.Info().Msgf("   客户端回收: %d次", stats.Recycles)
	r.logger.Info().Msgf("   worker数: %d", stats.WorkerCount)
	r.logger.Info().Msgf("   总耗时: %.2f秒", stats.Duration)
	r.logger.Info().Msgf("   吞吐: %.2f 任务/秒", stats.Throughput)
	if stats.PeakRSS > 0 {
		r.logger.Info().Msgf("   内存峰值: %.2f MB", float64(stats.PeakRSS)/1024/1024)
	}
	if stats.AvgCPU > 0 {
		r.logger.Info().Msgf("   平均CPU: %.1f%%", stats.AvgCPU)
	}
	r.logger.Info().Msg("✅ 抓取运行完成")
}
