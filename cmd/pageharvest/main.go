package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/PageHarvest/internal/core"
	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headersFile    string   // 头部配置文件路径
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证头部配置文件

	// 运行参数
	targetURL         string
	inputFile         string
	mode              string
	maxConcurrency    int
	maxRetries        int
	maxTasksPerClient int
	jitterMinMs       int
	jitterMaxMs       int
	headless          bool
	proxyFile         string
	noProxy           bool
	outputDir         string
	noProgress        bool
	extractLinks      bool
)

var rootCmd = &cobra.Command{
	Use:   "pageharvest",
	Short: "并发网页采集引擎",
	Long: `PageHarvest - 经代理池路由的大规模网页采集引擎 (Go版本)

针对一批URL工作项并发抓取页面内容,支持:
  • HTTP请求与浏览器两种抓取模式
  • 代理端点池,独占借用与归还
  • 客户端任务上限自动回收重建
  • 失败任务自动重试与重新入队
  • 进度跟踪与资源占用采样
  • 运行报告与失败项重提交文件
  • 自定义HTTP请求头

使用示例:
  # 抓取单个URL
  pageharvest -u https://example.com

  # 从文件批量抓取 (每行一个URL或JSON工作项数组)
  pageharvest -f urls.txt --proxy-file proxies.json

  # 浏览器模式
  pageharvest -f items.json -m browser --headless=false

  # 验证头部配置文件
  pageharvest --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.LogConfig()

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		} else if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 信号处理: 首次Ctrl+C取消运行,再次强制退出
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		go func() {
			sig := <-sigChan
			utils.Warnf("收到中断信号: %v, 正在取消运行...", sig)
			cancel()
			sig = <-sigChan
			utils.Warnf("再次收到信号: %v, 强制退出", sig)
			os.Exit(1)
		}()

		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 创建HTTP头部管理器
		headerManager, err := core.NewHeaderManager(headersFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		// 如果用户请求验证头部配置
		if validateConfig {
			utils.Info("🔍 验证HTTP头部配置...")
			if err := headerManager.LoadConfig(); err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if err := headerManager.Validate(); err != nil {
				return fmt.Errorf("配置验证失败: %w", err)
			}

			// 显示合并后的头部(脱敏)
			safeHeaders := core.RedactHeaders(headerManager.GetMergedHeaders())
			utils.Info("✅ 配置验证通过!")
			utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
			for name, value := range safeHeaders {
				utils.Infof("  %s: %s", name, value)
			}
			return nil
		}

		// 如果没有提供任何输入,显示帮助信息
		if targetURL == "" && inputFile == "" {
			return cmd.Help()
		}

		// 验证参数
		if err := ValidateFlags(
			targetURL,
			mode,
			maxConcurrency,
			maxRetries,
			maxTasksPerClient,
			jitterMinMs,
			jitterMaxMs,
		); err != nil {
			return err
		}

		// 命令行参数覆盖配置
		appConfig.MergeCLIFlags(
			maxConcurrency,
			maxRetries,
			maxTasksPerClient,
			jitterMinMs,
			jitterMaxMs,
			headless,
			proxyFile,
			outputDir,
		)
		if noProxy {
			appConfig.Proxy.Enabled = false
		}

		// 构建工作项列表
		var items []*models.WorkItem
		if inputFile != "" {
			items, err = utils.ReadWorkItemsFromFile(inputFile)
			if err != nil {
				return fmt.Errorf("读取工作项文件失败: %w", err)
			}
		} else {
			item, err := models.NewWorkItem(targetURL)
			if err != nil {
				return fmt.Errorf("无效的目标URL: %w", err)
			}
			items = append(items, item)
		}

		// 创建运行协调器
		runner, err := core.NewRunner(appConfig, models.FetchMode(mode), headerManager, utils.Logger)
		if err != nil {
			return fmt.Errorf("创建运行协调器失败: %w", err)
		}
		runner.SetShowProgress(!noProgress)

		if extractLinks {
			if models.FetchMode(mode) != models.ModeBrowser {
				utils.Warn("--extract-links 仅在浏览器模式下生效,已忽略")
			} else {
				runner.SetExtractFunc(ExtractLinks)
			}
		}

		// 执行运行
		report, records, err := runner.Run(ctx, items)
		if err != nil {
			return fmt.Errorf("抓取运行失败: %w", err)
		}

		// 显示统计结果
		fmt.Println("\n==================================================")
		fmt.Println("📊 运行统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 工作项总数: %d\n", report.Stats.TotalItems)
		fmt.Printf("✅ 成功: %d\n", report.Stats.Succeeded)
		fmt.Printf("❌ 失败: %d\n", report.Stats.Failed)
		fmt.Printf("🔁 重试入队: %d次\n", report.Stats.Retried)
		fmt.Printf("♻️  客户端回收: %d次\n", report.Stats.Recycles)
		fmt.Printf("⏱️  总耗时: %.2f秒\n", report.Stats.Duration)
		fmt.Printf("📦 结果记录: %d条\n", len(records))
		fmt.Printf("📂 输出目录: %s\n", report.OutputDir)
		fmt.Println("==================================================")

		utils.Info("✨ 抓取任务完成!")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("PageHarvest %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 并发网页采集引擎")
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringVar(&headersFile, "headers-file", "", "头部配置文件路径 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证头部配置文件正确性")

	// 运行参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "目标URL (必需,除非使用 --input-file)")
	rootCmd.Flags().StringVarP(&inputFile, "input-file", "f", "", "工作项文件路径 (每行一个URL或JSON数组)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "http", "抓取模式 (http|browser)")
	rootCmd.Flags().IntVar(&maxConcurrency, "concurrency", 0, "最大并发worker数 (0=使用配置)")
	rootCmd.Flags().IntVar(&maxRetries, "retries", -1, "单任务最大重试次数 (-1=使用配置)")
	rootCmd.Flags().IntVar(&maxTasksPerClient, "tasks-per-client", 0, "客户端回收前处理的任务数上限 (0=使用配置)")
	rootCmd.Flags().IntVar(&jitterMinMs, "jitter-min-ms", -1, "任务间随机延迟下限毫秒 (-1=使用配置)")
	rootCmd.Flags().IntVar(&jitterMaxMs, "jitter-max-ms", -1, "任务间随机延迟上限毫秒 (-1=使用配置)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVarP(&proxyFile, "proxy-file", "p", "", "代理端点JSON文件路径")
	rootCmd.Flags().BoolVar(&noProxy, "no-proxy", false, "禁用代理池,全部直连")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "报告输出目录 (默认 output)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示终端进度条")
	rootCmd.Flags().BoolVar(&extractLinks, "extract-links", false, "浏览器模式下提取页面链接而非完整HTML")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
