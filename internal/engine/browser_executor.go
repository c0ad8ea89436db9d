package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// ExtractFunc 页面提取函数,在页面就绪后执行
// 对引擎完全不透明,返回的载荷原样进入成功记录
type ExtractFunc func(ctx context.Context, page *rod.Page) (any, error)

// BrowserExecutor 浏览器页面执行器(基于Rod)
// 每个worker客户端是一个独立的浏览器进程,每个任务在新的
// 隐身上下文中执行,任务结束后上下文连同页面一起销毁
type BrowserExecutor struct {
	config         models.BrowserConfig
	headerProvider models.HeaderProvider
	extract        ExtractFunc
	cookies        []*http.Cookie
	logger         zerolog.Logger
}

// NewBrowserExecutor 创建浏览器执行器
// extract为nil时使用默认提取(最终URL+标题+HTML)
func NewBrowserExecutor(config models.BrowserConfig, headerProvider models.HeaderProvider, extract ExtractFunc, logger zerolog.Logger) *BrowserExecutor {
	if len(config.UserAgents) == 0 {
		config.UserAgents = models.DefaultUserAgents()
	}
	if len(config.Viewports) == 0 {
		config.Viewports = models.DefaultViewports()
	}

	e := &BrowserExecutor{
		config:         config,
		headerProvider: headerProvider,
		extract:        extract,
		logger:         logger,
	}

	if config.CookieFile != "" {
		cookies, err := LoadCookieFile(config.CookieFile)
		if err != nil {
			logger.Warn().Err(err).Str("file", config.CookieFile).Msg("装载Cookie文件失败")
		} else {
			e.cookies = cookies
			logger.Debug().Int("count", len(cookies)).Msg("预置Cookie已装载")
		}
	}

	return e
}

// Name 执行器名称
func (e *BrowserExecutor) Name() string {
	return "browser"
}

// browserClient 绑定到单个代理端点的浏览器实例
type browserClient struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	endpoint *models.ProxyEndpoint
}

// Close 关闭浏览器进程并清理临时目录
func (c *browserClient) Close() error {
	var err error
	if c.browser != nil {
		err = c.browser.Close()
	}
	if c.launcher != nil {
		c.launcher.Cleanup()
	}
	return err
}

// CreateClient 启动绑定到代理端点的浏览器实例
// endpoint为nil时浏览器直连
func (e *BrowserExecutor) CreateClient(ctx context.Context, endpoint *models.ProxyEndpoint) (Client, error) {
	l := launcher.New().Headless(e.config.Headless)

	// 允许访问自签名或过期证书的HTTPS站点
	l = l.Set("ignore-certificate-errors")

	if endpoint != nil {
		l = l.Proxy(launcherProxyAddress(endpoint))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	proxyName := "直连"
	if endpoint != nil {
		proxyName = endpoint.Name
	}
	e.logger.Debug().Str("proxy", proxyName).Str("control_url", controlURL).Msg("浏览器已启动")

	return &browserClient{
		browser:  browser,
		launcher: l,
		endpoint: endpoint,
	}, nil
}

// launcherProxyAddress 返回浏览器--proxy-server参数值
// SOCKS5地址优先(带协议前缀),HTTP代理只需host:port
func launcherProxyAddress(ep *models.ProxyEndpoint) string {
	if ep.Socks5Address != "" {
		return ep.Socks5Address
	}
	return ep.Host()
}

// Execute 在隐身上下文中执行单次页面抓取
// 上下文与页面在所有退出路径上销毁,浏览器实例留给下一个任务
func (e *BrowserExecutor) Execute(ctx context.Context, client Client, task *models.Task) (payload any, err error) {
	bc, ok := client.(*browserClient)
	if !ok {
		return nil, fmt.Errorf("客户端类型不匹配: %T", client)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item := task.Item
	requestURL, err := models.BuildURL(item.URL, item.Params)
	if err != nil {
		return nil, models.NewFetchError(models.ErrKindTransport, item.URL, err)
	}

	// rod内部的意外panic折叠为可重试错误,不允许逃逸到worker循环
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("url", requestURL).Msgf("浏览器操作panic: %v", r)
			payload = nil
			err = models.NewFetchError(models.ErrKindTransport, requestURL, fmt.Errorf("浏览器操作panic: %v", r))
		}
	}()

	incognito, err := bc.browser.Incognito()
	if err != nil {
		return nil, models.NewFetchError(models.ErrKindTransport, requestURL, fmt.Errorf("创建隐身上下文失败: %w", err))
	}
	defer func() {
		_ = proto.TargetDisposeBrowserContext{
			BrowserContextID: incognito.BrowserContextID,
		}.Call(incognito)
	}()

	if len(e.cookies) > 0 {
		if cookieErr := incognito.SetCookies(cookieParams(e.cookies, requestURL)); cookieErr != nil {
			e.logger.Warn().Err(cookieErr).Msg("注入预置Cookie失败")
		}
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, models.NewFetchError(models.ErrKindTransport, requestURL, fmt.Errorf("创建页面失败: %w", err))
	}
	defer func() {
		_ = page.Close()
	}()

	router, err := e.setupPage(page, bc.endpoint, item)
	if err != nil {
		return nil, models.NewFetchError(models.ErrKindTransport, requestURL, err)
	}
	if router != nil {
		defer func() {
			_ = router.Stop()
		}()
	}

	// 带超时导航,等待DOMContentLoaded
	navCtx, cancel := context.WithTimeout(ctx, e.navigationTimeout())
	defer cancel()

	navPage := page.Context(navCtx)
	waitDOM := navPage.WaitEvent(&proto.PageDomContentEventFired{})
	if err := navPage.Navigate(requestURL); err != nil {
		return nil, classifyBrowserError(requestURL, err)
	}
	waitDOM()
	if navCtx.Err() != nil {
		return nil, models.NewFetchError(models.ErrKindTimeout, requestURL,
			fmt.Errorf("导航超时(%d秒): %w", e.config.NavigationTimeout, navCtx.Err()))
	}

	// 两段式就绪等待,两段都超时后按策略决定重试还是带部分页面继续
	partial := false
	if e.config.WaitSelector != "" {
		if readyErr := e.waitReady(page, requestURL); readyErr != nil {
			if !e.config.ContinueOnReadinessTimeout {
				return nil, readyErr
			}
			partial = true
			e.logger.Warn().Str("url", requestURL).Msg("就绪等待超时,带部分页面继续提取")
		}
	}

	if e.extract != nil {
		extracted, extractErr := e.extract(ctx, page)
		if extractErr != nil {
			return nil, models.NewFetchError(models.ErrKindExtraction, requestURL, extractErr)
		}
		return extracted, nil
	}

	extracted, extractErr := defaultPageExtract(page, partial)
	if extractErr != nil {
		return nil, models.NewFetchError(models.ErrKindExtraction, requestURL, extractErr)
	}
	return extracted, nil
}

// setupPage 配置页面指纹与请求拦截
// UA优先取端点元数据,否则从候选列表随机;视口始终随机
func (e *BrowserExecutor) setupPage(page *rod.Page, endpoint *models.ProxyEndpoint, item *models.WorkItem) (*rod.HijackRouter, error) {
	userAgent := e.config.UserAgents[rand.Intn(len(e.config.UserAgents))]
	acceptLanguage := ""
	if endpoint != nil {
		if endpoint.UserAgent != "" {
			userAgent = endpoint.UserAgent
		}
		acceptLanguage = endpoint.AcceptLanguage
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		return nil, fmt.Errorf("设置User-Agent失败: %w", err)
	}

	viewport := e.config.Viewports[rand.Intn(len(e.config.Viewports))]
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewport.Width,
		Height:            viewport.Height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		return nil, fmt.Errorf("设置视口失败: %w", err)
	}

	locale := endpointLocale(endpoint, e.config.Locale)
	if locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: locale}).Call(page); err != nil {
			e.logger.Debug().Err(err).Msg("设置locale失败")
		}
	}

	timezone := endpointTimezone(endpoint, e.config.Timezone)
	if timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: timezone}).Call(page); err != nil {
			e.logger.Debug().Err(err).Msg("设置时区失败")
		}
	}

	headers := e.pageHeaders(item)
	needHijack := e.config.BlockImages || len(headers) > 0
	if !needHijack {
		return nil, nil
	}

	router := page.HijackRequests()
	if err := router.Add("*", "", func(hctx *rod.Hijack) {
		if e.config.BlockImages && hctx.Request.Type() == proto.NetworkResourceTypeImage {
			hctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		for name, value := range headers {
			hctx.Request.Req().Header.Set(name, value)
		}
		hctx.ContinueRequest(&proto.FetchContinueRequest{})
	}); err != nil {
		return nil, fmt.Errorf("设置请求拦截失败: %w", err)
	}
	go router.Run()

	return router, nil
}

// pageHeaders 合并随页面请求注入的头部: 基础头部 < 任务级头部
// User-Agent由CDP覆盖设置,这里跳过避免冲突
func (e *BrowserExecutor) pageHeaders(item *models.WorkItem) map[string]string {
	headers := make(map[string]string)

	if e.headerProvider != nil {
		base, err := e.headerProvider.GetHeaders()
		if err != nil {
			e.logger.Warn().Err(err).Msg("获取基础HTTP头部失败")
		} else {
			for name, values := range base {
				if len(values) > 0 && !isUserAgentHeader(name) {
					headers[name] = values[0]
				}
			}
		}
	}

	for name, value := range item.Headers {
		if !isUserAgentHeader(name) {
			headers[name] = value
		}
	}

	return headers
}

func isUserAgentHeader(name string) bool {
	return http.CanonicalHeaderKey(name) == "User-Agent"
}

// elementWaiter 在就绪超时内等待单个选择器出现
type elementWaiter func(selector string, timeout time.Duration) error

// waitReady 两段式就绪等待
func (e *BrowserExecutor) waitReady(page *rod.Page, requestURL string) error {
	return e.awaitReadiness(func(selector string, timeout time.Duration) error {
		_, err := page.Timeout(timeout).Element(selector)
		return err
	}, requestURL)
}

// awaitReadiness 就绪决策: 主选择器超时后尝试备用选择器,两段共用同一个超时配置
func (e *BrowserExecutor) awaitReadiness(wait elementWaiter, requestURL string) error {
	timeout := e.readinessTimeout()

	if err := wait(e.config.WaitSelector, timeout); err == nil {
		return nil
	}

	if e.config.FallbackWaitSelector == "" {
		return models.NewFetchError(models.ErrKindReadinessTimeout, requestURL,
			fmt.Errorf("等待选择器 %q 超时(%d秒)", e.config.WaitSelector, e.config.ReadinessTimeout))
	}

	e.logger.Debug().
		Str("url", requestURL).
		Str("fallback", e.config.FallbackWaitSelector).
		Msg("主选择器超时,尝试备用选择器")

	if err := wait(e.config.FallbackWaitSelector, timeout); err == nil {
		return nil
	}

	return models.NewFetchError(models.ErrKindReadinessTimeout, requestURL,
		fmt.Errorf("主选择器 %q 与备用选择器 %q 均等待超时(%d秒)",
			e.config.WaitSelector, e.config.FallbackWaitSelector, e.config.ReadinessTimeout))
}

// defaultPageExtract 默认页面提取
func defaultPageExtract(page *rod.Page, partial bool) (any, error) {
	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("获取页面信息失败: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("获取页面HTML失败: %w", err)
	}

	return &models.PagePayload{
		FinalURL: info.URL,
		Title:    info.Title,
		HTML:     html,
		Partial:  partial,
	}, nil
}

// cookieParams 把通用Cookie转成CDP参数
// 缺少Domain的Cookie借助任务URL推断作用域
func cookieParams(cookies []*http.Cookie, requestURL string) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:  c.Name,
			Value: c.Value,
		}
		if c.Domain != "" {
			param.Domain = c.Domain
			param.Path = c.Path
		} else {
			param.URL = requestURL
		}
		params = append(params, param)
	}
	return params
}

// endpointLocale 端点locale优先于全局配置
func endpointLocale(ep *models.ProxyEndpoint, fallback string) string {
	if ep != nil && ep.Locale != "" {
		return ep.Locale
	}
	return fallback
}

// endpointTimezone 端点时区优先于全局配置
func endpointTimezone(ep *models.ProxyEndpoint, fallback string) string {
	if ep != nil && ep.Timezone != "" {
		return ep.Timezone
	}
	return fallback
}

// classifyBrowserError 将导航错误分类为FetchError
func classifyBrowserError(requestURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewFetchError(models.ErrKindTimeout, requestURL, err)
	}
	return models.NewFetchError(models.ErrKindTransport, requestURL, err)
}

func (e *BrowserExecutor) navigationTimeout() time.Duration {
	return time.Duration(e.config.NavigationTimeout) * time.Second
}

func (e *BrowserExecutor) readinessTimeout() time.Duration {
	return time.Duration(e.config.ReadinessTimeout) * time.Second
}
