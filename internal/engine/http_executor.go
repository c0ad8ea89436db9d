package engine

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

// colly.Context中用于回传响应的键
const respCtxKey = "page_response"

// HTTPExecutor HTTP请求执行器(基于Colly)
// 每个worker客户端是一个独立的Colly会话,带自己的传输层和Cookie jar,
// 回收客户端即丢弃整个会话
type HTTPExecutor struct {
	config         models.HTTPConfig
	headerProvider models.HeaderProvider
	cookies        []*http.Cookie
	logger         zerolog.Logger
}

// NewHTTPExecutor 创建HTTP执行器
// 配置了Cookie文件时在此处一次性装载,装载失败仅告警不中断
func NewHTTPExecutor(config models.HTTPConfig, headerProvider models.HeaderProvider, logger zerolog.Logger) *HTTPExecutor {
	e := &HTTPExecutor{
		config:         config,
		headerProvider: headerProvider,
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
func (e *HTTPExecutor) Name() string {
	return "http"
}

// httpSession 绑定到单个代理端点的HTTP会话
type httpSession struct {
	collector *colly.Collector
	transport *http.Transport
	endpoint  *models.ProxyEndpoint
}

// Close 关闭会话,释放空闲连接
func (s *httpSession) Close() error {
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	return nil
}

// CreateClient 创建绑定到代理端点的HTTP会话
// SOCKS5地址优先于HTTP代理地址,endpoint为nil时直连
func (e *HTTPExecutor) CreateClient(ctx context.Context, endpoint *models.ProxyEndpoint) (Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: e.config.InsecureSkipVerify,
		},
	}

	if endpoint != nil {
		if endpoint.Socks5Address != "" {
			addr := strings.TrimPrefix(endpoint.Socks5Address, "socks5://")
			dialer, err := proxy.SOCKS5("tcp", addr, nil, &net.Dialer{Timeout: e.requestTimeout()})
			if err != nil {
				return nil, fmt.Errorf("创建SOCKS5拨号器失败 [%s]: %w", endpoint.Name, err)
			}
			contextDialer, ok := dialer.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("SOCKS5拨号器不支持context [%s]", endpoint.Name)
			}
			transport.DialContext = contextDialer.DialContext
		} else {
			proxyURL, err := url.Parse(endpoint.Address)
			if err != nil {
				return nil, fmt.Errorf("解析代理地址失败 [%s]: %w", endpoint.Name, err)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("创建Cookie jar失败: %w", err)
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   e.requestTimeout(),
	}

	// 同步collector,一次Request对应一次抓取
	// 重试会让同一URL再次到达同一会话,必须允许重复访问
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	collector.SetClient(client)
	collector.SetRequestTimeout(e.requestTimeout())

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(respCtxKey, r)
	})
	collector.OnError(func(r *colly.Response, err error) {
		// 传输失败由Request的返回错误统一分类,这里仅记录
		e.logger.Debug().Err(err).Str("url", r.Request.URL.String()).Msg("HTTP请求失败")
	})

	proxyName := "直连"
	if endpoint != nil {
		proxyName = endpoint.Name
	}
	e.logger.Debug().Str("proxy", proxyName).Msg("HTTP会话已创建")

	return &httpSession{
		collector: collector,
		transport: transport,
		endpoint:  endpoint,
	}, nil
}

// Execute 执行单次HTTP抓取
// 非2xx状态码与传输失败都折叠为可重试的*models.FetchError
func (e *HTTPExecutor) Execute(ctx context.Context, client Client, task *models.Task) (any, error) {
	session, ok := client.(*httpSession)
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

	if len(e.cookies) > 0 {
		if err := session.collector.SetCookies(requestURL, e.cookies); err != nil {
			e.logger.Warn().Err(err).Msg("写入预置Cookie失败")
		}
	}

	method := item.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if item.Body != "" {
		body = strings.NewReader(item.Body)
	}

	cctx := colly.NewContext()
	if err := session.collector.Request(method, requestURL, body, cctx, e.buildHeaders(session.endpoint, item)); err != nil {
		return nil, classifyTransportError(requestURL, err)
	}

	resp, ok := cctx.GetAny(respCtxKey).(*colly.Response)
	if !ok || resp == nil {
		return nil, models.NewFetchError(models.ErrKindTransport, requestURL, fmt.Errorf("未收到响应"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewFetchError(models.ErrKindHTTPStatus, requestURL,
			fmt.Errorf("HTTP状态码 %d", resp.StatusCode))
	}

	// 显式声明过Accept-Encoding时标准库不做透明解压,需要手动处理
	respBody := resp.Body
	if encoding := resp.Headers.Get("Content-Encoding"); encoding != "" {
		decompressed, err := decompressBody(encoding, resp.Body)
		if err != nil {
			e.logger.Warn().Err(err).Str("url", requestURL).Msg("解压响应失败,使用原始内容")
		} else {
			respBody = decompressed
		}
	}

	contentType := resp.Headers.Get("Content-Type")
	var data any
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		if err := json.Unmarshal(respBody, &data); err != nil {
			return nil, models.NewFetchError(models.ErrKindExtraction, requestURL,
				fmt.Errorf("JSON解码失败: %w", err))
		}
	} else {
		data = string(respBody)
	}

	headers := make(map[string]string, len(*resp.Headers))
	for name := range *resp.Headers {
		headers[name] = resp.Headers.Get(name)
	}

	return &models.HTTPPayload{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Data:       data,
	}, nil
}

// buildHeaders 按优先级合并请求头部: 基础头部 < 端点元数据 < 任务级头部
// 端点的UA和Accept-Language覆盖基础值,保持按代理的指纹一致性
func (e *HTTPExecutor) buildHeaders(endpoint *models.ProxyEndpoint, item *models.WorkItem) http.Header {
	headers := make(http.Header)

	if e.headerProvider != nil {
		base, err := e.headerProvider.GetHeaders()
		if err != nil {
			e.logger.Warn().Err(err).Msg("获取基础HTTP头部失败")
		} else {
			for name, values := range base {
				if len(values) > 0 {
					headers.Set(name, values[0])
				}
			}
		}
	}

	if endpoint != nil {
		if endpoint.UserAgent != "" {
			headers.Set("User-Agent", endpoint.UserAgent)
		}
		if endpoint.AcceptLanguage != "" {
			headers.Set("Accept-Language", endpoint.AcceptLanguage)
		}
	}

	for name, value := range item.Headers {
		headers.Set(name, value)
	}

	return headers
}

func (e *HTTPExecutor) requestTimeout() time.Duration {
	return time.Duration(e.config.RequestTimeout) * time.Second
}

// classifyTransportError 将传输层错误分类为FetchError
func classifyTransportError(requestURL string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewFetchError(models.ErrKindTimeout, requestURL, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.NewFetchError(models.ErrKindTimeout, requestURL, err)
	default:
		return models.NewFetchError(models.ErrKindTransport, requestURL, err)
	}
}

// decompressBody 根据Content-Encoding解压响应体
// 支持 gzip, deflate, br (Brotli),未知编码原样返回
func decompressBody(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "":
		return body, nil

	default:
		return body, nil
	}
}

// cookieEntry Cookie文件数组格式的单条记录
type cookieEntry struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// LoadCookieFile 从JSON文件装载预置Cookie
// 支持两种格式: {"name": "value", ...} 键值对象,
// 或 [{"name": ..., "value": ..., "domain": ..., "path": ...}] 数组
func LoadCookieFile(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取Cookie文件失败: %w", err)
	}

	var entries []cookieEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		cookies := make([]*http.Cookie, 0, len(entries))
		for _, entry := range entries {
			if entry.Name == "" {
				continue
			}
			cookiePath := entry.Path
			if cookiePath == "" {
				cookiePath = "/"
			}
			cookies = append(cookies, &http.Cookie{
				Name:   entry.Name,
				Value:  entry.Value,
				Domain: entry.Domain,
				Path:   cookiePath,
			})
		}
		return cookies, nil
	}

	var pairs map[string]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("解析Cookie文件失败: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(pairs))
	for name, value := range pairs {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	return cookies, nil
}
