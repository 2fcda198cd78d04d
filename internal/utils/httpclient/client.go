package httpclient

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"LotterySync/internal/config"
	"LotterySync/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// NewHTTPClient 抓取用 HTTP 客户端（代理、超时、gzip 解压、固定 User-Agent）
func NewHTTPClient(cfg *config.ScraperConfig, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true, // 由 compressedTransport 处理
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", cfg.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", cfg.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &compressedTransport{
			transport: transport,
			userAgent: cfg.UserAgent,
			logger:    logger,
		},
	}
}

type compressedTransport struct {
	transport http.RoundTripper
	userAgent string
	logger    *logrus.Logger
}

func (c *compressedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept-Encoding", "gzip")
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &gzipReadCloser{Reader: gzReader, closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	}

	return resp, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	closer io.ReadCloser
}

// Close 先关 gzip reader，再关原始响应体
func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		_ = g.closer.Close()
		return err
	}
	return g.closer.Close()
}

// PageFetcher 限速的页面抓取器；非 2xx 与网络错误都视为 TRANSPORT_FAILURE
type PageFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewPageFetcher rps<=0 时不限速
func NewPageFetcher(client *http.Client, rps float64, logger *logrus.Logger) *PageFetcher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &PageFetcher{client: client, limiter: limiter, logger: logger}
}

func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", model.ErrTransportFailure.Because(err).WithContext("url", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", model.ErrTransportFailure.Because(err).WithContext("url", pageURL)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Errorf("关闭响应体失败: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.ErrTransportFailure.Because(err).WithContext("url", pageURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", model.ErrTransportFailure.
			Wrapf("GET returned %d", resp.StatusCode).
			WithContext("url", pageURL)
	}
	return string(body), nil
}
