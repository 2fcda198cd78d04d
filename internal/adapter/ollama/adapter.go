package ollama

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"LotterySync/internal/adapter"
	"LotterySync/internal/adapter/minhchinh"
	"LotterySync/internal/config"
	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"
	"LotterySync/internal/utils/httpclient"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// ProducerName 注册表中的名称
const ProducerName = "ollama"

const (
	defaultHost  = "http://127.0.0.1:11434"
	defaultPort  = "11434"
	generatePath = "/api/generate"
	// 页面正文截断长度，避免超出模型上下文
	maxPageRunes = 60000
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	adapter.Register(ProducerName, NewOllamaAdapter)
}

// Adapter 通过本地 Ollama 模型从结果页抽取结构化记录，作为 HTML 解析失败时的回退来源
type Adapter struct {
	host          string
	model         string
	sourceBaseURL string
	fetcher       interfaces.PageFetcher
	client        *http.Client
	logger        *logrus.Logger
}

// NewOllamaAdapter 注册表使用的工厂函数
func NewOllamaAdapter(cfg *config.Config, logger *logrus.Logger) interfaces.RecordProducer {
	pageClient := httpclient.NewHTTPClient(&cfg.Scraper, logger)
	fetcher := httpclient.NewPageFetcher(pageClient, cfg.Scraper.RequestsPerSecond, logger)

	// 模型在本机，不走抓取代理
	llmCfg := cfg.Scraper
	llmCfg.Proxy = ""
	llmCfg.Timeout = cfg.LLM.Timeout
	return NewAdapter(cfg.LLM.Host, cfg.LLM.Model, cfg.Scraper.SourceBaseURL, fetcher, httpclient.NewHTTPClient(&llmCfg, logger), logger)
}

func NewAdapter(host, modelName, sourceBaseURL string, fetcher interfaces.PageFetcher, client *http.Client, logger *logrus.Logger) *Adapter {
	return &Adapter{
		host:          NormalizeHost(host),
		model:         modelName,
		sourceBaseURL: sourceBaseURL,
		fetcher:       fetcher,
		client:        client,
		logger:        logger,
	}
}

func (a *Adapter) GetName() string {
	return ProducerName
}

// Produce 抓取页面正文交给模型抽取；输出不是合法 JSON 数组时用更严格的提示重试一次
func (a *Adapter) Produce(ctx context.Context, region model.RegionCode, drawDate time.Time) ([]model.ProvinceRecord, error) {
	info, ok := model.LookupRegion(region)
	if !ok {
		return nil, model.ErrMalformedRecord.Wrapf("unknown region %q", region)
	}

	pageURL := minhchinh.SourceURL(a.sourceBaseURL, drawDate)
	page, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("抓取%s失败: %w", pageURL, err)
	}

	prompt := buildPrompt(info, pageURL, drawDate, pageText(page))
	raw, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	records, err := DecodeRecords(raw)
	if err != nil {
		a.logger.WithError(err).WithField("region", region).Warn("模型输出不是合法JSON，使用更严格的提示重试")
		raw, err = a.generate(ctx, prompt+strictSuffix)
		if err != nil {
			return nil, err
		}
		records, err = DecodeRecords(raw)
		if err != nil {
			return nil, err
		}
	}

	a.logger.Infof("模型抽取到%s区域%d个省份", region, len(records))
	return records, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (a *Adapter) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: a.model, Prompt: prompt, Format: "json", Stream: false})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}
	endpoint := a.host + generatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", model.ErrTransportFailure.Because(err).WithContext("url", endpoint)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.logger.Errorf("关闭响应体失败: %v", err)
		}
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.ErrTransportFailure.Because(err).WithContext("url", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		return "", model.ErrTransportFailure.
			Wrapf("ollama returned %d: %s", resp.StatusCode, truncate(string(payload), 200)).
			WithContext("url", endpoint)
	}

	var out generateResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", model.ErrTransportFailure.Because(err).WithContext("url", endpoint)
	}
	if out.Error != "" {
		return "", model.ErrTransportFailure.Wrapf("ollama error: %s", out.Error).WithContext("url", endpoint)
	}
	return out.Response, nil
}

// DecodeRecords 解析模型输出：允许外层包一层 result/content/data，也允许数组被再次编码成字符串
func DecodeRecords(raw string) ([]model.ProvinceRecord, error) {
	value := jsoniter.RawMessage(strings.TrimSpace(raw))
	for depth := 0; depth < 3; depth++ {
		if len(value) == 0 {
			break
		}
		switch value[0] {
		case '[':
			var records []model.ProvinceRecord
			if err := json.Unmarshal(value, &records); err != nil {
				return nil, model.ErrMalformedRecord.Because(err)
			}
			return records, nil
		case '{':
			var wrapper map[string]jsoniter.RawMessage
			if err := json.Unmarshal(value, &wrapper); err != nil {
				return nil, model.ErrMalformedRecord.Because(err)
			}
			inner, ok := unwrap(wrapper)
			if !ok {
				return nil, model.ErrMalformedRecord.Wrapf("expected a list of province entries, received an object")
			}
			value = inner
		case '"':
			var nested string
			if err := json.Unmarshal(value, &nested); err != nil {
				return nil, model.ErrMalformedRecord.Because(err)
			}
			value = jsoniter.RawMessage(strings.TrimSpace(nested))
		default:
			return nil, model.ErrMalformedRecord.Wrapf("model output is not JSON: %s", truncate(string(value), 80))
		}
	}
	return nil, model.ErrMalformedRecord.Wrapf("model output did not contain a list of province entries")
}

func unwrap(wrapper map[string]jsoniter.RawMessage) (jsoniter.RawMessage, bool) {
	for _, key := range []string{"result", "content", "data"} {
		if v, ok := wrapper[key]; ok && len(v) > 0 && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

// NormalizeHost 补全协议与端口，监听地址 0.0.0.0 改为本机回环
func NormalizeHost(raw string) string {
	host := strings.TrimSpace(raw)
	if host == "" {
		host = defaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	parsed, err := url.Parse(host)
	if err != nil {
		return defaultHost
	}
	hostname := parsed.Hostname()
	switch hostname {
	case "", "0.0.0.0", "::":
		hostname = "127.0.0.1"
	}
	port := parsed.Port()
	if _, err := strconv.Atoi(port); err != nil {
		port = defaultPort
	}
	return "http://" + net.JoinHostPort(hostname, port)
}

// pageText 只把页面可见文本交给模型
func pageText(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return truncate(page, maxPageRunes)
	}
	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return truncate(text, maxPageRunes)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
