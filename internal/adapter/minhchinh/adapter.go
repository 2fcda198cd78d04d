package minhchinh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"LotterySync/internal/adapter"
	"LotterySync/internal/config"
	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"
	"LotterySync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// ProducerName 注册表中的名称
const ProducerName = "minhchinh"

func init() {
	adapter.Register(ProducerName, NewMinhChinhAdapter)
}

// Adapter 抓取 MinhChinh 每日结果页并解析
type Adapter struct {
	baseURL string
	fetcher interfaces.PageFetcher
	parser  *Parser
	logger  *logrus.Logger
}

// NewMinhChinhAdapter 注册表使用的工厂函数
func NewMinhChinhAdapter(cfg *config.Config, logger *logrus.Logger) interfaces.RecordProducer {
	client := httpclient.NewHTTPClient(&cfg.Scraper, logger)
	fetcher := httpclient.NewPageFetcher(client, cfg.Scraper.RequestsPerSecond, logger)
	return NewAdapter(cfg.Scraper.SourceBaseURL, fetcher, logger)
}

func NewAdapter(baseURL string, fetcher interfaces.PageFetcher, logger *logrus.Logger) *Adapter {
	return &Adapter{
		baseURL: baseURL,
		fetcher: fetcher,
		parser:  NewParser(),
		logger:  logger,
	}
}

func (a *Adapter) GetName() string {
	return ProducerName
}

// Produce 抓取当日页面并解析指定区域
func (a *Adapter) Produce(ctx context.Context, region model.RegionCode, drawDate time.Time) ([]model.ProvinceRecord, error) {
	pageURL := SourceURL(a.baseURL, drawDate)
	a.logger.WithFields(logrus.Fields{"region": region, "url": pageURL}).Info("抓取开奖页面")

	page, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("抓取%s失败: %w", pageURL, err)
	}
	records, err := a.parser.Parse(page, region)
	if err != nil {
		return nil, fmt.Errorf("解析%s区域失败: %w", region, err)
	}
	a.logger.Infof("解析到%s区域%d个省份", region, len(records))
	return records, nil
}

// SourceURL MinhChinh 结果页地址，日期格式 DD-MM-YYYY
func SourceURL(baseURL string, drawDate time.Time) string {
	return fmt.Sprintf("%s/ket-qua-xo-so/%s.html", strings.TrimRight(baseURL, "/"), drawDate.Format("02-01-2006"))
}
