package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"LotterySync/internal/adapter"
	"LotterySync/internal/config"
	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// IngestResult 一次抓取写入的结果
type IngestResult struct {
	Region   model.RegionCode
	DrawDate time.Time
	Source   string // 实际产出记录的来源名称
	RunID    string
	Records  []model.ProvinceRecord
	Stats    *SyncStats // 未写库时为 nil
}

// SyncService 抓取 -> 规范化 -> 写库；主来源失败时尝试回退来源
type SyncService struct {
	producers *adapter.ProducerSet
	writer    *SyncWriter
	cfg       *config.Config
	logger    *logrus.Logger
	// 同一 (区域, 日期) 的并发抓取合并为一次
	inflight singleflight.Group
}

func NewSyncService(repo interfaces.DrawRepository, producers *adapter.ProducerSet, logger *logrus.Logger, cfg *config.Config) *SyncService {
	return &SyncService{
		producers: producers,
		writer:    NewSyncWriter(repo, logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Collect 只抓取并规范化，不写库（scrape --no-store 与 SQL 导出使用）
func (s *SyncService) Collect(ctx context.Context, region model.RegionCode, drawDate time.Time) (*IngestResult, error) {
	drawDate = model.DateOnly(drawDate)
	records, source, err := s.produce(ctx, region, drawDate)
	if err != nil {
		return nil, err
	}
	normalized, err := NormalizeRecords(records, region, drawDate, CanonicalSourceURL(s.cfg.Scraper.CanonicalBaseURL, drawDate))
	if err != nil {
		return nil, fmt.Errorf("%s规范化失败: %w", region, err)
	}
	return &IngestResult{
		Region:   region,
		DrawDate: drawDate,
		Source:   source,
		RunID:    uuid.NewString(),
		Records:  normalized,
	}, nil
}

// SyncRegion 抓取并写入某区域某日的开奖；同一键的并发调用共享一次执行
func (s *SyncService) SyncRegion(ctx context.Context, region model.RegionCode, drawDate time.Time) (*IngestResult, error) {
	drawDate = model.DateOnly(drawDate)
	key := cacheKey(region, drawDate)
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		result, err := s.Collect(ctx, region, drawDate)
		if err != nil {
			return nil, err
		}
		// 清理与插入之间被取消会留下空的一天，写库阶段不再响应取消
		stats, err := s.writer.Write(context.WithoutCancel(ctx), &SyncBatch{
			Region:   region,
			DrawDate: drawDate,
			Records:  result.Records,
			Source:   result.Source,
			RunID:    result.RunID,
		})
		if err != nil {
			return nil, fmt.Errorf("%s入库失败: %w", region, err)
		}
		result.Stats = stats
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.WithField("key", key).Debug("复用进行中的抓取结果")
	}
	return v.(*IngestResult), nil
}

func (s *SyncService) produce(ctx context.Context, region model.RegionCode, drawDate time.Time) ([]model.ProvinceRecord, string, error) {
	primary := s.producers.Primary
	records, err := primary.Produce(ctx, region, drawDate)
	if err == nil {
		return records, primary.GetName(), nil
	}

	fallback := s.producers.Fallback
	if fallback == nil {
		return nil, "", fmt.Errorf("%s抓取失败: %w", primary.GetName(), err)
	}
	s.logger.WithError(err).WithFields(logrus.Fields{
		"region":   region,
		"date":     drawDate.Format(model.DateLayout),
		"fallback": fallback.GetName(),
	}).Warn("主数据来源失败，尝试回退来源")

	records, fbErr := fallback.Produce(ctx, region, drawDate)
	if fbErr != nil {
		return nil, "", fmt.Errorf("%s抓取失败: %w (回退来源%s: %v)", primary.GetName(), err, fallback.GetName(), fbErr)
	}
	return records, fallback.GetName(), nil
}

// CanonicalSourceURL 写入 draws.source_url 的规范地址，日期格式 YYYY-MM-DD
func CanonicalSourceURL(baseURL string, drawDate time.Time) string {
	return strings.TrimRight(baseURL, "/") + "/" + drawDate.Format(model.DateLayout)
}
