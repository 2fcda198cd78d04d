package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// RegionSyncer 按需抓取写入某区域某日（SyncService 实现）
type RegionSyncer interface {
	SyncRegion(ctx context.Context, region model.RegionCode, drawDate time.Time) (*IngestResult, error)
}

// Resolution 回退查询结果；Draws 只包含 Date 这一天有数据的区域
type Resolution struct {
	RequestedDate time.Time
	Date          time.Time
	Offset        int
	Draws         map[model.RegionCode][]model.DrawSummary
}

// Summaries 按区域优先级展开
func (r *Resolution) Summaries() []model.DrawSummary {
	out := []model.DrawSummary{}
	for _, region := range model.RegionPriority {
		out = append(out, r.Draws[region]...)
	}
	return out
}

// regionState 单次解析中每个区域的状态
type regionState int

const (
	stateUnchecked regionState = iota
	stateHasData
	stateEmptyNotAttempted
	stateEmptyAttempted
)

// RetrievalService 缓存优先的读取与按日期回退
type RetrievalService struct {
	repo   interfaces.DrawRepository
	cache  *DrawCache
	syncer RegionSyncer
	logger *logrus.Logger
	loads  singleflight.Group
}

func NewRetrievalService(repo interfaces.DrawRepository, cache *DrawCache, syncer RegionSyncer, logger *logrus.Logger) *RetrievalService {
	return &RetrievalService{repo: repo, cache: cache, syncer: syncer, logger: logger}
}

// FetchRegion 缓存命中直接返回；未命中读库并缓存（空结果也缓存），读库期间被失效的结果不缓存
func (s *RetrievalService) FetchRegion(ctx context.Context, region model.RegionCode, drawDate time.Time) ([]model.DrawSummary, error) {
	info, ok := model.LookupRegion(region)
	if !ok {
		return nil, model.ErrMalformedRecord.Wrapf("unknown region %q", region)
	}
	drawDate = model.DateOnly(drawDate)
	if cached, ok := s.cache.Get(region, drawDate); ok {
		return cached, nil
	}

	// 失效之后到达的调用不复用失效之前开始的读库
	gen := s.cache.Generation(region, drawDate)
	key := cacheKey(region, drawDate) + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		// 共享的读库不跟随第一个调用方取消
		draws, err := s.repo.ListDrawDetails(context.WithoutCancel(ctx), drawDate)
		if err != nil {
			return nil, model.ErrTransportFailure.Because(err).
				WithContext("region", string(region), "date", drawDate.Format(model.DateLayout))
		}
		prefix := info.GamePrefix()
		matched := make([]*model.Draw, 0, len(draws))
		for _, d := range draws {
			if d.Game == nil || !strings.HasPrefix(strings.ToLower(d.Game.Code), prefix) {
				continue
			}
			matched = append(matched, d)
		}
		summaries := BuildSummaries(matched, region)
		if !s.cache.SetIfCurrent(region, drawDate, summaries, gen) {
			s.logger.WithFields(logrus.Fields{
				"region": region,
				"date":   drawDate.Format(model.DateLayout),
			}).Debug("读库期间缓存已失效，结果不写入缓存")
		}
		return summaries, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneSummaries(v.([]model.DrawSummary)), nil
}

// TriggerSync 抓取前后都让缓存失效，不论成功与否
func (s *RetrievalService) TriggerSync(ctx context.Context, region model.RegionCode, drawDate time.Time) (*IngestResult, error) {
	drawDate = model.DateOnly(drawDate)
	s.cache.Invalidate(region, drawDate)
	defer s.cache.Invalidate(region, drawDate)

	s.logger.WithFields(logrus.Fields{"region": region, "date": drawDate.Format(model.DateLayout)}).Info("触发按需抓取")
	return s.syncer.SyncRegion(ctx, region, drawDate)
}

// Resolve 从 requested 开始向前最多回退 window 天，返回第一个至少有一个区域有数据的日期。
// 同一次解析中不同区域的日期不会混用；只在 offset 0 对每个空区域触发一次抓取并重新评估当天。
func (s *RetrievalService) Resolve(ctx context.Context, requested time.Time, regions []model.RegionCode, window int) (*Resolution, error) {
	requested = model.DateOnly(requested)
	if window < 0 {
		window = 0
	}
	if len(regions) == 0 {
		regions = model.RegionPriority
	}

	states := make(map[model.RegionCode]regionState, len(regions))
	offset := 0
	for offset <= window {
		candidate := requested.AddDate(0, 0, -offset)
		found := make(map[model.RegionCode][]model.DrawSummary)

		for _, region := range regions {
			draws, err := s.FetchRegion(ctx, region, candidate)
			if err != nil {
				return nil, fmt.Errorf("读取%s %s失败: %w", region, candidate.Format(model.DateLayout), err)
			}
			if len(draws) > 0 {
				found[region] = draws
				states[region] = stateHasData
			} else if states[region] != stateEmptyAttempted {
				states[region] = stateEmptyNotAttempted
			}
		}

		if len(found) > 0 {
			return &Resolution{RequestedDate: requested, Date: candidate, Offset: offset, Draws: found}, nil
		}

		if offset == 0 {
			attempted := false
			for _, region := range regions {
				if states[region] != stateEmptyNotAttempted {
					continue
				}
				states[region] = stateEmptyAttempted
				attempted = true
				if _, err := s.TriggerSync(ctx, region, candidate); err != nil {
					// 失败视为仍然缺失，继续回退
					s.logger.WithError(err).WithFields(logrus.Fields{
						"region": region,
						"date":   candidate.Format(model.DateLayout),
					}).Warn("按需抓取失败")
				}
			}
			if attempted {
				continue
			}
		}
		offset++
	}

	return nil, model.ErrNotFound.WithContext(
		"requested_date", requested.Format(model.DateLayout),
		"fallback_days", window,
	)
}
