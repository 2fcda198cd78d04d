package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	gameCategory     = "regional"
	numbersPerTicket = 6
	numberPool       = 10
	drawStatusDone   = "completed"
	importedVia      = "automation"
	defaultGameNotes = "Imported from MinhChinh daily results"
)

// SyncBatch 一次写入的输入：某区域某日已规范化的记录
type SyncBatch struct {
	Region   model.RegionCode
	DrawDate time.Time
	Records  []model.ProvinceRecord
	Source   string // raw_feed.import_source
	RunID    string
}

// SyncStats 本次写入的行数
type SyncStats struct {
	Draws   int `json:"draws"`
	Prizes  int `json:"prizes"`
	Results int `json:"results"`
}

// SyncWriter 幂等写入：先 upsert 参考数据，再按 (游戏, 日期) 级联删除旧开奖并重新插入。
// 每一步写入后都回查获取 ID，不依赖存储返回的自增值。
type SyncWriter struct {
	repo   interfaces.DrawRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewSyncWriter(repo interfaces.DrawRepository, logger *logrus.Logger) *SyncWriter {
	return &SyncWriter{repo: repo, logger: logger, now: time.Now}
}

type drawKey struct {
	gameCode string
	sequence int
}

type prizeKey struct {
	drawID uint64
	level  model.PrizeLevel
	order  int
}

// Write 七个步骤顺序执行；任一步回查缺少刚写入的标识即返回 CONSISTENCY_BREAK，不重试
func (w *SyncWriter) Write(ctx context.Context, batch *SyncBatch) (*SyncStats, error) {
	info, ok := model.LookupRegion(batch.Region)
	if !ok {
		return nil, model.ErrMalformedRecord.Wrapf("unknown region %q", batch.Region)
	}
	drawDate := model.DateOnly(batch.DrawDate)
	stats := &SyncStats{}
	if len(batch.Records) == 0 {
		w.logger.WithFields(logrus.Fields{"region": batch.Region, "date": drawDate.Format(model.DateLayout)}).Warn("没有需要写入的记录")
		return stats, nil
	}

	// 1. 区域
	if err := w.repo.UpsertRegion(ctx, &model.Region{Code: info.Code, Name: info.Name}); err != nil {
		return nil, fmt.Errorf("upsert区域失败: %w", err)
	}
	region, err := w.repo.FindRegionByCode(ctx, info.Code)
	if err != nil {
		return nil, fmt.Errorf("查询区域失败: %w", err)
	}
	if region == nil {
		return nil, model.ErrConsistencyBreak.Wrapf("region %s missing after upsert", info.Code)
	}

	// 2. 省份
	provinceIDs, err := w.syncProvinces(ctx, batch.Records, region.ID)
	if err != nil {
		return nil, err
	}

	// 3. 游戏
	gameIDs, err := w.syncGames(ctx, batch.Records, info, region.ID, provinceIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(gameIDs))
	codeByGameID := make(map[uint64]string, len(gameIDs))
	for code, id := range gameIDs {
		ids = append(ids, id)
		codeByGameID[id] = code
	}

	// 4. 级联删除旧数据：结果 -> 奖级 -> 开奖
	if err := w.purgeDraws(ctx, drawDate, ids); err != nil {
		return nil, err
	}

	// 5. 插入开奖并回查
	drawIDs, err := w.insertDraws(ctx, batch, drawDate, gameIDs, codeByGameID, ids)
	if err != nil {
		return nil, err
	}
	stats.Draws = len(drawIDs)

	// 6. 插入奖级并回查
	prizeIDs, err := w.insertPrizes(ctx, batch.Records, drawIDs)
	if err != nil {
		return nil, err
	}
	stats.Prizes = len(prizeIDs)

	// 7. 插入号码
	results := make([]*model.DrawResult, 0, len(prizeIDs))
	for _, record := range batch.Records {
		drawID := drawIDs[drawKey{record.GameCode, record.Sequence}]
		for _, r := range record.Results {
			prizeID, ok := prizeIDs[prizeKey{drawID, r.Level, r.Order}]
			if !ok {
				return nil, model.ErrConsistencyBreak.
					Wrapf("missing prize entry for draw %d level %s order %d", drawID, r.Level, r.Order)
			}
			results = append(results, &model.DrawResult{
				PrizeID:       prizeID,
				ProvinceID:    provinceIDs[record.Code],
				ResultNumbers: model.EncodeNumbers(r.Numbers),
				BonusNumbers:  model.EncodeNumbers(nil),
			})
		}
	}
	if err := w.repo.InsertResults(ctx, results); err != nil {
		return nil, fmt.Errorf("插入开奖号码失败: %w", err)
	}
	stats.Results = len(results)

	w.logger.WithFields(logrus.Fields{
		"region":  batch.Region,
		"date":    drawDate.Format(model.DateLayout),
		"draws":   stats.Draws,
		"prizes":  stats.Prizes,
		"results": stats.Results,
	}).Info("开奖数据写入完成")
	return stats, nil
}

func (w *SyncWriter) syncProvinces(ctx context.Context, records []model.ProvinceRecord, regionID uint64) (map[string]uint64, error) {
	rows := make([]*model.Province, 0, len(records))
	codes := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		rows = append(rows, &model.Province{Code: r.Code, Name: r.Name, RegionID: regionID})
		codes = append(codes, r.Code)
	}
	if err := w.repo.UpsertProvinces(ctx, rows); err != nil {
		return nil, fmt.Errorf("upsert省份失败: %w", err)
	}

	existing, err := w.repo.ListProvincesByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("查询省份失败: %w", err)
	}
	ids := make(map[string]uint64, len(existing))
	for _, p := range existing {
		ids[p.Code] = p.ID
	}
	for _, code := range codes {
		if _, ok := ids[code]; !ok {
			return nil, model.ErrConsistencyBreak.Wrapf("province %s missing after upsert", code)
		}
	}
	return ids, nil
}

func (w *SyncWriter) syncGames(ctx context.Context, records []model.ProvinceRecord, info model.RegionInfo, regionID uint64, provinceIDs map[string]uint64) (map[string]uint64, error) {
	schedule, err := json.Marshal(map[string]interface{}{
		"draw_days": info.DrawDays,
		"draw_time": info.DrawTime,
		"timezone":  info.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化schedule失败: %w", err)
	}

	rows := make([]*model.LotteryGame, 0, len(records))
	codes := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.GameCode] {
			continue
		}
		seen[r.GameCode] = true
		metadata, err := json.Marshal(map[string]string{"province_code": r.Code, "notes": defaultGameNotes})
		if err != nil {
			return nil, fmt.Errorf("序列化metadata失败: %w", err)
		}
		rows = append(rows, &model.LotteryGame{
			Code:             r.GameCode,
			Name:             r.GameName,
			Category:         gameCategory,
			Operator:         r.Operator,
			RegionID:         regionID,
			ProvinceID:       provinceIDs[r.Code],
			NumbersPerTicket: numbersPerTicket,
			NumberPool:       numberPool,
			HasBonus:         false,
			Schedule:         schedule,
			Metadata:         metadata,
		})
		codes = append(codes, r.GameCode)
	}
	if err := w.repo.UpsertGames(ctx, rows); err != nil {
		return nil, fmt.Errorf("upsert游戏失败: %w", err)
	}

	existing, err := w.repo.ListGamesByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("查询游戏失败: %w", err)
	}
	ids := make(map[string]uint64, len(existing))
	for _, g := range existing {
		ids[g.Code] = g.ID
	}
	for _, code := range codes {
		if _, ok := ids[code]; !ok {
			return nil, model.ErrConsistencyBreak.Wrapf("game %s missing after upsert", code)
		}
	}
	return ids, nil
}

func (w *SyncWriter) purgeDraws(ctx context.Context, drawDate time.Time, gameIDs []uint64) error {
	existing, err := w.repo.ListDraws(ctx, drawDate, gameIDs)
	if err != nil {
		return fmt.Errorf("查询已有开奖失败: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}
	drawIDs := make([]uint64, 0, len(existing))
	for _, d := range existing {
		drawIDs = append(drawIDs, d.ID)
	}
	prizes, err := w.repo.ListPrizesByDrawIDs(ctx, drawIDs)
	if err != nil {
		return fmt.Errorf("查询已有奖级失败: %w", err)
	}
	prizeIDs := make([]uint64, 0, len(prizes))
	for _, p := range prizes {
		prizeIDs = append(prizeIDs, p.ID)
	}

	if err := w.repo.DeleteResultsByPrizeIDs(ctx, prizeIDs); err != nil {
		return fmt.Errorf("删除旧开奖号码失败: %w", err)
	}
	if err := w.repo.DeletePrizesByDrawIDs(ctx, drawIDs); err != nil {
		return fmt.Errorf("删除旧奖级失败: %w", err)
	}
	if err := w.repo.DeleteDrawsByIDs(ctx, drawIDs); err != nil {
		return fmt.Errorf("删除旧开奖失败: %w", err)
	}
	w.logger.Debugf("已清理%s的%d条旧开奖", drawDate.Format(model.DateLayout), len(drawIDs))
	return nil
}

func (w *SyncWriter) insertDraws(ctx context.Context, batch *SyncBatch, drawDate time.Time, gameIDs map[string]uint64, codeByGameID map[uint64]string, ids []uint64) (map[drawKey]uint64, error) {
	createdAt := w.now().UTC().Format(time.RFC3339)
	rows := make([]*model.Draw, 0, len(batch.Records))
	for _, r := range batch.Records {
		feed, err := json.Marshal(map[string]string{
			"import_source": batch.Source,
			"imported_via":  importedVia,
			"created_at":    createdAt,
			"province_code": r.Code,
			"draw_date":     drawDate.Format(model.DateLayout),
			"run_id":        batch.RunID,
		})
		if err != nil {
			return nil, fmt.Errorf("序列化raw_feed失败: %w", err)
		}
		rows = append(rows, &model.Draw{
			GameID:    gameIDs[r.GameCode],
			DrawDate:  drawDate,
			Sequence:  r.Sequence,
			Status:    drawStatusDone,
			SourceURL: r.SourceURL,
			RawFeed:   feed,
		})
	}
	if err := w.repo.InsertDraws(ctx, rows); err != nil {
		return nil, fmt.Errorf("插入开奖失败: %w", err)
	}

	inserted, err := w.repo.ListDraws(ctx, drawDate, ids)
	if err != nil {
		return nil, fmt.Errorf("回查开奖失败: %w", err)
	}
	drawIDs := make(map[drawKey]uint64, len(inserted))
	for _, d := range inserted {
		// 按 id 升序，同键保留最新一条
		drawIDs[drawKey{codeByGameID[d.GameID], d.Sequence}] = d.ID
	}
	for _, r := range batch.Records {
		if _, ok := drawIDs[drawKey{r.GameCode, r.Sequence}]; !ok {
			return nil, model.ErrConsistencyBreak.
				Wrapf("draw for game %s sequence %d missing after insert", r.GameCode, r.Sequence)
		}
	}
	return drawIDs, nil
}

func (w *SyncWriter) insertPrizes(ctx context.Context, records []model.ProvinceRecord, drawIDs map[drawKey]uint64) (map[prizeKey]uint64, error) {
	var rows []*model.DrawPrize
	idSet := make(map[uint64]bool, len(drawIDs))
	ids := make([]uint64, 0, len(drawIDs))
	for _, record := range records {
		drawID := drawIDs[drawKey{record.GameCode, record.Sequence}]
		if !idSet[drawID] {
			idSet[drawID] = true
			ids = append(ids, drawID)
		}
		for _, r := range record.Results {
			amount := decimal.Zero
			if r.RewardAmount != nil {
				amount = *r.RewardAmount
			}
			currency := r.RewardCurrency
			if currency == "" {
				currency = defaultCurrency
			}
			rows = append(rows, &model.DrawPrize{
				DrawID:         drawID,
				PrizeLevel:     r.Level,
				PrizeOrder:     r.Order,
				PrizeName:      r.Name,
				RewardAmount:   amount,
				RewardCurrency: currency,
			})
		}
	}
	if err := w.repo.InsertPrizes(ctx, rows); err != nil {
		return nil, fmt.Errorf("插入奖级失败: %w", err)
	}

	inserted, err := w.repo.ListPrizesByDrawIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("回查奖级失败: %w", err)
	}
	prizeIDs := make(map[prizeKey]uint64, len(inserted))
	for _, p := range inserted {
		prizeIDs[prizeKey{p.DrawID, p.PrizeLevel, p.PrizeOrder}] = p.ID
	}
	return prizeIDs, nil
}
