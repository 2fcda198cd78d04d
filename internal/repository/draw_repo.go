package repository

import (
	"context"
	"errors"
	"time"

	"LotterySync/internal/interfaces"
	"LotterySync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type drawRepository struct {
	db *gorm.DB
}

func NewDrawRepository(db *gorm.DB) interfaces.DrawRepository {
	return &drawRepository{db: db}
}

func (r *drawRepository) UpsertRegion(ctx context.Context, region *model.Region) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(region).Error
}

func (r *drawRepository) FindRegionByCode(ctx context.Context, code string) (*model.Region, error) {
	var region model.Region
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&region).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &region, nil
}

func (r *drawRepository) UpsertProvinces(ctx context.Context, provinces []*model.Province) error {
	if len(provinces) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "region_id"}),
	}).Create(&provinces).Error
}

func (r *drawRepository) ListProvincesByCodes(ctx context.Context, codes []string) ([]*model.Province, error) {
	var provinces []*model.Province
	if len(codes) == 0 {
		return provinces, nil
	}
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&provinces).Error; err != nil {
		return nil, err
	}
	return provinces, nil
}

func (r *drawRepository) UpsertGames(ctx context.Context, games []*model.LotteryGame) error {
	if len(games) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "operator", "region_id", "province_id",
			"numbers_per_ticket", "number_pool", "has_bonus", "schedule", "metadata", "updated_at",
		}),
	}).Create(&games).Error
}

func (r *drawRepository) ListGamesByCodes(ctx context.Context, codes []string) ([]*model.LotteryGame, error) {
	var games []*model.LotteryGame
	if len(codes) == 0 {
		return games, nil
	}
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

// ListDraws 某日指定游戏的开奖（不含关联）
func (r *drawRepository) ListDraws(ctx context.Context, drawDate time.Time, gameIDs []uint64) ([]*model.Draw, error) {
	var draws []*model.Draw
	if len(gameIDs) == 0 {
		return draws, nil
	}
	if err := r.db.WithContext(ctx).
		Where("draw_date = ? AND game_id IN ?", model.DateOnly(drawDate), gameIDs).
		Order("id").
		Find(&draws).Error; err != nil {
		return nil, err
	}
	return draws, nil
}

func (r *drawRepository) ListPrizesByDrawIDs(ctx context.Context, drawIDs []uint64) ([]*model.DrawPrize, error) {
	var prizes []*model.DrawPrize
	if len(drawIDs) == 0 {
		return prizes, nil
	}
	if err := r.db.WithContext(ctx).Where("draw_id IN ?", drawIDs).Order("id").Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

func (r *drawRepository) DeleteResultsByPrizeIDs(ctx context.Context, prizeIDs []uint64) error {
	if len(prizeIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("prize_id IN ?", prizeIDs).Delete(&model.DrawResult{}).Error
}

func (r *drawRepository) DeletePrizesByDrawIDs(ctx context.Context, drawIDs []uint64) error {
	if len(drawIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("draw_id IN ?", drawIDs).Delete(&model.DrawPrize{}).Error
}

func (r *drawRepository) DeleteDrawsByIDs(ctx context.Context, drawIDs []uint64) error {
	if len(drawIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", drawIDs).Delete(&model.Draw{}).Error
}

func (r *drawRepository) InsertDraws(ctx context.Context, draws []*model.Draw) error {
	if len(draws) == 0 {
		return nil
	}
	for _, d := range draws {
		d.DrawDate = model.DateOnly(d.DrawDate)
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&draws).Error
}

func (r *drawRepository) InsertPrizes(ctx context.Context, prizes []*model.DrawPrize) error {
	if len(prizes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&prizes).Error
}

func (r *drawRepository) InsertResults(ctx context.Context, results []*model.DrawResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&results).Error
}

// ListDrawDetails 读路径：游戏前缀过滤交给调用方（下划线在 LIKE 中是通配符）
func (r *drawRepository) ListDrawDetails(ctx context.Context, drawDate time.Time) ([]*model.Draw, error) {
	var draws []*model.Draw
	err := r.db.WithContext(ctx).
		Preload("Game.Province").
		Preload("Prizes", func(db *gorm.DB) *gorm.DB {
			return db.Order("prize_order, id")
		}).
		Preload("Prizes.Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		Where("draw_date = ?", model.DateOnly(drawDate)).
		Order("id").
		Find(&draws).Error
	if err != nil {
		return nil, err
	}
	return draws, nil
}
