package repository

import (
	"context"
	"testing"
	"time"

	"LotterySync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.AllTables()...))
	return db
}

// seed 写入一个区域、一个省份与游戏，返回游戏
func seed(t *testing.T, repo *drawRepository) (*model.Province, *model.LotteryGame) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.UpsertRegion(ctx, &model.Region{Code: "mien_nam", Name: "Mien Nam"}))
	region, err := repo.FindRegionByCode(ctx, "mien_nam")
	require.NoError(t, err)
	require.NotNil(t, region)

	require.NoError(t, repo.UpsertProvinces(ctx, []*model.Province{{Code: "ben_tre", Name: "Ben Tre", RegionID: region.ID}}))
	provinces, err := repo.ListProvincesByCodes(ctx, []string{"ben_tre"})
	require.NoError(t, err)
	require.Len(t, provinces, 1)

	require.NoError(t, repo.UpsertGames(ctx, []*model.LotteryGame{{
		Code: "xs_mn_ben_tre", Name: "XS Mien Nam - Ben Tre", Category: "regional",
		RegionID: region.ID, ProvinceID: provinces[0].ID,
	}}))
	games, err := repo.ListGamesByCodes(ctx, []string{"xs_mn_ben_tre"})
	require.NoError(t, err)
	require.Len(t, games, 1)
	return provinces[0], games[0]
}

func TestDrawRepository_UpsertsAreIdempotent(t *testing.T) {
	db := setupDB(t)
	repo := NewDrawRepository(db).(*drawRepository)
	ctx := context.Background()

	seed(t, repo)
	_, game := seed(t, repo)

	// 第二次 upsert 覆盖名称，不新增行
	require.NoError(t, repo.UpsertRegion(ctx, &model.Region{Code: "mien_nam", Name: "Mien Nam 2"}))
	region, err := repo.FindRegionByCode(ctx, "mien_nam")
	require.NoError(t, err)
	assert.Equal(t, "Mien Nam 2", region.Name)

	var count int64
	require.NoError(t, db.Model(&model.LotteryGame{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "xs_mn_ben_tre", game.Code)

	missing, err := repo.FindRegionByCode(ctx, "mien_xa")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDrawRepository_DrawLifecycle(t *testing.T) {
	db := setupDB(t)
	repo := NewDrawRepository(db).(*drawRepository)
	ctx := context.Background()
	province, game := seed(t, repo)
	drawDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertDraws(ctx, []*model.Draw{
		{GameID: game.ID, DrawDate: drawDate.Add(9 * time.Hour), Sequence: 1, Status: "completed"},
		{GameID: game.ID, DrawDate: drawDate.AddDate(0, 0, 1), Sequence: 1, Status: "completed"},
	}))
	draws, err := repo.ListDraws(ctx, drawDate, []uint64{game.ID})
	require.NoError(t, err)
	require.Len(t, draws, 1)

	require.NoError(t, repo.InsertPrizes(ctx, []*model.DrawPrize{
		{DrawID: draws[0].ID, PrizeLevel: model.PrizeSixth, PrizeOrder: 2},
		{DrawID: draws[0].ID, PrizeLevel: model.PrizeSixth, PrizeOrder: 1},
	}))
	prizes, err := repo.ListPrizesByDrawIDs(ctx, []uint64{draws[0].ID})
	require.NoError(t, err)
	require.Len(t, prizes, 2)

	require.NoError(t, repo.InsertResults(ctx, []*model.DrawResult{
		{PrizeID: prizes[1].ID, ProvinceID: province.ID, ResultNumbers: model.EncodeNumbers([]string{"0123"}), BonusNumbers: model.EncodeNumbers(nil)},
		{PrizeID: prizes[1].ID, ProvinceID: province.ID, ResultNumbers: model.EncodeNumbers([]string{"4567"}), BonusNumbers: model.EncodeNumbers(nil)},
	}))

	details, err := repo.ListDrawDetails(ctx, drawDate)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.NotNil(t, details[0].Game)
	require.NotNil(t, details[0].Game.Province)
	assert.Equal(t, "Ben Tre", details[0].Game.Province.Name)
	require.Len(t, details[0].Prizes, 2)
	assert.Equal(t, 1, details[0].Prizes[0].PrizeOrder)
	require.Len(t, details[0].Prizes[0].Results, 2)
	first, err := model.DecodeNumbers(details[0].Prizes[0].Results[0].ResultNumbers)
	require.NoError(t, err)
	assert.Equal(t, []string{"0123"}, first)

	// 按 ID 集合删除：结果 -> 奖级 -> 开奖
	require.NoError(t, repo.DeleteResultsByPrizeIDs(ctx, []uint64{prizes[0].ID, prizes[1].ID}))
	require.NoError(t, repo.DeletePrizesByDrawIDs(ctx, []uint64{draws[0].ID}))
	require.NoError(t, repo.DeleteDrawsByIDs(ctx, []uint64{draws[0].ID}))

	details, err = repo.ListDrawDetails(ctx, drawDate)
	require.NoError(t, err)
	assert.Empty(t, details)
	next, err := repo.ListDrawDetails(ctx, drawDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, next, 1)
}

func TestDrawRepository_EmptyInputsAreNoops(t *testing.T) {
	repo := NewDrawRepository(setupDB(t))
	ctx := context.Background()

	assert.NoError(t, repo.UpsertProvinces(ctx, nil))
	assert.NoError(t, repo.UpsertGames(ctx, nil))
	assert.NoError(t, repo.InsertDraws(ctx, nil))
	assert.NoError(t, repo.InsertPrizes(ctx, nil))
	assert.NoError(t, repo.InsertResults(ctx, nil))
	assert.NoError(t, repo.DeleteDrawsByIDs(ctx, nil))
	assert.NoError(t, repo.DeletePrizesByDrawIDs(ctx, nil))
	assert.NoError(t, repo.DeleteResultsByPrizeIDs(ctx, nil))

	draws, err := repo.ListDraws(ctx, time.Now(), nil)
	require.NoError(t, err)
	assert.Empty(t, draws)
}
