package interfaces

import (
	"context"
	"time"

	"LotterySync/internal/model"
)

// DrawRepository 关系存储的 select/upsert/insert/delete 操作
// 每次调用独立提交，没有跨调用事务；写入后依赖回查获取自增 ID。
type DrawRepository interface {
	UpsertRegion(ctx context.Context, region *model.Region) error
	FindRegionByCode(ctx context.Context, code string) (*model.Region, error)

	UpsertProvinces(ctx context.Context, provinces []*model.Province) error
	ListProvincesByCodes(ctx context.Context, codes []string) ([]*model.Province, error)

	UpsertGames(ctx context.Context, games []*model.LotteryGame) error
	ListGamesByCodes(ctx context.Context, codes []string) ([]*model.LotteryGame, error)

	ListDraws(ctx context.Context, drawDate time.Time, gameIDs []uint64) ([]*model.Draw, error)
	ListPrizesByDrawIDs(ctx context.Context, drawIDs []uint64) ([]*model.DrawPrize, error)

	DeleteResultsByPrizeIDs(ctx context.Context, prizeIDs []uint64) error
	DeletePrizesByDrawIDs(ctx context.Context, drawIDs []uint64) error
	DeleteDrawsByIDs(ctx context.Context, drawIDs []uint64) error

	InsertDraws(ctx context.Context, draws []*model.Draw) error
	InsertPrizes(ctx context.Context, prizes []*model.DrawPrize) error
	InsertResults(ctx context.Context, results []*model.DrawResult) error

	// ListDrawDetails 读路径：某日全部开奖，预加载游戏、省份、奖级与号码
	ListDrawDetails(ctx context.Context, drawDate time.Time) ([]*model.Draw, error)
}
