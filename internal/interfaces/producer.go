package interfaces

import (
	"context"
	"time"

	"LotterySync/internal/model"
)

// RecordProducer 产出某区域某日的省份开奖记录（HTML 解析或 LLM 抽取）
// 返回的记录尚未规范化，由 service.NormalizeRecords 补全派生字段。
type RecordProducer interface {
	GetName() string
	Produce(ctx context.Context, region model.RegionCode, drawDate time.Time) ([]model.ProvinceRecord, error)
}

// PageFetcher GET 一个页面，返回原始 HTML
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
