package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout 开奖日期的 ISO 格式
const DateLayout = "2006-01-02"

// DateOnly 截断为 UTC 零点，数据库中 draw_date 与缓存键统一使用该值
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PrizeResult 单个奖级的开奖号码
type PrizeResult struct {
	Level          PrizeLevel       `json:"prize_level"`
	Order          int              `json:"prize_order"`
	Name           string           `json:"prize_name"`
	Numbers        []string         `json:"numbers"` // 保持原样的号码字符串（含前导零）
	RewardAmount   *decimal.Decimal `json:"reward_amount,omitempty"`
	RewardCurrency string           `json:"reward_currency,omitempty"`
}

// ProvinceRecord 规范化的省份开奖记录
// HTML 解析器与 LLM 抽取器都产出该结构，写库前经过 NormalizeRecords 补全派生字段。
type ProvinceRecord struct {
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Operator  string        `json:"operator,omitempty"`
	GameCode  string        `json:"game_code,omitempty"`
	GameName  string        `json:"game_name,omitempty"`
	SourceURL string        `json:"source_url,omitempty"`
	DrawDate  time.Time     `json:"-"`
	Sequence  int           `json:"sequence,omitempty"`
	Results   []PrizeResult `json:"results"`
}

// PrizeSummary 对外展示的奖级
type PrizeSummary struct {
	Label   string     `json:"label"`
	Level   PrizeLevel `json:"level"`
	Numbers []string   `json:"numbers"`
}

// DrawSummary 对外展示的一期开奖（缓存中保存的就是该结构）
type DrawSummary struct {
	Region       RegionCode     `json:"region"`
	RegionLabel  string         `json:"region_label"`
	ProvinceCode string         `json:"province_code,omitempty"`
	ProvinceName string         `json:"province_name"`
	Operator     string         `json:"operator,omitempty"`
	GameCode     string         `json:"game_code,omitempty"`
	GameName     string         `json:"game_name,omitempty"`
	Sequence     int            `json:"sequence"`
	Prizes       []PrizeSummary `json:"prizes"`
	SourceURL    string         `json:"source_url,omitempty"`
}
