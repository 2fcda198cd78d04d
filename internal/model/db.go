package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Region struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Code      string    `gorm:"column:code;type:varchar(32);uniqueIndex;not null;comment:区域编码 mien_bac/mien_trung/mien_nam"`
	Name      string    `gorm:"column:name;type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type Province struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Code      string    `gorm:"column:code;type:varchar(64);uniqueIndex;not null;comment:省份 slug"`
	Name      string    `gorm:"column:name;type:varchar(128);not null"`
	RegionID  uint64    `gorm:"column:region_id;type:bigint;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// LotteryGame 每个 (区域, 省份) 一个游戏
type LotteryGame struct {
	ID               uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	Code             string         `gorm:"column:code;type:varchar(96);uniqueIndex;not null;comment:xs_<region>_<province>"`
	Name             string         `gorm:"column:name;type:varchar(256);not null"`
	Category         string         `gorm:"column:category;type:varchar(32);not null"`
	Operator         string         `gorm:"column:operator;type:varchar(128)"`
	RegionID         uint64         `gorm:"column:region_id;type:bigint;not null;index"`
	ProvinceID       uint64         `gorm:"column:province_id;type:bigint;not null;index"`
	NumbersPerTicket int            `gorm:"column:numbers_per_ticket;type:int"`
	NumberPool       int            `gorm:"column:number_pool;type:int"`
	HasBonus         bool           `gorm:"column:has_bonus;type:boolean"`
	Schedule         datatypes.JSON `gorm:"column:schedule"`
	Metadata         datatypes.JSON `gorm:"column:metadata"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	Province *Province `gorm:"foreignKey:ProvinceID"`
}

// Draw 一次开奖；(game_id, draw_date, sequence) 在库中没有唯一约束，靠先删后插保证唯一
type Draw struct {
	ID        uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	GameID    uint64         `gorm:"column:game_id;type:bigint;not null;index:idx_draws_game_date"`
	DrawDate  time.Time      `gorm:"column:draw_date;type:date;not null;index:idx_draws_game_date"`
	Sequence  int            `gorm:"column:sequence;type:int;not null;default:1"`
	Status    string         `gorm:"column:status;type:varchar(16);not null"`
	SourceURL string         `gorm:"column:source_url;type:varchar(256)"`
	RawFeed   datatypes.JSON `gorm:"column:raw_feed"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`

	Game   *LotteryGame `gorm:"foreignKey:GameID"`
	Prizes []DrawPrize  `gorm:"foreignKey:DrawID"`
}

type DrawPrize struct {
	ID             uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	DrawID         uint64          `gorm:"column:draw_id;type:bigint;not null;index"`
	PrizeLevel     PrizeLevel      `gorm:"column:prize_level;type:varchar(16);not null"`
	PrizeOrder     int             `gorm:"column:prize_order;type:smallint;not null;default:1"`
	PrizeName      string          `gorm:"column:prize_name;type:varchar(64)"`
	RewardAmount   decimal.Decimal `gorm:"column:reward_amount;type:numeric(18,2)"`
	RewardCurrency string          `gorm:"column:reward_currency;type:varchar(8)"`

	Results []DrawResult `gorm:"foreignKey:PrizeID"`
}

// DrawResult result_numbers 以 JSON 字符串数组存储，保持顺序与前导零
type DrawResult struct {
	ID            uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	PrizeID       uint64         `gorm:"column:prize_id;type:bigint;not null;index"`
	ProvinceID    uint64         `gorm:"column:province_id;type:bigint;not null"`
	ResultNumbers datatypes.JSON `gorm:"column:result_numbers"`
	BonusNumbers  datatypes.JSON `gorm:"column:bonus_numbers"`
}

func (Region) TableName() string      { return "regions" }
func (Province) TableName() string    { return "provinces" }
func (LotteryGame) TableName() string { return "lottery_games" }
func (Draw) TableName() string        { return "draws" }
func (DrawPrize) TableName() string   { return "draw_prizes" }
func (DrawResult) TableName() string  { return "draw_results" }

// AllTables 按依赖顺序排列，供 AutoMigrate 使用
func AllTables() []interface{} {
	return []interface{}{
		&Region{},
		&Province{},
		&LotteryGame{},
		&Draw{},
		&DrawPrize{},
		&DrawResult{},
	}
}

// EncodeNumbers 号码列表序列化，nil 写成空数组
func EncodeNumbers(numbers []string) datatypes.JSON {
	if numbers == nil {
		numbers = []string{}
	}
	raw, _ := json.Marshal(numbers)
	return raw
}

// DecodeNumbers 读取 result_numbers，空值返回 nil
func DecodeNumbers(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var numbers []string
	if err := json.Unmarshal(raw, &numbers); err != nil {
		return nil, err
	}
	return numbers, nil
}
