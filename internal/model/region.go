package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RegionCode 区域短码（mb/mt/mn）
type RegionCode string

const (
	RegionNorth   RegionCode = "mb"
	RegionCentral RegionCode = "mt"
	RegionSouth   RegionCode = "mn"
)

// RegionPriority north, central, south：看门狗检查顺序与文本渲染顺序
var RegionPriority = []RegionCode{RegionNorth, RegionCentral, RegionSouth}

// PrizeLevel 奖级枚举，与数据库 prize_level 取值一致
type PrizeLevel string

const (
	PrizeEighth      PrizeLevel = "eighth"
	PrizeSeventh     PrizeLevel = "seventh"
	PrizeSixth       PrizeLevel = "sixth"
	PrizeFifth       PrizeLevel = "fifth"
	PrizeFourth      PrizeLevel = "fourth"
	PrizeThird       PrizeLevel = "third"
	PrizeSecond      PrizeLevel = "second"
	PrizeFirst       PrizeLevel = "first"
	PrizeSpecial     PrizeLevel = "special"
	PrizeConsolation PrizeLevel = "consolation"
	PrizeJackpot     PrizeLevel = "jackpot"
	PrizeOther       PrizeLevel = "other"
)

// prizeNames 写入 draw_prizes.prize_name 的默认名称
var prizeNames = map[PrizeLevel]string{
	PrizeEighth:  "Giai tam",
	PrizeSeventh: "Giai bay",
	PrizeSixth:   "Giai sau",
	PrizeFifth:   "Giai nam",
	PrizeFourth:  "Giai tu",
	PrizeThird:   "Giai ba",
	PrizeSecond:  "Giai nhi",
	PrizeFirst:   "Giai nhat",
	PrizeSpecial: "Giai dac biet",
}

// prizeDisplayLabels 对外展示用的越南语奖级标签
var prizeDisplayLabels = map[PrizeLevel]string{
	PrizeEighth:      "Giải 8",
	PrizeSeventh:     "Giải 7",
	PrizeSixth:       "Giải 6",
	PrizeFifth:       "Giải 5",
	PrizeFourth:      "Giải 4",
	PrizeThird:       "Giải 3",
	PrizeSecond:      "Giải 2",
	PrizeFirst:       "Giải 1",
	PrizeSpecial:     "Giải Đặc Biệt",
	PrizeConsolation: "Giải Khuyến Khích",
	PrizeJackpot:     "Giải Jackpot",
	PrizeOther:       "Giải Khác",
}

// Valid 是否为已知奖级
func (p PrizeLevel) Valid() bool {
	_, ok := prizeDisplayLabels[p]
	return ok
}

// DefaultName 数据库存储的奖级名称
func (p PrizeLevel) DefaultName() string {
	if name, ok := prizeNames[p]; ok {
		return name
	}
	return cases.Title(language.Und).String(string(p))
}

// DisplayLabel 展示标签，未知奖级回退到 fallback
func (p PrizeLevel) DisplayLabel(fallback string) string {
	if label, ok := prizeDisplayLabels[p]; ok {
		return label
	}
	if fallback != "" {
		return fallback
	}
	return string(p)
}

// ProvinceOverride 人工校正的省份显示信息
type ProvinceOverride struct {
	Name     string
	Operator string
	GameCode string
	GameName string
}

// RegionInfo 区域元数据
type RegionInfo struct {
	Short          RegionCode
	Code           string // regions.code
	Name           string // ASCII 名称，写库与页面定位用
	Label          string // 越南语展示名
	DrawDays       []string
	DrawTime       string
	Timezone       string
	PrizeOrder     []PrizeLevel
	SingleProvince bool // 北部：单省份、标签/号码成对的行布局
	Overrides      map[string]ProvinceOverride
}

var southCentralOrder = []PrizeLevel{
	PrizeEighth, PrizeSeventh, PrizeSixth, PrizeFifth, PrizeFourth,
	PrizeThird, PrizeSecond, PrizeFirst, PrizeSpecial,
}

var northOrder = []PrizeLevel{
	PrizeSpecial, PrizeFirst, PrizeSecond, PrizeThird,
	PrizeFourth, PrizeFifth, PrizeSixth, PrizeSeventh,
}

var regions = map[RegionCode]RegionInfo{
	RegionNorth: {
		Short:          RegionNorth,
		Code:           "mien_bac",
		Name:           "Mien Bac",
		Label:          "Miền Bắc",
		DrawDays:       []string{"daily"},
		DrawTime:       "18:15",
		Timezone:       "Asia/Ho_Chi_Minh",
		PrizeOrder:     northOrder,
		SingleProvince: true,
		Overrides:      map[string]ProvinceOverride{},
	},
	RegionCentral: {
		Short:      RegionCentral,
		Code:       "mien_trung",
		Name:       "Mien Trung",
		Label:      "Miền Trung",
		DrawDays:   []string{"daily"},
		DrawTime:   "17:15",
		Timezone:   "Asia/Ho_Chi_Minh",
		PrizeOrder: southCentralOrder,
		Overrides:  map[string]ProvinceOverride{},
	},
	RegionSouth: {
		Short:      RegionSouth,
		Code:       "mien_nam",
		Name:       "Mien Nam",
		Label:      "Miền Nam",
		DrawDays:   []string{"daily"},
		DrawTime:   "16:15",
		Timezone:   "Asia/Ho_Chi_Minh",
		PrizeOrder: southCentralOrder,
		Overrides: map[string]ProvinceOverride{
			"tp_hcm": {Name: "TP. Ho Chi Minh", Operator: "XSKT TP.HCM"},
		},
	},
}

// LookupRegion 按短码查找区域
func LookupRegion(short RegionCode) (RegionInfo, bool) {
	info, ok := regions[short]
	return info, ok
}

// ParseRegion 校验外部输入的区域短码
func ParseRegion(raw string) (RegionCode, error) {
	code := RegionCode(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := regions[code]; !ok {
		return "", fmt.Errorf("unknown region %q (expected mb, mt or mn)", raw)
	}
	return code, nil
}

// GamePrefix 该区域游戏编码前缀，如 xs_mn_
func (r RegionInfo) GamePrefix() string {
	return "xs_" + string(r.Short) + "_"
}

// PrizeRank 奖级在区域规范顺序中的位置，不在顺序内返回 -1
func (r RegionInfo) PrizeRank(level PrizeLevel) int {
	for i, l := range r.PrizeOrder {
		if l == level {
			return i
		}
	}
	return -1
}

// RegionPriorityIndex 渲染排序使用
func RegionPriorityIndex(code RegionCode) int {
	for i, c := range RegionPriority {
		if c == code {
			return i
		}
	}
	return len(RegionPriority)
}
