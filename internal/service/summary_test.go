package service

import (
	"strings"
	"testing"

	"LotterySync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func prize(level model.PrizeLevel, order int, numbers ...[]string) model.DrawPrize {
	p := model.DrawPrize{PrizeLevel: level, PrizeOrder: order, PrizeName: level.DefaultName()}
	for _, n := range numbers {
		p.Results = append(p.Results, model.DrawResult{ResultNumbers: model.EncodeNumbers(n)})
	}
	return p
}

func TestBuildSummaries_OrdersPrizesAndDraws(t *testing.T) {
	draws := []*model.Draw{
		{
			Sequence: 1,
			Game: &model.LotteryGame{
				Code: "xs_mn_tien_giang", Name: "XS Mien Nam - Tien Giang", Operator: "XSKT Tien Giang",
				Province: &model.Province{Code: "tien_giang", Name: "Tien Giang"},
			},
			Prizes: []model.DrawPrize{
				prize(model.PrizeSpecial, 1, []string{"012345"}),
				prize(model.PrizeEighth, 1, []string{"05"}),
				prize(model.PrizeSixth, 2, []string{"3333"}),
				prize(model.PrizeSixth, 1, []string{"1111"}, []string{"2222"}),
				prize(model.PrizeJackpot, 1, []string{"x"}),
			},
		},
		{
			Sequence: 1,
			Game: &model.LotteryGame{
				Code: "xs_mn_ben_tre", Name: "XS Mien Nam - Ben Tre",
				Metadata: datatypes.JSON(`{"province_code":"ben_tre"}`),
			},
			Prizes: []model.DrawPrize{prize(model.PrizeFirst, 1, nil)},
		},
	}

	out := BuildSummaries(draws, model.RegionSouth)
	require.Len(t, out, 2)

	// 按 (sequence, province_name) 排序；没有省份关联时回退到游戏名称与 metadata
	tg := out[0]
	bt := out[1]
	assert.Equal(t, "XS Mien Nam - Ben Tre", bt.ProvinceName)
	assert.Equal(t, "ben_tre", bt.ProvinceCode)
	assert.Equal(t, []string{}, bt.Prizes[0].Numbers)

	assert.Equal(t, "Tien Giang", tg.ProvinceName)
	assert.Equal(t, "tien_giang", tg.ProvinceCode)
	assert.Equal(t, "Miền Nam", tg.RegionLabel)
	require.Len(t, tg.Prizes, 4)
	assert.Equal(t, []model.PrizeLevel{model.PrizeEighth, model.PrizeSixth, model.PrizeSixth, model.PrizeSpecial},
		[]model.PrizeLevel{tg.Prizes[0].Level, tg.Prizes[1].Level, tg.Prizes[2].Level, tg.Prizes[3].Level})
	assert.Equal(t, []string{"1111", "2222"}, tg.Prizes[1].Numbers)
	assert.Equal(t, []string{"3333"}, tg.Prizes[2].Numbers)
	assert.Equal(t, "Giải Đặc Biệt", tg.Prizes[3].Label)
	assert.Equal(t, "Giải 8", tg.Prizes[0].Label)
}

func TestRenderSummaryText(t *testing.T) {
	draws := []model.DrawSummary{
		{
			Region: model.RegionSouth, RegionLabel: "Miền Nam", ProvinceName: "Ben Tre", Sequence: 1,
			GameCode: "xs_mn_ben_tre", Operator: "XSKT Ben Tre",
			Prizes: []model.PrizeSummary{{Label: "Giải 8", Numbers: []string{"05"}}, {Label: "Giải 7", Numbers: []string{}}},
		},
		{
			Region: model.RegionNorth, RegionLabel: "Miền Bắc", ProvinceName: "Ha Noi", Sequence: 1,
			Prizes: []model.PrizeSummary{{Label: "Giải Đặc Biệt", Numbers: []string{"01234", "56789"}}},
		},
	}

	text := RenderSummaryText(day("2024-01-05"), "", draws)
	expected := strings.Join([]string{
		"🎯 Kết quả Xổ Số 3 Miền – 05/01/2024",
		"",
		"Miền Bắc – Ha Noi",
		"Giải Đặc Biệt: 01234 – 56789",
		"",
		"Miền Nam – Ben Tre (MN BEN TRE – XSKT Ben Tre)",
		"Giải 8: 05",
		"Giải 7: Đang cập nhật",
	}, "\n")
	assert.Equal(t, expected, text)

	single := RenderSummaryText(day("2024-01-05"), model.RegionSouth, draws[:1])
	assert.True(t, strings.HasPrefix(single, "🎯 Kết quả Xổ Số Miền Nam – 05/01/2024\n\nBen Tre (MN BEN TRE"))
}

func TestRenderSummaryText_NoData(t *testing.T) {
	assert.Equal(t, "🎯 Chưa có dữ liệu kết quả xổ số Miền Trung cho ngày 01/02/2024.",
		RenderSummaryText(day("2024-02-01"), model.RegionCentral, nil))
	assert.Equal(t, "🎯 Chưa có dữ liệu kết quả xổ số 3 Miền cho ngày 01/02/2024.",
		RenderSummaryText(day("2024-02-01"), "", nil))
}

func TestFormatGameCode(t *testing.T) {
	assert.Equal(t, "MN BEN TRE", FormatGameCode("xs_mn_ben_tre"))
	assert.Equal(t, "CUSTOM", FormatGameCode("custom"))
	assert.Equal(t, "", FormatGameCode(""))
}
