package export

import (
	"strings"
	"testing"
	"time"

	"LotterySync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []model.ProvinceRecord {
	return []model.ProvinceRecord{
		{
			Code: "ben_tre", Name: "Ben Tre", Operator: "XSKT Ben Tre",
			GameCode: "xs_mn_ben_tre", GameName: "XS Mien Nam - Ben Tre",
			SourceURL: "https://kqxs.pmsa.com.vn/kqxs/2024-01-02", Sequence: 1,
			Results: []model.PrizeResult{
				{Level: model.PrizeEighth, Order: 1, Name: "Giai tam", Numbers: []string{"05"}, RewardCurrency: "VND"},
				{Level: model.PrizeSpecial, Order: 1, Name: "Giai dac biet", Numbers: []string{"012345"}, RewardCurrency: "VND"},
			},
		},
		{
			Code: "vung_tau", Name: "Vung Tau", Operator: "XSKT Vung Tau",
			GameCode: "xs_mn_vung_tau", GameName: "XS Mien Nam - Vung Tau's",
			Sequence: 1,
			Results:  []model.PrizeResult{{Level: model.PrizeFirst, Order: 1, Numbers: []string{"00987"}}},
		},
	}
}

func TestRenderSQL_Structure(t *testing.T) {
	script, err := RenderSQL(model.RegionSouth, time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC), sampleRecords(), "minhchinh")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "begin;\n"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(script), "commit;"))

	// 清理范围限定在本批次的游戏
	assert.Contains(t, script, "and g.code in ('xs_mn_ben_tre', 'xs_mn_vung_tau')")
	assert.Contains(t, script, "d.draw_date = '2024-01-02'")
	assert.Equal(t, 3, strings.Count(script, "and g.code in ("))

	assert.Contains(t, script, "values ('mien_nam', 'Mien Nam', now())")
	assert.Contains(t, script, "'draw_days', jsonb_build_array('daily')")
	assert.Contains(t, script, "'draw_time', '16:15'")
	assert.Contains(t, script, "'import_source', 'minhchinh'")

	// 号码保留前导零，JSON 内嵌在美元引用中
	assert.Contains(t, script, `"numbers":["012345"]`)
	assert.Contains(t, script, `"numbers":["00987"]`)
	assert.Contains(t, script, `"draw_date":"2024-01-02"`)
	assert.Contains(t, script, `"game_name":"XS Mien Nam - Vung Tau's"`)
	assert.Equal(t, 2, strings.Count(script, jsonTag))
}

func TestRenderSQL_Errors(t *testing.T) {
	_, err := RenderSQL(model.RegionSouth, time.Now(), nil, "minhchinh")
	assert.Error(t, err)

	_, err = RenderSQL("xx", time.Now(), sampleRecords(), "minhchinh")
	assert.Error(t, err)

	records := sampleRecords()
	records[0].Name = "evil " + jsonTag
	_, err = RenderSQL(model.RegionSouth, time.Now(), records, "minhchinh")
	assert.Error(t, err)
}

func TestRenderSQL_EscapesLiterals(t *testing.T) {
	script, err := RenderSQL(model.RegionNorth, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), []model.ProvinceRecord{{
		Code: "ha_noi", Name: "Ha Noi", GameCode: "xs_mb_o'brien",
		Results: []model.PrizeResult{{Level: model.PrizeSpecial, Order: 1, Numbers: []string{"12345"}}},
	}}, "operator's feed")
	require.NoError(t, err)
	assert.Contains(t, script, "'xs_mb_o''brien'")
	assert.Contains(t, script, "'import_source', 'operator''s feed'")
}

func TestRenderSQL_SecondSequenceSameGame(t *testing.T) {
	records := sampleRecords()[:1]
	second := records[0]
	second.Sequence = 2
	records = append(records, second)

	script, err := RenderSQL(model.RegionSouth, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), records, "minhchinh")
	require.NoError(t, err)
	assert.Contains(t, script, "and g.code in ('xs_mn_ben_tre');")
	assert.Contains(t, script, "select distinct on (ps.game_code)")
	assert.Contains(t, script, "dm.sequence = ps.sequence")
	assert.Contains(t, script, `"sequence":2`)
}
