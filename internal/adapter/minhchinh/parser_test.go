package minhchinh

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"LotterySync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var southRows = []struct {
	class string
	cells [3]string
}{
	{"ten_giai_tam", [3]string{`<div data="05">05</div>`, `<div data="71">71</div>`, `09`}},
	{"ten_giai_bay", [3]string{`<div data="012">012</div>`, `<div data="">345</div>`, `678`}},
	{"ten_giai_sau", [3]string{`1234 5678 0009`, `<div data="1111"></div><div data="2222"></div><div data="3333"></div>`, `4444 5555 6666`}},
	{"ten_giai_nam", [3]string{`0101`, `0202`, `0303`}},
	{"ten_giai_tu", [3]string{`11111 22222 33333 44444 55555 66666 07777`, `12345 23456 34567 45678 56789 67890 78901`, `00001 00002 00003 00004 00005 00006 00007`}},
	{"ten_giai_ba", [3]string{`12121 34343`, `56565 78787`, `90909 01010`}},
	{"ten_giai_nhi", [3]string{`45454`, `67676`, `89898`}},
	{"ten_giai_nhat", [3]string{`13579`, `24680`, `11223`}},
	{"ten_giai_dac_biet", [3]string{`<div data="012345">012345</div>`, `987654`, `000123`}},
}

func southPage(skipClass string) string {
	var b strings.Builder
	b.WriteString(`<html><body>
<div class="box_kqxs"><div class="title">Xổ số Miền Bắc</div><table><tr><td>unrelated</td></tr></table></div>
<div class="box_kqxs"><div class="title">Kết quả xổ số Miền Nam</div>
<table class="bkqtinhmiennam">
<tr>
  <td class="thu"></td>
  <td class="tentinh"><span class="read-result" data="XSTG|tien-giang"></span><a href="/xo-so-tien-giang">Tiền Giang</a></td>
  <td class="tentinh"><a href="/xo-so-tp-hcm">TP. HCM</a></td>
  <td class="tentinh">Đà Lạt</td>
</tr>
<tr><td class="spacer"></td><td></td><td></td><td></td></tr>
`)
	for _, row := range southRows {
		if row.class == skipClass {
			continue
		}
		fmt.Fprintf(&b, "<tr><td class=\"giai %s\">label</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			row.class, row.cells[0], row.cells[1], row.cells[2])
	}
	b.WriteString(`</table></div></body></html>`)
	return b.String()
}

func northPage() string {
	return `<html><body>
<div class="box_kqxs"><div class="title">Kết quả xổ số Miền Bắc</div>
<table>
<tr><td class="tentinh" colspan="2"><span class="read-result" data="XSMB|ha-noi"></span>Hà Nội</td></tr>
<tr><td class="ten_giai_dac_biet">ĐB</td><td><div data="01234">01234</div></td></tr>
<tr><td class="ten_giai_nhat">G1</td><td>56789</td></tr>
<tr><td class="ten_giai_nhi">G2</td><td>11111 22222</td></tr>
<tr><td class="ten_giai_ba">G3</td><td>33333 44444 55555 66666 77777 88888</td></tr>
<tr><td class="ten_giai_tu">G4</td><td>1234 2345 3456 4567</td></tr>
<tr><td class="ten_giai_nam">G5</td><td>0001 0002 0003 0004 0005 0006</td></tr>
<tr><td class="ten_giai_sau">G6</td><td>123 456 789</td></tr>
<tr><td class="ten_giai_bay">G7</td><td>01 23 45 67</td></tr>
<tr><td class="ten_giai_tam">G8</td><td>99</td></tr>
<tr><td class="ten_giai_nhat">note</td><td></td></tr>
</table></div></body></html>`
}

func levels(results []model.PrizeResult) []model.PrizeLevel {
	out := make([]model.PrizeLevel, 0, len(results))
	for _, r := range results {
		out = append(out, r.Level)
	}
	return out
}

func TestParse_MultiProvince(t *testing.T) {
	records, err := NewParser().Parse(southPage(""), model.RegionSouth)
	require.NoError(t, err)
	require.Len(t, records, 3)

	info, _ := model.LookupRegion(model.RegionSouth)
	for _, r := range records {
		assert.Equal(t, info.PrizeOrder, levels(r.Results), r.Code)
		for _, res := range r.Results {
			assert.Equal(t, 1, res.Order)
			assert.NotEmpty(t, res.Numbers)
		}
	}

	// 省份标识：data 属性 > 链接 > 名称 slug
	assert.Equal(t, "tien_giang", records[0].Code)
	assert.Equal(t, "Tien Giang", records[0].Name)
	assert.Equal(t, "tp_hcm", records[1].Code)
	assert.Equal(t, "TP. Ho Chi Minh", records[1].Name)
	assert.Equal(t, "XSKT TP.HCM", records[1].Operator)
	assert.Equal(t, "da_lat", records[2].Code)
	assert.Equal(t, "Da Lat", records[2].Name)
	assert.Empty(t, records[2].Operator)

	// 号码原样保留
	assert.Equal(t, []string{"05"}, records[0].Results[0].Numbers)
	assert.Equal(t, []string{"012"}, records[0].Results[1].Numbers)
	assert.Equal(t, []string{"345"}, records[1].Results[1].Numbers)
	assert.Equal(t, []string{"1234", "5678", "0009"}, records[0].Results[2].Numbers)
	assert.Equal(t, []string{"1111", "2222", "3333"}, records[1].Results[2].Numbers)
	assert.Equal(t, []string{"012345"}, records[0].Results[8].Numbers)
	assert.Equal(t, []string{"000123"}, records[2].Results[8].Numbers)
	assert.Equal(t, "Giai dac biet", records[2].Results[8].Name)
}

func TestParse_MissingRegionTable(t *testing.T) {
	_, err := NewParser().Parse(southPage(""), model.RegionCentral)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStructureNotFound)
}

func TestParse_MissingHeaderRow(t *testing.T) {
	page := `<div class="box_kqxs"><div class="title">Miền Trung</div><table><tr><td class="ten_giai_tam">8</td><td>12</td></tr></table></div>`
	_, err := NewParser().Parse(page, model.RegionCentral)
	assert.ErrorIs(t, err, model.ErrStructureNotFound)
}

func TestParse_MissingPrizeLevel(t *testing.T) {
	_, err := NewParser().Parse(southPage("ten_giai_nhi"), model.RegionSouth)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrIncompleteResults)
	assert.Contains(t, err.Error(), "second")
}

func TestParse_SingleProvince(t *testing.T) {
	records, err := NewParser().Parse(northPage(), model.RegionNorth)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "ha_noi", r.Code)
	assert.Equal(t, "Ha Noi", r.Name)

	info, _ := model.LookupRegion(model.RegionNorth)
	assert.Equal(t, info.PrizeOrder, levels(r.Results))
	assert.Equal(t, []string{"01234"}, r.Results[0].Numbers)
	assert.Equal(t, []string{"56789"}, r.Results[1].Numbers)
	assert.Equal(t, []string{"01", "23", "45", "67"}, r.Results[7].Numbers)
}

func TestParse_SingleProvinceIncomplete(t *testing.T) {
	page := strings.Replace(northPage(), `<tr><td class="ten_giai_bay">G7</td><td>01 23 45 67</td></tr>`, "", 1)
	_, err := NewParser().Parse(page, model.RegionNorth)
	assert.ErrorIs(t, err, model.ErrIncompleteResults)
}

func TestParse_SingleProvinceWithoutHeader(t *testing.T) {
	page := `<div class="box_kqxs"><div class="title">Miền Bắc</div><table><tr><td class="ten_giai_nhat">G1</td><td>1</td></tr></table></div>`
	_, err := NewParser().Parse(page, model.RegionNorth)
	assert.ErrorIs(t, err, model.ErrStructureNotFound)
}

func TestSourceURL(t *testing.T) {
	d := model.DateOnly(mustDate(t, "2024-01-05"))
	assert.Equal(t, "https://www.minhchinh.com/ket-qua-xo-so/05-01-2024.html", SourceURL("https://www.minhchinh.com/", d))
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, raw)
	require.NoError(t, err)
	return d
}
