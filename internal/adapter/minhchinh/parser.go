package minhchinh

import (
	"sort"
	"strings"

	"LotterySync/internal/model"
	"LotterySync/internal/utils/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// prizeClassToLevel 结果表中奖级单元格的 class -> 奖级
var prizeClassToLevel = map[string]model.PrizeLevel{
	"ten_giai_tam":      model.PrizeEighth,
	"ten_giai_bay":      model.PrizeSeventh,
	"ten_giai_sau":      model.PrizeSixth,
	"ten_giai_nam":      model.PrizeFifth,
	"ten_giai_tu":       model.PrizeFourth,
	"ten_giai_ba":       model.PrizeThird,
	"ten_giai_nhi":      model.PrizeSecond,
	"ten_giai_nhat":     model.PrizeFirst,
	"ten_giai_dac_biet": model.PrizeSpecial,
}

const (
	provinceHeaderSelector = "td.tentinh"
	provinceSlugSelector   = "span.read-result"
	linkSlugPrefix         = "xo-so-"
)

// Parser MinhChinh 每日结果页解析器
// 南部/中部：一张多省份表格（表头每列一个省份，数据行首列为奖级）；
// 北部：单省份表格，按“奖级标签/号码”成对的行排列。
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse 解析页面中指定区域的结果表
func (p *Parser) Parse(page string, region model.RegionCode) ([]model.ProvinceRecord, error) {
	info, ok := model.LookupRegion(region)
	if !ok {
		return nil, model.ErrMalformedRecord.Wrapf("unknown region %q", region)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, model.ErrStructureNotFound.Because(err).WithContext("region", string(region))
	}

	table := findRegionTable(doc, info.Name)
	if table == nil {
		return nil, model.ErrStructureNotFound.Wrapf("could not locate results table for region %s", info.Name)
	}

	if info.SingleProvince {
		return parseSingleProvinceTable(table, info)
	}
	return parseMultiProvinceTable(table, info)
}

// findRegionTable 通过 div.box_kqxs 的标题（去声调后）定位区域表格
func findRegionTable(doc *goquery.Document, regionName string) *goquery.Selection {
	target := strings.ToLower(textutil.ASCII(regionName))
	var found *goquery.Selection
	doc.Find("div.box_kqxs").EachWithBreak(func(_ int, box *goquery.Selection) bool {
		title := box.Find("div.title").First()
		if title.Length() == 0 {
			return true
		}
		if !strings.Contains(strings.ToLower(textutil.ASCII(cellText(title))), target) {
			return true
		}
		table := box.Find("table").First()
		if table.Length() == 0 {
			return true
		}
		found = table
		return false
	})
	return found
}

func parseMultiProvinceTable(table *goquery.Selection, info model.RegionInfo) ([]model.ProvinceRecord, error) {
	var headerRow *goquery.Selection
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if tr.Find(provinceHeaderSelector).Length() > 0 {
			headerRow = tr
			return false
		}
		return true
	})
	if headerRow == nil {
		return nil, model.ErrStructureNotFound.Wrapf("could not locate province headers in the %s results table", info.Name)
	}

	headerCells := headerRow.Find(provinceHeaderSelector)
	if headerCells.Length() == 0 {
		return nil, model.ErrStructureNotFound.Wrapf("no province columns found in the %s results table", info.Name)
	}

	provinces := make([]model.ProvinceRecord, 0, headerCells.Length())
	headerCells.Each(func(_ int, cell *goquery.Selection) {
		provinces = append(provinces, newProvinceRecord(cell, info))
	})

	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < len(provinces)+1 {
			return
		}
		level, ok := prizeLevelOf(cells.Eq(0))
		if !ok || info.PrizeRank(level) < 0 {
			return // 间隔行或非本区域奖级
		}
		for idx := range provinces {
			addResult(&provinces[idx], level, extractNumbers(cells.Eq(idx+1)))
		}
	})

	for idx := range provinces {
		if err := finalizeResults(&provinces[idx], info); err != nil {
			return nil, err
		}
	}
	return provinces, nil
}

func parseSingleProvinceTable(table *goquery.Selection, info model.RegionInfo) ([]model.ProvinceRecord, error) {
	provinceCell := table.Find(provinceHeaderSelector).First()
	if provinceCell.Length() == 0 {
		return nil, model.ErrStructureNotFound.Wrapf("could not determine province information for %s results", info.Name)
	}
	province := newProvinceRecord(provinceCell, info)

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return
		}
		level, ok := prizeLevelOf(cells.Eq(0))
		if !ok || info.PrizeRank(level) < 0 {
			return
		}
		numbers := extractNumbers(cells.Eq(1))
		if len(numbers) == 0 {
			return
		}
		addResult(&province, level, numbers)
	})

	if err := finalizeResults(&province, info); err != nil {
		return nil, err
	}
	return []model.ProvinceRecord{province}, nil
}

// newProvinceRecord 解析表头单元格的省份标识并应用人工覆盖
func newProvinceRecord(cell *goquery.Selection, info model.RegionInfo) model.ProvinceRecord {
	nameRaw := cellText(cell)
	code := provinceSlug(cell)
	if code != "" {
		code = strings.ReplaceAll(code, "-", "_")
	} else {
		code = textutil.Slugify(nameRaw, "_")
	}

	override := info.Overrides[code]
	name := override.Name
	if name == "" {
		name = textutil.ASCII(nameRaw)
	}
	return model.ProvinceRecord{
		Code:     code,
		Name:     name,
		Operator: override.Operator,
		GameCode: override.GameCode,
		GameName: override.GameName,
	}
}

// provinceSlug 优先取 span.read-result 的 data="<label>|<slug>"，其次取链接路径最后一段
func provinceSlug(cell *goquery.Selection) string {
	if data, ok := cell.Find(provinceSlugSelector).First().Attr("data"); ok {
		if _, slug, found := strings.Cut(data, "|"); found && strings.TrimSpace(slug) != "" {
			return strings.TrimSpace(slug)
		}
	}
	if href, ok := cell.Find("a[href]").First().Attr("href"); ok {
		href = strings.Trim(strings.TrimSpace(href), "/")
		if href == "" {
			return ""
		}
		segments := strings.Split(href, "/")
		last := strings.TrimSuffix(segments[len(segments)-1], ".html")
		return strings.TrimPrefix(last, linkSlugPrefix)
	}
	return ""
}

func prizeLevelOf(cell *goquery.Selection) (model.PrizeLevel, bool) {
	for _, class := range strings.Fields(cell.AttrOr("class", "")) {
		if level, ok := prizeClassToLevel[class]; ok {
			return level, true
		}
	}
	return "", false
}

// extractNumbers 优先取带 data 属性的子元素（值取 data，缺省取文本），否则按空白切分整格文本
func extractNumbers(cell *goquery.Selection) []string {
	var numbers []string
	cell.Find("[data]").Each(func(_ int, node *goquery.Selection) {
		candidate := strings.TrimSpace(node.AttrOr("data", ""))
		if candidate == "" {
			candidate = cellText(node)
		}
		if candidate != "" {
			numbers = append(numbers, candidate)
		}
	})
	if len(numbers) == 0 {
		numbers = strings.Fields(cellText(cell))
	}
	return numbers
}

// addResult 同一奖级多行出现时合并号码，保证每个奖级只有一条
func addResult(record *model.ProvinceRecord, level model.PrizeLevel, numbers []string) {
	for i := range record.Results {
		if record.Results[i].Level == level {
			record.Results[i].Numbers = append(record.Results[i].Numbers, numbers...)
			return
		}
	}
	record.Results = append(record.Results, model.PrizeResult{
		Level:   level,
		Order:   1,
		Name:    level.DefaultName(),
		Numbers: numbers,
	})
}

// finalizeResults 按区域规范顺序排序并检查奖级完整
func finalizeResults(record *model.ProvinceRecord, info model.RegionInfo) error {
	sort.SliceStable(record.Results, func(i, j int) bool {
		return info.PrizeRank(record.Results[i].Level) < info.PrizeRank(record.Results[j].Level)
	})

	present := make(map[model.PrizeLevel]bool, len(record.Results))
	for _, r := range record.Results {
		present[r.Level] = true
	}
	var missing []string
	for _, level := range info.PrizeOrder {
		if !present[level] {
			missing = append(missing, string(level))
		}
	}
	if len(missing) > 0 {
		return model.ErrIncompleteResults.
			Wrapf("province %s missing prize rows: %s", record.Code, strings.Join(missing, ", ")).
			WithContext("region", string(info.Short), "province", record.Code)
	}
	return nil
}

// cellText 拼接所有文本节点（以空格分隔）并压缩空白
func cellText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
