package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"LotterySync/internal/model"
)

const (
	allRegionsLabel     = "3 Miền"
	pendingNumbersLabel = "Đang cập nhật"
	unknownProvince     = "Không rõ"
)

// BuildSummaries 把某区域的开奖行转为对外摘要：奖级按区域规范顺序，同级按 prize_order，号码跨结果行拼接
func BuildSummaries(draws []*model.Draw, region model.RegionCode) []model.DrawSummary {
	info, _ := model.LookupRegion(region)
	summaries := make([]model.DrawSummary, 0, len(draws))

	for _, d := range draws {
		summary := model.DrawSummary{
			Region:       region,
			RegionLabel:  info.Label,
			ProvinceName: unknownProvince,
			Sequence:     d.Sequence,
			SourceURL:    d.SourceURL,
			Prizes:       []model.PrizeSummary{},
		}
		if summary.Sequence <= 0 {
			summary.Sequence = 1
		}
		if g := d.Game; g != nil {
			summary.GameCode = g.Code
			summary.GameName = g.Name
			summary.Operator = g.Operator
			if g.Name != "" {
				summary.ProvinceName = g.Name
			}
			if g.Province != nil {
				summary.ProvinceCode = g.Province.Code
				if g.Province.Name != "" {
					summary.ProvinceName = g.Province.Name
				}
			} else {
				summary.ProvinceCode = metadataProvinceCode(g)
			}
		}

		for _, level := range info.PrizeOrder {
			var entries []model.DrawPrize
			for _, p := range d.Prizes {
				if p.PrizeLevel == level {
					entries = append(entries, p)
				}
			}
			sort.SliceStable(entries, func(i, j int) bool { return entries[i].PrizeOrder < entries[j].PrizeOrder })
			for _, entry := range entries {
				numbers := []string{}
				for _, r := range entry.Results {
					decoded, err := model.DecodeNumbers(r.ResultNumbers)
					if err != nil {
						continue
					}
					numbers = append(numbers, decoded...)
				}
				summary.Prizes = append(summary.Prizes, model.PrizeSummary{
					Label:   level.DisplayLabel(entry.PrizeName),
					Level:   level,
					Numbers: numbers,
				})
			}
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Sequence != summaries[j].Sequence {
			return summaries[i].Sequence < summaries[j].Sequence
		}
		return summaries[i].ProvinceName < summaries[j].ProvinceName
	})
	return summaries
}

func metadataProvinceCode(g *model.LotteryGame) string {
	if len(g.Metadata) == 0 {
		return ""
	}
	var meta struct {
		ProvinceCode string `json:"province_code"`
	}
	if err := json.Unmarshal(g.Metadata, &meta); err != nil {
		return ""
	}
	return meta.ProvinceCode
}

// RegionTitle 单区域取展示名，全部区域为 "3 Miền"
func RegionTitle(region model.RegionCode) string {
	if region == "" {
		return allRegionsLabel
	}
	if info, ok := model.LookupRegion(region); ok {
		return info.Label
	}
	return string(region)
}

// RenderSummaryText 纯文本渲染；region 为空表示全部区域，多区域时每期前加区域名
func RenderSummaryText(drawDate time.Time, region model.RegionCode, draws []model.DrawSummary) string {
	dateLabel := drawDate.Format("02/01/2006")
	title := RegionTitle(region)
	if len(draws) == 0 {
		return fmt.Sprintf("🎯 Chưa có dữ liệu kết quả xổ số %s cho ngày %s.", title, dateLabel)
	}

	regions := make(map[model.RegionCode]bool)
	for _, d := range draws {
		regions[d.Region] = true
	}
	multipleRegions := len(regions) > 1

	sorted := make([]model.DrawSummary, len(draws))
	copy(sorted, draws)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := model.RegionPriorityIndex(sorted[i].Region), model.RegionPriorityIndex(sorted[j].Region)
		if ri != rj {
			return ri < rj
		}
		if sorted[i].Sequence != sorted[j].Sequence {
			return sorted[i].Sequence < sorted[j].Sequence
		}
		return sorted[i].ProvinceName < sorted[j].ProvinceName
	})

	lines := []string{fmt.Sprintf("🎯 Kết quả Xổ Số %s – %s", title, dateLabel)}
	for _, d := range sorted {
		lines = append(lines, "")
		var details []string
		if code := FormatGameCode(d.GameCode); code != "" {
			details = append(details, code)
		}
		if d.Operator != "" {
			details = append(details, d.Operator)
		}
		header := d.ProvinceName
		if multipleRegions {
			header = d.RegionLabel + " – " + header
		}
		if len(details) > 0 {
			header = fmt.Sprintf("%s (%s)", header, strings.Join(details, " – "))
		}
		lines = append(lines, header)

		for _, p := range d.Prizes {
			numbers := pendingNumbersLabel
			if len(p.Numbers) > 0 {
				numbers = strings.Join(p.Numbers, " – ")
			}
			lines = append(lines, p.Label+": "+numbers)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatGameCode xs_mn_ben_tre -> MN BEN TRE
func FormatGameCode(code string) string {
	if code == "" {
		return ""
	}
	code = strings.TrimPrefix(code, "xs_")
	return strings.ReplaceAll(strings.ToUpper(code), "_", " ")
}
