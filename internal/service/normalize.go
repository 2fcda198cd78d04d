package service

import (
	"fmt"
	"strings"
	"time"

	"LotterySync/internal/model"
	"LotterySync/internal/utils/textutil"
)

const defaultCurrency = "VND"

// NormalizeRecords 补全派生字段（game_code、game_name、operator、draw_date、sequence）
// 纯函数；只有省份名称缺失、无法得到省份编码或奖级非法时返回 MALFORMED_RECORD。
// 同一批次内重复的 (省份编码, 期号) 只保留第一条；同一省份重复的 (奖级, 序号) 合并号码。
func NormalizeRecords(items []model.ProvinceRecord, region model.RegionCode, drawDate time.Time, sourceURL string) ([]model.ProvinceRecord, error) {
	info, ok := model.LookupRegion(region)
	if !ok {
		return nil, model.ErrMalformedRecord.Wrapf("unknown region %q", region)
	}
	date := model.DateOnly(drawDate)

	out := make([]model.ProvinceRecord, 0, len(items))
	type drawIdentity struct {
		code     string
		sequence int
	}
	seen := make(map[drawIdentity]bool, len(items))
	for idx, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, model.ErrMalformedRecord.Wrapf("record %d has no province name", idx).
				WithContext("region", string(region), "code", item.Code)
		}
		rawCode := strings.TrimSpace(item.Code)
		if rawCode == "" {
			rawCode = name
		}
		code := textutil.Slugify(rawCode, "_")
		if code == "" {
			return nil, model.ErrMalformedRecord.Wrapf("cannot derive a province code for %q", name).
				WithContext("region", string(region))
		}
		sequence := item.Sequence
		if sequence <= 0 {
			sequence = 1
		}
		if seen[drawIdentity{code, sequence}] {
			continue
		}
		seen[drawIdentity{code, sequence}] = true

		operator := strings.TrimSpace(item.Operator)
		if override, ok := info.Overrides[code]; ok {
			if override.Name != "" {
				name = override.Name
			}
			if operator == "" {
				operator = override.Operator
			}
		}
		if operator == "" {
			operator = "XSKT " + name
		}

		gameCode := strings.TrimSpace(item.GameCode)
		if gameCode == "" {
			gameCode = info.GamePrefix() + code
		}
		gameName := strings.TrimSpace(item.GameName)
		if gameName == "" {
			gameName = fmt.Sprintf("XS %s - %s", info.Name, name)
		}

		results, err := normalizeResults(item.Results, code)
		if err != nil {
			return nil, err
		}

		out = append(out, model.ProvinceRecord{
			Code:      code,
			Name:      name,
			Operator:  operator,
			GameCode:  gameCode,
			GameName:  gameName,
			SourceURL: sourceURL,
			DrawDate:  date,
			Sequence:  sequence,
			Results:   results,
		})
	}
	return out, nil
}

func normalizeResults(results []model.PrizeResult, provinceCode string) ([]model.PrizeResult, error) {
	type key struct {
		level model.PrizeLevel
		order int
	}
	out := make([]model.PrizeResult, 0, len(results))
	index := make(map[key]int, len(results))

	for _, r := range results {
		level := model.PrizeLevel(strings.ToLower(strings.TrimSpace(string(r.Level))))
		if !level.Valid() {
			return nil, model.ErrMalformedRecord.Wrapf("unknown prize level %q", r.Level).
				WithContext("province", provinceCode)
		}
		order := r.Order
		if order <= 0 {
			order = 1
		}
		numbers := make([]string, 0, len(r.Numbers))
		for _, n := range r.Numbers {
			if n = strings.TrimSpace(n); n != "" {
				numbers = append(numbers, n)
			}
		}

		k := key{level, order}
		if pos, ok := index[k]; ok {
			out[pos].Numbers = append(out[pos].Numbers, numbers...)
			continue
		}

		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = level.DefaultName()
		}
		currency := strings.TrimSpace(r.RewardCurrency)
		if currency == "" {
			currency = defaultCurrency
		}
		index[k] = len(out)
		out = append(out, model.PrizeResult{
			Level:          level,
			Order:          order,
			Name:           name,
			Numbers:        numbers,
			RewardAmount:   r.RewardAmount,
			RewardCurrency: currency,
		})
	}
	return out, nil
}
