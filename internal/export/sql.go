package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"LotterySync/internal/model"
)

// jsonTag 美元引用标签，号码数据中出现该标签时拒绝生成
const jsonTag = "$kqsx$"

// exportRecord 嵌入脚本的 JSON 元素，draw_date 以 ISO 字符串写出
type exportRecord struct {
	model.ProvinceRecord
	DrawDate string `json:"draw_date"`
}

type scriptData struct {
	Date         string
	RegionCode   string
	RegionName   string
	DrawDays     string
	DrawTime     string
	Timezone     string
	GameCodes    string
	Source       string
	JSONTag      string
	Notes        string
	ImportSource string
}

var scriptTemplate = template.Must(template.New("sql").Parse(`begin;

-- Cleanup existing draws for {{.Date}} scoped to this batch's games.
with target_draws as (
  select d.id
  from draws d
  join lottery_games g on g.id = d.game_id
  where d.draw_date = '{{.Date}}'
    and g.code in ({{.GameCodes}})
),
target_prizes as (
  select dp.id
  from draw_prizes dp
  join target_draws td on td.id = dp.draw_id
)
delete from draw_results
where prize_id in (select id from target_prizes);

with target_draws as (
  select d.id
  from draws d
  join lottery_games g on g.id = d.game_id
  where d.draw_date = '{{.Date}}'
    and g.code in ({{.GameCodes}})
)
delete from draw_prizes
where draw_id in (select id from target_draws);

delete from draws d
using lottery_games g
where g.id = d.game_id
  and d.draw_date = '{{.Date}}'
  and g.code in ({{.GameCodes}});

with source as (
  select jsonb_array_elements(
    {{.JSONTag}}{{.Source}}{{.JSONTag}}::jsonb
  ) as data
),
region_upsert as (
  insert into regions (code, name, created_at)
  values ('{{.RegionCode}}', '{{.RegionName}}', now())
  on conflict (code) do update set name = excluded.name
  returning id
),
province_source as (
  select
    data->>'code' as code,
    data->>'name' as name,
    data->>'operator' as operator,
    data->>'game_code' as game_code,
    data->>'game_name' as game_name,
    data->>'source_url' as source_url,
    (data->>'draw_date')::date as draw_date,
    coalesce((data->>'sequence')::int, 1) as sequence,
    data->'results' as results
  from source
),
province_upsert as (
  insert into provinces (code, name, region_id, created_at)
  select distinct on (ps.code) ps.code, ps.name, (select id from region_upsert), now()
  from province_source ps
  order by ps.code, ps.sequence
  on conflict (code) do update
    set name = excluded.name,
        region_id = excluded.region_id
  returning code, id
),
game_upsert as (
  insert into lottery_games (
    code, name, category, operator, region_id, province_id,
    numbers_per_ticket, number_pool, has_bonus, schedule, metadata, created_at, updated_at
  )
  select distinct on (ps.game_code)
    ps.game_code,
    ps.game_name,
    'regional',
    ps.operator,
    (select id from region_upsert),
    pu.id,
    6,
    10,
    false,
    jsonb_build_object(
      'draw_days', jsonb_build_array({{.DrawDays}}),
      'draw_time', '{{.DrawTime}}',
      'timezone', '{{.Timezone}}'
    ),
    jsonb_build_object(
      'province_code', ps.code,
      'notes', '{{.Notes}}'
    ),
    now(),
    now()
  from province_source ps
  join province_upsert pu on pu.code = ps.code
  order by ps.game_code, ps.sequence
  on conflict (code) do update
    set name = excluded.name,
        operator = excluded.operator,
        region_id = excluded.region_id,
        province_id = excluded.province_id,
        schedule = excluded.schedule,
        metadata = excluded.metadata,
        updated_at = now()
  returning code, id
),
draw_insert as (
  insert into draws (game_id, draw_date, sequence, status, source_url, raw_feed, created_at)
  select
    gu.id,
    ps.draw_date,
    ps.sequence,
    'completed',
    ps.source_url,
    jsonb_build_object(
      'import_source', '{{.ImportSource}}',
      'imported_via', 'automation',
      'created_at', now(),
      'province_code', ps.code,
      'draw_date', ps.draw_date
    ),
    now()
  from province_source ps
  join game_upsert gu on gu.code = ps.game_code
  returning id, game_id, sequence
),
draw_map as (
  select di.id as draw_id, gu.code as game_code, di.sequence
  from draw_insert di
  join game_upsert gu on gu.id = di.game_id
),
prize_source as (
  select
    pu.id as province_id,
    dm.draw_id,
    jsonb_array_elements(ps.results) as prize_data
  from province_source ps
  join province_upsert pu on pu.code = ps.code
  join draw_map dm on dm.game_code = ps.game_code and dm.sequence = ps.sequence
),
prize_prepared as (
  select
    province_id,
    draw_id,
    prize_data->>'prize_level' as prize_level,
    coalesce((prize_data->>'prize_order')::smallint, 1) as prize_order,
    prize_data->>'prize_name' as prize_name,
    coalesce((prize_data->>'reward_amount')::numeric, 0) as reward_amount,
    coalesce(prize_data->>'reward_currency', 'VND') as reward_currency,
    coalesce(prize_data->'numbers', '[]'::jsonb) as numbers
  from prize_source
),
prize_insert as (
  insert into draw_prizes (draw_id, prize_level, prize_order, prize_name, reward_amount, reward_currency)
  select draw_id, prize_level, prize_order, prize_name, reward_amount, reward_currency
  from prize_prepared
  returning id, draw_id, prize_level, prize_order
)
insert into draw_results (prize_id, province_id, result_numbers, bonus_numbers)
select pi.id, pp.province_id, pp.numbers, '[]'::jsonb
from prize_prepared pp
join prize_insert pi
  on pi.draw_id = pp.draw_id
 and pi.prize_level = pp.prize_level
 and pi.prize_order = pp.prize_order;

commit;
`))

// WriteSQL 把一批已规范化的记录渲染为单事务迁移脚本；脚本只是派生产物，不参与写库对账
func WriteSQL(w io.Writer, region model.RegionCode, drawDate time.Time, records []model.ProvinceRecord, importSource string) error {
	info, ok := model.LookupRegion(region)
	if !ok {
		return fmt.Errorf("unknown region %q", region)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records to export for %s %s", region, drawDate.Format(model.DateLayout))
	}
	date := model.DateOnly(drawDate).Format(model.DateLayout)

	rows := make([]exportRecord, 0, len(records))
	codes := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		rows = append(rows, exportRecord{ProvinceRecord: r, DrawDate: date})
		if !seen[r.GameCode] {
			seen[r.GameCode] = true
			codes = append(codes, quote(r.GameCode))
		}
	}
	var blob bytes.Buffer
	enc := json.NewEncoder(&blob)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("序列化导出数据失败: %w", err)
	}
	source := strings.TrimSpace(blob.String())
	if strings.Contains(source, jsonTag) {
		return fmt.Errorf("export payload contains reserved tag %s", jsonTag)
	}

	days := make([]string, 0, len(info.DrawDays))
	for _, d := range info.DrawDays {
		days = append(days, quote(d))
	}

	return scriptTemplate.Execute(w, scriptData{
		Date:         date,
		RegionCode:   escape(info.Code),
		RegionName:   escape(info.Name),
		DrawDays:     strings.Join(days, ", "),
		DrawTime:     escape(info.DrawTime),
		Timezone:     escape(info.Timezone),
		GameCodes:    strings.Join(codes, ", "),
		Source:       source,
		JSONTag:      jsonTag,
		Notes:        escape("Inserted from migration for " + date + " results"),
		ImportSource: escape(importSource),
	})
}

// RenderSQL WriteSQL 的字符串版本
func RenderSQL(region model.RegionCode, drawDate time.Time, records []model.ProvinceRecord, importSource string) (string, error) {
	var b strings.Builder
	if err := WriteSQL(&b, region, drawDate, records, importSource); err != nil {
		return "", err
	}
	return b.String(), nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func quote(s string) string {
	return "'" + escape(s) + "'"
}
