package ollama

import (
	"fmt"
	"strings"
	"time"

	"LotterySync/internal/model"
)

const promptTemplate = `You are a precise web data extractor for Vietnamese lottery results.
From the given MinhChinh daily results page, extract ALL results for the requested REGION ONLY.
Return a strict JSON array (no commentary) where each item has:
- code: machine slug of province, e.g. "ben_tre"
- name: province display name, e.g. "Ben Tre"
- operator: "XSKT <Province>"
- game_code: "xs_{region}_{code}"
- game_name: "XS {Region Name} - {Province Name}"
- sequence: 1
- results: array of objects with fields:
  prize_level in [%s]
  prize_order: 1
  prize_name: e.g. "Giai tam", "Giai dac biet"
  numbers: array of strings (the winning numbers for that prize row, preserve leading zeros)

Rules:
- Only include provinces/boards that belong to the requested region for that date.
- Keep number strings EXACTLY as displayed (preserve leading zeros).
- If multiple numbers appear on a row, put them all in the "numbers" array for that prize.

Return ONLY valid JSON.
`

const strictSuffix = "\n\nReturn ONLY a valid JSON array. Do not include commentary or explanations."

func buildPrompt(info model.RegionInfo, pageURL string, drawDate time.Time, text string) string {
	levels := make([]string, 0, len(info.PrizeOrder))
	for _, level := range info.PrizeOrder {
		levels = append(levels, fmt.Sprintf("%q", level))
	}

	var b strings.Builder
	fmt.Fprintf(&b, promptTemplate, strings.Join(levels, ","))
	fmt.Fprintf(&b, "\nRequested region: %s (%s)\n", info.Short, info.Name)
	fmt.Fprintf(&b, "Page URL: %s\n", pageURL)
	fmt.Fprintf(&b, "Target date (draw_date): %s\n", drawDate.Format(model.DateLayout))
	b.WriteString("\nPage content:\n")
	b.WriteString(text)
	return b.String()
}
