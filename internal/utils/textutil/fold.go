package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// đ/Đ 不是组合字符，NFD 无法拆出基字母
var strokeReplacer = strings.NewReplacer("đ", "d", "Đ", "D")

// ASCII 去掉越南语声调与变音符号并压缩空白；结果为空时返回原文去空白
func ASCII(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strokeReplacer.Replace(value))
	if err != nil {
		folded = value
	}
	var b strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		return strings.TrimSpace(value)
	}
	return cleaned
}

// Slugify 生成以 separator 连接的小写 ASCII slug，如 "Bến Tre" -> "ben_tre"
func Slugify(value, separator string) string {
	folded := strings.ToLower(ASCII(value))
	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteString(separator)
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
