package ingredient

import (
	"regexp"
	"strings"
)

// 數量+單位片段，例如 "2 cups"、"100 g"、"1/2 tsp"
var unitQtyRe = regexp.MustCompile(`(?i)(^|\s)\d+/?\d*\s*(cups?|cup|tbsp|tbs|tbsp\.|tsp|grams?|g|kg|oz|ounces?)`)

// 非單詞、非空白字符
var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// Normalize 將原始食材片語正規化為穩定的字典鍵。
//
// 純函數且冪等：建索引（ingest）與查詢兩側必須使用同一份實作，
// 否則精確匹配的召回率會悄悄下降。
//
// 步驟：小寫、去除數量+單位片段、去除標點、去除前後空白，
// 最後做簡單的複數還原（"tomatoes" → "tomato"、"eggs" → "egg"）。
// 已知限制：以 s 結尾的非複數單詞也會被削尾（"hummus" → "hummu"）；
// 此行為與既有索引綁定，改動前必須重建索引。
func Normalize(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = unitQtyRe.ReplaceAllString(s, " ")
	s = nonWordRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	// 簡單複數處理
	if strings.HasSuffix(s, "es") && len(s) > 4 {
		s = s[:len(s)-2]
	} else if strings.HasSuffix(s, "s") && len(s) > 3 {
		s = s[:len(s)-1]
	}
	return s
}

// NormalizeAll 正規化一組食材名稱，過濾掉空結果
func NormalizeAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if key := Normalize(it); key != "" {
			out = append(out, key)
		}
	}
	return out
}

// NormalizeSet 正規化一組食材名稱並去重，回傳集合
func NormalizeSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if key := Normalize(it); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}
