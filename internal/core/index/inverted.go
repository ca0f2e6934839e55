package index

import (
	"encoding/json"
	"fmt"
	"os"

	"leftovr/internal/core/ingredient"
	"leftovr/internal/core/store"
	"leftovr/internal/pkg/common"

	"go.uber.org/zap"
)

// InvertedIndex 食材倒排索引：正規化食材鍵 → 含有該食材的食譜 id 集合。
// 建索引時去重，查詢時唯讀，可並發使用。
type InvertedIndex struct {
	buckets map[string][]int
}

// New 建立空索引
func New() *InvertedIndex {
	return &InvertedIndex{buckets: make(map[string][]int)}
}

// Build 從食譜建立索引。食材先經過 Normalize，
// 同一食譜重複出現的食材只登記一次（避免重複計分）。
func Build(recipes []*store.Recipe) *InvertedIndex {
	ix := New()
	for _, r := range recipes {
		seen := make(map[string]struct{}, len(r.Ingredients))
		for _, raw := range r.Ingredients {
			key := ingredient.Normalize(raw)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			ix.buckets[key] = append(ix.buckets[key], r.ID)
		}
	}
	return ix
}

// Add 將食譜 id 登記到指定鍵下（ingest 用，呼叫方負責去重）
func (ix *InvertedIndex) Add(key string, id int) {
	if key == "" {
		return
	}
	ix.buckets[key] = append(ix.buckets[key], id)
}

// Load 從 JSON 檔案載入索引（單一物件：食材鍵 → id 陣列）。
// 手工重建過的索引檔可能含重複 id，載入時防禦性去重。
func Load(path string) (*InvertedIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingredient index not found: %w", err)
	}

	var raw map[string][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed ingredient index: %w", err)
	}

	ix := &InvertedIndex{buckets: make(map[string][]int, len(raw))}
	for key, ids := range raw {
		seen := make(map[int]struct{}, len(ids))
		dedup := make([]int, 0, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			dedup = append(dedup, id)
		}
		ix.buckets[key] = dedup
	}

	common.LogInfo("食材倒排索引已載入",
		zap.String("path", path),
		zap.Int("ingredients", len(ix.buckets)),
	)
	return ix, nil
}

// Save 將索引寫出為 JSON 檔案（ingest 用）
func (ix *InvertedIndex) Save(path string) error {
	data, err := json.Marshal(ix.buckets)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredient index: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ingredient index: %w", err)
	}
	return nil
}

// Lookup 取得含有指定食材鍵的食譜 id 列表，不存在時回傳 nil
func (ix *InvertedIndex) Lookup(key string) []int {
	return ix.buckets[key]
}

// Len 回傳索引中的食材鍵數量
func (ix *InvertedIndex) Len() int {
	return len(ix.buckets)
}
