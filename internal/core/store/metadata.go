package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"leftovr/internal/pkg/common"

	"go.uber.org/zap"
)

// Recipe 食譜記錄。id 在 ingest 時由資料集列序號指定，重建後保持穩定。
// ner 為正規化後的食材列表（來源資料可能含重複，這裡不保證去重）。
type Recipe struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Ingredients []string `json:"ner"`
	Directions  []string `json:"directions,omitempty"`
	Source      string   `json:"source,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// MetadataStore 食譜中繼資料存放區。啟動時整批載入，之後唯讀，
// 查詢路徑可以在多個請求間並發使用而不需加鎖。
type MetadataStore struct {
	recipes map[int]*Recipe
}

// jsonl 行的寬鬆中繼結構：id 欄位可能是數字或字串
type rawRecipe struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Ingredients []string    `json:"ner"`
	Directions  []string    `json:"directions"`
	Source      string      `json:"source"`
	Link        string      `json:"link"`
}

// LoadMetadata 從 JSONL 檔案載入食譜中繼資料（每行一個 JSON 物件）。
// 格式錯誤屬於建構期設定錯誤，直接回傳 error；空行略過。
func LoadMetadata(path string) (*MetadataStore, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metadata file not found: %w", err)
	}
	defer fh.Close()

	s := &MetadataStore{recipes: make(map[int]*Recipe)}

	scanner := bufio.NewScanner(fh)
	// 部分食譜的 directions 很長，放寬單行上限到 4MB
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw rawRecipe
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("malformed metadata at line %d: %w", lineNo, err)
		}

		id, err := raw.ID.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid recipe id at line %d: %w", lineNo, err)
		}
		if id < 0 {
			return nil, fmt.Errorf("negative recipe id at line %d", lineNo)
		}

		// 後出現者覆蓋先出現者（與 ingest 輸出順序一致）
		s.recipes[int(id)] = &Recipe{
			ID:          int(id),
			Title:       raw.Title,
			Ingredients: raw.Ingredients,
			Directions:  raw.Directions,
			Source:      raw.Source,
			Link:        raw.Link,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	common.LogInfo("食譜中繼資料已載入",
		zap.String("path", path),
		zap.Int("count", len(s.recipes)),
	)
	return s, nil
}

// NewMetadataStore 從記憶體中的食譜建立存放區（測試與 ingest 用）
func NewMetadataStore(recipes []*Recipe) *MetadataStore {
	s := &MetadataStore{recipes: make(map[int]*Recipe, len(recipes))}
	for _, r := range recipes {
		s.recipes[r.ID] = r
	}
	return s
}

// Get 以 id 取得食譜
func (s *MetadataStore) Get(id int) (*Recipe, bool) {
	r, ok := s.recipes[id]
	return r, ok
}

// GetBatch 批次取得食譜，索引中殘留的過期 id 直接略過
func (s *MetadataStore) GetBatch(ids []int) map[int]*Recipe {
	out := make(map[int]*Recipe, len(ids))
	for _, id := range ids {
		if r, ok := s.recipes[id]; ok {
			out[id] = r
		}
	}
	return out
}

// Len 回傳食譜數量
func (s *MetadataStore) Len() int {
	return len(s.recipes)
}
