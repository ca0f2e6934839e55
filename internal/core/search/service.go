package search

import (
	"context"

	"leftovr/internal/core/embedding"
	"leftovr/internal/core/index"
	"leftovr/internal/core/pantry"
	"leftovr/internal/core/store"
	"leftovr/internal/core/vector"
	"leftovr/internal/infrastructure/config"
	"leftovr/internal/pkg/common"

	"go.uber.org/zap"
)

// 評分權重。每命中一項庫存食材加 usedWeight，
// 全部食材皆可取得時再加 completeBonus，語意相似度以
// semanticBonusWeight 倍率折算後併入分數。
const (
	usedWeight          = 100
	completeBonus       = 1000
	semanticBonusWeight = 50
)

// RankedRecipe 排名結果，附帶命中與缺料資訊
type RankedRecipe struct {
	Recipe  *store.Recipe `json:"recipe"`
	Score   float64       `json:"score"`
	Used    int           `json:"used"`
	Missing []string      `json:"missing"`
}

// SemanticHit 語意檢索命中
type SemanticHit struct {
	ID         int     `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Service 食譜檢索服務，整合倒排索引精確匹配與向量語意檢索
type Service struct {
	cfg      *config.SearchConfig
	meta     *store.MetadataStore
	index    *index.InvertedIndex
	embedder embedding.Embedder
	vectors  vector.Searcher
	pantry   pantry.Provider
}

// NewService 創建檢索服務。embedder 與 vectors 可為 nil，
// 此時語意檢索停用，僅提供精確匹配。
func NewService(
	cfg *config.SearchConfig,
	meta *store.MetadataStore,
	idx *index.InvertedIndex,
	embedder embedding.Embedder,
	vectors vector.Searcher,
	pantryProvider pantry.Provider,
) *Service {
	svc := &Service{
		cfg:      cfg,
		meta:     meta,
		index:    idx,
		embedder: embedder,
		vectors:  vectors,
		pantry:   pantryProvider,
	}

	common.LogInfo("檢索服務已初始化",
		zap.Int("recipes", meta.Len()),
		zap.Int("indexed_ingredients", idx.Len()),
		zap.Bool("semantic_enabled", svc.SemanticEnabled()),
		zap.Bool("pantry_enabled", pantryProvider != nil),
	)
	return svc
}

// SemanticEnabled 回報語意檢索是否可用
func (s *Service) SemanticEnabled() bool {
	return s.embedder != nil && s.vectors != nil
}

// Recipes 回報資料集的食譜總數
func (s *Service) Recipes() int {
	return s.meta.Len()
}

// IndexedIngredients 回報倒排索引的食材鍵數量
func (s *Service) IndexedIngredients() int {
	return s.index.Len()
}

// PantryItems 讀取庫存食材名稱，無庫存服務時回傳 ErrPantryUnavailable
func (s *Service) PantryItems(ctx context.Context) ([]string, error) {
	if s.pantry == nil {
		return nil, common.ErrPantryUnavailable
	}
	items, err := s.pantry.GetInventory(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names, nil
}
