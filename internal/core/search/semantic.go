package search

import (
	"context"
	"time"

	"leftovr/internal/core/embedding"
	"leftovr/internal/pkg/common"

	"go.uber.org/zap"
)

// SemanticRank 向量語意檢索。查詢文字由自由描述與原始庫存清單組成，
// 嵌入後到向量庫取前 k 名。語意檢索是輔助訊號，任何失敗都降級為
// 空結果而不回傳錯誤，向量庫查詢失敗時重試一次。
func (s *Service) SemanticRank(ctx context.Context, queryText string, pantryItems []string, k int) []SemanticHit {
	if !s.SemanticEnabled() || k <= 0 {
		return nil
	}

	text := embedding.SearchText(queryText, pantryItems)
	if text == "" {
		return nil
	}

	start := time.Now()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		common.LogWarn("semantic search degraded: embedding failed",
			zap.Error(err),
		)
		common.LogSearch("semantic", time.Since(start), 0, err)
		return nil
	}
	embedding.NormalizeVector(vec)

	hits, err := s.vectors.Search(ctx, vec, k)
	if err != nil {
		// 向量庫偶發失敗重試一次
		common.LogWarn("vector search failed, retrying",
			zap.Error(err),
		)
		hits, err = s.vectors.Search(ctx, vec, k)
		if err != nil {
			common.LogWarn("semantic search degraded: vector search failed",
				zap.Error(err),
			)
			common.LogSearch("semantic", time.Since(start), 0, err)
			return nil
		}
	}

	results := make([]SemanticHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SemanticHit{ID: hit.ID, Similarity: hit.Similarity})
	}

	common.LogSearch("semantic", time.Since(start), len(results), nil)
	return results
}

// SemanticRankRecipes 語意檢索並解析成完整食譜，分數即相似度。
// 供獨立的語意查詢介面使用，不經過精確匹配。
func (s *Service) SemanticRankRecipes(ctx context.Context, queryText string, pantryItems []string, k int) []RankedRecipe {
	hits := s.SemanticRank(ctx, queryText, pantryItems, k)
	ranked := make([]RankedRecipe, 0, len(hits))
	for _, hit := range hits {
		recipe, ok := s.meta.Get(hit.ID)
		if !ok {
			continue
		}
		ranked = append(ranked, RankedRecipe{
			Recipe: recipe,
			Score:  hit.Similarity,
		})
	}
	return ranked
}
