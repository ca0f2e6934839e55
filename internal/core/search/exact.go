package search

import (
	"context"
	"sort"
	"time"

	"leftovr/internal/core/ingredient"
	"leftovr/internal/pkg/common"

	"go.uber.org/zap"
)

// candidate 中間評分結果，id 尚未解析成完整食譜
type candidate struct {
	id      int
	score   float64
	used    int
	missing []string
}

// ExactMatchRank 以倒排索引做精確食材匹配並排名。
// 候選集是庫存食材各倒排桶的聯集，缺料數超過 allowMissing 的食譜剔除。
// allowMissing 為負時視同 0（不允許缺料）。
func (s *Service) ExactMatchRank(ctx context.Context, pantryItems []string, allowMissing, topK int) ([]RankedRecipe, error) {
	start := time.Now()

	cands, err := s.exactMatch(ctx, pantryItems, allowMissing, topK)
	if err != nil {
		common.LogSearch("exact", time.Since(start), 0, err)
		return nil, err
	}

	ranked := s.resolve(cands)
	common.LogSearch("exact", time.Since(start), len(ranked), nil)
	return ranked, nil
}

// exactMatch 核心匹配流程，回傳已排序截斷的候選清單
func (s *Service) exactMatch(ctx context.Context, pantryItems []string, allowMissing, topK int) ([]candidate, error) {
	if s.index == nil || s.meta == nil {
		return nil, common.ErrIndexNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if allowMissing < 0 {
		allowMissing = 0
	}

	have := ingredient.NormalizeSet(pantryItems)
	if len(have) == 0 {
		return nil, nil
	}

	// 候選集：各庫存食材倒排桶的聯集
	candidateIDs := make(map[int]struct{})
	for key := range have {
		for _, id := range s.index.Lookup(key) {
			candidateIDs[id] = struct{}{}
		}
	}
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	// 先排序 id 再配分，確保同分時輸出順序穩定
	ids := make([]int, 0, len(candidateIDs))
	for id := range candidateIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	cands := make([]candidate, 0, len(ids))
	for _, id := range ids {
		recipe, ok := s.meta.Get(id)
		if !ok {
			// 索引指向的食譜不在資料集中，視為過期殘留
			common.LogDebug("stale index entry skipped", zap.Int("recipe_id", id))
			continue
		}

		required := ingredient.NormalizeSet(recipe.Ingredients)
		if len(required) == 0 {
			continue
		}

		used := 0
		var missing []string
		for ing := range required {
			if _, ok := have[ing]; ok {
				used++
			} else {
				missing = append(missing, ing)
			}
		}
		if len(missing) > allowMissing {
			continue
		}
		sort.Strings(missing)

		score := float64(used*usedWeight - len(required))
		if len(missing) == 0 {
			score += completeBonus
		}
		cands = append(cands, candidate{id: id, score: score, used: used, missing: missing})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
	if topK > 0 && len(cands) > topK {
		cands = cands[:topK]
	}
	return cands, nil
}

// resolve 把候選 id 解析成完整食譜，資料集裡找不到的直接略過
func (s *Service) resolve(cands []candidate) []RankedRecipe {
	ranked := make([]RankedRecipe, 0, len(cands))
	for _, c := range cands {
		recipe, ok := s.meta.Get(c.id)
		if !ok {
			continue
		}
		ranked = append(ranked, RankedRecipe{
			Recipe:  recipe,
			Score:   c.score,
			Used:    c.used,
			Missing: c.missing,
		})
	}
	return ranked
}

// FeasibilityWithPantry 檢查單一食譜以目前庫存是否可做。
// 回傳命中數與缺料清單，feasible 表示缺料數在 allowMissing 以內。
func (s *Service) FeasibilityWithPantry(ctx context.Context, recipeID, allowMissing int) (*RankedRecipe, bool, error) {
	recipe, ok := s.meta.Get(recipeID)
	if !ok {
		return nil, false, common.ErrRecipeNotFound
	}

	pantryItems, err := s.PantryItems(ctx)
	if err != nil {
		return nil, false, err
	}

	if allowMissing < 0 {
		allowMissing = 0
	}

	have := ingredient.NormalizeSet(pantryItems)
	required := ingredient.NormalizeSet(recipe.Ingredients)

	used := 0
	var missing []string
	for ing := range required {
		if _, ok := have[ing]; ok {
			used++
		} else {
			missing = append(missing, ing)
		}
	}
	sort.Strings(missing)

	score := float64(used*usedWeight - len(required))
	if len(missing) == 0 {
		score += completeBonus
	}

	result := &RankedRecipe{
		Recipe:  recipe,
		Score:   score,
		Used:    used,
		Missing: missing,
	}
	return result, len(missing) <= allowMissing, nil
}
