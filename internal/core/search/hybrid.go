package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"leftovr/internal/pkg/common"

	"go.uber.org/zap"
)

// HybridRank 混合排名：精確匹配建立候選池，語意檢索命中轉為加分融合。
// 語意加分只作用在精確候選池內的食譜；include_semantic_only 開啟時，
// 池外的語意命中以基礎分 0 進池。語意端任何失敗都靜默降級為純精確結果。
func (s *Service) HybridRank(ctx context.Context, pantryItems []string, queryText string, topK, allowMissing int, useSemantic bool) ([]RankedRecipe, error) {
	start := time.Now()

	pool := s.cfg.CandidatePool
	if pool <= 0 {
		pool = 500
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	runSemantic := useSemantic && s.SemanticEnabled()

	var (
		wg    sync.WaitGroup
		cands []candidate
		exErr error
		hits  []SemanticHit
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		cands, exErr = s.exactMatch(ctx, pantryItems, allowMissing, pool)
	}()

	if runSemantic {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semCtx := ctx
			if s.cfg.SemanticTimeout > 0 {
				var cancel context.CancelFunc
				semCtx, cancel = context.WithTimeout(ctx, s.cfg.SemanticTimeout)
				defer cancel()
			}
			hits = s.SemanticRank(semCtx, queryText, pantryItems, pool)
		}()
	}
	wg.Wait()

	if exErr != nil {
		common.LogSearch("hybrid", time.Since(start), 0, exErr)
		return nil, exErr
	}

	if runSemantic && len(hits) == 0 {
		common.LogWarn("hybrid search degraded to exact-only",
			zap.Int("exact_candidates", len(cands)),
		)
	}

	// 語意加分融合
	if len(hits) > 0 {
		similarity := make(map[int]float64, len(hits))
		for _, hit := range hits {
			similarity[hit.ID] = hit.Similarity
		}

		inPool := make(map[int]struct{}, len(cands))
		for i := range cands {
			inPool[cands[i].id] = struct{}{}
			if sim, ok := similarity[cands[i].id]; ok {
				cands[i].score += sim * semanticBonusWeight
			}
		}

		if s.cfg.IncludeSemanticOnly {
			extra := make([]candidate, 0)
			for _, hit := range hits {
				if _, ok := inPool[hit.ID]; ok {
					continue
				}
				if _, ok := s.meta.Get(hit.ID); !ok {
					continue
				}
				extra = append(extra, candidate{
					id:    hit.ID,
					score: hit.Similarity * semanticBonusWeight,
				})
			}
			sort.Slice(extra, func(i, j int) bool { return extra[i].id < extra[j].id })
			cands = append(cands, extra...)
		}

		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].score > cands[j].score
		})
	}

	if topK > 0 && len(cands) > topK {
		cands = cands[:topK]
	}

	ranked := s.resolve(cands)
	common.LogSearch("hybrid", time.Since(start), len(ranked), nil)
	return ranked, nil
}
