package search

import (
	"context"
	"errors"
	"testing"

	"leftovr/internal/core/index"
	"leftovr/internal/core/store"
	"leftovr/internal/core/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 回傳固定向量的 Embedder 假實作，並記錄收到的文本
type fakeEmbedder struct {
	vec       []float32
	err       error
	lastText  string
	callCount int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.lastText = text
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return len(f.vec) }
func (f *fakeEmbedder) Model() string  { return "fake" }

// fakeSearcher 可腳本化失敗次數的向量後端假實作
type fakeSearcher struct {
	hits      []vector.Hit
	failTimes int
	calls     int
}

func (f *fakeSearcher) CollectionExists(ctx context.Context) (bool, error) {
	return true, nil
}

func (f *fakeSearcher) Search(ctx context.Context, vec []float32, limit int) ([]vector.Hit, error) {
	f.calls++
	if f.calls <= f.failTimes {
		return nil, errors.New("backend unavailable")
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func newSemanticService(recipes []*store.Recipe, embedder *fakeEmbedder, searcher *fakeSearcher) *Service {
	meta := store.NewMetadataStore(recipes)
	return NewService(testSearchConfig(), meta, index.Build(recipes), embedder, searcher, nil)
}

func TestSemanticRank(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	searcher := &fakeSearcher{hits: []vector.Hit{
		{ID: 2, Similarity: 0.9},
		{ID: 0, Similarity: 0.4},
	}}
	svc := newSemanticService(testRecipes(), embedder, searcher)

	hits := svc.SemanticRank(context.Background(), "comfort food", []string{"flour", "egg"}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, 2, hits[0].ID)
	assert.Equal(t, 0.9, hits[0].Similarity)
}

func TestSemanticRankQueryText(t *testing.T) {
	// 查詢文本帶原始庫存清單，格式與語料端綁定
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	searcher := &fakeSearcher{}
	svc := newSemanticService(testRecipes(), embedder, searcher)

	svc.SemanticRank(context.Background(), "quick dinner", []string{"2 cups flour", "Eggs"}, 10)
	assert.Equal(t, "quick dinner. Ingredients: 2 cups flour, Eggs", embedder.lastText)

	svc.SemanticRank(context.Background(), "", []string{"milk"}, 10)
	assert.Equal(t, "Ingredients: milk", embedder.lastText)

	svc.SemanticRank(context.Background(), "just soup", nil, 10)
	assert.Equal(t, "just soup", embedder.lastText)
}

func TestSemanticRankEmptyInput(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	searcher := &fakeSearcher{hits: []vector.Hit{{ID: 0, Similarity: 0.5}}}
	svc := newSemanticService(testRecipes(), embedder, searcher)

	// 查詢與庫存皆空時不打嵌入服務
	hits := svc.SemanticRank(context.Background(), "", nil, 10)
	assert.Empty(t, hits)
	assert.Zero(t, embedder.callCount)
}

func TestSemanticRankDisabled(t *testing.T) {
	svc := newExactService(testRecipes())

	hits := svc.SemanticRank(context.Background(), "anything", []string{"flour"}, 10)
	assert.Empty(t, hits)
	assert.False(t, svc.SemanticEnabled())
}

func TestSemanticRankEmbedderFailureDegrades(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	searcher := &fakeSearcher{hits: []vector.Hit{{ID: 0, Similarity: 0.5}}}
	svc := newSemanticService(testRecipes(), embedder, searcher)

	// 嵌入失敗降級為空結果，不傳播錯誤
	hits := svc.SemanticRank(context.Background(), "anything", []string{"flour"}, 10)
	assert.Empty(t, hits)
	assert.Zero(t, searcher.calls)
}

func TestSemanticRankRetriesOnce(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}

	// 第一次失敗、第二次成功：重試後拿到結果
	searcher := &fakeSearcher{failTimes: 1, hits: []vector.Hit{{ID: 1, Similarity: 0.7}}}
	svc := newSemanticService(testRecipes(), embedder, searcher)

	hits := svc.SemanticRank(context.Background(), "anything", []string{"flour"}, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, searcher.calls)

	// 連續失敗兩次：降級為空結果，不再重試
	searcher = &fakeSearcher{failTimes: 5, hits: []vector.Hit{{ID: 1, Similarity: 0.7}}}
	svc = newSemanticService(testRecipes(), embedder, searcher)

	hits = svc.SemanticRank(context.Background(), "anything", []string{"flour"}, 10)
	assert.Empty(t, hits)
	assert.Equal(t, 2, searcher.calls)
}

func TestSemanticRankRecipesSkipsStaleIDs(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	searcher := &fakeSearcher{hits: []vector.Hit{
		{ID: 1, Similarity: 0.8},
		{ID: 42, Similarity: 0.6}, // 向量庫殘留的過期 id
	}}
	svc := newSemanticService(testRecipes(), embedder, searcher)

	ranked := svc.SemanticRankRecipes(context.Background(), "anything", nil, 10)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Recipe.ID)
	assert.Equal(t, 0.8, ranked[0].Score)
}
