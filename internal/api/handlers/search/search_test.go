package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leftovr/internal/core/cache"
	"leftovr/internal/core/index"
	"leftovr/internal/core/pantry"
	searchService "leftovr/internal/core/search"
	"leftovr/internal/core/store"
	"leftovr/internal/core/vector"
	"leftovr/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func (fakeEmbedder) Dimension() int { return 3 }
func (fakeEmbedder) Model() string  { return "all-minilm" }

type fakeSearcher struct{ hits []vector.Hit }

func (f *fakeSearcher) CollectionExists(ctx context.Context) (bool, error) { return true, nil }

func (f *fakeSearcher) Search(ctx context.Context, vec []float32, limit int) ([]vector.Hit, error) {
	return f.hits, nil
}

type fakeInventory struct{ items []pantry.Item }

func (f *fakeInventory) GetInventory(ctx context.Context) ([]pantry.Item, error) {
	return f.items, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recipes := []*store.Recipe{
		{ID: 0, Title: "Pancakes", Ingredients: []string{"flour", "egg", "milk", "sugar"}},
		{ID: 1, Title: "Omelette", Ingredients: []string{"egg", "milk"}},
	}
	cfg := &config.SearchConfig{CandidatePool: 500, DefaultTopK: 20}
	svc := searchService.NewService(cfg, store.NewMetadataStore(recipes), index.Build(recipes), nil, nil, nil)

	h := NewHandler(svc, nil)

	router := gin.New()
	router.POST("/api/v1/recipes/search", h.HandleHybridSearch)
	router.POST("/api/v1/recipes/by-ingredients", h.HandleExactSearch)
	router.POST("/api/v1/recipes/semantic", h.HandleSemanticSearch)
	router.POST("/api/v1/recipes/feasibility", h.HandleFeasibility)
	return router
}

func doPost(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleHybridSearch(t *testing.T) {
	router := newTestRouter(t)

	w := doPost(t, router, "/api/v1/recipes/search", HybridSearchRequest{
		PantryItems:  []string{"2 cups flour", "Eggs", "MILK"},
		Query:        "breakfast",
		TopK:         10,
		AllowMissing: 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hybrid", resp.Mode)
	require.Equal(t, 2, resp.Total)

	// Omelette 全料齊排第一
	assert.Equal(t, "Omelette", resp.Results[0].Title)
	assert.Equal(t, 1198.0, resp.Results[0].Score)
	assert.Empty(t, resp.Results[0].Missing)
	assert.Equal(t, []string{"sugar"}, resp.Results[1].Missing)
}

func TestHandleHybridSearchNoPantry(t *testing.T) {
	router := newTestRouter(t)

	// 未帶 pantry_items 且庫存服務不可用
	w := doPost(t, router, "/api/v1/recipes/search", HybridSearchRequest{Query: "dinner"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleHybridSearchEmptyInventory(t *testing.T) {
	// 庫存為空是合法輸入：自動帶入後回 200 與空結果，不是呼叫端錯誤
	gin.SetMode(gin.TestMode)
	recipes := []*store.Recipe{
		{ID: 0, Title: "Pancakes", Ingredients: []string{"flour", "egg"}},
	}
	cfg := &config.SearchConfig{CandidatePool: 500, DefaultTopK: 20}
	svc := searchService.NewService(cfg, store.NewMetadataStore(recipes), index.Build(recipes), nil, nil, &fakeInventory{})

	router := gin.New()
	router.POST("/api/v1/recipes/search", NewHandler(svc, nil).HandleHybridSearch)

	w := doPost(t, router, "/api/v1/recipes/search", HybridSearchRequest{Query: "dinner"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Results)
}

func TestHandleHybridSearchCacheRespectsUseSemantic(t *testing.T) {
	// use_semantic 不同的請求不能共用同一份快取結果
	gin.SetMode(gin.TestMode)
	recipes := []*store.Recipe{
		{ID: 1, Title: "Omelette", Ingredients: []string{"egg", "milk"}},
	}
	searchCfg := &config.SearchConfig{CandidatePool: 500, DefaultTopK: 20}
	searcher := &fakeSearcher{hits: []vector.Hit{{ID: 1, Similarity: 0.9}}}
	svc := searchService.NewService(searchCfg, store.NewMetadataStore(recipes), index.Build(recipes), fakeEmbedder{}, searcher, nil)

	cacheManager := cache.NewManager(&config.Config{
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         100,
			TTL:             time.Hour,
			CleanupInterval: time.Hour,
		},
	})
	require.NotNil(t, cacheManager)
	defer cacheManager.Close()

	router := gin.New()
	router.POST("/api/v1/recipes/search", NewHandler(svc, cacheManager).HandleHybridSearch)

	// 第一次帶語意加分：1198 + 0.9*50 = 1243
	w := doPost(t, router, "/api/v1/recipes/search", HybridSearchRequest{
		PantryItems: []string{"egg", "milk"},
		Query:       "omelette",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, 1243.0, resp.Results[0].Score)

	// 同參數但關閉語意：必須回純精確分數，不是快取的融合分數
	off := false
	w = doPost(t, router, "/api/v1/recipes/search", HybridSearchRequest{
		PantryItems: []string{"egg", "milk"},
		Query:       "omelette",
		UseSemantic: &off,
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, 1198.0, resp.Results[0].Score)
}

func TestHandleHybridSearchMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/search", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleExactSearch(t *testing.T) {
	router := newTestRouter(t)

	w := doPost(t, router, "/api/v1/recipes/by-ingredients", ExactSearchRequest{
		PantryItems:  []string{"egg", "milk"},
		AllowMissing: 0,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "exact", resp.Mode)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Omelette", resp.Results[0].Title)
}

func TestHandleExactSearchMissingPantry(t *testing.T) {
	router := newTestRouter(t)

	// pantry_items 是必填欄位
	w := doPost(t, router, "/api/v1/recipes/by-ingredients", map[string]interface{}{"top_k": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSemanticSearchUnavailable(t *testing.T) {
	router := newTestRouter(t)

	// 語意端未配置時回 503
	w := doPost(t, router, "/api/v1/recipes/semantic", SemanticSearchRequest{Query: "comfort food"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleFeasibilityUnknownRecipe(t *testing.T) {
	router := newTestRouter(t)

	w := doPost(t, router, "/api/v1/recipes/feasibility", FeasibilityRequest{RecipeID: 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
