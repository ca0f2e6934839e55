package search

import (
	"encoding/json"
	"net/http"

	"leftovr/internal/core/cache"
	searchService "leftovr/internal/core/search"
	"leftovr/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HybridSearchRequest 混合檢索請求。pantry_items 省略時自動帶入庫存
type HybridSearchRequest struct {
	PantryItems  []string `json:"pantry_items,omitempty"`  // 手上的食材，省略時讀取庫存
	Query        string   `json:"query,omitempty"`         // 自由描述，例如 "quick dinner"
	TopK         int      `json:"top_k,omitempty"`         // 回傳筆數上限
	AllowMissing int      `json:"allow_missing,omitempty"` // 允許缺料數
	UseSemantic  *bool    `json:"use_semantic,omitempty"`  // 是否啟用語意加分，預設啟用
}

// ExactSearchRequest 純精確匹配請求
type ExactSearchRequest struct {
	PantryItems  []string `json:"pantry_items" binding:"required"` // 手上的食材
	TopK         int      `json:"top_k,omitempty"`
	AllowMissing int      `json:"allow_missing,omitempty"`
}

// SemanticSearchRequest 純語意檢索請求
type SemanticSearchRequest struct {
	Query       string   `json:"query" binding:"required"` // 自由描述
	PantryItems []string `json:"pantry_items,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

// FeasibilityRequest 單一食譜可行性檢查。
// recipe_id 不加 required 驗證：資料集的編號從 0 開始。
type FeasibilityRequest struct {
	RecipeID     int `json:"recipe_id"` // 食譜編號
	AllowMissing int `json:"allow_missing,omitempty"`
}

// RecipeResult 單筆排名結果
type RecipeResult struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Source     string   `json:"source,omitempty"`
	Score      float64  `json:"score"`
	Used       int      `json:"used"`
	Missing    []string `json:"missing"`
	Directions []string `json:"directions,omitempty"`
}

// SearchResponse 檢索響應
type SearchResponse struct {
	Results []RecipeResult `json:"results"`
	Total   int            `json:"total"`
	Mode    string         `json:"mode"`
}

// Handler 檢索處理程序
type Handler struct {
	svc   *searchService.Service
	cache *cache.Manager
}

// NewHandler 創建新的檢索處理程序
func NewHandler(svc *searchService.Service, cacheManager *cache.Manager) *Handler {
	return &Handler{
		svc:   svc,
		cache: cacheManager,
	}
}

// HandleHybridSearch 混合檢索：精確匹配候選池加上語意加分
func (h *Handler) HandleHybridSearch(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req HybridSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	// pantry_items 省略時自動帶入庫存。庫存為空是合法輸入，回空結果
	pantryItems := req.PantryItems
	if len(pantryItems) == 0 {
		items, err := h.svc.PantryItems(c.Request.Context())
		if err != nil {
			common.LogWarn("庫存讀取失敗",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			if customErr, ok := err.(*common.CustomError); ok {
				c.JSON(customErr.Status, gin.H{
					"error": customErr.Message,
					"code":  customErr.Code,
				})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "pantry_items is empty and pantry store is unavailable",
			})
			return
		}
		pantryItems = items
	}

	useSemantic := true
	if req.UseSemantic != nil {
		useSemantic = *req.UseSemantic
	}

	// 緩存查詢
	cacheKey := cache.Key("hybrid", pantryItems, req.Query, req.TopK, req.AllowMissing, useSemantic)
	if cached, err := h.cache.Get(c.Request.Context(), cacheKey); err == nil {
		var resp SearchResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	ranked, err := h.svc.HybridRank(c.Request.Context(), pantryItems, req.Query, req.TopK, req.AllowMissing, useSemantic)
	if err != nil {
		common.LogError("混合檢索失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	resp := buildResponse(ranked, "hybrid")
	if data, err := json.Marshal(resp); err == nil {
		_ = h.cache.Set(c.Request.Context(), cacheKey, string(data))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleExactSearch 純精確食材匹配
func (h *Handler) HandleExactSearch(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req ExactSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ranked, err := h.svc.ExactMatchRank(c.Request.Context(), req.PantryItems, req.AllowMissing, req.TopK)
	if err != nil {
		common.LogError("精確檢索失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, buildResponse(ranked, "exact"))
}

// HandleSemanticSearch 純語意檢索
func (h *Handler) HandleSemanticSearch(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if !h.svc.SemanticEnabled() {
		c.JSON(common.ErrVectorUnavailable.Status, gin.H{
			"error": common.ErrVectorUnavailable.Message,
			"code":  common.ErrVectorUnavailable.Code,
		})
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 20
	}
	ranked := h.svc.SemanticRankRecipes(c.Request.Context(), req.Query, req.PantryItems, topK)
	c.JSON(http.StatusOK, buildResponse(ranked, "semantic"))
}

// HandleFeasibility 以目前庫存檢查單一食譜可行性
func (h *Handler) HandleFeasibility(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req FeasibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, feasible, err := h.svc.FeasibilityWithPantry(c.Request.Context(), req.RecipeID, req.AllowMissing)
	if err != nil {
		if customErr, ok := err.(*common.CustomError); ok {
			c.JSON(customErr.Status, gin.H{
				"error": customErr.Message,
				"code":  customErr.Code,
			})
			return
		}
		common.LogError("可行性檢查失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feasibility check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feasible": feasible,
		"recipe":   toResult(result),
	})
}

// ensureRequestID 確保每個請求都有 request id
func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

func toResult(r *searchService.RankedRecipe) RecipeResult {
	missing := r.Missing
	if missing == nil {
		missing = []string{}
	}
	return RecipeResult{
		ID:         r.Recipe.ID,
		Title:      r.Recipe.Title,
		Link:       r.Recipe.Link,
		Source:     r.Recipe.Source,
		Score:      r.Score,
		Used:       r.Used,
		Missing:    missing,
		Directions: r.Recipe.Directions,
	}
}

func buildResponse(ranked []searchService.RankedRecipe, mode string) SearchResponse {
	results := make([]RecipeResult, 0, len(ranked))
	for i := range ranked {
		results = append(results, toResult(&ranked[i]))
	}
	return SearchResponse{
		Results: results,
		Total:   len(results),
		Mode:    mode,
	}
}
