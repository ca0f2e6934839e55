package health

import (
	"net/http"
	"runtime"
	"time"

	searchService "leftovr/internal/core/search"
	"leftovr/internal/infrastructure/config"
	"leftovr/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Dataset   *DatasetStatus         `json:"dataset,omitempty"`
}

// DatasetStatus 資料集載入狀態
type DatasetStatus struct {
	Recipes            int  `json:"recipes"`
	IndexedIngredients int  `json:"indexed_ingredients"`
	SemanticEnabled    bool `json:"semantic_enabled"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	// 獲取配置
	cfg, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}
	config, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// 構建響應
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	// 附帶資料集狀態（如果檢索服務已注入）
	if svcVal, exists := c.Get("search_service"); exists {
		if svc, ok := svcVal.(*searchService.Service); ok {
			response.Dataset = &DatasetStatus{
				Recipes:            svc.Recipes(),
				IndexedIngredients: svc.IndexedIngredients(),
				SemanticEnabled:    svc.SemanticEnabled(),
			}
		}
	}

	// 記錄請求
	common.LogInfo("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器。資料集未載入時回報未就緒。
func ReadinessCheck(c *gin.Context) {
	if svcVal, exists := c.Get("search_service"); exists {
		if svc, ok := svcVal.(*searchService.Service); ok && svc.Recipes() == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "recipe dataset not loaded",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
