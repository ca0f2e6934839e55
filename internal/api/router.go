package api

import (
	"context"
	"net/http"
	"time"

	"leftovr/internal/api/handlers/health"
	pantryHandler "leftovr/internal/api/handlers/pantry"
	searchHandler "leftovr/internal/api/handlers/search"
	"leftovr/internal/api/middleware"
	"leftovr/internal/core/cache"
	pantryStore "leftovr/internal/core/pantry"
	searchService "leftovr/internal/core/search"
	"leftovr/internal/infrastructure/config"
	"leftovr/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 30 * time.Second
	// 請求體大小限制 (1MB)，純文字檢索不需要更大
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(
	cfg *config.Config,
	svc *searchService.Service,
	cacheManager *cache.Manager,
	pantry *pantryStore.Store,
) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求去重
	router.Use(middleware.Deduplication(cfg))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 全局中間件：設置超時和服務
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		// 設置配置與服務供處理器取用
		c.Set("config", cfg)
		c.Set("search_service", svc)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		searchHandlerInstance := searchHandler.NewHandler(svc, cacheManager)

		// 食譜檢索路由
		recipeGroup := api.Group("/recipes")
		{
			// 混合檢索：精確匹配加語意加分
			recipeGroup.POST("/search", searchHandlerInstance.HandleHybridSearch)

			// 純食材精確匹配
			recipeGroup.POST("/by-ingredients", searchHandlerInstance.HandleExactSearch)

			// 純語意檢索
			recipeGroup.POST("/semantic", searchHandlerInstance.HandleSemanticSearch)

			// 以庫存檢查單一食譜可行性
			recipeGroup.POST("/feasibility", searchHandlerInstance.HandleFeasibility)
		}

		// 庫存路由，僅在庫存服務可用時註冊
		if pantry != nil {
			pantryHandlerInstance := pantryHandler.NewHandler(pantry)

			pantryGroup := api.Group("/pantry")
			{
				pantryGroup.GET("/inventory", pantryHandlerInstance.HandleGetInventory)
				pantryGroup.POST("/items", pantryHandlerInstance.HandleAddItem)
				pantryGroup.DELETE("/items", pantryHandlerInstance.HandleRemoveItem)
				pantryGroup.GET("/expiring", pantryHandlerInstance.HandleGetExpiring)
				pantryGroup.DELETE("/inventory", pantryHandlerInstance.HandleClear)
			}
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("semantic_enabled", svc.SemanticEnabled()),
		zap.Bool("pantry_enabled", pantry != nil),
		zap.Bool("cache_enabled", cacheManager != nil),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
