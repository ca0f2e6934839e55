package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leftovr/internal/api"
	"leftovr/internal/core/cache"
	"leftovr/internal/core/embedding"
	"leftovr/internal/core/index"
	"leftovr/internal/core/pantry"
	"leftovr/internal/core/search"
	"leftovr/internal/core/store"
	"leftovr/internal/core/vector"
	"leftovr/internal/infrastructure/config"
	"leftovr/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("metadata", cfg.MetadataPath()),
		zap.String("ingredient_index", cfg.IngredientIndexPath()),
		zap.Bool("embedding_enabled", cfg.Embedding.Enabled),
		zap.Bool("vector_enabled", cfg.Vector.Enabled),
	)

	// 載入食譜資料集
	meta, err := store.LoadMetadata(cfg.MetadataPath())
	if err != nil {
		common.LogFatal("Failed to load recipe metadata", zap.Error(err))
	}

	// 載入食材倒排索引
	idx, err := index.Load(cfg.IngredientIndexPath())
	if err != nil {
		common.LogFatal("Failed to load ingredient index", zap.Error(err))
	}

	common.LogInfo("資料集已載入",
		zap.Int("recipes", meta.Len()),
		zap.Int("indexed_ingredients", idx.Len()),
	)

	// 初始化語意檢索端。任一端不可用時停用語意檢索，
	// 服務以純精確匹配模式提供。
	var (
		embedder embedding.Embedder
		vectors  vector.Searcher
	)
	if cfg.Embedding.Enabled && cfg.Vector.Enabled {
		qdrant := vector.NewQdrantClient(&cfg.Vector)

		probeCtx, cancel := context.WithTimeout(context.Background(), cfg.Vector.Timeout)
		exists, err := qdrant.CollectionExists(probeCtx)
		cancel()

		switch {
		case err != nil:
			common.LogWarn("向量庫不可用，語意檢索停用", zap.Error(err))
		case !exists:
			common.LogWarn("向量集合不存在，語意檢索停用",
				zap.String("collection", cfg.Vector.Collection),
			)
		default:
			embedder = embedding.NewClient(&cfg.Embedding)
			vectors = qdrant
		}
	}

	// 初始化庫存存放區，失敗時僅停用庫存功能
	var pantryStore *pantry.Store
	if cfg.Pantry.Enabled {
		pantryStore, err = pantry.NewStore(&cfg.Pantry)
		if err != nil {
			common.LogWarn("庫存存放區不可用，庫存功能停用", zap.Error(err))
			pantryStore = nil
		} else {
			defer pantryStore.Close()
		}
	}

	var pantryProvider pantry.Provider
	if pantryStore != nil {
		pantryProvider = pantryStore
	}

	// 初始化檢索服務
	svc := search.NewService(&cfg.Search, meta, idx, embedder, vectors, pantryProvider)

	// 初始化快取
	cacheManager := cache.NewManager(cfg)
	// 只在快取開啟但初始化失敗時才 Fatal
	if cfg.Cache.Enabled && cacheManager == nil {
		common.LogFatal("Failed to initialize cache manager")
	}
	defer cacheManager.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, svc, cacheManager, pantryStore)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
