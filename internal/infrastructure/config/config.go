package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Data        DataConfig      `mapstructure:"data"`
	Embedding   EmbeddingConfig `mapstructure:"embedding"`
	Vector      VectorConfig    `mapstructure:"vector"`
	Search      SearchConfig    `mapstructure:"search"`
	Pantry      PantryConfig    `mapstructure:"pantry"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DataConfig 食譜資料檔案設定（由 ingest 工具產生）
type DataConfig struct {
	Dir                 string `mapstructure:"dir"`
	MetadataFile        string `mapstructure:"metadata_file"`
	IngredientIndexFile string `mapstructure:"ingredient_index_file"`
}

// EmbeddingConfig 向量嵌入服務設定
type EmbeddingConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// VectorConfig 向量資料庫（Qdrant）設定
type VectorConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SearchConfig 檢索排序設定
type SearchConfig struct {
	CandidatePool       int           `mapstructure:"candidate_pool"`
	DefaultTopK         int           `mapstructure:"default_top_k"`
	IncludeSemanticOnly bool          `mapstructure:"include_semantic_only"`
	SemanticTimeout     time.Duration `mapstructure:"semantic_timeout"`
}

// PantryConfig 食材庫存（Redis）設定
type PantryConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisDB           int    `mapstructure:"redis_db"`
	DefaultExpiryDays int    `mapstructure:"default_expiry_days"`
}

// CacheConfig 查詢結果快取設定
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（允許不存在，改用環境變數）
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("data.dir", "DATA_DIR")
	viper.BindEnv("embedding.enabled", "EMBEDDING_ENABLED")
	viper.BindEnv("embedding.url", "EMBEDDING_URL")
	viper.BindEnv("embedding.model", "EMBEDDING_MODEL")
	viper.BindEnv("vector.enabled", "VECTOR_ENABLED")
	viper.BindEnv("vector.url", "VECTOR_URL")
	viper.BindEnv("vector.api_key", "VECTOR_API_KEY")
	viper.BindEnv("vector.collection", "VECTOR_COLLECTION")
	viper.BindEnv("pantry.enabled", "PANTRY_ENABLED")
	viper.BindEnv("pantry.redis_addr", "PANTRY_REDIS_ADDR")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MetadataPath 回傳食譜中繼資料檔案完整路徑
func (c *Config) MetadataPath() string {
	return c.Data.Dir + "/" + c.Data.MetadataFile
}

// IngredientIndexPath 回傳食材倒排索引檔案完整路徑
func (c *Config) IngredientIndexPath() string {
	return c.Data.Dir + "/" + c.Data.IngredientIndexFile
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "leftovr")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 資料檔案設定
	viper.SetDefault("data.dir", "data")
	viper.SetDefault("data.metadata_file", "recipe_metadata.jsonl")
	viper.SetDefault("data.ingredient_index_file", "ingredient_index.json")

	// 嵌入服務設定（all-MiniLM-L6-v2 相容模型，384 維）
	viper.SetDefault("embedding.enabled", false)
	viper.SetDefault("embedding.url", "http://localhost:11434")
	viper.SetDefault("embedding.model", "all-minilm")
	viper.SetDefault("embedding.dimension", 384)
	viper.SetDefault("embedding.timeout", "30s")

	// 向量資料庫設定
	viper.SetDefault("vector.enabled", false)
	viper.SetDefault("vector.url", "http://localhost:6333")
	viper.SetDefault("vector.collection", "recipes")
	viper.SetDefault("vector.timeout", "10s")

	// 檢索設定
	viper.SetDefault("search.candidate_pool", 500)
	viper.SetDefault("search.default_top_k", 20)
	viper.SetDefault("search.include_semantic_only", false)
	viper.SetDefault("search.semantic_timeout", "15s")

	// 庫存設定
	viper.SetDefault("pantry.enabled", false)
	viper.SetDefault("pantry.redis_addr", "localhost:6379")
	viper.SetDefault("pantry.redis_db", 0)
	viper.SetDefault("pantry.default_expiry_days", 7)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 去重視窗預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證資料設定
	if config.Data.Dir == "" {
		return fmt.Errorf("data dir is required")
	}

	// 驗證嵌入設定
	if config.Embedding.Enabled {
		if config.Embedding.URL == "" {
			return fmt.Errorf("embedding url is required")
		}
		if config.Embedding.Dimension <= 0 {
			return fmt.Errorf("invalid embedding dimension")
		}
	}

	// 驗證向量資料庫設定
	if config.Vector.Enabled {
		if config.Vector.URL == "" {
			return fmt.Errorf("vector url is required")
		}
		if config.Vector.Collection == "" {
			return fmt.Errorf("vector collection is required")
		}
	}

	// 驗證檢索設定
	if config.Search.CandidatePool <= 0 {
		return fmt.Errorf("invalid search candidate pool")
	}
	if config.Search.DefaultTopK <= 0 {
		return fmt.Errorf("invalid search default top k")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	return nil
}
