package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"leftovr/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
)

// Hit 向量檢索命中結果
type Hit struct {
	ID         int
	Similarity float64
}

// Point 一筆待寫入的向量記錄（ingest 用）
type Point struct {
	ID      int                    `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Searcher 查詢端向量後端介面
type Searcher interface {
	CollectionExists(ctx context.Context) (bool, error)
	Search(ctx context.Context, vec []float32, limit int) ([]Hit, error)
}

// Writer ingest 端向量後端介面
type Writer interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
}

// QdrantClient Qdrant REST API 客戶端
type QdrantClient struct {
	cfg    *config.VectorConfig
	client *resty.Client
}

// NewQdrantClient 創建 Qdrant 客戶端
func NewQdrantClient(cfg *config.VectorConfig) *QdrantClient {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}

	return &QdrantClient{
		cfg:    cfg,
		client: client,
	}
}

// CollectionExists 檢查集合是否存在
func (q *QdrantClient) CollectionExists(ctx context.Context) (bool, error) {
	resp, err := q.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/collections/%s/exists", q.cfg.Collection))
	if err != nil {
		return false, fmt.Errorf("failed to reach vector backend: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("vector backend returned error: %s", resp.String())
	}

	var result struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return false, fmt.Errorf("failed to parse exists response: %w", err)
	}
	return result.Result.Exists, nil
}

// Search 以查詢向量做 top-k 餘弦相似度檢索，回傳依相似度遞減排序的命中
func (q *QdrantClient) Search(ctx context.Context, vec []float32, limit int) ([]Hit, error) {
	req := map[string]interface{}{
		"vector":       vec,
		"limit":        limit,
		"with_payload": false,
	}

	resp, err := q.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(fmt.Sprintf("/collections/%s/points/search", q.cfg.Collection))
	if err != nil {
		return nil, fmt.Errorf("vector search request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("vector search returned error: %s", resp.String())
	}

	var result struct {
		Result []struct {
			ID    int     `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	hits := make([]Hit, 0, len(result.Result))
	for _, r := range result.Result {
		hits = append(hits, Hit{ID: r.ID, Similarity: r.Score})
	}
	return hits, nil
}

// EnsureCollection 建立集合（已存在時不動作），距離度量固定為 Cosine
func (q *QdrantClient) EnsureCollection(ctx context.Context, dimension int) error {
	exists, err := q.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	req := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}

	resp, err := q.client.R().
		SetContext(ctx).
		SetBody(req).
		Put(fmt.Sprintf("/collections/%s", q.cfg.Collection))
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("create collection returned error: %s", resp.String())
	}
	return nil
}

// Upsert 批次寫入向量記錄（ingest 用），等待寫入完成再返回
func (q *QdrantClient) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	req := map[string]interface{}{
		"points": points,
	}

	resp, err := q.client.R().
		SetContext(ctx).
		SetBody(req).
		SetQueryParam("wait", "true").
		Put(fmt.Sprintf("/collections/%s/points", q.cfg.Collection))
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("upsert returned error: %s", resp.String())
	}
	return nil
}
