package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"leftovr/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
)

// Embedder 文本向量化介面。查詢端與 ingest 端必須使用同一模型與維度，
// 否則相似度分數毫無意義。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Client 嵌入服務客戶端（ollama 相容的 /api/embed 介面）
type Client struct {
	cfg    *config.EmbeddingConfig
	client *resty.Client
}

// NewClient 創建嵌入服務客戶端
func NewClient(cfg *config.EmbeddingConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		cfg:    cfg,
		client: client,
	}
}

// Embed 將單一文本轉為單位長度向量
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return vecs[0], nil
}

// EmbedBatch 批次向量化。回傳的向量一律歸一化為單位長度，
// 讓內積等同餘弦相似度（ingest 與查詢兩側一致）。
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := map[string]interface{}{
		"model": c.cfg.Model,
		"input": texts,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/api/embed")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to embedding service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned error: %s", resp.String())
	}

	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(result.Embeddings), len(texts))
	}

	for i := range result.Embeddings {
		if len(result.Embeddings[i]) != c.cfg.Dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(result.Embeddings[i]), c.cfg.Dimension)
		}
		NormalizeVector(result.Embeddings[i])
	}
	return result.Embeddings, nil
}

// Dimension 回傳向量維度
func (c *Client) Dimension() int {
	return c.cfg.Dimension
}

// Model 回傳模型名稱
func (c *Client) Model() string {
	return c.cfg.Model
}

// NormalizeVector 就地將向量歸一化為單位長度，零向量保持不變
func NormalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// RecipeText 組出食譜語料文本，模板與查詢端 SearchText 綁定，不可單方修改
func RecipeText(title string, ingredients []string) string {
	return fmt.Sprintf("%s. Ingredients: %s", title, strings.Join(ingredients, ", "))
}

// SearchText 組出查詢文本：自由描述 + 庫存清單，任一可省略。
// 兩者皆空時回傳空字串，由呼叫方決定略過檢索。
func SearchText(query string, pantryItems []string) string {
	parts := make([]string, 0, 2)
	if query != "" {
		parts = append(parts, query)
	}
	if len(pantryItems) > 0 {
		// 與 RecipeText 的食材片段同格式："Ingredients: chicken, garlic, lemon"
		parts = append(parts, fmt.Sprintf("Ingredients: %s", strings.Join(pantryItems, ", ")))
	}
	return strings.Join(parts, ". ")
}
