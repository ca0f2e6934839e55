package pantry

import (
	"context"
	"strings"

	"leftovr/internal/core/ingredient"
)

// Item 庫存中的一項食材
type Item struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Unit       string `json:"unit,omitempty"`
	ExpireDate string `json:"expire_date"` // YYYY-MM-DD
}

// Provider 庫存提供者。檢索層只依賴這個介面，
// 呼叫方未帶 pantry_items 時用它自動補齊。
type Provider interface {
	GetInventory(ctx context.Context) ([]Item, error)
}

// NormalizeFoodID 將食材名稱轉為確定性的庫存 id：
// 先做與索引相同的單數化，再小寫、去空白、空格轉連字號。
func NormalizeFoodID(name string) string {
	key := ingredient.Normalize(name)
	if key == "" {
		return ""
	}
	return strings.ReplaceAll(key, " ", "-")
}
