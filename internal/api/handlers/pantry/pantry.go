package pantry

import (
	"net/http"
	"strconv"

	pantryStore "leftovr/internal/core/pantry"
	"leftovr/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AddItemRequest 新增食材請求
type AddItemRequest struct {
	Name       string `json:"name" binding:"required"` // 食材名稱
	Quantity   int    `json:"quantity,omitempty"`      // 數量，預設 1
	Unit       string `json:"unit,omitempty"`          // 單位
	ExpireDate string `json:"expire_date,omitempty"`   // 到期日 YYYY-MM-DD，省略時套用預設天數
}

// RemoveItemRequest 移除食材請求
type RemoveItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity,omitempty"` // 省略或 0 表示整項移除
}

// Handler 庫存處理程序
type Handler struct {
	store *pantryStore.Store
}

// NewHandler 創建新的庫存處理程序
func NewHandler(store *pantryStore.Store) *Handler {
	return &Handler{store: store}
}

// HandleGetInventory 列出全部庫存
func (h *Handler) HandleGetInventory(c *gin.Context) {
	items, err := h.store.GetInventory(c.Request.Context())
	if err != nil {
		common.LogError("庫存讀取失敗", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pantry store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// HandleAddItem 新增或累加食材
func (h *Handler) HandleAddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	item, err := h.store.AddOrUpdate(c.Request.Context(), req.Name, req.Quantity, req.Unit, req.ExpireDate)
	if err != nil {
		if common.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		common.LogError("庫存寫入失敗", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pantry store unavailable"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// HandleRemoveItem 扣減或移除食材
func (h *Handler) HandleRemoveItem(c *gin.Context) {
	var req RemoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.store.Remove(c.Request.Context(), req.Name, req.Quantity); err != nil {
		if customErr, ok := err.(*common.CustomError); ok {
			c.JSON(customErr.Status, gin.H{"error": customErr.Message, "code": customErr.Code})
			return
		}
		if common.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		common.LogError("庫存移除失敗", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pantry store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// HandleGetExpiring 列出 N 天內到期的食材，預設 3 天
func (h *Handler) HandleGetExpiring(c *gin.Context) {
	days := 3
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = parsed
	}

	items, err := h.store.GetExpiring(c.Request.Context(), days)
	if err != nil {
		common.LogError("到期查詢失敗", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pantry store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
		"days":  days,
	})
}

// HandleClear 清空庫存
func (h *Handler) HandleClear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		common.LogError("庫存清空失敗", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pantry store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
