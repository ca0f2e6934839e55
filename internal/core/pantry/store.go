package pantry

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"leftovr/internal/infrastructure/config"
	"leftovr/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	idSetKey      = "pantry:ids"
	itemKeyPrefix = "pantry:item:"
	dateLayout    = "2006-01-02"
)

// Store Redis 食材庫存。每項食材存成一個 hash，
// id 集合另外維護在 pantry:ids 方便整批列出。
type Store struct {
	cfg    *config.PantryConfig
	client *redis.Client
}

// NewStore 創建庫存存放區並測試連線
func NewStore(cfg *config.PantryConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("pantry store is disabled")
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("庫存存放區已連線",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB),
	)

	return &Store{cfg: cfg, client: client}, nil
}

// AddOrUpdate 新增或累加一項食材。未指定到期日時預設 N 天後到期。
// 同 id 已存在時數量累加，不覆蓋。
func (s *Store) AddOrUpdate(ctx context.Context, name string, quantity int, unit, expireDate string) (*Item, error) {
	id := NormalizeFoodID(name)
	if id == "" {
		return nil, common.NewValidationError("ingredient name is empty")
	}
	if quantity <= 0 {
		return nil, common.NewValidationError("quantity must be positive")
	}
	if expireDate == "" {
		expireDate = time.Now().AddDate(0, 0, s.cfg.DefaultExpiryDays).Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, expireDate); err != nil {
		return nil, common.NewValidationError("expire_date must be YYYY-MM-DD")
	}

	// 已存在時累加數量
	if existing, err := s.getItem(ctx, id); err == nil && existing != nil {
		quantity += existing.Quantity
		if expireDate > existing.ExpireDate {
			// 保留較早的到期日，避免補貨延後既有庫存的消耗順位
			expireDate = existing.ExpireDate
		}
	}

	item := &Item{
		ID:         id,
		Name:       name,
		Quantity:   quantity,
		Unit:       unit,
		ExpireDate: expireDate,
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, itemKeyPrefix+id,
		"name", item.Name,
		"quantity", item.Quantity,
		"unit", item.Unit,
		"expire_date", item.ExpireDate,
	)
	pipe.SAdd(ctx, idSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store pantry item: %w", err)
	}

	common.LogInfo("庫存已更新",
		zap.String("id", id),
		zap.Int("quantity", item.Quantity),
		zap.String("expire_date", item.ExpireDate),
	)
	return item, nil
}

// Remove 移除食材。quantity <= 0 表示整項移除，
// 否則扣減數量，扣到 0 以下時整項移除。
func (s *Store) Remove(ctx context.Context, name string, quantity int) error {
	id := NormalizeFoodID(name)
	if id == "" {
		return common.NewValidationError("ingredient name is empty")
	}

	item, err := s.getItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return common.ErrNotFound
	}

	if quantity > 0 && item.Quantity > quantity {
		if err := s.client.HSet(ctx, itemKeyPrefix+id, "quantity", item.Quantity-quantity).Err(); err != nil {
			return fmt.Errorf("failed to update pantry item: %w", err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, itemKeyPrefix+id)
	pipe.SRem(ctx, idSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove pantry item: %w", err)
	}
	return nil
}

// GetInventory 列出全部庫存，依到期日遞增排序（先到期先用）
func (s *Store) GetInventory(ctx context.Context) ([]Item, error) {
	ids, err := s.client.SMembers(ctx, idSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pantry ids: %w", err)
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.getItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, *item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].ExpireDate != items[j].ExpireDate {
			return items[i].ExpireDate < items[j].ExpireDate
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// GetExpiring 列出 N 天內到期的食材
func (s *Store) GetExpiring(ctx context.Context, days int) ([]Item, error) {
	items, err := s.GetInventory(ctx)
	if err != nil {
		return nil, err
	}

	threshold := time.Now().AddDate(0, 0, days).Format(dateLayout)
	expiring := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ExpireDate <= threshold {
			expiring = append(expiring, item)
		}
	}
	return expiring, nil
}

// Clear 清空庫存
func (s *Store) Clear(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, idSetKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list pantry ids: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, itemKeyPrefix+id)
	}
	pipe.Del(ctx, idSetKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear pantry: %w", err)
	}

	common.LogInfo("庫存已清空", zap.Int("removed", len(ids)))
	return nil
}

// Close 關閉連線
func (s *Store) Close() error {
	return s.client.Close()
}

// getItem 讀出單項食材，不存在時回傳 nil
func (s *Store) getItem(ctx context.Context, id string) (*Item, error) {
	fields, err := s.client.HGetAll(ctx, itemKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pantry item: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	quantity, _ := strconv.Atoi(fields["quantity"])
	return &Item{
		ID:         id,
		Name:       fields["name"],
		Quantity:   quantity,
		Unit:       fields["unit"],
		ExpireDate: fields["expire_date"],
	}, nil
}
