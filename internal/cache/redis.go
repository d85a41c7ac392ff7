package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stock-service/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewBalanceCache(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*BalanceCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	return &BalanceCache{client: rdb, ttl: ttl, log: log}, nil
}

func (c *BalanceCache) Close() error {
	return c.client.Close()
}

type cachedBalances struct {
	Items []models.Balance `json:"items"`
	Total int64            `json:"total"`
}

func balancesKey(tenantID uuid.UUID, filterKey string) string {
	return fmt.Sprintf("balances:%s:%s", tenantID, filterKey)
}

func (c *BalanceCache) GetBalances(ctx context.Context, tenantID uuid.UUID, filterKey string) ([]models.Balance, int64, bool) {
	raw, err := c.client.Get(ctx, balancesKey(tenantID, filterKey)).Bytes()
	if err != nil {
		return nil, 0, false
	}
	var cb cachedBalances
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, 0, false
	}
	return cb.Items, cb.Total, true
}

func (c *BalanceCache) SetBalances(ctx context.Context, tenantID uuid.UUID, filterKey string, items []models.Balance, total int64) {
	raw, err := json.Marshal(cachedBalances{Items: items, Total: total})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, balancesKey(tenantID, filterKey), raw, c.ttl).Err(); err != nil {
		c.log.Warn("balance cache set failed", zap.Error(err))
	}
}

// Invalidate сбрасывает все закэшированные списки арендатора — после каждого
// зафиксированного движения или смены min_stock.
func (c *BalanceCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	pattern := fmt.Sprintf("balances:%s:*", tenantID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Warn("balance cache invalidate failed", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("balance cache scan failed", zap.Error(err))
	}
}
