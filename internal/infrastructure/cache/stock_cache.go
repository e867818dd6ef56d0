package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.StockViewCache = (*StockCache)(nil)

const keyPrefix = "stock-ledger:stock:"

// StockCache copia de solo lectura de StockRecord para pantallas de disponibilidad.
// Se invalida en cada commit que toca el registro; ninguna reserva lee de aquí.
type StockCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStockCache(rdb *redis.Client, ttl time.Duration) *StockCache {
	return &StockCache{rdb: rdb, ttl: ttl}
}

func cacheKey(key entity.StockKey) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, key.TenantID, key.WarehouseID, key.ProductID)
}

// Get devuelve nil, nil si no hay entrada.
func (c *StockCache) Get(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	val, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	var rec entity.StockRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		// Entrada corrupta: se descarta y se lee del almacén.
		_ = c.rdb.Del(ctx, cacheKey(key)).Err()
		return nil, nil
	}
	return &rec, nil
}

func (c *StockCache) Set(ctx context.Context, rec *entity.StockRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(rec.Key()), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", rec.Key(), err)
	}
	return nil
}

func (c *StockCache) Invalidate(ctx context.Context, keys ...entity.StockKey) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = cacheKey(k)
	}
	if err := c.rdb.Del(ctx, names...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Ping verifica la conexión (usado por /health).
func (c *StockCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
