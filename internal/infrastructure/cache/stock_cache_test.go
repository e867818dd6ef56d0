package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func newTestCache(t *testing.T) (*StockCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStockCache(rdb, 30*time.Second), mr
}

func TestStockCache_SetGetInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := entity.StockKey{TenantID: "t1", ProductID: "p1", WarehouseID: "w1"}

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "sin entrada devuelve nil")

	rec := entity.NewStockRecord("r1", key, time.Now().UTC().Truncate(time.Second))
	rec.QuantityPhysical = 10
	rec.QuantityReserved = 4
	rec.AverageUnitCost = decimal.RequireFromString("933.33")
	require.NoError(t, c.Set(ctx, &rec))
	assert.Equal(t, 30*time.Second, mr.TTL(cacheKey(key)))

	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(6), got.Available())
	assert.True(t, rec.AverageUnitCost.Equal(got.AverageUnitCost))

	require.NoError(t, c.Invalidate(ctx, key))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStockCache_EntradaCorruptaSeDescarta(t *testing.T) {
	c, mr := newTestCache(t)
	key := entity.StockKey{TenantID: "t1", ProductID: "p1", WarehouseID: "w1"}
	require.NoError(t, mr.Set(cacheKey(key), "{no-json"))

	got, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(cacheKey(key)))
}

func TestStockCache_ExpiraConTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := entity.StockKey{TenantID: "t1", ProductID: "p1", WarehouseID: "w1"}
	rec := entity.NewStockRecord("r1", key, time.Now())
	require.NoError(t, c.Set(ctx, &rec))

	mr.FastForward(31 * time.Second)
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}
