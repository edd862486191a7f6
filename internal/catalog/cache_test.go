package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingProducts struct {
	fakeProducts
	calls int
}

func (c *countingProducts) GetProduct(ctx context.Context, id uuid.UUID) (Product, bool, error) {
	c.calls++
	return c.fakeProducts.GetProduct(ctx, id)
}

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Minute)
	product := Product{ID: uuid.New(), Name: "Lentils 1kg", UnitPrice: 1500, WeightGrams: 1000, Stock: 10, IsActive: true}

	require.NoError(t, cache.SetJSON(context.Background(), cacheKey(product.ID), product))

	var got Product
	hit, err := cache.GetJSON(context.Background(), cacheKey(product.ID), &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, product, got)
}

func TestCacheMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Minute)
	var got Product
	hit, err := cache.GetJSON(context.Background(), cacheKey(uuid.New()), &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *Cache
	require.NoError(t, cache.SetJSON(context.Background(), "k", "v"))
	hit, err := cache.GetJSON(context.Background(), "k", new(string))
	require.NoError(t, err)
	require.False(t, hit)
}

func TestResolveServesRepeatLookupsFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	product := Product{ID: uuid.New(), Name: "Seed Potatoes", UnitPrice: 900, WeightGrams: 2000, Stock: 40, IsActive: true}
	store := &countingProducts{fakeProducts: fakeProducts{product.ID: product}}
	svc := &Service{Store: store, Cache: NewCache(client, time.Minute)}

	refs := []LineRef{{ProductID: product.ID, Qty: 2}}
	_, err := svc.Resolve(context.Background(), refs)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), refs)
	require.NoError(t, err)

	require.Equal(t, 1, store.calls)
}
