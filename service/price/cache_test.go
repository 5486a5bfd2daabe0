package price

import (
	"testing"
	"time"

	"github.com/okdsgnr/Strata/service/audit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCachePriceExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(60*time.Second, time.Hour, clock)

	mint := "So11111111111111111111111111111111111111112"
	price := decimal.NewFromFloat(142.5)

	_, ok := cache.GetPrice(mint)
	assert.False(t, ok, "empty cache should miss")

	cache.PutPrice(mint, &price)

	got, ok := cache.GetPrice(mint)
	require.True(t, ok)
	require.NotNil(t, got)
	assert.True(t, got.Equal(price))

	clock.Advance(59 * time.Second)
	_, ok = cache.GetPrice(mint)
	assert.True(t, ok, "entry should still be fresh just inside the TTL")

	clock.Advance(2 * time.Second)
	_, ok = cache.GetPrice(mint)
	assert.False(t, ok, "entry should expire after the TTL")
}

func TestCacheStoresUnknownPrice(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(60*time.Second, time.Hour, clock)

	cache.PutPrice("UnlistedMint1111111111111111111111111111111", nil)

	got, ok := cache.GetPrice("UnlistedMint1111111111111111111111111111111")
	require.True(t, ok, "a nil price is a valid cached result")
	assert.Nil(t, got)
}

func TestCacheMetadataIndependentTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(60*time.Second, time.Hour, clock)

	mint := "So11111111111111111111111111111111111111112"
	name := "Wrapped SOL"
	symbol := "SOL"
	cache.PutMetadata(mint, audit.TokenMetadata{Name: &name, Symbol: &symbol})

	// Prices expire long before metadata does.
	clock.Advance(30 * time.Minute)
	meta, ok := cache.GetMetadata(mint)
	require.True(t, ok)
	require.NotNil(t, meta.Name)
	assert.Equal(t, "Wrapped SOL", *meta.Name)
	require.NotNil(t, meta.Symbol)
	assert.Equal(t, "SOL", *meta.Symbol)

	clock.Advance(31 * time.Minute)
	_, ok = cache.GetMetadata(mint)
	assert.False(t, ok, "metadata should expire after its own TTL")
}

func TestCacheDefaults(t *testing.T) {
	cache := NewCache(0, 0, nil)
	assert.Equal(t, DefaultPriceTTL, cache.priceTTL)
	assert.Equal(t, DefaultMetadataTTL, cache.metaTTL)
	assert.IsType(t, SystemClock{}, cache.clock)
}
