package price

import (
	"sync"
	"time"

	"github.com/okdsgnr/Strata/service/audit"
	"github.com/shopspring/decimal"
)

// Clock abstracts time for the cache so tests can drive expiry
// deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Default TTLs matching the upstream refresh cadence: prices go stale in a
// minute, descriptive metadata holds for an hour.
const (
	DefaultPriceTTL    = 60 * time.Second
	DefaultMetadataTTL = time.Hour
)

type priceEntry struct {
	price   *decimal.Decimal // nil is a valid cached "price unknown" result
	expires time.Time
}

type metaEntry struct {
	meta    audit.TokenMetadata
	expires time.Time
}

// Cache is an in-memory TTL cache for prices and token metadata, keyed by
// mint. It is constructed once per process and passed by reference; there is
// no package-level state. Safe for concurrent use.
type Cache struct {
	clock    Clock
	priceTTL time.Duration
	metaTTL  time.Duration

	mu     sync.RWMutex
	prices map[string]priceEntry
	meta   map[string]metaEntry
}

// NewCache creates a Cache with the given TTLs. A nil clock means the system
// clock; non-positive TTLs fall back to the defaults.
func NewCache(priceTTL, metaTTL time.Duration, clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	if priceTTL <= 0 {
		priceTTL = DefaultPriceTTL
	}
	if metaTTL <= 0 {
		metaTTL = DefaultMetadataTTL
	}
	return &Cache{
		clock:    clock,
		priceTTL: priceTTL,
		metaTTL:  metaTTL,
		prices:   make(map[string]priceEntry),
		meta:     make(map[string]metaEntry),
	}
}

// GetPrice returns the cached price for a mint. The second return value
// reports whether a fresh entry exists; a true result with a nil price means
// "price unknown" was cached.
func (c *Cache) GetPrice(mint string) (*decimal.Decimal, bool) {
	c.mu.RLock()
	e, ok := c.prices[mint]
	c.mu.RUnlock()
	if !ok || c.clock.Now().After(e.expires) {
		return nil, false
	}
	return e.price, true
}

// PutPrice caches a price lookup result, including nil "unknown" results so
// repeated lookups for unlisted tokens do not hammer the providers.
func (c *Cache) PutPrice(mint string, price *decimal.Decimal) {
	c.mu.Lock()
	c.prices[mint] = priceEntry{price: price, expires: c.clock.Now().Add(c.priceTTL)}
	c.mu.Unlock()
}

// GetMetadata returns cached token metadata for a mint, if fresh.
func (c *Cache) GetMetadata(mint string) (audit.TokenMetadata, bool) {
	c.mu.RLock()
	e, ok := c.meta[mint]
	c.mu.RUnlock()
	if !ok || c.clock.Now().After(e.expires) {
		return audit.TokenMetadata{}, false
	}
	return e.meta, true
}

// PutMetadata caches token metadata for a mint.
func (c *Cache) PutMetadata(mint string, meta audit.TokenMetadata) {
	c.mu.Lock()
	c.meta[mint] = metaEntry{meta: meta, expires: c.clock.Now().Add(c.metaTTL)}
	c.mu.Unlock()
}
