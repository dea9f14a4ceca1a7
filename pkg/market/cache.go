package market

import (
	"context"
	"sync"
	"time"
)

// PriceCache 最新价内存缓存
// 单写多读：行情拉取方写入，决策循环与回调处理读取
type PriceCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]priceEntry
}

type priceEntry struct {
	price float64
	at    time.Time
}

// NewPriceCache 创建价格缓存
func NewPriceCache(ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &PriceCache{
		ttl:     ttl,
		entries: make(map[string]priceEntry),
	}
}

// Get 读取未过期的价格
func (c *PriceCache) Get(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || time.Since(entry.at) > c.ttl {
		return 0, false
	}
	return entry.price, true
}

// Set 写入价格
func (c *PriceCache) Set(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = priceEntry{price: price, at: time.Now()}
}

// CachedProvider 包装 Provider，为最新价增加短 TTL 缓存
type CachedProvider struct {
	Provider
	cache *PriceCache
}

// NewCachedProvider 创建带价格缓存的 Provider
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		Provider: inner,
		cache:    NewPriceCache(ttl),
	}
}

// GetLatestPrice 优先返回缓存价格
func (c *CachedProvider) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	if price, ok := c.cache.Get(symbol); ok {
		return price, nil
	}

	price, err := c.Provider.GetLatestPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	c.cache.Set(symbol, price)
	return price, nil
}
