package market

import (
	"context"
	"testing"
	"time"
)

type countingProvider struct {
	Provider
	calls int
	price float64
}

func (p *countingProvider) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	p.calls++
	return p.price, nil
}

func TestPriceCacheExpiry(t *testing.T) {
	cache := NewPriceCache(30 * time.Millisecond)
	cache.Set("002083.SZ", 12.34)

	if price, ok := cache.Get("002083.SZ"); !ok || price != 12.34 {
		t.Fatalf("fresh entry should hit, got %v %v", price, ok)
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := cache.Get("002083.SZ"); ok {
		t.Fatalf("expired entry must miss")
	}
}

func TestCachedProviderReusesPrice(t *testing.T) {
	inner := &countingProvider{price: 9.87}
	provider := NewCachedProvider(inner, time.Second)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		price, err := provider.GetLatestPrice(ctx, "600519.SH")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != 9.87 {
			t.Fatalf("price = %v, want 9.87", price)
		}
	}

	if inner.calls != 1 {
		t.Fatalf("inner provider called %d times, want 1", inner.calls)
	}
}
