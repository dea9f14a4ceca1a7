package service

import (
	"testing"

	"go.uber.org/zap"
)

func TestRouteGreedSplit(t *testing.T) {
	r := NewStrategyRouter(zap.NewNop())
	held := []string{"000002.SZ", "000001.SZ", "600519.SH", "002083.SZ", "300750.SZ"}

	groups := r.Route(85, held)

	enhanced := groups[StrategyEnhanced]
	shortMA := groups[StrategyShortMA]
	if len(enhanced) != 2 {
		t.Fatalf("enhanced group = %v, want 2 symbols", enhanced)
	}
	if len(shortMA) != 3 {
		t.Fatalf("short-ma group = %v, want 3 symbols", shortMA)
	}
	if enhanced[0] != "000001.SZ" || enhanced[1] != "000002.SZ" {
		t.Fatalf("groups must follow sorted symbol order, got %v", enhanced)
	}
}

func TestRoutePanicStrategies(t *testing.T) {
	r := NewStrategyRouter(zap.NewNop())
	groups := r.Route(10, []string{"000001.SZ", "000002.SZ"})

	if _, ok := groups[StrategyConservative]; !ok {
		t.Fatalf("panic sentiment must route to conservative, got %v", groups)
	}
	if _, ok := groups[StrategyLongMA]; !ok {
		t.Fatalf("panic sentiment must route to long-ma, got %v", groups)
	}
}

func TestRouteNormalStrategies(t *testing.T) {
	r := NewStrategyRouter(zap.NewNop())
	groups := r.Route(50, []string{"000001.SZ", "000002.SZ", "000003.SZ"})

	for _, name := range []string{StrategyShortMA, StrategyMidMA, StrategyStandard} {
		if len(groups[name]) != 1 {
			t.Fatalf("normal sentiment should spread one symbol per strategy, got %v", groups)
		}
	}
}

func TestRoutePartitionInvariant(t *testing.T) {
	r := NewStrategyRouter(zap.NewNop())
	held := []string{"600000.SH", "600519.SH", "000001.SZ", "002083.SZ", "300750.SZ", "688111.SH", "000858.SZ"}

	for _, sentiment := range []float64{5, 50, 95, -10, 150} {
		groups := r.Route(sentiment, held)
		seen := make(map[string]int)
		for name, symbols := range groups {
			if len(symbols) == 0 {
				t.Fatalf("sentiment %.0f: empty group %s must be dropped", sentiment, name)
			}
			for _, s := range symbols {
				seen[s]++
			}
		}
		if len(seen) != len(held) {
			t.Fatalf("sentiment %.0f: %d symbols routed, want %d", sentiment, len(seen), len(held))
		}
		for s, n := range seen {
			if n != 1 {
				t.Fatalf("sentiment %.0f: symbol %s routed %d times", sentiment, s, n)
			}
		}
	}
}

func TestRouteDeterministic(t *testing.T) {
	r := NewStrategyRouter(zap.NewNop())
	held := []string{"600519.SH", "000001.SZ", "300750.SZ"}

	first := r.Route(50, held)
	for i := 0; i < 10; i++ {
		again := r.Route(50, held)
		if len(again) != len(first) {
			t.Fatalf("routing must be deterministic")
		}
		for name, symbols := range first {
			other := again[name]
			if len(other) != len(symbols) {
				t.Fatalf("group %s changed between runs", name)
			}
			for j := range symbols {
				if other[j] != symbols[j] {
					t.Fatalf("group %s order changed between runs", name)
				}
			}
		}
	}
}

func TestRouteEmptyHoldings(t *testing.T) {
	r := NewStrategyRouter(zap.NewNop())
	if groups := r.Route(50, nil); len(groups) != 0 {
		t.Fatalf("no holdings should produce no groups, got %v", groups)
	}
}
