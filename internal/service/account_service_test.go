package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"atrader/internal/xe"
	"atrader/pkg/broker"
)

func TestAccountSnapshotCombinesPositions(t *testing.T) {
	fb := &fakeBroker{
		account: &broker.AccountSnapshot{Cash: 100000, TotalAsset: 150000},
		positions: []broker.Position{
			{Symbol: "002083.SZ", TotalVolume: 1000, AvailableVolume: 1000, AvgCost: 10, CurrentPrice: 11},
		},
	}
	s := NewAccountService(fb, zap.NewNop())

	snapshot, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snapshot.Cash != 100000 {
		t.Fatalf("cash = %v, want 100000", snapshot.Cash)
	}
	if len(snapshot.Positions) != 1 || snapshot.Positions[0].Symbol != "002083.SZ" {
		t.Fatalf("positions not attached: %v", snapshot.Positions)
	}
}

func TestAccountSnapshotUpstreamError(t *testing.T) {
	fb := &fakeBroker{queryErr: errors.New("gateway down")}
	s := NewAccountService(fb, zap.NewNop())

	_, err := s.Snapshot(context.Background())
	if !errors.Is(err, xe.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestHeldSymbolsSkipsEmptyPositions(t *testing.T) {
	fb := &fakeBroker{
		positions: []broker.Position{
			{Symbol: "002083.SZ", TotalVolume: 1000},
			{Symbol: "600519.SH", TotalVolume: 0},
		},
	}
	s := NewAccountService(fb, zap.NewNop())

	symbols, err := s.HeldSymbols(context.Background())
	if err != nil {
		t.Fatalf("held symbols failed: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "002083.SZ" {
		t.Fatalf("held symbols = %v, want [002083.SZ]", symbols)
	}
}
