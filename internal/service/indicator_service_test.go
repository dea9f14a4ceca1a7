package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"atrader/internal/xe"
	"atrader/pkg/market"
)

func TestComputeMA(t *testing.T) {
	s := NewIndicatorService()
	bars := barsFrom([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nil)

	v, err := s.Compute("MA5", bars)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	// 最后5根: 6+7+8+9+10 = 40 / 5 = 8
	if math.Abs(v.Scalar-8) > 1e-9 {
		t.Fatalf("MA5 = %v, want 8", v.Scalar)
	}
}

func TestComputeInsufficientData(t *testing.T) {
	s := NewIndicatorService()
	bars := barsFrom([]float64{1, 2, 3}, nil)

	_, err := s.Compute("MA20", bars)
	if !errors.Is(err, xe.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestComputeUnknownIndicator(t *testing.T) {
	s := NewIndicatorService()
	bars := barsFrom(risingCloses(100, 10, 0.1), nil)

	if _, err := s.Compute("WOBBLE", bars); err == nil {
		t.Fatalf("unknown indicator must error")
	}
}

func TestComputeRejectsMalformedBar(t *testing.T) {
	s := NewIndicatorService()
	bars := barsFrom(risingCloses(30, 10, 0.1), nil)
	bars[10].Close = -1

	_, err := s.Compute("MA20", bars)
	if !errors.Is(err, xe.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestComputeMACDRecord(t *testing.T) {
	s := NewIndicatorService()
	bars := barsFrom(risingCloses(60, 10, 0.1), nil)

	v, err := s.Compute("MACD", bars)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	for _, key := range []string{"line", "signal", "histogram"} {
		if _, ok := v.Record[key]; !ok {
			t.Fatalf("MACD record missing %q: %v", key, v.Record)
		}
	}
	if math.Abs(v.Record["histogram"]-(v.Record["line"]-v.Record["signal"])) > 1e-6 {
		t.Fatalf("histogram should equal line minus signal")
	}
}

func TestComputeRSIRange(t *testing.T) {
	s := NewIndicatorService()

	rising := barsFrom(risingCloses(40, 10, 0.5), nil)
	v, err := s.Compute("RSI", rising)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if v.Scalar < 0 || v.Scalar > 100 {
		t.Fatalf("RSI out of range: %v", v.Scalar)
	}
	if v.Scalar < 50 {
		t.Fatalf("monotonically rising closes should give RSI above 50, got %v", v.Scalar)
	}
}

func TestComputeFromTicks(t *testing.T) {
	s := NewIndicatorService()

	base := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	var ticks []market.Tick
	for i := 0; i < 10; i++ {
		ticks = append(ticks, market.Tick{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Price:  10 + float64(i)*0.1,
			Volume: 100,
		})
	}

	v, err := s.ComputeFromTicks("MA5", ticks)
	if err != nil {
		t.Fatalf("compute from ticks failed: %v", err)
	}
	if v.Scalar <= 10 {
		t.Fatalf("MA5 over rising ticks should exceed 10, got %v", v.Scalar)
	}
}

func TestSnapshot(t *testing.T) {
	s := NewIndicatorService()
	bars := barsFrom(risingCloses(snapshotLookback, 10, 0.1), nil)

	snap, err := s.Snapshot(bars)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snap.Price != bars[len(bars)-1].Close {
		t.Fatalf("snapshot price = %v, want last close %v", snap.Price, bars[len(bars)-1].Close)
	}
	// 持续上涨行情中短均线在长均线上方
	if snap.MA5 <= snap.MA20 || snap.MA20 <= snap.MA60 {
		t.Fatalf("rising market should align MA5 > MA20 > MA60, got %v/%v/%v", snap.MA5, snap.MA20, snap.MA60)
	}

	if _, err := s.Snapshot(bars[:30]); !errors.Is(err, xe.ErrInsufficientData) {
		t.Fatalf("short history should return ErrInsufficientData, got %v", err)
	}
}
