package service

import (
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"atrader/pkg/market"
)

func barsFrom(closes []float64, volumes []float64) []market.Bar {
	base := time.Date(2025, 1, 2, 15, 0, 0, 0, time.Local)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = market.Bar{
			Time:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: v,
			Amount: c * v,
		}
	}
	return bars
}

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}
	return closes
}

func newTestRegimeService() *RegimeService {
	return &RegimeService{logger: zap.NewNop()}
}

func TestMASystemFactorBullishAlignment(t *testing.T) {
	bars := barsFrom(risingCloses(70, 100, 1), nil)
	v, ok := maSystemFactor(map[string][]market.Bar{"000001.SH": bars})
	if !ok {
		t.Fatalf("expected factor with 70 bars")
	}
	if v < 0.9 {
		t.Fatalf("steadily rising index should score near 1, got %v", v)
	}
}

func TestMASystemFactorBearishAlignment(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	bars := barsFrom(closes, nil)
	v, ok := maSystemFactor(map[string][]market.Bar{"000001.SH": bars})
	if !ok {
		t.Fatalf("expected factor with 70 bars")
	}
	if v > -0.9 {
		t.Fatalf("steadily falling index should score near -1, got %v", v)
	}
}

func TestMASystemFactorInsufficientBars(t *testing.T) {
	bars := barsFrom(risingCloses(30, 100, 1), nil)
	if _, ok := maSystemFactor(map[string][]market.Bar{"000001.SH": bars}); ok {
		t.Fatalf("fewer than 60 bars must not produce a factor")
	}
}

func TestSentimentFactor(t *testing.T) {
	if _, ok := sentimentFactor(&SentimentReading{Known: false}); ok {
		t.Fatalf("unknown sentiment must be absent from the score")
	}

	v, ok := sentimentFactor(&SentimentReading{DailyIndex: 90, LongIndex: 90, Known: true})
	if !ok || v != 1 {
		t.Fatalf("extreme greed should cap at 1, got %v", v)
	}

	v, _ = sentimentFactor(&SentimentReading{DailyIndex: 10, LongIndex: 10, Known: true})
	if v != -1 {
		t.Fatalf("extreme panic should cap at -1, got %v", v)
	}

	// 当日与长周期反向分歧打七折
	v, _ = sentimentFactor(&SentimentReading{DailyIndex: 80, LongIndex: 30, Known: true})
	if math.Abs(v-0.14) > 1e-9 {
		t.Fatalf("divergent reading = %v, want 0.14", v)
	}
}

func TestHorizonReturnFactor(t *testing.T) {
	if _, ok := horizonReturnFactor(barsFrom(risingCloses(100, 100, 0.2), nil)); ok {
		t.Fatalf("fewer than 121 bars must not produce a factor")
	}

	flat := barsFrom(risingCloses(130, 100, 0), nil)
	v, ok := horizonReturnFactor(flat)
	if !ok || v != 0 {
		t.Fatalf("flat market should score 0, got %v", v)
	}

	rising := barsFrom(risingCloses(130, 100, 1), nil)
	v, ok = horizonReturnFactor(rising)
	if !ok || v <= 0 {
		t.Fatalf("rising market should score positive, got %v", v)
	}
}

func TestVolumeDirectionFactor(t *testing.T) {
	// 放量上涨
	closes := risingCloses(25, 100, 1)
	volumes := make([]float64, 25)
	for i := range volumes {
		volumes[i] = 1000
		if i >= 20 {
			volumes[i] = 2000
		}
	}
	v, ok := volumeDirectionFactor(barsFrom(closes, volumes))
	if !ok || v != 0.8 {
		t.Fatalf("rising price on rising volume = %v, want 0.8", v)
	}

	// 放量下跌
	falling := make([]float64, 25)
	for i := range falling {
		falling[i] = 200 - 2*float64(i)
	}
	v, ok = volumeDirectionFactor(barsFrom(falling, volumes))
	if !ok || v != -0.8 {
		t.Fatalf("falling price on rising volume = %v, want -0.8", v)
	}

	if _, ok := volumeDirectionFactor(barsFrom(risingCloses(10, 100, 1), nil)); ok {
		t.Fatalf("fewer than 21 bars must not produce a factor")
	}
}

func TestEvaluateLabelThreshold(t *testing.T) {
	s := newTestRegimeService()

	// 只有情绪因子参与，得分归一后等于因子本身
	bull := s.Evaluate(RegimeInputs{
		Sentiment:   &SentimentReading{DailyIndex: 90, LongIndex: 90, Known: true},
		DataQuality: map[string]float64{"000001.SH": 1.0},
	})
	if bull.Label != RegimeBull {
		t.Fatalf("score 1 with threshold 0.3 should label bull, got %s", bull.Label)
	}
	if bull.Threshold != 0.3 {
		t.Fatalf("full data quality should use threshold 0.3, got %v", bull.Threshold)
	}
	if bull.TakeProfitPercent != 20 {
		t.Fatalf("bull take-profit = %v, want 20", bull.TakeProfitPercent)
	}

	bear := s.Evaluate(RegimeInputs{
		Sentiment:   &SentimentReading{DailyIndex: 10, LongIndex: 10, Known: true},
		DataQuality: map[string]float64{"000001.SH": 1.0},
	})
	if bear.Label != RegimeBear {
		t.Fatalf("score -1 should label bear, got %s", bear.Label)
	}
	if bear.TakeProfitPercent != 10 {
		t.Fatalf("bear take-profit = %v, want 10", bear.TakeProfitPercent)
	}
}

func TestEvaluateLowQualityLowersThreshold(t *testing.T) {
	s := newTestRegimeService()

	verdict := s.Evaluate(RegimeInputs{
		Sentiment:   &SentimentReading{DailyIndex: 60, LongIndex: 60, Known: true},
		DataQuality: map[string]float64{"000001.SH": 0.5},
	})
	if verdict.Threshold != 0.25 {
		t.Fatalf("degraded data quality should use threshold 0.25, got %v", verdict.Threshold)
	}
}

func TestEvaluateNoFactors(t *testing.T) {
	s := newTestRegimeService()

	verdict := s.Evaluate(RegimeInputs{})
	if verdict.Label != RegimeNeutral {
		t.Fatalf("no factors should yield neutral, got %s", verdict.Label)
	}
	if verdict.Score != 0 || verdict.Confidence != 0 {
		t.Fatalf("no factors should yield zero score and confidence, got %v/%v", verdict.Score, verdict.Confidence)
	}
	if verdict.TakeProfitPercent != 15 {
		t.Fatalf("neutral take-profit = %v, want 15", verdict.TakeProfitPercent)
	}
}

func TestEvaluateConfidenceMatchesScore(t *testing.T) {
	s := newTestRegimeService()

	verdict := s.Evaluate(RegimeInputs{
		Sentiment:   &SentimentReading{DailyIndex: 60, LongIndex: 60, Known: true},
		DataQuality: map[string]float64{"000001.SH": 1.0},
	})
	if math.Abs(verdict.Confidence-math.Abs(verdict.Score)) > 1e-9 {
		t.Fatalf("confidence %v should equal |score| %v", verdict.Confidence, verdict.Score)
	}
}
