package service

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"atrader/internal/config"
	"atrader/internal/xe"
	"atrader/pkg/broker"
)

func newTestDecisionService() *DecisionService {
	conf := &config.Config{}
	conf.Normalize()
	sizer := NewPositionSizer(conf)
	return NewDecisionService(conf, sizer, zap.NewNop())
}

// 不触发任何技术性卖出信号的指标快照
func quietSnapshot(price float64) *IndicatorSnapshot {
	return &IndicatorSnapshot{
		Price:      price,
		MA5:        price * 0.99,
		MA20:       price * 0.97,
		PrevMA5:    price * 0.99,
		PrevMA20:   price * 0.97,
		RSI14:      55,
		MACD:       0.5,
		MACDSignal: 0.3,
		PrevMACD:   0.5,
		PrevSignal: 0.3,
		MACDHist:   0.2,
	}
}

func neutralSentiment() *SentimentReading {
	return &SentimentReading{TradeDate: "20250310", DailyIndex: 50, LongIndex: 50, Known: true}
}

func verdictWithTP(label RegimeLabel, tp float64) *RegimeVerdict {
	v := NeutralVerdict()
	v.Label = label
	v.TakeProfitPercent = tp
	return v
}

func TestEvaluateSellStopLoss(t *testing.T) {
	s := newTestDecisionService()
	pos := broker.Position{Symbol: "002083.SZ", TotalVolume: 1000, AvailableVolume: 1000, AvgCost: 10.00}

	decision, err := s.EvaluateSell(pos, 9.40, quietSnapshot(9.40), verdictWithTP(RegimeNeutral, 15), neutralSentiment())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Sell {
		t.Fatalf("stop-loss at -6%% must trigger a sell")
	}
	if decision.Quantity != 1000 {
		t.Fatalf("sell quantity = %d, want full available 1000", decision.Quantity)
	}
	found := false
	for _, r := range decision.Reasons {
		if strings.Contains(r, "stop-loss") {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons should mention stop-loss, got %v", decision.Reasons)
	}
}

func TestEvaluateSellTakeProfitByRegime(t *testing.T) {
	s := newTestDecisionService()
	pos := broker.Position{Symbol: "002083.SZ", TotalVolume: 1000, AvailableVolume: 1000, AvgCost: 10.00}
	price := 11.80 // pnl +18%

	cases := []struct {
		label RegimeLabel
		tp    float64
		sell  bool
	}{
		{RegimeNeutral, 15, true},
		{RegimeBull, 20, false},
		{RegimeBear, 10, true},
	}
	for _, c := range cases {
		decision, err := s.EvaluateSell(pos, price, quietSnapshot(price), verdictWithTP(c.label, c.tp), neutralSentiment())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.label, err)
		}
		if decision.Sell != c.sell {
			t.Fatalf("%s regime with tp %.0f: sell = %v, want %v (reasons %v)",
				c.label, c.tp, decision.Sell, c.sell, decision.Reasons)
		}
	}
}

func TestEvaluateSellT1Locked(t *testing.T) {
	s := newTestDecisionService()
	pos := broker.Position{Symbol: "002083.SZ", TotalVolume: 1000, AvailableVolume: 0, AvgCost: 10.00}

	_, err := s.EvaluateSell(pos, 9.00, quietSnapshot(9.00), NeutralVerdict(), neutralSentiment())
	if !errors.Is(err, xe.ErrT1Locked) {
		t.Fatalf("locked position should return ErrT1Locked, got %v", err)
	}
}

func TestEvaluateSellPanicGate(t *testing.T) {
	s := newTestDecisionService()
	pos := broker.Position{Symbol: "002083.SZ", TotalVolume: 1000, AvailableVolume: 1000, AvgCost: 10.00}
	panicSentiment := &SentimentReading{TradeDate: "20250310", DailyIndex: 15, LongIndex: 40, Known: true}

	// 盈利 12%，RSI 超买，正常情况下会触发止盈和 RSI 离场
	snap := quietSnapshot(11.20)
	snap.RSI14 = 78
	decision, err := s.EvaluateSell(pos, 11.20, snap, verdictWithTP(RegimeNeutral, 10), panicSentiment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Sell {
		t.Fatalf("panic gate must suppress non-stop-loss signals, got %v", decision.Reasons)
	}

	// 深亏穿透恐慌闸门，止损照常触发
	decision, err = s.EvaluateSell(pos, 9.40, quietSnapshot(9.40), verdictWithTP(RegimeNeutral, 10), panicSentiment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Sell {
		t.Fatalf("stop-loss must fire through the panic gate")
	}
	if len(decision.Reasons) != 1 || !strings.Contains(decision.Reasons[0], "stop-loss") {
		t.Fatalf("panic gate should retain only stop-loss, got %v", decision.Reasons)
	}
}

func TestEvaluateSellInvalidInput(t *testing.T) {
	s := newTestDecisionService()
	pos := broker.Position{Symbol: "002083.SZ", TotalVolume: 1000, AvailableVolume: 1000, AvgCost: 10.00}

	_, err := s.EvaluateSell(pos, 0, quietSnapshot(10), NeutralVerdict(), neutralSentiment())
	if !errors.Is(err, xe.ErrInvalidInput) {
		t.Fatalf("zero price should return ErrInvalidInput, got %v", err)
	}
}

func TestEvaluateBuySentimentGates(t *testing.T) {
	s := newTestDecisionService()
	snap := quietSnapshot(20.0) // MA5 > MA20

	cases := []struct {
		name       string
		daily      float64
		long       float64
		buy        bool
		doubleSize bool
	}{
		{"extreme panic", 5, 50, true, false},
		{"panic", 15, 50, true, false},
		{"extreme greed daily", 95, 50, false, false},
		{"extreme greed long", 50, 95, false, false},
		{"greed", 85, 50, true, false},
		{"opportunity", 25, 35, true, true},
		{"normal with ma signal", 50, 50, true, false},
	}
	for _, c := range cases {
		sentiment := &SentimentReading{DailyIndex: c.daily, LongIndex: c.long, Known: true}
		decision := s.EvaluateBuy("002083.SZ", 20.0, 500000, snap, sentiment)
		if decision.Buy != c.buy {
			t.Fatalf("%s: buy = %v, want %v (reason %q)", c.name, decision.Buy, c.buy, decision.Reason)
		}
		if !c.buy {
			continue
		}
		base := s.sizer.Shares("002083.SZ", 20.0, 500000)
		want := base
		if c.doubleSize {
			want = 2 * base
		}
		if decision.Quantity != want {
			t.Fatalf("%s: quantity = %d, want %d", c.name, decision.Quantity, want)
		}
	}
}

func TestEvaluateBuyNoSignal(t *testing.T) {
	s := newTestDecisionService()
	snap := quietSnapshot(20.0)
	snap.MA5 = 19.0
	snap.MA20 = 19.5 // 均线空头，常规情绪下不买

	decision := s.EvaluateBuy("002083.SZ", 20.0, 500000, snap, neutralSentiment())
	if decision.Buy {
		t.Fatalf("no signal should mean no buy, got %q", decision.Reason)
	}
}

func TestAdjustedMaxStocks(t *testing.T) {
	s := newTestDecisionService() // 默认上限 10

	cases := []struct {
		daily float64
		want  int
	}{
		{15, 7},
		{85, 8},
		{50, 10},
	}
	for _, c := range cases {
		sentiment := &SentimentReading{DailyIndex: c.daily, LongIndex: 50, Known: true}
		if got := s.AdjustedMaxStocks(sentiment); got != c.want {
			t.Fatalf("daily %.0f: max stocks = %d, want %d", c.daily, got, c.want)
		}
	}
}
