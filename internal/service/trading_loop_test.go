package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"atrader/internal/config"
	"atrader/internal/models"
	"atrader/internal/telegram"
	"atrader/internal/xe"
	"atrader/pkg/broker"
	"atrader/pkg/market"
)

// tickProvider 固定价格与日线，市场级接口一律不可用
type tickProvider struct {
	market.Provider
	price float64
	bars  []market.Bar
}

func (p *tickProvider) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	return p.price, nil
}

func (p *tickProvider) GetDailyBars(ctx context.Context, symbol string, startDate, endDate string) ([]market.Bar, error) {
	return p.bars, nil
}

func (p *tickProvider) GetTradeCalendar(ctx context.Context, endDate string, n int) ([]string, error) {
	return nil, errors.New("calendar unavailable")
}

func (p *tickProvider) GetMarketDailyRange(ctx context.Context, startDate, endDate string) ([]market.DailyQuote, error) {
	return nil, errors.New("market daily unavailable")
}

func newTestTradingLoop(t *testing.T, maxStocks int, fb *fakeBroker, provider market.Provider) *TradingLoop {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.OrderRecord{}, &models.DailyBar{}, &models.SentimentSnapshot{}, &models.RegimeRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	conf := &config.Config{}
	conf.Normalize()
	conf.Trading.MaxStocks = maxStocks

	logger := zap.NewNop()
	tg, err := telegram.NewTelegram(logger, telegram.Settings{Enabled: false})
	if err != nil {
		t.Fatalf("telegram: %v", err)
	}

	marketService := NewMarketService(db, provider, logger)
	sizer := NewPositionSizer(conf)
	loop := NewTradingLoop(
		conf,
		marketService,
		NewAccountService(fb, logger),
		NewIndicatorService(),
		NewSentimentService(db, provider, logger),
		NewRegimeService(db, conf, marketService, logger),
		NewStrategyRouter(logger),
		NewDecisionService(conf, sizer, logger),
		NewOrderService(db, fb, tg, logger),
		NewSelectorService(conf, nil, provider, logger),
		logger,
	)
	// 周一10:05，交易时段内、选股窗口外
	loop.now = func() time.Time { return at(time.Monday, 10, 5) }
	return loop
}

func stopLossPositions() []broker.Position {
	return []broker.Position{
		{Symbol: "000100.SZ", TotalVolume: 1000, AvailableVolume: 1000, AvgCost: 100, CurrentPrice: 90},
		{Symbol: "000200.SZ", TotalVolume: 1000, AvailableVolume: 1000, AvgCost: 100, CurrentPrice: 90},
	}
}

func TestExecuteTickBuyCapIgnoresPendingSells(t *testing.T) {
	fb := &fakeBroker{
		account:   &broker.AccountSnapshot{Cash: 500000, TotalAsset: 700000},
		positions: stopLossPositions(),
	}
	provider := &tickProvider{price: 90, bars: barsFrom(risingCloses(70, 80, 0.5), nil)}

	loop := newTestTradingLoop(t, 2, fb, provider)
	loop.candidates = []Candidate{{Symbol: "600100.SH"}, {Symbol: "600200.SH"}}

	if err := loop.ExecuteTick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if got := fb.sideCount(broker.OrderSideSell); got != 2 {
		t.Fatalf("sell orders = %d, want 2", got)
	}
	// 卖出未成交前不释放名额：期初持仓已到上限，本轮不得买入
	if got := fb.sideCount(broker.OrderSideBuy); got != 0 {
		t.Fatalf("buy orders = %d, want 0", got)
	}
}

func TestExecuteTickBuysUpToCapFromTickStartHoldings(t *testing.T) {
	fb := &fakeBroker{
		account:   &broker.AccountSnapshot{Cash: 500000, TotalAsset: 700000},
		positions: stopLossPositions(),
	}
	provider := &tickProvider{price: 90, bars: barsFrom(risingCloses(70, 80, 0.5), nil)}

	loop := newTestTradingLoop(t, 3, fb, provider)
	loop.candidates = []Candidate{{Symbol: "600100.SH"}, {Symbol: "600200.SH"}}

	if err := loop.ExecuteTick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if got := fb.sideCount(broker.OrderSideSell); got != 2 {
		t.Fatalf("sell orders = %d, want 2", got)
	}
	if got := fb.sideCount(broker.OrderSideBuy); got != 1 {
		t.Fatalf("buy orders = %d, want 1", got)
	}
}

func TestEvaluateBuysReportsCapStop(t *testing.T) {
	fb := &fakeBroker{account: &broker.AccountSnapshot{Cash: 500000}}
	provider := &tickProvider{price: 90, bars: barsFrom(risingCloses(70, 80, 0.5), nil)}
	loop := newTestTradingLoop(t, 2, fb, provider)

	sentiment := &SentimentReading{Known: false}
	bought, err := loop.evaluateBuys(context.Background(), &broker.AccountSnapshot{Cash: 500000}, sentiment, 2)
	if bought != 0 {
		t.Fatalf("bought = %d, want 0", bought)
	}
	if !errors.Is(err, xe.ErrCapReached) {
		t.Fatalf("expected ErrCapReached, got %v", err)
	}
}

func at(weekday time.Weekday, hour, minute int) time.Time {
	// 2025-03-10 是周一
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	day := base.AddDate(0, 0, int(weekday-time.Monday))
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.Local)
}

func TestInTradingSession(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"morning open", at(time.Monday, 9, 30), true},
		{"before open", at(time.Monday, 9, 29), false},
		{"morning close", at(time.Monday, 11, 30), true},
		{"lunch break", at(time.Monday, 12, 0), false},
		{"afternoon open", at(time.Wednesday, 13, 0), true},
		{"afternoon close", at(time.Friday, 15, 0), true},
		{"after close", at(time.Friday, 15, 1), false},
		{"saturday", at(time.Saturday, 10, 0), false},
		{"sunday", at(time.Sunday, 10, 0), false},
	}
	for _, c := range cases {
		if got := InTradingSession(c.now); got != c.want {
			t.Fatalf("%s (%s): InTradingSession = %v, want %v", c.name, c.now, got, c.want)
		}
	}
}

func TestMatchWindow(t *testing.T) {
	windows := []string{"09:50-10:00", "14:20-14:30"}

	if w, ok := matchWindow(at(time.Monday, 9, 55), windows); !ok || w != "09:50-10:00" {
		t.Fatalf("09:55 should match the morning window, got %q %v", w, ok)
	}
	if w, ok := matchWindow(at(time.Monday, 14, 20), windows); !ok || w != "14:20-14:30" {
		t.Fatalf("14:20 should match the afternoon window, got %q %v", w, ok)
	}
	if _, ok := matchWindow(at(time.Monday, 10, 1), windows); ok {
		t.Fatalf("10:01 is outside both windows")
	}
	if _, ok := matchWindow(at(time.Monday, 9, 55), []string{"garbage"}); ok {
		t.Fatalf("malformed window must not match")
	}
}

func TestParseClock(t *testing.T) {
	got, err := parseClock("14:25")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got != 14*60+25 {
		t.Fatalf("parseClock = %d, want %d", got, 14*60+25)
	}
	if _, err := parseClock("25:00"); err == nil {
		t.Fatalf("invalid clock should error")
	}
}
