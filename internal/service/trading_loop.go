package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"atrader/internal/config"
	"atrader/internal/xe"
	"atrader/pkg/broker"
)

// TradingLoop 交易循环调度器
// 交易时段内按固定间隔执行一轮监控：先卖后买，选股只在指定时间窗触发
type TradingLoop struct {
	conf             config.TradingConf
	selectionWindows []string

	marketService    *MarketService
	accountService   *AccountService
	indicatorService *IndicatorService
	sentimentService *SentimentService
	regimeService    *RegimeService
	strategyRouter   *StrategyRouter
	decisionService  *DecisionService
	orderService     *OrderService
	selectorService  *SelectorService
	logger           *zap.Logger

	// 测试中替换为假时钟
	now func() time.Time

	startTime time.Time
	iteration int
	isRunning bool
	stopChan  chan struct{}
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc

	mu               sync.Mutex
	candidates       []Candidate
	lastSelectionRun string // 交易日+窗口，同一窗口只选一次
}

// NewTradingLoop 创建交易循环
func NewTradingLoop(
	conf *config.Config,
	marketService *MarketService,
	accountService *AccountService,
	indicatorService *IndicatorService,
	sentimentService *SentimentService,
	regimeService *RegimeService,
	strategyRouter *StrategyRouter,
	decisionService *DecisionService,
	orderService *OrderService,
	selectorService *SelectorService,
	logger *zap.Logger,
) *TradingLoop {
	return &TradingLoop{
		conf:             conf.Trading,
		selectionWindows: conf.Selection.Windows,
		marketService:    marketService,
		accountService:   accountService,
		indicatorService: indicatorService,
		sentimentService: sentimentService,
		regimeService:    regimeService,
		strategyRouter:   strategyRouter,
		decisionService:  decisionService,
		orderService:     orderService,
		selectorService:  selectorService,
		logger:           logger,
		now:              time.Now,
		startTime:        time.Now(),
		stopChan:         make(chan struct{}),
	}
}

// Start 启动交易循环
func (t *TradingLoop) Start(ctx context.Context) error {
	if t.isRunning {
		return fmt.Errorf("trading loop is already running")
	}

	t.isRunning = true
	t.startTime = time.Now()
	t.ctx, t.cancel = context.WithCancel(ctx)

	cronExpr := fmt.Sprintf("@every %ds", t.conf.IntervalSeconds)

	t.logger.Info("trading loop started",
		zap.Int("interval_seconds", t.conf.IntervalSeconds),
		zap.Int("max_stocks", t.conf.MaxStocks),
		zap.String("cron_expression", cronExpr))

	t.cron = cron.New()

	_, err := t.cron.AddFunc(cronExpr, func() {
		if err := t.ExecuteTick(context.Background()); err != nil {
			t.logger.Error("tick execution failed", zap.Error(err))
		}
	})
	if err != nil {
		t.isRunning = false
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	t.cron.Start()

	// 立即执行第一次
	go func() {
		if err := t.ExecuteTick(context.Background()); err != nil {
			t.logger.Error("first tick execution failed", zap.Error(err))
		}
	}()

	select {
	case <-t.stopChan:
		t.logger.Info("trading loop stopped by user")
		return nil
	case <-ctx.Done():
		t.logger.Info("trading loop stopped by context")
		return ctx.Err()
	}
}

// Stop 停止交易循环
func (t *TradingLoop) Stop() {
	if !t.isRunning {
		return
	}

	t.logger.Info("stopping trading loop...")

	if t.cron != nil {
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("cron scheduler stopped")
	}

	if t.cancel != nil {
		t.cancel()
	}

	t.isRunning = false
	close(t.stopChan)
	t.logger.Info("trading loop stopped")
}

// ExecuteTick 执行一轮监控（6步流程）
func (t *TradingLoop) ExecuteTick(ctx context.Context) error {
	now := t.now()
	if !InTradingSession(now) {
		t.logger.Debug("outside trading session, skip tick", zap.Time("now", now))
		return nil
	}

	t.iteration++
	tickStart := time.Now()

	t.logger.Info("========== MONITOR TICK START ==========",
		zap.Int("iteration", t.iteration),
		zap.Time("start_time", tickStart))

	// ========== Step 1: 市场情绪 ==========
	t.logger.Info("[STEP 1/6] Reading market sentiment...")
	sentiment, err := t.sentimentService.Reading(ctx, now.Format("20060102"))
	if err != nil {
		t.logger.Warn("[STEP 1/6] Sentiment unavailable, fallback to unknown", zap.Error(err))
		sentiment = &SentimentReading{TradeDate: now.Format("20060102"), Known: false}
	}
	t.logger.Info("[STEP 1/6] Market sentiment ready",
		zap.Float64("daily", sentiment.EffectiveDaily()),
		zap.Float64("long", sentiment.EffectiveLong()),
		zap.Bool("known", sentiment.Known))

	// ========== Step 2: 市场状态判定 ==========
	t.logger.Info("[STEP 2/6] Judging market regime...")
	verdict, err := t.regimeService.Judge(ctx, sentiment)
	if err != nil {
		t.logger.Warn("[STEP 2/6] Regime judge failed, fallback to neutral", zap.Error(err))
		verdict = NeutralVerdict()
	}
	t.logger.Info("[STEP 2/6] Market regime judged",
		zap.String("label", string(verdict.Label)),
		zap.Float64("score", verdict.Score),
		zap.Float64("confidence", verdict.Confidence),
		zap.Float64("take_profit_percent", verdict.TakeProfitPercent))

	// ========== Step 3: 账户快照 ==========
	t.logger.Info("[STEP 3/6] Getting account snapshot...")
	account, err := t.accountService.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("step 3 failed - account snapshot: %w", err)
	}
	t.logger.Info("[STEP 3/6] Account snapshot retrieved",
		zap.Float64("cash", account.Cash),
		zap.Float64("total_asset", account.TotalAsset),
		zap.Int("position_count", len(account.Positions)))

	// ========== Step 4: 持仓监控与卖出 ==========
	t.logger.Info("[STEP 4/6] Monitoring positions for sell signals...")
	held := make([]string, 0, len(account.Positions))
	for _, pos := range account.Positions {
		if pos.TotalVolume > 0 {
			held = append(held, pos.Symbol)
		}
	}
	groups := t.strategyRouter.Route(sentiment.EffectiveDaily(), held)
	assignments := make(map[string]string, len(held))
	for strategy, symbols := range groups {
		for _, symbol := range symbols {
			assignments[symbol] = strategy
		}
	}

	soldCount := 0
	for _, pos := range account.Positions {
		if pos.TotalVolume <= 0 {
			continue
		}
		if t.monitorPosition(ctx, pos, verdict, sentiment, assignments[pos.Symbol]) {
			soldCount++
		}
	}
	t.logger.Info("[STEP 4/6] Position monitoring completed",
		zap.Int("held", len(held)),
		zap.Int("sell_orders", soldCount))

	// ========== Step 5: 选股窗口 ==========
	t.logger.Info("[STEP 5/6] Checking selection window...")
	t.runSelectionIfDue(ctx, now)

	// ========== Step 6: 买入评估 ==========
	// 卖出委托是异步的，未必成交，持仓释放以下一轮账户快照为准
	t.logger.Info("[STEP 6/6] Evaluating buy candidates...")
	boughtCount, buyErr := t.evaluateBuys(ctx, account, sentiment, len(held))
	if errors.Is(buyErr, xe.ErrCapReached) {
		t.logger.Info("[STEP 6/6] Buy evaluation stopped at position cap",
			zap.Int("buy_orders", boughtCount))
	} else {
		t.logger.Info("[STEP 6/6] Buy evaluation completed",
			zap.Int("buy_orders", boughtCount))
	}

	t.logger.Info("========== MONITOR TICK END ==========",
		zap.Int("iteration", t.iteration),
		zap.Duration("duration", time.Since(tickStart)),
		zap.Int("sell_orders", soldCount),
		zap.Int("buy_orders", boughtCount))

	return nil
}

// monitorPosition 评估单个持仓，命中卖出信号则提交委托
// 单股异常只记录日志，不影响其余持仓
func (t *TradingLoop) monitorPosition(ctx context.Context, pos broker.Position, verdict *RegimeVerdict, sentiment *SentimentReading, strategy string) (sold bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("position monitor panic, skip symbol",
				zap.String("symbol", pos.Symbol), zap.Any("panic", r))
			sold = false
		}
	}()

	price, err := t.marketService.LatestPrice(ctx, pos.Symbol)
	if err != nil {
		t.logger.Warn("fetch latest price failed, skip position",
			zap.String("symbol", pos.Symbol), zap.Error(err))
		return false
	}

	bars, err := t.marketService.DailyBars(ctx, pos.Symbol, snapshotLookback)
	if err != nil {
		t.logger.Warn("fetch daily bars failed, skip position",
			zap.String("symbol", pos.Symbol), zap.Error(err))
		return false
	}

	snapshot, err := t.indicatorService.Snapshot(bars)
	if err != nil {
		t.logger.Warn("indicator snapshot failed, skip position",
			zap.String("symbol", pos.Symbol), zap.Error(err))
		return false
	}
	snapshot.Price = price

	decision, err := t.decisionService.EvaluateSell(pos, price, snapshot, verdict, sentiment)
	if err != nil {
		if errors.Is(err, xe.ErrT1Locked) {
			t.logger.Debug("position locked by T+1 rule",
				zap.String("symbol", pos.Symbol))
		} else {
			t.logger.Warn("sell evaluation failed",
				zap.String("symbol", pos.Symbol), zap.Error(err))
		}
		return false
	}
	if !decision.Sell {
		return false
	}

	t.logger.Info("sell signal triggered",
		zap.String("symbol", pos.Symbol),
		zap.Strings("reasons", decision.Reasons))

	if _, err := t.orderService.Submit(ctx, pos.Symbol, broker.OrderSideSell,
		decision.Quantity, decision.LimitPrice, strategy, strings.Join(decision.Reasons, "; ")); err != nil {
		t.logger.Error("submit sell order failed",
			zap.String("symbol", pos.Symbol), zap.Error(err))
		return false
	}
	return true
}

// runSelectionIfDue 处于选股时间窗且本窗口未跑过时执行选股
func (t *TradingLoop) runSelectionIfDue(ctx context.Context, now time.Time) {
	window, ok := matchWindow(now, t.selectionWindows)
	if !ok {
		t.logger.Debug("outside selection windows")
		return
	}

	key := now.Format("20060102") + " " + window
	t.mu.Lock()
	if t.lastSelectionRun == key {
		t.mu.Unlock()
		return
	}
	t.lastSelectionRun = key
	t.mu.Unlock()

	candidates, err := t.selectorService.Select(ctx)
	if err != nil {
		t.logger.Warn("candidate selection failed", zap.Error(err))
		return
	}

	t.mu.Lock()
	t.candidates = candidates
	t.mu.Unlock()

	t.logger.Info("candidate pool refreshed",
		zap.String("window", window),
		zap.Int("count", len(candidates)))
}

// evaluateBuys 逐个评估候选股，持股数量到达上限即停
// heldCount 取本轮开始时的持仓数，卖出成交前不释放名额
func (t *TradingLoop) evaluateBuys(ctx context.Context, account *broker.AccountSnapshot, sentiment *SentimentReading, heldCount int) (int, error) {
	maxStocks := t.decisionService.AdjustedMaxStocks(sentiment)
	if heldCount >= maxStocks {
		t.logger.Info("position count at cap, skip buys",
			zap.Int("held", heldCount), zap.Int("max_stocks", maxStocks))
		return 0, xe.ErrCapReached
	}

	heldSet := make(map[string]struct{}, len(account.Positions))
	for _, pos := range account.Positions {
		if pos.TotalVolume > 0 {
			heldSet[pos.Symbol] = struct{}{}
		}
	}

	t.mu.Lock()
	candidates := make([]Candidate, len(t.candidates))
	copy(candidates, t.candidates)
	t.mu.Unlock()

	cash := account.Cash
	bought := 0
	for _, c := range candidates {
		if heldCount+bought >= maxStocks {
			return bought, xe.ErrCapReached
		}
		if _, ok := heldSet[c.Symbol]; ok {
			continue
		}
		if t.orderService.HasLiveOrder(c.Symbol) {
			continue
		}
		if t.buyCandidate(ctx, c, cash, sentiment) {
			bought++
		}
	}
	return bought, nil
}

func (t *TradingLoop) buyCandidate(ctx context.Context, c Candidate, cash float64, sentiment *SentimentReading) (bought bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("buy evaluation panic, skip symbol",
				zap.String("symbol", c.Symbol), zap.Any("panic", r))
			bought = false
		}
	}()

	price, err := t.marketService.LatestPrice(ctx, c.Symbol)
	if err != nil {
		t.logger.Warn("fetch latest price failed, skip candidate",
			zap.String("symbol", c.Symbol), zap.Error(err))
		return false
	}

	var snapshot *IndicatorSnapshot
	bars, err := t.marketService.DailyBars(ctx, c.Symbol, snapshotLookback)
	if err == nil {
		snapshot, err = t.indicatorService.Snapshot(bars)
		if err != nil {
			snapshot = nil
		}
	}

	decision := t.decisionService.EvaluateBuy(c.Symbol, price, cash, snapshot, sentiment)
	if !decision.Buy {
		t.logger.Debug("candidate skipped",
			zap.String("symbol", c.Symbol), zap.String("reason", decision.Reason))
		return false
	}

	t.logger.Info("buy signal triggered",
		zap.String("symbol", c.Symbol),
		zap.String("name", c.Name),
		zap.Int("quantity", decision.Quantity),
		zap.String("reason", decision.Reason))

	if _, err := t.orderService.Submit(ctx, c.Symbol, broker.OrderSideBuy,
		decision.Quantity, price, "standard", decision.Reason); err != nil {
		t.logger.Error("submit buy order failed",
			zap.String("symbol", c.Symbol), zap.Error(err))
		return false
	}
	return true
}

// IsRunning 检查是否正在运行
func (t *TradingLoop) IsRunning() bool {
	return t.isRunning
}

// GetStatus 获取状态信息
func (t *TradingLoop) GetStatus() map[string]interface{} {
	t.mu.Lock()
	candidateCount := len(t.candidates)
	t.mu.Unlock()

	return map[string]interface{}{
		"is_running":       t.isRunning,
		"iteration":        t.iteration,
		"start_time":       t.startTime,
		"elapsed_hours":    time.Since(t.startTime).Hours(),
		"interval_seconds": t.conf.IntervalSeconds,
		"max_stocks":       t.conf.MaxStocks,
		"candidate_count":  candidateCount,
	}
}

// InTradingSession A股连续竞价时段：周一到周五 09:30-11:30、13:00-15:00
func InTradingSession(now time.Time) bool {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := now.Hour()*60 + now.Minute()
	morning := minutes >= 9*60+30 && minutes <= 11*60+30
	afternoon := minutes >= 13*60 && minutes <= 15*60
	return morning || afternoon
}

// matchWindow 判断当前时间落在哪个 "HH:MM-HH:MM" 时间窗内
func matchWindow(now time.Time, windows []string) (string, bool) {
	minutes := now.Hour()*60 + now.Minute()
	for _, w := range windows {
		parts := strings.SplitN(w, "-", 2)
		if len(parts) != 2 {
			continue
		}
		start, err1 := parseClock(strings.TrimSpace(parts[0]))
		end, err2 := parseClock(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			continue
		}
		if minutes >= start && minutes <= end {
			return w, true
		}
	}
	return "", false
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
