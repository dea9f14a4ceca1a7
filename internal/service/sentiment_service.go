package service

import (
	"context"
	"sort"
	"sync"

	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"atrader/internal/models"
	"atrader/internal/repo"
	"atrader/internal/xe"
	"atrader/pkg/market"
	"atrader/pkg/ta"
)

// 涨跌停判定阈值（%），覆盖绝大多数主板标的
const limitMoveThreshold = 9.5

// 长周期情绪窗口（交易日）
const longSentimentWindow = 20

// SentimentService 市场情绪（恐贪指数）计算服务
type SentimentService struct {
	logger *zap.Logger

	*orz.Service
	*repo.SentimentRepo

	provider market.Provider

	mu    sync.Mutex
	cache map[string]*SentimentReading // trade date -> reading
}

// NewSentimentService 创建情绪服务
func NewSentimentService(db *gorm.DB, provider market.Provider, logger *zap.Logger) *SentimentService {
	return &SentimentService{
		logger:        logger,
		Service:       orz.NewService(db),
		SentimentRepo: repo.NewSentimentRepo(db),
		provider:      provider,
		cache:         make(map[string]*SentimentReading),
	}
}

// SentimentReading 情绪读数，每个交易日计算并缓存一次
type SentimentReading struct {
	TradeDate         string  `json:"trade_date"`
	DailyIndex        float64 `json:"daily_index"` // [0,100]
	LongIndex         float64 `json:"long_index"`  // [0,100]
	Known             bool    `json:"known"`       // 数据完全缺失时为 false
	ReducedConfidence bool    `json:"reduced_confidence"`
}

// EffectiveDaily 下游使用的当日指数，未知时按中性50处理
func (r *SentimentReading) EffectiveDaily() float64 {
	if r == nil || !r.Known {
		return 50
	}
	return r.DailyIndex
}

// EffectiveLong 下游使用的长周期指数
func (r *SentimentReading) EffectiveLong() float64 {
	if r == nil || !r.Known {
		return 50
	}
	return r.LongIndex
}

// Reading 获取某交易日的情绪读数（带缓存）
func (s *SentimentService) Reading(ctx context.Context, tradeDate string) (*SentimentReading, error) {
	s.mu.Lock()
	if cached, ok := s.cache[tradeDate]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	reading := s.compute(ctx, tradeDate)

	s.mu.Lock()
	s.cache[tradeDate] = reading
	s.mu.Unlock()

	s.persist(ctx, reading)
	return reading, nil
}

// compute 计算当日与长周期指数
// 部分数据缺失只会降级结果，只有当日数据完全缺失才会返回 unknown
func (s *SentimentService) compute(ctx context.Context, tradeDate string) *SentimentReading {
	unknown := &SentimentReading{TradeDate: tradeDate, DailyIndex: 50, LongIndex: 50, Known: false, ReducedConfidence: true}

	dates, err := s.provider.GetTradeCalendar(ctx, tradeDate, longSentimentWindow+1)
	if err != nil || len(dates) == 0 {
		s.logger.Warn("trade calendar unavailable", zap.Error(err))
		dates = []string{tradeDate}
	}

	// 单次批量拉取整个窗口的全市场行情，禁止逐日调用
	quotes, err := s.provider.GetMarketDailyRange(ctx, dates[0], tradeDate)
	if err != nil {
		s.logger.Warn("market daily range unavailable",
			zap.String("trade_date", tradeDate),
			zap.Error(err))
		return unknown
	}

	byDate := make(map[string][]market.DailyQuote)
	for _, q := range quotes {
		byDate[q.TradeDate] = append(byDate[q.TradeDate], q)
	}

	todayRows := byDate[tradeDate]
	if len(todayRows) == 0 {
		s.logger.Warn("no market rows for trade date", zap.String("trade_date", tradeDate))
		return unknown
	}

	// 每个历史日期的市场总成交额，用于换手分量
	turnoverByDate := make(map[string]float64, len(byDate))
	for date, rows := range byDate {
		total := 0.0
		for _, row := range rows {
			total += row.Amount
		}
		turnoverByDate[date] = total
	}

	histDates := make([]string, 0, len(turnoverByDate))
	for date := range turnoverByDate {
		if date < tradeDate {
			histDates = append(histDates, date)
		}
	}
	sort.Strings(histDates)

	histTurnover := make([]float64, 0, len(histDates))
	for _, date := range histDates {
		histTurnover = append(histTurnover, turnoverByDate[date])
	}

	daily, components, ok := dailyIndex(todayRows, histTurnover)
	if !ok {
		return unknown
	}

	// 长周期指数：窗口内逐日指数的平均；任一环节失败则退回当日指数
	longIdx := daily
	longOK := true
	var history []float64
	for i, date := range histDates {
		idx, _, dayOK := dailyIndex(byDate[date], histTurnover[:i])
		if !dayOK {
			longOK = false
			break
		}
		history = append(history, idx)
	}
	if longOK && len(history) > 0 {
		history = append(history, daily)
		longIdx = ta.Mean(ta.LastValues(history, longSentimentWindow))
	}

	reading := &SentimentReading{
		TradeDate:         tradeDate,
		DailyIndex:        daily,
		LongIndex:         longIdx,
		Known:             true,
		ReducedConfidence: !longOK,
	}

	s.logger.Info("sentiment computed",
		zap.String("trade_date", tradeDate),
		zap.Float64("daily_index", daily),
		zap.Float64("long_index", longIdx),
		zap.Float64("up_ratio", components.upRatio),
		zap.Float64("limit_ratio", components.limitRatio),
		zap.Float64("turnover_score", components.turnoverScore))

	return reading
}

type sentimentComponents struct {
	upRatio       float64
	limitRatio    float64
	turnoverScore float64
}

// dailyIndex 计算单个交易日的恐贪指数
// index = 50 + 30*(up_ratio-0.5) + 10*limit_ratio + 10*turnover_score，裁剪到 [0,100]
func dailyIndex(rows []market.DailyQuote, histTurnover []float64) (float64, sentimentComponents, bool) {
	total := len(rows)
	if total == 0 {
		return 0, sentimentComponents{}, false
	}

	upCount := 0
	limitUp := 0
	limitDown := 0
	todayTurnover := 0.0
	for _, row := range rows {
		if row.PctChange > 0 {
			upCount++
		}
		if row.PctChange > limitMoveThreshold {
			limitUp++
		} else if row.PctChange < -limitMoveThreshold {
			limitDown++
		}
		todayTurnover += row.Amount
	}

	upRatio := float64(upCount) / float64(total)
	limitRatio := clamp(float64(limitUp-limitDown)/(0.1*float64(total)), -1, 1)

	turnoverScore := 0.0
	if len(histTurnover) > 0 {
		mean := ta.Mean(histTurnover)
		if mean > 0 {
			turnoverScore = clamp(2*(todayTurnover/mean-1), -1, 1)
		}
	}

	index := clamp(50+30*(upRatio-0.5)+10*limitRatio+10*turnoverScore, 0, 100)
	return index, sentimentComponents{upRatio: upRatio, limitRatio: limitRatio, turnoverScore: turnoverScore}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// persist 落库当日快照，失败只记日志
func (s *SentimentService) persist(ctx context.Context, reading *SentimentReading) {
	if _, err := s.SentimentRepo.FindByTradeDate(ctx, reading.TradeDate); err == nil {
		return
	}

	snapshot := &models.SentimentSnapshot{
		ID:         ulid.Make().String(),
		TradeDate:  reading.TradeDate,
		DailyIndex: reading.DailyIndex,
		LongIndex:  reading.LongIndex,
		Known:      reading.Known,
	}
	if err := s.SentimentRepo.Create(ctx, snapshot); err != nil {
		s.logger.Warn("failed to persist sentiment snapshot",
			zap.String("trade_date", reading.TradeDate),
			zap.Error(err))
	}
}

// MustKnown 读数未知时返回哨兵错误，供需要硬性数据的调用方使用
func (r *SentimentReading) MustKnown() error {
	if r == nil || !r.Known {
		return xe.ErrSentimentUnknown
	}
	return nil
}
