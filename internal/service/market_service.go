package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"atrader/internal/models"
	"atrader/internal/repo"
	"atrader/internal/xe"
	"atrader/pkg/market"
)

// MarketService 行情数据服务
// 统一封装上游行情获取与本地日线缓存，下游服务不直接摸 Provider
type MarketService struct {
	logger *zap.Logger

	*orz.Service
	*repo.BarRepo

	provider market.Provider
}

// NewMarketService 创建行情服务
func NewMarketService(db *gorm.DB, provider market.Provider, logger *zap.Logger) *MarketService {
	return &MarketService{
		logger:   logger,
		Service:  orz.NewService(db),
		BarRepo:  repo.NewBarRepo(db),
		provider: provider,
	}
}

// Provider 暴露底层行情源，情绪服务需要市场级接口
func (s *MarketService) Provider() market.Provider {
	return s.provider
}

// LatestPrice 获取最新成交价
func (s *MarketService) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return s.provider.GetLatestPrice(ctx, symbol)
}

// DailyBars 获取近 lookback 根日线（升序）
// 上游成功时顺手落库，上游失败时回退本地缓存
func (s *MarketService) DailyBars(ctx context.Context, symbol string, lookback int) ([]market.Bar, error) {
	startDate, endDate := dateRange(lookback)

	bars, err := s.provider.GetDailyBars(ctx, symbol, startDate, endDate)
	if err != nil {
		s.logger.Warn("fetch daily bars failed, fallback to local cache",
			zap.String("symbol", symbol), zap.Error(err))
		return s.cachedBars(ctx, symbol, startDate, endDate, lookback)
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}

	s.saveBars(ctx, symbol, bars)
	return bars, nil
}

// CollectIndexBars 批量拉取指数日线并评估每个指数的数据质量
// 单个指数失败只降低整体质量，全部失败才算上游不可用
func (s *MarketService) CollectIndexBars(ctx context.Context, symbols []string, lookback int) (map[string][]market.Bar, map[string]float64, error) {
	indexBars := make(map[string][]market.Bar, len(symbols))
	quality := make(map[string]float64, len(symbols))

	for _, symbol := range symbols {
		bars, err := s.DailyBars(ctx, symbol, lookback)
		if err != nil {
			s.logger.Warn("collect index bars failed",
				zap.String("symbol", symbol), zap.Error(err))
			quality[symbol] = 0
			continue
		}
		indexBars[symbol] = bars
		quality[symbol] = barQuality(bars, lookback)
	}

	if len(indexBars) == 0 {
		return nil, nil, fmt.Errorf("%w: no index bars for %v", xe.ErrUpstreamUnavailable, symbols)
	}
	return indexBars, quality, nil
}

func (s *MarketService) cachedBars(ctx context.Context, symbol, startDate, endDate string, lookback int) ([]market.Bar, error) {
	records, err := s.BarRepo.FindRange(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xe.ErrUpstreamUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no cached bars for %s", xe.ErrUpstreamUnavailable, symbol)
	}

	bars := make([]market.Bar, 0, len(records))
	for _, r := range records {
		t, err := time.ParseInLocation("20060102", r.TradeDate, time.Local)
		if err != nil {
			continue
		}
		bars = append(bars, market.Bar{
			Time:   t,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
			Amount: r.Amount,
		})
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	return bars, nil
}

func (s *MarketService) saveBars(ctx context.Context, symbol string, bars []market.Bar) {
	if len(bars) == 0 {
		return
	}
	records := make([]models.DailyBar, 0, len(bars))
	for _, b := range bars {
		records = append(records, models.DailyBar{
			ID:        ulid.Make().String(),
			Symbol:    symbol,
			TradeDate: b.Time.Format("20060102"),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Amount:    b.Amount,
		})
	}
	if err := s.BarRepo.SaveBatch(ctx, records); err != nil {
		s.logger.Warn("save daily bars failed", zap.String("symbol", symbol), zap.Error(err))
	}
}

// barQuality 有效日线占比，作为数据质量分
func barQuality(bars []market.Bar, lookback int) float64 {
	if lookback <= 0 || len(bars) == 0 {
		return 0
	}
	valid := 0
	for _, b := range bars {
		if b.Valid() {
			valid++
		}
	}
	q := float64(valid) / float64(lookback)
	if q > 1 {
		q = 1
	}
	return q
}

// dateRange 自然日范围放宽到两倍回看窗口，覆盖节假日停牌
func dateRange(lookback int) (string, string) {
	now := time.Now()
	end := now.Format("20060102")
	start := now.AddDate(0, 0, -lookback*2).Format("20060102")
	return start, end
}
