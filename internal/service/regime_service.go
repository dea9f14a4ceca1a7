package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"atrader/internal/config"
	"atrader/internal/models"
	"atrader/internal/repo"
	"atrader/pkg/market"
	"atrader/pkg/ta"
)

// RegimeLabel 市场状态标签
type RegimeLabel string

const (
	RegimeBull    RegimeLabel = "bull"
	RegimeBear    RegimeLabel = "bear"
	RegimeNeutral RegimeLabel = "neutral"
)

// 各因子权重
const (
	weightMASystem  = 0.35
	weightSentiment = 0.30
	weightHorizon   = 0.20
	weightVolume    = 0.15
)

// RegimeVerdict 市场状态判定结果，每个周期重新计算，不做持久状态
type RegimeVerdict struct {
	Label             RegimeLabel        `json:"label"`
	Score             float64            `json:"score"`      // [-1,1]
	Confidence        float64            `json:"confidence"` // [0,1]
	Threshold         float64            `json:"threshold"`
	Factors           map[string]float64 `json:"factors"`
	TakeProfitPercent float64            `json:"take_profit_percent"` // 随市场状态调整的止盈线
	JudgedAt          time.Time          `json:"judged_at"`
}

// NeutralVerdict 上游故障时的降级结果
func NeutralVerdict() *RegimeVerdict {
	return &RegimeVerdict{
		Label:             RegimeNeutral,
		Score:             0,
		Confidence:        0,
		Threshold:         0.3,
		Factors:           map[string]float64{},
		TakeProfitPercent: 15,
		JudgedAt:          time.Now(),
	}
}

// RegimeInputs 判定所需的全部输入
type RegimeInputs struct {
	IndexBars   map[string][]market.Bar // 指数代码 -> 日线（升序）
	RefBars     []market.Bar            // 参考指数，多周期收益率因子使用
	Sentiment   *SentimentReading
	DataQuality map[string]float64 // 指数代码 -> [0,1]
}

// RegimeService 市场状态判定服务
type RegimeService struct {
	logger *zap.Logger

	*orz.Service
	*repo.RegimeRepo

	conf          config.TradingConf
	marketService *MarketService
}

// NewRegimeService 创建市场状态服务
func NewRegimeService(db *gorm.DB, conf *config.Config, marketService *MarketService, logger *zap.Logger) *RegimeService {
	return &RegimeService{
		logger:        logger,
		Service:       orz.NewService(db),
		RegimeRepo:    repo.NewRegimeRepo(db),
		conf:          conf.Trading,
		marketService: marketService,
	}
}

// Judge 拉取指数行情并判定市场状态
func (s *RegimeService) Judge(ctx context.Context, sentiment *SentimentReading) (*RegimeVerdict, error) {
	indexBars, quality, err := s.marketService.CollectIndexBars(ctx, s.conf.IndexSymbols, 130)
	if err != nil {
		return nil, err
	}

	refBars := indexBars[s.conf.RefIndexSymbol]

	verdict := s.Evaluate(RegimeInputs{
		IndexBars:   indexBars,
		RefBars:     refBars,
		Sentiment:   sentiment,
		DataQuality: quality,
	})

	s.persist(ctx, verdict)
	return verdict, nil
}

// Evaluate 纯计算：由输入判定市场状态
// 无可用数据的因子直接剔除，总分只在存在因子的权重上归一
func (s *RegimeService) Evaluate(in RegimeInputs) *RegimeVerdict {
	factors := make(map[string]float64)
	weightSum := 0.0
	scoreSum := 0.0

	if v, ok := maSystemFactor(in.IndexBars); ok {
		factors["ma_system"] = v
		scoreSum += weightMASystem * v
		weightSum += weightMASystem
	}
	if v, ok := sentimentFactor(in.Sentiment); ok {
		factors["sentiment"] = v
		scoreSum += weightSentiment * v
		weightSum += weightSentiment
	}
	if v, ok := horizonReturnFactor(in.RefBars); ok {
		factors["horizon_return"] = v
		scoreSum += weightHorizon * v
		weightSum += weightHorizon
	}
	if v, ok := volumeDirectionFactor(in.RefBars); ok {
		factors["volume_direction"] = v
		scoreSum += weightVolume * v
		weightSum += weightVolume
	}

	score := 0.0
	if weightSum > 0 {
		score = scoreSum / weightSum
	}

	threshold := 0.25
	if meanQuality(in.DataQuality) >= 0.8 {
		threshold = 0.3
	}

	label := RegimeNeutral
	if score > threshold {
		label = RegimeBull
	} else if score < -threshold {
		label = RegimeBear
	}

	verdict := &RegimeVerdict{
		Label:             label,
		Score:             score,
		Confidence:        math.Min(math.Abs(score), 1),
		Threshold:         threshold,
		Factors:           factors,
		TakeProfitPercent: takeProfitFor(label),
		JudgedAt:          time.Now(),
	}

	s.logger.Info("market regime judged",
		zap.String("label", string(label)),
		zap.Float64("score", score),
		zap.Float64("confidence", verdict.Confidence),
		zap.Float64("threshold", threshold),
		zap.Any("factors", factors))

	return verdict
}

// takeProfitFor 市场状态对应的止盈线（%）
func takeProfitFor(label RegimeLabel) float64 {
	switch label {
	case RegimeBull:
		return 20
	case RegimeBear:
		return 10
	}
	return 15
}

// maSystemFactor 均线系统因子：多指数均线多头/空头排列 + 斜率 + 近期交叉
func maSystemFactor(indexBars map[string][]market.Bar) (float64, bool) {
	sum := 0.0
	count := 0

	for _, bars := range indexBars {
		if len(bars) < 60 {
			continue
		}

		closes := market.Closes(bars)
		ma5 := ta.SMA(closes, 5)
		ma20 := ta.SMA(closes, 20)
		ma60 := ta.SMA(closes, 60)

		price := ta.Last(closes, 0)
		m5 := ta.Last(ma5, 0)
		m20 := ta.Last(ma20, 0)
		m60 := ta.Last(ma60, 0)

		base := 0.0
		switch {
		case price > m5 && m5 > m20 && m20 > m60:
			base = 1
		case price < m5 && m5 < m20 && m20 < m60:
			base = -1
		case price > m5 && m5 > m20:
			base = 0.5
		case price < m5 && m5 < m20:
			base = -0.5
		}

		score := base

		slope5 := ta.Slope(ma5, 5)
		slope20 := ta.Slope(ma20, 5)
		if base > 0 && slope5 > 0 && slope20 > 0 {
			score += 0.2
		} else if base < 0 && slope5 < 0 && slope20 < 0 {
			score -= 0.2
		}

		score += recentCrossScore(ma5, ma20, 5)
		score += recentCrossScore(ma20, ma60, 5)

		sum += clamp(score, -1, 1)
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// recentCrossScore 最近 lookback 根内的金叉 +0.1，死叉 -0.1
func recentCrossScore(fast, slow []float64, lookback int) float64 {
	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}
	for offset := 0; offset < lookback && offset+1 < n; offset++ {
		cur := n - 1 - offset
		prev := cur - 1
		if fast[cur] > slow[cur] && fast[prev] <= slow[prev] {
			return 0.1
		}
		if fast[cur] <= slow[cur] && fast[prev] > slow[prev] {
			return -0.1
		}
	}
	return 0
}

// sentimentFactor 情绪因子：当日与长周期加权，极端区间封顶
func sentimentFactor(r *SentimentReading) (float64, bool) {
	if r == nil || !r.Known {
		return 0, false
	}

	daily := r.DailyIndex
	long := r.LongIndex
	weighted := 0.6*daily + 0.4*long

	var v float64
	switch {
	case weighted > 70:
		v = 1
	case weighted < 30:
		v = -1
	default:
		v = (weighted - 50) / 50
	}

	// 当日与长周期分歧超过20且方向相反时打折
	if math.Abs(daily-long) > 20 && (daily-50)*(long-50) < 0 {
		v *= 0.7
	}
	return v, true
}

// horizonReturnFactor 多周期收益率因子：5/20/60/120日收益归一化加权
func horizonReturnFactor(bars []market.Bar) (float64, bool) {
	if len(bars) < 121 {
		return 0, false
	}

	closes := market.Closes(bars)
	horizons := []struct {
		days    int
		divisor float64
		weight  float64
	}{
		{5, 3, 0.4},
		{20, 5, 0.3},
		{60, 10, 0.2},
		{120, 15, 0.1},
	}

	sum := 0.0
	for _, h := range horizons {
		retPct := (ta.Last(closes, 0)/ta.Last(closes, h.days) - 1) * 100
		sum += h.weight * clamp(retPct/h.divisor, -1, 1)
	}
	return clamp(sum, -1, 1), true
}

// volumeDirectionFactor 量价方向因子：近5日均量相对前15日的放大/萎缩配合价格方向
func volumeDirectionFactor(bars []market.Bar) (float64, bool) {
	if len(bars) < 21 {
		return 0, false
	}

	volumes := market.Volumes(bars)
	closes := market.Closes(bars)

	recent := ta.Mean(ta.LastValues(volumes, 5))
	prev := ta.Mean(volumes[len(volumes)-20 : len(volumes)-5])
	if prev <= 0 {
		return 0, false
	}

	volRatio := recent / prev
	ret5 := (ta.Last(closes, 0)/ta.Last(closes, 5) - 1) * 100

	volumeUp := volRatio > 1

	switch {
	case volumeUp && ret5 > 2:
		return 0.8, true
	case volumeUp && ret5 < -2:
		return -0.8, true
	case !volumeUp && ret5 > 1:
		return 0.1, true
	case !volumeUp && ret5 < -1:
		return -0.5, true
	}

	if ret5 > 0 {
		return 0.1, true
	} else if ret5 < 0 {
		return -0.1, true
	}
	return 0, true
}

func meanQuality(quality map[string]float64) float64 {
	if len(quality) == 0 {
		return 0
	}
	sum := 0.0
	for _, q := range quality {
		sum += q
	}
	return sum / float64(len(quality))
}

// persist 落库判定记录，失败只记日志
func (s *RegimeService) persist(ctx context.Context, verdict *RegimeVerdict) {
	factors, err := json.Marshal(verdict.Factors)
	if err != nil {
		factors = []byte("{}")
	}

	record := &models.RegimeRecord{
		ID:                ulid.Make().String(),
		Label:             string(verdict.Label),
		Score:             verdict.Score,
		Confidence:        verdict.Confidence,
		Threshold:         verdict.Threshold,
		Factors:           factors,
		TakeProfitPercent: verdict.TakeProfitPercent,
		JudgedAt:          verdict.JudgedAt,
	}
	if err := s.RegimeRepo.Create(ctx, record); err != nil {
		s.logger.Warn("failed to persist regime record", zap.Error(err))
	}
}
